package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/shared"
)

type UserHandler struct {
	userSvc UserServiceInterface
}

func NewUserHandler(userSvc UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// @Summary Get profile
// @Tags profile
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.UserResponse}
// @Router /api/v1/profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	resp, err := h.userSvc.GetProfile(ownerID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Save profile
// @Description Create or overwrite the profile (onboarding)
// @Tags profile
// @Accept json
// @Produce json
// @Security Bearer
// @Param saveRequest body dto.SaveUserRequest true "Profile data"
// @Success 200 {object} shared.Response{data=dto.UserResponse}
// @Router /api/v1/profile [post]
func (h *UserHandler) SaveProfile(c *fiber.Ctx) error {
	var req dto.SaveUserRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	resp, err := h.userSvc.SaveProfile(ownerID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Profile saved", resp)
}

// @Summary Update profile
// @Description Patch individual profile fields
// @Tags profile
// @Accept json
// @Produce json
// @Security Bearer
// @Param updateRequest body dto.UpdateUserRequest true "Fields to update"
// @Success 200 {object} shared.Response{data=dto.UserResponse}
// @Router /api/v1/profile [patch]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	resp, err := h.userSvc.UpdateProfile(ownerID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Profile updated", resp)
}
