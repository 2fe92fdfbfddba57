package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/shared"
)

type NoteHandler struct {
	noteSvc NoteServiceInterface
}

func NewNoteHandler(noteSvc NoteServiceInterface) *NoteHandler {
	return &NoteHandler{noteSvc: noteSvc}
}

// @Summary Get note
// @Description Get the note for one submodule; empty content if never saved
// @Tags notes
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Success 200 {object} shared.Response{data=dto.NoteResponse}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/note [get]
func (h *NoteHandler) GetNote(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}

	resp, err := h.noteSvc.GetNote(ownerID(c), c.Params("courseId"), moduleIndex, subIndex)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary List course notes
// @Tags notes
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=dto.NoteListResponse}
// @Router /api/v1/courses/{courseId}/notes [get]
func (h *NoteHandler) ListNotes(c *fiber.Ctx) error {
	resp, err := h.noteSvc.ListNotes(ownerID(c), c.Params("courseId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Save note
// @Description Upsert the note for one submodule
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param saveRequest body dto.SaveNoteRequest true "Note content and location"
// @Success 200 {object} shared.Response{data=dto.NoteResponse}
// @Router /api/v1/notes [put]
func (h *NoteHandler) SaveNote(c *fiber.Ctx) error {
	var req dto.SaveNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	resp, err := h.noteSvc.SaveNote(ownerID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Note saved", resp)
}
