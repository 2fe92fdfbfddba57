package services

import (
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
	"github.com/scaffold-ai/scaffold_api/shared"
)

// UserService manages the profile behind lesson personalization. The
// adapt level and analogy set here only shape content generated after
// the change; cached decks keep the settings they were built with.
type UserService struct {
	appContext.DefaultService

	sqlSvc *SqlService
}

const USER_SVC = "user_svc"

func (svc UserService) Id() string {
	return USER_SVC
}

func (svc *UserService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *UserService) Start() error {
	svc.sqlSvc = svc.Service(SQL_SVC).(*SqlService)
	return nil
}

func (svc *UserService) GetProfile(uid string) (*dto.UserResponse, error) {
	user, err := svc.sqlSvc.GetUser(uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewNotFoundError("profile not found")
	}
	return toUserResponse(user), nil
}

// SaveProfile creates or fully overwrites the profile (onboarding
// flow).
func (svc *UserService) SaveProfile(uid string, req dto.SaveUserRequest) (*dto.UserResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError("Validation failed", dto.FormatValidationErrors(err))
	}

	adaptLevel := req.AdaptLevel
	if adaptLevel == 0 {
		adaptLevel = 5
	}

	user := &model.User{
		UID:        uid,
		Email:      req.Email,
		Name:       req.Name,
		Analogy:    req.Analogy,
		AdaptLevel: adaptLevel,
		School:     req.School,
		Country:    req.Country,
		Grade:      req.Grade,
		Bio:        req.Bio,
	}

	if err := svc.sqlSvc.SaveUser(user); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to save profile")
		return nil, shared.NewPersistenceError()
	}
	return toUserResponse(user), nil
}

// UpdateProfile patches individual fields; nil request fields are left
// untouched.
func (svc *UserService) UpdateProfile(uid string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError("Validation failed", dto.FormatValidationErrors(err))
	}

	user, err := svc.sqlSvc.GetUser(uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewNotFoundError("profile not found")
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Analogy != nil {
		user.Analogy = *req.Analogy
	}
	if req.AdaptLevel != nil {
		user.AdaptLevel = *req.AdaptLevel
	}
	if req.School != nil {
		user.School = *req.School
	}
	if req.Country != nil {
		user.Country = *req.Country
	}
	if req.Grade != nil {
		user.Grade = *req.Grade
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if err := svc.sqlSvc.SaveUser(user); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to update profile")
		return nil, shared.NewPersistenceError()
	}
	return toUserResponse(user), nil
}

func toUserResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		UID:        user.UID,
		Email:      user.Email,
		Name:       user.Name,
		Analogy:    user.Analogy,
		AdaptLevel: user.AdaptLevel,
		School:     user.School,
		Country:    user.Country,
		Grade:      user.Grade,
		Bio:        user.Bio,
		CreatedAt:  user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
