package handler

import (
	"github.com/labstack/echo/v4"

	"socialdm/internal/domain/entity"
	"socialdm/internal/infrastructure/firebase"
	"socialdm/pkg/response"
)

// ProfileSeeder stores a profile so it can be denormalized into
// conversations. Only the in-memory store implements it.
type ProfileSeeder interface {
	PutProfile(profile entity.UserProfile)
}

type DevTokenHandler struct {
	profiles ProfileSeeder
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(profiles ProfileSeeder) *DevTokenHandler {
	return &DevTokenHandler{profiles: profiles}
}

func SetupDevTokenHandler(profiles ProfileSeeder) {
	devTokenHandler = NewDevTokenHandler(profiles)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devUserRequest struct {
	UserID      string `json:"user_id" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Username    string `json:"username" validate:"max=50"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,url"`
}

// CreateUser seeds a local user profile and returns a bearer token that the
// development verifier accepts.
func (h *DevTokenHandler) CreateUser(c echo.Context) error {
	var req devUserRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	profile := entity.UserProfile{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Username:    req.Username,
		PhotoURL:    req.PhotoURL,
	}
	h.profiles.PutProfile(profile)

	return response.Created(c, map[string]interface{}{
		"token": firebase.DevToken(req.UserID),
		"user":  profile,
	})
}
