package handler

import (
	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/usecase"
	"socialdm/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type startDirectRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type createGroupRequest struct {
	GroupName      string   `json:"group_name" validate:"required,max=100"`
	ParticipantIDs []string `json:"participant_ids" validate:"max=256,dive,required"`
}

// StartDirect returns the caller's 1:1 conversation with user_id, creating
// it if needed.
func (h *ConversationHandler) StartDirect(c echo.Context) error {
	var req startDirectRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.conversationUseCase.StartDirect(c.Request().Context(), middleware.UserID(c), req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *ConversationHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.conversationUseCase.CreateGroup(c.Request().Context(), middleware.UserID(c), req.GroupName, req.ParticipantIDs)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conversationView(conv))
}

func (h *ConversationHandler) List(c echo.Context) error {
	conversations, err := h.conversationUseCase.List(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationViews(conversations))
}

func (h *ConversationHandler) Get(c echo.Context) error {
	conv, err := h.conversationUseCase.Get(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *ConversationHandler) Archive(c echo.Context) error {
	if err := h.conversationUseCase.Archive(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"archived": true})
}

func (h *ConversationHandler) Unarchive(c echo.Context) error {
	if err := h.conversationUseCase.Unarchive(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"archived": false})
}

func (h *ConversationHandler) Delete(c echo.Context) error {
	if err := h.conversationUseCase.Delete(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Conversation deleted"})
}

// RefreshProfile copies the caller's current profile into all of their
// conversations.
func (h *ConversationHandler) RefreshProfile(c echo.Context) error {
	updated, err := h.conversationUseCase.RefreshOwnProfile(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"updated_conversations": updated})
}
