package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/usecase"
	"socialdm/pkg/response"
)

// GroupHandler exposes the group membership operations.
type GroupHandler struct {
	membershipUseCase *usecase.MembershipUseCase
}

func NewGroupHandler(membershipUseCase *usecase.MembershipUseCase) *GroupHandler {
	return &GroupHandler{
		membershipUseCase: membershipUseCase,
	}
}

type userRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type approvalRequest struct {
	RequireApproval *bool `json:"require_approval" validate:"required"`
}

type updateGroupRequest struct {
	GroupName  *string `json:"group_name" validate:"omitempty,max=100"`
	GroupPhoto *string `json:"group_photo"`
}

type membershipResponse struct {
	Conversation interface{} `json:"conversation"`
	Pending      bool        `json:"pending"`
}

func (h *GroupHandler) bindUser(c echo.Context) (string, error) {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return "", err
	}
	if err := c.Validate(&req); err != nil {
		return "", err
	}
	return req.UserID, nil
}

// AddParticipant answers 202 when the addition became a join request.
func (h *GroupHandler) AddParticipant(c echo.Context) error {
	userID, err := h.bindUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.membershipUseCase.AddParticipant(c.Request().Context(), middleware.UserID(c), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return membershipResult(c, result)
}

func (h *GroupHandler) Join(c echo.Context) error {
	result, err := h.membershipUseCase.JoinViaInvite(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return membershipResult(c, result)
}

func membershipResult(c echo.Context, result *usecase.MembershipResult) error {
	body := membershipResponse{Conversation: conversationView(result.Conversation), Pending: result.Pending}
	if result.Pending {
		return c.JSON(http.StatusAccepted, response.Response{
			Success:   true,
			Data:      body,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return response.Success(c, body)
}

func (h *GroupHandler) RemoveParticipant(c echo.Context) error {
	conv, err := h.membershipUseCase.RemoveParticipant(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *GroupHandler) Leave(c echo.Context) error {
	if err := h.membershipUseCase.LeaveGroup(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Left the group"})
}

func (h *GroupHandler) ApproveRequest(c echo.Context) error {
	conv, err := h.membershipUseCase.ApproveJoinRequest(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *GroupHandler) RejectRequest(c echo.Context) error {
	conv, err := h.membershipUseCase.RejectJoinRequest(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *GroupHandler) MakeAdmin(c echo.Context) error {
	userID, err := h.bindUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	conv, err := h.membershipUseCase.MakeAdmin(c.Request().Context(), middleware.UserID(c), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *GroupHandler) RemoveAdmin(c echo.Context) error {
	conv, err := h.membershipUseCase.RemoveAdmin(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *GroupHandler) SetRequireApproval(c echo.Context) error {
	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.membershipUseCase.SetRequireApproval(c.Request().Context(), middleware.UserID(c), c.Param("id"), *req.RequireApproval)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}

func (h *GroupHandler) UpdateDetails(c echo.Context) error {
	var req updateGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.membershipUseCase.UpdateGroupDetails(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.GroupName, req.GroupPhoto)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversationView(conv))
}
