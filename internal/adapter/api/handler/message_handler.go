package handler

import (
	"io"
	"strconv"

	"github.com/labstack/echo/v4"

	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/domain/entity"
	"socialdm/internal/usecase"
	"socialdm/pkg/errors"
	"socialdm/pkg/response"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
	mediaUseCase   *usecase.MediaUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase, mediaUseCase *usecase.MediaUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
		mediaUseCase:   mediaUseCase,
	}
}

type sendMessageRequest struct {
	ReceiverID  string `json:"receiver_id"`
	Type        string `json:"type" validate:"omitempty,oneof=text image"`
	Text        string `json:"text" validate:"max=4000"`
	ImageURL    string `json:"image_url" validate:"required_if=Type image"`
	ImageWidth  int    `json:"image_width" validate:"min=0"`
	ImageHeight int    `json:"image_height" validate:"min=0"`
}

func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Send(c.Request().Context(), usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		SenderID:       middleware.UserID(c),
		ReceiverID:     req.ReceiverID,
		Type:           entity.MessageType(req.Type),
		Text:           req.Text,
		ImageURL:       req.ImageURL,
		ImageWidth:     req.ImageWidth,
		ImageHeight:    req.ImageHeight,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

// List returns one page of messages oldest-first; pass next_cursor back as
// cursor for the following page.
func (h *MessageHandler) List(c echo.Context) error {
	pageSize := 0
	if raw := c.QueryParam("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return response.Error(c, errors.BadRequest("page_size must be a number", err))
		}
		pageSize = parsed
	}

	page, err := h.messageUseCase.GetMessages(c.Request().Context(), middleware.UserID(c), c.Param("id"), pageSize, c.QueryParam("cursor"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, page.Messages, page.NextCursor)
}

func (h *MessageHandler) MarkAllRead(c echo.Context) error {
	marked, err := h.messageUseCase.MarkAllRead(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked_read": marked})
}

func (h *MessageHandler) Delete(c echo.Context) error {
	err := h.messageUseCase.DeleteMessage(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Message deleted"})
}

// UploadImage stores the multipart "image" field and returns the url and
// dimensions to send with an image message.
func (h *MessageHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, errors.BadRequest("image file is required", err))
	}
	if file.Size > usecase.MaxImageSize {
		return response.Error(c, errors.BadRequest("Image exceeds the 10MB limit", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read image", err))
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, usecase.MaxImageSize+1))
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read image", err))
	}

	uploaded, err := h.mediaUseCase.UploadImage(c.Request().Context(), middleware.UserID(c), c.Param("id"), data)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, uploaded)
}
