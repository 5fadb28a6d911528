package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/google/uuid"

	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
	"socialdm/pkg/logger"
)

// MaxImageSize bounds chat image uploads.
const MaxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

type MediaUseCase struct {
	conversationRepo repository.ConversationRepository
	media            repository.MediaStore
}

func NewMediaUseCase(conversationRepo repository.ConversationRepository, media repository.MediaStore) *MediaUseCase {
	return &MediaUseCase{
		conversationRepo: conversationRepo,
		media:            media,
	}
}

// UploadedImage is what an image message needs: pass it on to Send.
type UploadedImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (uc *MediaUseCase) UploadImage(ctx context.Context, actorID, conversationID string, data []byte) (*UploadedImage, error) {
	if uc.media == nil {
		return nil, errors.New("MEDIA_DISABLED", "Image uploads are not enabled", http.StatusNotImplemented, nil)
	}
	if _, err := loadForParticipant(ctx, uc.conversationRepo, actorID, conversationID); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.BadRequest("Image is empty", nil)
	}
	if len(data) > MaxImageSize {
		return nil, errors.BadRequest("Image exceeds the 10MB limit", nil)
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, errors.BadRequest("Unsupported image type "+contentType, nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.BadRequest("Image could not be decoded", err)
	}

	objectPath := fmt.Sprintf("conversations/%s/%s%s", conversationID, uuid.New().String(), ext)
	url, err := uc.media.Upload(ctx, objectPath, contentType, data)
	if err != nil {
		logger.Error("UploadImage Error: %v", err)
		return nil, errors.Transient("Failed to upload image", err)
	}

	return &UploadedImage{URL: url, Width: cfg.Width, Height: cfg.Height}, nil
}
