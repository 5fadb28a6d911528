package usecase

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialdm/pkg/errors"
)

type fakeMediaStore struct {
	paths        []string
	contentTypes []string
	err          error
}

func (s *fakeMediaStore) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.paths = append(s.paths, objectPath)
	s.contentTypes = append(s.contentTypes, contentType)
	return "https://cdn.example/" + objectPath, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t)
	id := f.direct(t, "alice", "bob").Base().ID
	store := &fakeMediaStore{}
	uc := NewMediaUseCase(f.conversations, store)

	uploaded, err := uc.UploadImage(f.ctx, "alice", id, pngBytes(t, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, uploaded.Width)
	assert.Equal(t, 2, uploaded.Height)
	require.Len(t, store.paths, 1)
	assert.True(t, strings.HasPrefix(store.paths[0], "conversations/"+id+"/"))
	assert.True(t, strings.HasSuffix(store.paths[0], ".png"))
	assert.Equal(t, "image/png", store.contentTypes[0])
	assert.Equal(t, "https://cdn.example/"+store.paths[0], uploaded.URL)

	msg, err := f.messageUC.Send(f.ctx, SendMessageInput{
		ConversationID: id,
		SenderID:       "alice",
		Type:           "image",
		ImageURL:       uploaded.URL,
		ImageWidth:     uploaded.Width,
		ImageHeight:    uploaded.Height,
	})
	require.NoError(t, err)
	assert.Equal(t, uploaded.URL, msg.ImageURL)
}

func TestUploadImageRejects(t *testing.T) {
	f := newFixture(t)
	id := f.direct(t, "alice", "bob").Base().ID
	uc := NewMediaUseCase(f.conversations, &fakeMediaStore{})

	_, err := uc.UploadImage(f.ctx, "carol", id, pngBytes(t, 1, 1))
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = uc.UploadImage(f.ctx, "alice", id, nil)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = uc.UploadImage(f.ctx, "alice", id, []byte("definitely not an image"))
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = uc.UploadImage(f.ctx, "alice", id, make([]byte, MaxImageSize+1))
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestUploadImageStoreFailureIsTransient(t *testing.T) {
	f := newFixture(t)
	id := f.direct(t, "alice", "bob").Base().ID
	uc := NewMediaUseCase(f.conversations, &fakeMediaStore{err: stderrors.New("bucket unavailable")})

	_, err := uc.UploadImage(f.ctx, "alice", id, pngBytes(t, 1, 1))
	assert.True(t, errors.Is(err, errors.CodeTransient))
}

func TestUploadImageDisabled(t *testing.T) {
	f := newFixture(t)
	id := f.direct(t, "alice", "bob").Base().ID
	uc := NewMediaUseCase(f.conversations, nil)

	_, err := uc.UploadImage(f.ctx, "alice", id, pngBytes(t, 1, 1))
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, http.StatusNotImplemented, appErr.Status)
}
