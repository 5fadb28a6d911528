package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialdm/internal/adapter/api"
	"socialdm/internal/adapter/api/handler"
	"socialdm/internal/adapter/api/middleware"
	"socialdm/internal/adapter/api/router"
	"socialdm/internal/adapter/repository"
	"socialdm/internal/domain/entity"
	"socialdm/internal/infrastructure/firebase"
	ws "socialdm/internal/infrastructure/websocket"
	"socialdm/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fakeMedia struct{}

func (fakeMedia) Upload(_ context.Context, objectPath, _ string, _ []byte) (string, error) {
	return "https://cdn.example/" + objectPath, nil
}

type testServer struct {
	e         *echo.Echo
	profiles  *repository.MemoryProfileRepository
	wsManager *ws.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	conversations := repository.NewMemoryConversationRepository(store)
	messages := repository.NewMemoryMessageRepository(store)
	profiles := repository.NewMemoryProfileRepository(store)
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		profiles.PutProfile(entity.UserProfile{UserID: id, DisplayName: strings.ToUpper(id[:1]) + id[1:]})
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	wsManager := ws.NewManager()
	wsManager.Start(ctx)

	handler.Setup(handler.Dependencies{
		ConversationUseCase: usecase.NewConversationUseCase(conversations, messages, profiles, nil),
		MessageUseCase:      usecase.NewMessageUseCase(conversations, messages, nil, nil),
		MembershipUseCase:   usecase.NewMembershipUseCase(conversations, profiles),
		SubscriptionUseCase: usecase.NewSubscriptionUseCase(conversations, messages),
		MediaUseCase:        usecase.NewMediaUseCase(conversations, fakeMedia{}),
		WSManager:           wsManager,
		Environment:         "development",
	})
	handler.SetupDevTokenHandler(profiles)

	e := echo.New()
	e.Validator = api.NewValidator()
	router.Setup(e, middleware.NewAuthMiddleware(firebase.DevTokenVerifier{}), nil, "development")

	return &testServer{e: e, profiles: profiles, wsManager: wsManager}
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+firebase.DevToken(user))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server is running")
	assert.Contains(t, rec.Body.String(), "websocket_clients")
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDirectConversationFlow(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/v1/conversations/direct", "alice", map[string]string{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conv := decode[entity.ConversationDocument](t, env.Data)
	assert.Equal(t, entity.DirectConversationID("alice", "bob"), conv.ID)
	assert.Equal(t, "Bob", conv.ParticipantDetails["bob"].DisplayName)

	_, env = s.do(t, http.MethodPost, "/v1/conversations/direct", "bob", map[string]string{"user_id": "alice"})
	assert.Equal(t, conv.ID, decode[entity.ConversationDocument](t, env.Data).ID)

	path := "/v1/conversations/" + conv.ID + "/messages"
	for _, text := range []string{"one", "two", "three"} {
		rec, _ = s.do(t, http.MethodPost, path, "alice", map[string]string{"text": text})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec, env = s.do(t, http.MethodGet, path+"?page_size=2", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items      []entity.Message `json:"items"`
		NextCursor string           `json:"next_cursor"`
	}](t, env.Data)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "one", page.Items[0].Text)
	assert.NotEmpty(t, page.NextCursor)

	_, env = s.do(t, http.MethodGet, "/v1/conversations/"+conv.ID, "bob", nil)
	assert.Equal(t, 3, decode[entity.ConversationDocument](t, env.Data).UnreadCount["bob"])

	rec, env = s.do(t, http.MethodPut, path+"/read", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[map[string]int](t, env.Data)["marked_read"])

	_, env = s.do(t, http.MethodGet, "/v1/conversations", "bob", nil)
	list := decode[[]entity.ConversationDocument](t, env.Data)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].UnreadCount["bob"])
	assert.Equal(t, "three", list[0].LastMessage.Text)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	_, env := s.do(t, http.MethodPost, "/v1/conversations/direct", "alice", map[string]string{"user_id": "bob"})
	id := decode[entity.ConversationDocument](t, env.Data).ID

	rec, env := s.do(t, http.MethodGet, "/v1/conversations/"+id, "carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/v1/conversations/missing", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/v1/conversations/direct", "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/v1/conversations/"+id+"/messages", "alice", map[string]string{"type": "image"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/v1/conversations/"+id+"/participants", "alice", map[string]string{"user_id": "carol"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)
}

func TestGroupMembershipFlow(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/v1/conversations/groups", "carol", map[string]interface{}{"group_name": "Climbers"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode[entity.ConversationDocument](t, env.Data)
	base := "/v1/conversations/" + group.ID

	rec, _ = s.do(t, http.MethodPost, base+"/participants", "carol", map[string]string{"user_id": "dave"})
	require.Equal(t, http.StatusOK, rec.Code)

	approval := true
	rec, _ = s.do(t, http.MethodPut, base+"/approval", "carol", map[string]*bool{"require_approval": &approval})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodPost, base+"/participants", "dave", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	pending := decode[struct {
		Conversation entity.ConversationDocument `json:"conversation"`
		Pending      bool                        `json:"pending"`
	}](t, env.Data)
	assert.True(t, pending.Pending)
	require.Len(t, pending.Conversation.PendingRequests, 1)

	rec, _ = s.do(t, http.MethodPost, base+"/requests/alice/approve", "dave", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodPost, base+"/requests/alice/approve", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode[entity.ConversationDocument](t, env.Data)
	assert.Contains(t, approved.Participants, "alice")
	assert.Empty(t, approved.PendingRequests)

	rec, _ = s.do(t, http.MethodDelete, base+"/participants/carol", "carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/admins", "carol", map[string]string{"user_id": "dave"})
	require.Equal(t, http.StatusOK, rec.Code)

	name := "Boulderers"
	rec, env = s.do(t, http.MethodPatch, base, "dave", map[string]*string{"group_name": &name})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, name, decode[entity.ConversationDocument](t, env.Data).GroupName)

	rec, _ = s.do(t, http.MethodDelete, base+"/admins/dave", "dave", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/leave", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, base, "dave", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, base, "carol", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t)
	_, env := s.do(t, http.MethodPost, "/v1/conversations/direct", "alice", map[string]string{"user_id": "bob"})
	id := decode[entity.ConversationDocument](t, env.Data).ID

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 5, 4))))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+id+"/images", &body)
	req.Header.Set(echo.HeaderContentType, form.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+firebase.DevToken("alice"))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	result := decode[usecase.UploadedImage](t, uploaded.Data)
	assert.Equal(t, 5, result.Width)
	assert.Equal(t, 4, result.Height)
	assert.True(t, strings.HasPrefix(result.URL, "https://cdn.example/conversations/"+id+"/"))

	rec, _ = s.do(t, http.MethodPost, "/v1/conversations/"+id+"/messages", "alice", map[string]interface{}{
		"type":         "image",
		"image_url":    result.URL,
		"image_width":  result.Width,
		"image_height": result.Height,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestDevUserSeeding(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/_dev/users", "", map[string]string{"user_id": "erin", "display_name": "Erin"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := decode[map[string]interface{}](t, env.Data)["token"]
	assert.Equal(t, firebase.DevToken("erin"), token)

	rec, env = s.do(t, http.MethodPost, "/v1/conversations/direct", "alice", map[string]string{"user_id": "erin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Erin", decode[entity.ConversationDocument](t, env.Data).ParticipantDetails["erin"].DisplayName)
}
