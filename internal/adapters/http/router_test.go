package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/adapters/store"
	"github.com/dkeye/Lobby/internal/adapters/upload"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := store.NewMemory()
	require.NoError(t, gw.CreateRoom(context.Background(), "abc"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q := app.NewQueue(gw, app.DefaultQueueConfig())
	o := orch.New(q)
	require.NoError(t, o.Restore(ctx, gw))
	go func() { _ = q.Run(ctx) }()
	go func() { _ = o.Run(ctx) }()

	cfg := &config.Config{
		Mode:   "test",
		Secret: "secret",
		Store:  config.StoreConfig{Driver: "memory"},
		WS:     config.WSConfig{PingPeriod: time.Second, SendBuffer: 8, AllowedOrigins: []string{"*"}},
	}
	files := upload.NewService(upload.NewFSStore(afero.NewMemMapFs()), 1024)
	return SetupRouter(ctx, cfg, o, files)
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Awake(t *testing.T) {
	r := setup(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Server is awake!", w.Body.String())

	var ct *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" {
			ct = c
		}
	}
	require.NotNil(t, ct)
	assert.NotEmpty(t, ct.Value)
}

func TestRouter_Rooms(t *testing.T) {
	r := setup(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Rooms []string `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"general", "abc"}, body.Rooms)
}

func TestRouter_Members(t *testing.T) {
	r := setup(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/rooms/general/members", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"room":"general","members":[]}`, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/rooms/ghost/members", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Bans(t *testing.T) {
	r := setup(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/bans", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bans":[]}`, w.Body.String())
}

func multipartUpload(t *testing.T, room string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("room", room))
	require.NoError(t, mw.WriteField("username", "alice"))
	fw, err := mw.CreateFormFile("file", "pic.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRouter_UploadRoundTrip(t *testing.T) {
	r := setup(t)
	w := do(r, multipartUpload(t, "abc", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, strings.HasPrefix(body.URL, "/api/files/abc/"))

	w = do(r, httptest.NewRequest(http.MethodGet, body.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestRouter_UploadRejected(t *testing.T) {
	r := setup(t)

	w := do(r, multipartUpload(t, "general", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, multipartUpload(t, "abc", bytes.Repeat([]byte("x"), 2048)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/files/abc/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
