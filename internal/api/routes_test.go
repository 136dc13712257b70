package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"partychat/internal/models"
	"partychat/internal/repository"
	"partychat/internal/service"
	"partychat/internal/storage"
)

func setupRouter(t *testing.T, maxBytes int64) (*gin.Engine, *service.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repos := repository.NewSQLRepositories(&storage.DB{DB: db})

	objects, err := storage.NewFSObjectStoreWithFs(afero.NewMemMapFs(), "/uploads")
	if err != nil {
		t.Fatalf("NewFSObjectStoreWithFs() error = %v", err)
	}

	services := service.NewServices(repos, objects, service.Options{
		UploadMaxBytes:    maxBytes,
		UploadCacheMaxAge: time.Hour,
	}, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = services.Hub.Close(ctx)
	})

	r := gin.New()
	SetupRoutes(r, services, zerolog.Nop())
	return r, services
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, 1024)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestUpload_StoresAndServesFile(t *testing.T) {
	r, _ := setupRouter(t, 1024)

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("hello partychat"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result service.UploadResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(result.URL, "/files/") || !strings.HasSuffix(result.Key, "-notes.txt") {
		t.Fatalf("unexpected upload result: %+v", result)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, result.URL, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on download, got %d", w.Code)
	}
	if w.Body.String() != "hello partychat" {
		t.Errorf("unexpected file body: %q", w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control: %q", got)
	}
}

func TestUpload_Rejections(t *testing.T) {
	r, _ := setupRouter(t, 16)

	tests := []struct {
		name   string
		method string
		build  func() (*bytes.Buffer, string)
		want   int
	}{
		{
			name:   "not multipart",
			method: http.MethodPost,
			build: func() (*bytes.Buffer, string) {
				return bytes.NewBufferString(`{"file":"x"}`), "application/json"
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "missing file field",
			method: http.MethodPost,
			build: func() (*bytes.Buffer, string) {
				return multipartBody(t, "other", "a.txt", []byte("x"))
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "file above cap",
			method: http.MethodPost,
			build: func() (*bytes.Buffer, string) {
				return multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("x"), 32))
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "wrong method",
			method: http.MethodGet,
			build: func() (*bytes.Buffer, string) {
				return &bytes.Buffer{}, ""
			},
			want: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := tt.build()
			req := httptest.NewRequest(tt.method, "/upload", body)
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestDownload_NotFound(t *testing.T) {
	r, _ := setupRouter(t, 1024)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/123-missing.txt", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetMessages(t *testing.T) {
	r, _ := setupRouter(t, 1024)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/lobby/messages", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"messages":[]`) {
		t.Errorf("expected an empty message list, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/bad.name/messages", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid room, got %d", w.Code)
	}
}

func dialRoom(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/parties/chat/" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ([]byte, models.Event) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	ev, err := models.DecodeEvent(frame)
	if err != nil {
		t.Fatalf("DecodeEvent(%s) error = %v", frame, err)
	}
	return frame, ev
}

func TestWebSocket_BroadcastAndPersist(t *testing.T) {
	r, _ := setupRouter(t, 1024)
	srv := httptest.NewServer(r)
	defer srv.Close()

	alice := dialRoom(t, srv, "lobby")
	if _, ev := readEvent(t, alice); ev.Type() != models.EventAll {
		t.Fatalf("expected all event first, got %s", ev.Type())
	}
	bob := dialRoom(t, srv, "lobby")
	if _, ev := readEvent(t, bob); ev.Type() != models.EventAll {
		t.Fatalf("expected all event first, got %s", ev.Type())
	}

	sent := []byte(`{"type":"add","id":"m1","content":"<p>hi</p>","user":"Alice","role":"user"}`)
	if err := alice.WriteMessage(websocket.TextMessage, sent); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	frame, _ := readEvent(t, bob)
	if !bytes.Equal(frame, sent) {
		t.Errorf("expected the raw frame to be re-broadcast, got %s", frame)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms/lobby/messages", nil))
	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "m1" {
		t.Fatalf("expected m1 to be stored, got %+v", resp.Messages)
	}
	if resp.Messages[0].Timestamp == 0 {
		t.Errorf("expected a server timestamp")
	}

	carol := dialRoom(t, srv, "lobby")
	_, ev := readEvent(t, carol)
	all, ok := ev.(models.AllEvent)
	if !ok {
		t.Fatalf("expected models.AllEvent, got %T", ev)
	}
	if len(all.Messages) != 1 || all.Messages[0].Content != "<p>hi</p>" {
		t.Errorf("unexpected snapshot for new participant: %+v", all.Messages)
	}
}
