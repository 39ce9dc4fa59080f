package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

func newTestHub() (*Hub, *middleware.JWTAuth) {
	auth := middleware.NewJWTAuth("ws-secret", time.Hour)
	return NewHub(nil, auth, "*", slog.New(slog.NewTextHandler(io.Discard, nil))), auth
}

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	hub, _ := newTestHub()

	for _, target := range []string{"/ws", "/ws?token=garbage"} {
		rec := httptest.NewRecorder()
		hub.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", target, rec.Code)
		}
	}
}

func TestHandleWebSocket_DeliversToUser(t *testing.T) {
	hub, auth := newTestHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	userID := uuid.New()
	token, err := auth.GenerateAccessToken(userID, "ws@example.com", "free")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ConnectionCount(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var progress services.ProgressPublisher = hub
	if err := progress.Publish(context.Background(), userID, models.ProgressEvent{Step: "done"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(data), `"type":"progress"`) || !strings.Contains(string(data), `"step":"done"`) {
		t.Fatalf("unexpected message %s", data)
	}
}
