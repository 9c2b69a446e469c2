package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studytime-backend/internal/models"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func TestHubLocalPublish(t *testing.T) {
	hub := NewHub(nil, staticVerifier{"good": "alice"}, "", zap.NewNop())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections("alice") == 1 }, time.Second, 10*time.Millisecond)

	err = hub.Publish(context.Background(), "alice", models.WSMessage{
		Type:    models.EventSessionPaused,
		Payload: map[string]string{"id": "s-1"},
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, models.EventSessionPaused, msg.Type)
	assert.Equal(t, "s-1", msg.Payload["id"])
}

func TestHubRejectsBadToken(t *testing.T) {
	hub := NewHub(nil, staticVerifier{"good": "alice"}, "", zap.NewNop())

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=bad", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPublishWithoutConnections(t *testing.T) {
	hub := NewHub(nil, staticVerifier{}, "", zap.NewNop())
	assert.NoError(t, hub.Publish(context.Background(), "nobody", models.WSMessage{Type: models.EventSessionStarted}))
}
