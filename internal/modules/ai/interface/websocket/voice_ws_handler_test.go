package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ChatBooks/internal/config"
	"ChatBooks/internal/middleware/jwt"
	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/internal/modules/ai/infrastructure/persistence"
	"ChatBooks/internal/modules/ai/infrastructure/pipeline"
	"ChatBooks/internal/modules/ai/infrastructure/speech"
	"ChatBooks/pkg/util/myjwt"
	"ChatBooks/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAsker struct{}

func (stubAsker) Ask(_ context.Context, req pipeline.AskRequest) (*pipeline.AskResult, error) {
	return &pipeline.AskResult{Answer: "answer to " + req.Question}, nil
}

type stubRecognizer struct{}

func (stubRecognizer) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	if string(audio) == "silence" {
		return "", speech.ErrUnknownValue
	}
	return string(audio), nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte("mp3:" + text), nil
}

func newServer(t *testing.T, hub *ws.Hub) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conf := config.JwtConfig{Key: "k", ExpireHours: 1}
	assistant := service.NewAssistantService(stubAsker{}, persistence.NewMemorySessionRepository())
	h := NewVoiceWSHandler(service.NewVoiceService(stubRecognizer{}, stubSynthesizer{}, assistant), hub, []string{"http://reader.test"})

	r := gin.New()
	r.GET("/ws/voice", jwt.Auth(conf), h.Voice)
	r.GET("/ws/events", jwt.Auth(conf), h.Events)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	token, err := myjwt.GenerateToken(conf, "S1")
	require.NoError(t, err)
	return srv, token
}

func dial(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUpgradeChecksOrigin(t *testing.T) {
	srv, token := newServer(t, ws.NewHub())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + token

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"no origin", "", true},
		{"same host", srv.URL, true},
		{"allowed", "http://reader.test", true},
		{"foreign", "http://evil.test", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestVoiceRoundTrip(t *testing.T) {
	srv, token := newServer(t, ws.NewHub())
	conn := dial(t, srv, "/ws/voice", token)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("what is a whale")))

	var out respond.VoiceRespond
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "answer", out.Type)
	assert.Equal(t, "what is a whale", out.Transcript)
	assert.Equal(t, "answer to what is a whale", out.Answer)
	assert.True(t, out.HasAudio)

	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, "mp3:answer to what is a whale", string(data))
}

func TestVoiceRecognitionError(t *testing.T) {
	srv, token := newServer(t, ws.NewHub())
	conn := dial(t, srv, "/ws/voice", token)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("silence")))
	var out respond.VoiceRespond
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "could not understand audio", out.Error)
}

func TestEventsReceivesBroadcast(t *testing.T) {
	hub := ws.NewHub()
	srv, token := newServer(t, hub)
	conn := dial(t, srv, "/ws/events", token)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Broadcast(map[string]string{"type": "ingest", "file_name": "a.pdf"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "a.pdf", msg["file_name"])
}
