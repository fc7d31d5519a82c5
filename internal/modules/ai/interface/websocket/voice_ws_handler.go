package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"ChatBooks/internal/middleware/jwt"
	"ChatBooks/internal/modules/ai/application/dto/respond"
	"ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/pkg/ws"
	"ChatBooks/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// 一段录音的上限，和 Whisper 的 25MB 限制一致
	maxAudioFrame = 25 << 20

	voiceFileName = "voice.webm"
)

// VoiceWSHandler 语音问答 + 全局事件推送
type VoiceWSHandler struct {
	voice    service.VoiceService
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewVoiceWSHandler origins 为允许握手的跨域来源，同源和非浏览器客户端总是放行
func NewVoiceWSHandler(voice service.VoiceService, hub *ws.Hub, origins []string) *VoiceWSHandler {
	return &VoiceWSHandler{
		voice: voice,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
				return true
			}
		}
		return false
	}
}

// Voice GET /ws/voice?token=<JWT>
//
// 客户端每发一个二进制帧（一段完整录音），服务端回一个 JSON 文本帧：
//
//	{"type":"answer","transcript":"...","answer":"...","has_audio":true}
//	{"type":"error","error":"could not understand audio"}
//
// has_audio 为 true 时紧跟一个 mp3 二进制帧。同一连接上的请求按顺序处理。
func (h *VoiceWSHandler) Voice(c *gin.Context) {
	sessionID := jwt.SessionID(c)
	if h.voice == nil || !h.voice.Enabled() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error("voice ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxAudioFrame)

	ctx := c.Request.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zlog.Warn("voice ws read failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		res, err := h.voice.Ask(ctx, sessionID, data, voiceFileName)
		if err != nil {
			zlog.Warn("voice ask failed", zap.String("session_id", sessionID), zap.Error(err))
			if werr := conn.WriteJSON(respond.VoiceRespond{Type: "error", Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		out := respond.VoiceRespond{
			Type:       "answer",
			Transcript: res.Transcript,
			Answer:     res.Answer,
			HasAudio:   len(res.Audio) > 0,
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
		if out.HasAudio {
			if err := conn.WriteMessage(websocket.BinaryMessage, res.Audio); err != nil {
				return
			}
		}
	}
}

// Events GET /ws/events?token=<JWT>：导入进度等服务端推送
func (h *VoiceWSHandler) Events(c *gin.Context) {
	sessionID := jwt.SessionID(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error("events ws upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(sessionID, conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client)
	go client.WritePump()

	// 只为了感知断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
