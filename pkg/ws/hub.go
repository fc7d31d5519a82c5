package ws

import (
	"encoding/json"
	"sync"
	"time"

	"ChatBooks/pkg/zlog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub 按会话 ID 管理 websocket 连接，一个会话可以有多个连接（多个标签页）
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	if c == nil || c.sessionID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.sessionID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	if c == nil || c.sessionID == "" {
		return
	}
	h.mu.Lock()
	set := h.clients[c.sessionID]
	if set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.sessionID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Send 发给某个会话的全部连接；队列满的连接直接断开
func (h *Hub) Send(sessionID string, msgType int, payload []byte) bool {
	if sessionID == "" || len(payload) == 0 {
		return false
	}
	return h.deliver(h.snapshot(sessionID), msgType, payload)
}

func (h *Hub) SendJSON(sessionID string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Send(sessionID, websocket.TextMessage, b)
	return nil
}

// Broadcast 发给所有连接（导入进度等全局事件）
func (h *Hub) Broadcast(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.deliver(h.snapshot(""), websocket.TextMessage, b)
	return nil
}

func (h *Hub) snapshot(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0)
	for sid, set := range h.clients {
		if sessionID != "" && sid != sessionID {
			continue
		}
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) deliver(clients []*Client, msgType int, payload []byte) bool {
	ok := false
	for _, c := range clients {
		if c.enqueue(frame{msgType: msgType, data: payload}) {
			ok = true
			continue
		}
		h.Unregister(c)
	}
	return ok
}

type frame struct {
	msgType int
	data    []byte
}

type Client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan frame

	mu     sync.Mutex
	closed bool
}

func NewClient(sessionID string, conn *websocket.Conn) *Client {
	return &Client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan frame, 64),
	}
}

func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) enqueue(f frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	for f := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(f.msgType, f.data); err != nil {
			zlog.Error("ws write failed", zap.String("session_id", c.sessionID), zap.Error(err))
			return
		}
	}
}
