// Package events fans relay outcomes out to websocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	PingPeriod   = 15 * time.Second // Keep-alive interval
	WriteWait    = 5 * time.Second
	ReadTimeout  = PingPeriod + 10*time.Second
	SendBuffer   = 64
	RecentEvents = 200
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Event is one finished relay action.
type Event struct {
	Action         string    `json:"action"`
	Status         string    `json:"status"`
	TxHash         string    `json:"txHash,omitempty"`
	MachineAddress string    `json:"machineAddress,omitempty"`
	EOAAddress     string    `json:"eoaAddress,omitempty"`
	Nonce          uint64    `json:"nonce,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher is what the relay needs from the hub.
type Publisher interface {
	Publish(ev Event)
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	recent   []Event
	upgrader websocket.Upgrader
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		recent: make([]Event, 0, RecentEvents),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish records ev and queues it for every subscriber. Slow subscribers are dropped.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Encode relay event failed", "error", err)
		return
	}

	h.mu.Lock()
	if len(h.recent) == RecentEvents {
		h.recent = append(h.recent[:0], h.recent[1:]...)
	}
	h.recent = append(h.recent, ev)
	var slow []*subscriber
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			slow = append(slow, sub)
		}
	}
	for _, sub := range slow {
		h.removeLocked(sub)
	}
	h.mu.Unlock()
}

// Recent returns a copy of the latest events, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res := make([]Event, len(h.recent))
	copy(res, h.recent)
	return res
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ServeWS upgrades the request and streams events until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, SendBuffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// readLoop only consumes control frames; subscribers never send data.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.remove(sub)
	sub.conn.SetReadDeadline(time.Now().Add(ReadTimeout))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(ReadTimeout))
		return nil
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()
	for {
		select {
		case <-h.ctx.Done():
			sub.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			_ = sub.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		case msg, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.cancel()
}
