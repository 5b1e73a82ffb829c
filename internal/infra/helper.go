package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

const (
	helperDialTimeout    = 10 * time.Second
	helperWriteTimeout   = 5 * time.Second
	helperReconnectDelay = 3 * time.Second
	helperEventBuffer    = 64
)

// helperMessage is the wire envelope exchanged with the platform helper.
// Inbound messages carry foreground and install events; outbound ones carry
// block commands.
type helperMessage struct {
	Type        string `json:"type,omitempty"`
	Command     string `json:"command,omitempty"`
	PackageName string `json:"packageName,omitempty"`
	Reason      string `json:"reason,omitempty"`
	TimestampMs int64  `json:"timestamp,omitempty"`
}

// HelperLink is the websocket connection to the platform helper process,
// which owns the OS-level accessibility hooks. It is both the agent's event
// source and its block surface. The link reconnects on failure; events are
// dropped while disconnected rather than queued on the helper side.
type HelperLink struct {
	url    string
	logger *zap.Logger

	// OnAppChanged fires for install/uninstall/update notifications.
	OnAppChanged func()

	events chan domain.ForegroundEvent

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewHelperLink(url string, logger *zap.Logger) *HelperLink {
	return &HelperLink{
		url:    url,
		logger: logger,
		events: make(chan domain.ForegroundEvent, helperEventBuffer),
	}
}

// Events returns the foreground event channel. It is closed when Run exits.
func (h *HelperLink) Events() <-chan domain.ForegroundEvent {
	return h.events
}

// Run maintains the helper connection until the context is cancelled,
// redialing after failures.
func (h *HelperLink) Run(ctx context.Context) {
	defer close(h.events)
	for {
		if err := h.connectAndRead(ctx); err != nil {
			h.logger.Warn("helper link lost", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(helperReconnectDelay):
		}
	}
}

func (h *HelperLink) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: helperDialTimeout}
	conn, _, err := dialer.DialContext(ctx, h.url, nil)
	if err != nil {
		return fmt.Errorf("dial helper: %w", err)
	}
	h.logger.Info("helper connected", zap.String("url", h.url))

	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.conn = nil
		h.mu.Unlock()
		conn.Close()
	}()

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read helper message: %w", err)
		}
		h.handleMessage(payload)
	}
}

func (h *HelperLink) handleMessage(payload []byte) {
	var msg helperMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Warn("malformed helper message", zap.Error(err))
		return
	}

	switch msg.Type {
	case "window_changed", "content_changed":
		ev := domain.ForegroundEvent{
			PackageName: msg.PackageName,
			Kind:        domain.EventKind(msg.Type),
			Timestamp:   time.UnixMilli(msg.TimestampMs),
		}
		if msg.TimestampMs == 0 {
			ev.Timestamp = time.Now()
		}
		select {
		case h.events <- ev:
		default:
			h.logger.Warn("event buffer full, dropping",
				zap.String("package", msg.PackageName))
		}
	case "app_changed":
		if h.OnAppChanged != nil {
			h.OnAppChanged()
		}
	default:
		h.logger.Debug("unknown helper message type", zap.String("type", msg.Type))
	}
}

// ShowBlock asks the helper to display the blocking overlay.
func (h *HelperLink) ShowBlock(packageName, reason string) error {
	return h.send(helperMessage{
		Command:     "show_block",
		PackageName: packageName,
		Reason:      reason,
	})
}

// NavigateHome asks the helper to return the device to the home screen.
func (h *HelperLink) NavigateHome() error {
	return h.send(helperMessage{Command: "navigate_home"})
}

func (h *HelperLink) send(msg helperMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return fmt.Errorf("helper not connected")
	}
	h.conn.SetWriteDeadline(time.Now().Add(helperWriteTimeout))
	if err := h.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Command, err)
	}
	return nil
}

var (
	_ domain.EventSource  = (*HelperLink)(nil)
	_ domain.BlockSurface = (*HelperLink)(nil)
)
