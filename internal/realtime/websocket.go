package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/learnpath/internal/identity"
	"github.com/ashureev/learnpath/internal/metrics"
	"github.com/coder/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// StreamHandler upgrades requests to a WebSocket that streams the
// learner's progress events as JSON text messages.
type StreamHandler struct {
	hub            *Hub
	metrics        *metrics.Metrics
	originPatterns []string
}

// NewStreamHandler creates a stream handler. m may be nil.
func NewStreamHandler(hub *Hub, m *metrics.Metrics, originPatterns []string) *StreamHandler {
	return &StreamHandler{hub: hub, metrics: m, originPatterns: originPatterns}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	streamID, events, cancel := h.hub.Subscribe(userID)
	defer cancel()

	if h.metrics != nil {
		h.metrics.ProgressStreams.Inc()
		defer h.metrics.ProgressStreams.Dec()
	}
	slog.Info("Progress stream opened", "user_id", userID, "stream_id", streamID)

	// The client never sends data; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Progress stream closed", "user_id", userID, "stream_id", streamID)
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			if err := writeWithTimeout(ctx, ws, payload); err != nil {
				slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				return
			}
		case <-ticker.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, writeTimeout)
			err := ws.Ping(pingCtx)
			cancelPing()
			if err != nil {
				slog.Debug("WebSocket ping failed", "error", err, "user_id", userID)
				return
			}
		}
	}
}

func writeWithTimeout(ctx context.Context, ws *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, payload)
}
