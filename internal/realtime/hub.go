package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/meetgrid/internal/logging"
	"github.com/example/meetgrid/internal/registry"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Reserved text frames of the heartbeat protocol.
const (
	textPing = "ping"
	textPong = "pong"
)

// HubConfig tunes connection handling. Zero values take defaults.
type HubConfig struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	WriteTimeout      time.Duration
	// Now is the time source for liveness decisions.
	Now func() time.Time
}

// Hub runs the live connections of every room.
type Hub struct {
	registry   *registry.Registry
	dispatcher *Dispatcher
	cfg        HubConfig
	logger     *slog.Logger
}

// NewHub constructs a hub registering connections in reg.
func NewHub(reg *registry.Registry, dispatcher *Dispatcher, cfg HubConfig, logger *slog.Logger) *Hub {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{registry: reg, dispatcher: dispatcher, cfg: cfg, logger: logger}
}

type frameKind int

const (
	frameText frameKind = iota
	frameLiveness
	frameClosed
)

type frame struct {
	kind frameKind
	data []byte
	err  error
}

// Serve owns conn until the peer goes away or stops answering heartbeats.
// The connection is registered for room and participant for its lifetime
// and released exactly once when Serve returns.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, room, participant string) {
	client := newClient(conn, h.cfg.WriteTimeout)
	logger := logging.FromContextOr(ctx, h.logger).With(
		"room_id", room,
		"participant_id", participant,
		"conn_id", uuid.NewString(),
	)
	ctx = logging.ContextWithLogger(ctx, logger)

	h.registry.Register(room, participant, client)
	logger.InfoContext(ctx, "connection opened", "room_connections", h.registry.Len(room))

	closeCode, closeReason := websocket.CloseNormalClosure, ""
	defer func() {
		released := h.registry.Release(room, participant, client)
		_ = client.Close(closeCode, closeReason)
		logger.InfoContext(ctx, "connection closed", "released", released, "room_connections", h.registry.Len(room))
	}()

	done := make(chan struct{})
	defer close(done)
	frames := make(chan frame)
	push := func(f frame) bool {
		select {
		case frames <- f:
			return true
		case <-done:
			return false
		}
	}

	conn.SetPongHandler(func(string) error {
		push(frame{kind: frameLiveness})
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		err := client.control(ctx, websocket.PongMessage, []byte(data))
		push(frame{kind: frameLiveness})
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go func() {
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				push(frame{kind: frameClosed, err: err})
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if !push(frame{kind: frameText, data: data}) {
				return
			}
		}
	}()

	liveness := NewLiveness(h.cfg.Now(), h.cfg.HeartbeatTimeout)
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closeCode, closeReason = websocket.CloseGoingAway, "server shutting down"
			return

		case <-ticker.C:
			if !liveness.Tick(h.cfg.Now()) {
				logger.InfoContext(ctx, "heartbeat timed out", "timeout", h.cfg.HeartbeatTimeout)
				closeCode, closeReason = websocket.CloseGoingAway, "heartbeat timeout"
				return
			}
			if err := client.ping(ctx); err != nil {
				logger.WarnContext(ctx, "failed to send ping", "error", err)
			}

		case f := <-frames:
			switch f.kind {
			case frameClosed:
				if websocket.IsUnexpectedCloseError(f.err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					logger.WarnContext(ctx, "connection read failed", "error", f.err)
				}
				return
			case frameLiveness:
				liveness.Observe(h.cfg.Now())
			case frameText:
				h.handleText(ctx, logger, client, liveness, room, participant, f.data)
			}
		}
	}
}

func (h *Hub) handleText(ctx context.Context, logger *slog.Logger, client *Client, liveness *Liveness, room, participant string, data []byte) {
	switch string(data) {
	case textPing:
		liveness.Observe(h.cfg.Now())
		if err := client.sendText(ctx, textPong); err != nil {
			logger.WarnContext(ctx, "failed to answer ping", "error", err)
		}
		return
	case textPong:
		liveness.Observe(h.cfg.Now())
		return
	}
	_ = h.dispatcher.Dispatch(ctx, room, participant, client, data)
}
