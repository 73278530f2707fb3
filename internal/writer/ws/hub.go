// internal/writer/ws/hub.go

// Package ws broadcasts drained samples to WebSocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tamzrod/force-daq/internal/poller"
)

// Payload formats.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

type Config struct {
	Listen string // empty: do not listen, serve through ServeHTTP only
	Path   string
	Format string
}

// Frame is one broadcast message: the batches drained from one channel.
type Frame struct {
	Channel string        `json:"channel" cbor:"channel"`
	Samples []FrameSample `json:"samples" cbor:"samples"`
}

type FrameSample struct {
	At    time.Time `json:"at" cbor:"at"`
	Kind  string    `json:"kind" cbor:"kind"`
	Text  string    `json:"text" cbor:"text"`
	Value *float64  `json:"value,omitempty" cbor:"value,omitempty"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub is a Writer that fans frames out to every connected subscriber.
// A subscriber that cannot keep up loses frames instead of stalling the
// drain loop.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader
	encode   func(any) ([]byte, error)
	msgType  int

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool

	srv *http.Server
	ln  net.Listener
	wg  sync.WaitGroup
}

// New builds a hub and, when cfg.Listen is set, starts serving cfg.Path.
func New(cfg Config, logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	h := &Hub{
		cfg:     cfg,
		log:     logger.With("sink", "websocket"),
		clients: make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	switch cfg.Format {
	case "", FormatJSON:
		h.encode, h.msgType = json.Marshal, websocket.TextMessage
	case FormatCBOR:
		h.encode, h.msgType = cbor.Marshal, websocket.BinaryMessage
	default:
		return nil, fmt.Errorf("writer ws: unknown format %q", cfg.Format)
	}

	if cfg.Listen == "" {
		return h, nil
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("writer ws: listen %s: %w", cfg.Listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, h)
	h.ln = ln
	h.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("websocket server stopped", "err", err)
		}
	}()
	h.log.Info("websocket listening", "addr", ln.Addr().String(), "path", cfg.Path)
	return h, nil
}

// Addr returns the listen address, or nil when not listening.
func (h *Hub) Addr() net.Addr {
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	h.wg.Add(2)
	h.mu.Unlock()

	h.log.Info("websocket client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", "client", c.id, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(h.msgType, msg); err != nil {
			h.log.Debug("websocket write error", "client", c.id, "err", err)
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.log.Info("websocket client disconnected", "client", c.id)
}

// Write broadcasts one frame per call. It never blocks on subscribers.
func (h *Hub) Write(channel string, batches []poller.Batch) error {
	samples := poller.Flatten(batches)
	if len(samples) == 0 {
		return nil
	}

	f := Frame{Channel: channel, Samples: make([]FrameSample, len(samples))}
	for i, s := range samples {
		fs := FrameSample{At: s.At, Kind: s.Kind.String(), Text: s.Text}
		if s.Numeric {
			v := s.Value
			fs.Value = &v
		}
		f.Samples[i] = fs
	}

	msg, err := h.encode(f)
	if err != nil {
		return fmt.Errorf("writer ws: encode: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debug("websocket client lagging, frame dropped", "client", c.id)
		}
	}
	return nil
}

// Close stops the server and disconnects every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var err error
	if h.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = h.srv.Shutdown(ctx)
		cancel()
	}

	for _, c := range clients {
		h.remove(c)
	}
	h.wg.Wait()
	return err
}
