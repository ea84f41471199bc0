package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const closeGrace = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the connection and serves multiplexed Requests until the
// peer disconnects. Requests are dispatched concurrently, at most
// maxInFlight at a time, and answered with a Response carrying the same ID.
// Calls already dispatched run to completion even if the peer goes away.
func (h *Host) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(h.maxPayload)

	h.logger.Debug("websocket client connected", "addr", r.RemoteAddr)

	var (
		writeMu  sync.Mutex
		inFlight errgroup.Group
	)
	inFlight.SetLimit(h.maxInFlight)
	ctx := context.WithoutCancel(r.Context())

	defer func() {
		inFlight.Wait()
		conn.Close()
		h.logger.Debug("websocket client disconnected", "addr", r.RemoteAddr)
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		inFlight.Go(func() error {
			resp := Response{ID: req.ID, Envelope: h.Dispatch(ctx, req)}

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(resp); err != nil {
				h.logger.Warn("websocket write failed", "channel", req.Channel, "error", err)
			}
			return nil
		})
	}
}

// WSClient is a Surface over a single WebSocket connection to the host.
// It is safe for concurrent use.
type WSClient struct {
	conn     *websocket.Conn
	registry *Registry
	limiter  *rate.Limiter

	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[string]chan Envelope[json.RawMessage]
	closed  chan struct{}
}

// DialWS connects to the host's WebSocket endpoint under cfg.BaseURL.
func DialWS(ctx context.Context, cfg ClientConfig) (*WSClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	endpoint, err := wsURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	dialer := *websocket.DefaultDialer
	if cfg.Timeout > 0 {
		dialer.HandshakeTimeout = cfg.Timeout
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &WSClient{
		conn:     conn,
		registry: cfg.Registry,
		limiter:  cfg.limiter(),
		pending:  make(map[string]chan Envelope[json.RawMessage]),
		closed:   make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

func (c *WSClient) readLoop() {
	defer close(c.closed)

	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return
		}

		c.mu.Lock()
		reply, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			reply <- resp.Envelope
		}
	}
}

func (c *WSClient) Invoke(ctx context.Context, ch Channel, args ...any) (Envelope[json.RawMessage], error) {
	var zero Envelope[json.RawMessage]

	if err := c.registry.Check(ch); err != nil {
		return zero, err
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return zero, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("invoke %s: %w", ch, err)
		}
	}

	req := Request{ID: uuid.NewString(), Channel: ch, Args: raw}
	reply := make(chan Envelope[json.RawMessage], 1)

	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		return zero, ErrClosed
	default:
	}
	c.pending[req.ID] = reply
	c.mu.Unlock()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return zero, fmt.Errorf("invoke %s: %w", ch, err)
	}

	select {
	case env := <-reply:
		return env, nil
	case <-c.closed:
		c.forget(req.ID)
		return zero, fmt.Errorf("invoke %s: %w", ch, ErrClosed)
	case <-ctx.Done():
		c.forget(req.ID)
		return zero, fmt.Errorf("invoke %s: %w", ch, ctx.Err())
	}
}

func (c *WSClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close sends a close frame and waits for the read loop to exit.
func (c *WSClient) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()

	if err != nil {
		c.conn.Close()
		<-c.closed
		return nil
	}

	c.conn.SetReadDeadline(time.Now().Add(closeGrace))
	<-c.closed
	return c.conn.Close()
}
