package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxPayload bounds request bodies and WebSocket frames when no limit is configured.
const DefaultMaxPayload int64 = 64 * 1024 * 1024

// DefaultMaxInFlight bounds the requests dispatched at once for one WebSocket connection.
const DefaultMaxInFlight = 16

// HandlerFunc performs the host-side work of a channel.
// Returned values are JSON-encoded into a successful envelope;
// returned errors become failed envelopes carrying err.Error().
type HandlerFunc func(ctx context.Context, args []json.RawMessage) (any, error)

// Host is the privileged side of the bridge. It routes registered channels to
// their handlers and never executes anything for channels outside its registry.
type Host struct {
	registry    *Registry
	logger      *slog.Logger
	maxPayload  int64
	maxInFlight int

	mu       sync.RWMutex
	handlers map[Channel]HandlerFunc
}

// NewHost creates a Host bound to registry. A non-positive maxPayload uses DefaultMaxPayload.
func NewHost(registry *Registry, logger *slog.Logger, maxPayload int64) *Host {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Host{
		registry:    registry,
		logger:      logger.With("system", "bridge"),
		maxPayload:  maxPayload,
		maxInFlight: DefaultMaxInFlight,
		handlers:    make(map[Channel]HandlerFunc),
	}
}

// SetMaxInFlight sets how many requests one WebSocket connection may have
// dispatched at once. Further frames wait to be read until a slot frees.
// A non-positive n restores DefaultMaxInFlight.
func (h *Host) SetMaxInFlight(n int) {
	if n <= 0 {
		n = DefaultMaxInFlight
	}
	h.maxInFlight = n
}

// Registry returns the allow-list the host enforces.
func (h *Host) Registry() *Registry {
	return h.registry
}

// Handle binds fn to ch. Binding a channel outside the registry panics.
func (h *Host) Handle(ch Channel, fn HandlerFunc) {
	if err := h.registry.Check(ch); err != nil {
		panic(fmt.Sprintf("bridge: bind %s: %v", ch, err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[ch] = fn
}

// Dispatch runs the handler for req.Channel and wraps the outcome in an envelope.
// Every failure is logged here, where it is detected.
func (h *Host) Dispatch(ctx context.Context, req Request) (env Envelope[json.RawMessage]) {
	if err := h.registry.Check(req.Channel); err != nil {
		h.logger.Warn("channel rejected", "channel", req.Channel)
		return Fail[json.RawMessage](err.Error())
	}

	h.mu.RLock()
	fn, ok := h.handlers[req.Channel]
	h.mu.RUnlock()

	if !ok {
		err := fmt.Errorf("%w: %s", ErrNoHandler, req.Channel)
		h.logger.Error("channel unbound", "channel", req.Channel)
		return Fail[json.RawMessage](err.Error())
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("channel panicked", "channel", req.Channel, "panic", r)
			env = Fail[json.RawMessage](fmt.Sprintf("%s: internal error", req.Channel))
		}
	}()

	data, err := fn(ctx, req.Args)
	if err != nil {
		h.logger.Error("channel failed", "channel", req.Channel, "error", err)
		return Fail[json.RawMessage](err.Error())
	}

	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("channel result encoding failed", "channel", req.Channel, "error", err)
		return Fail[json.RawMessage](fmt.Sprintf("encode result: %v", err))
	}

	return Ok(json.RawMessage(raw))
}

type local struct {
	host *Host
}

// Local returns an in-process Surface over host. Arguments are still
// JSON-encoded so values cross the boundary exactly as they would remotely.
func Local(host *Host) Surface {
	return &local{host: host}
}

func (l *local) Invoke(ctx context.Context, ch Channel, args ...any) (Envelope[json.RawMessage], error) {
	if err := l.host.registry.Check(ch); err != nil {
		return Envelope[json.RawMessage]{}, err
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return Envelope[json.RawMessage]{}, err
	}

	return l.host.Dispatch(ctx, Request{Channel: ch, Args: raw}), nil
}
