package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/agrogestion/pkg/handlers"
	"github.com/JaimeStill/agrogestion/pkg/openapi"
	"github.com/JaimeStill/agrogestion/pkg/routes"
)

// Routes returns the HTTP surface of the host, relative to its mount point.
func (h *Host) Routes() routes.Group {
	channels := h.registry.Channels()
	enum := make([]any, len(channels))
	for i, ch := range channels {
		enum[i] = string(ch)
	}

	return routes.Group{
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "/channels",
				Handler: h.listChannels,
				OpenAPI: &openapi.Operation{
					Summary: "List registered channels",
					Tags:    []string{"Bridge"},
					Responses: map[int]*openapi.Response{
						200: {Description: "Channel names in registration order"},
					},
				},
			},
			{
				Method:  "POST",
				Pattern: "/invoke/{channel}",
				Handler: h.invoke,
				OpenAPI: &openapi.Operation{
					Summary:     "Invoke a channel",
					Description: "Body is a JSON array of positional arguments. Remote failures are reported in the envelope with status 200.",
					Tags:        []string{"Bridge"},
					Parameters:  []*openapi.Parameter{openapi.PathParam("channel", "Registered channel name", enum...)},
					RequestBody: openapi.RequestBodyJSON("InvokeArgs", false),
					Responses: map[int]*openapi.Response{
						200: openapi.JSONResponse("Operation envelope", "Envelope"),
						400: openapi.ResponseRef("BadRequest"),
						403: openapi.ResponseRef("Forbidden"),
						413: openapi.ResponseRef("PayloadTooLarge"),
					},
				},
			},
			{
				Method:  "GET",
				Pattern: "/ws",
				Handler: h.ServeWS,
				OpenAPI: &openapi.Operation{
					Summary:     "Multiplexed channel invocation over WebSocket",
					Description: "Frames are {id, channel, args} requests answered by {id, envelope} responses.",
					Tags:        []string{"Bridge"},
					Responses: map[int]*openapi.Response{
						101: {Description: "Switching protocols"},
					},
				},
			},
		},
	}
}

func (h *Host) listChannels(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.registry.Channels())
}

func (h *Host) invoke(w http.ResponseWriter, r *http.Request) {
	ch := Channel(r.PathValue("channel"))
	if err := h.registry.Check(ch); err != nil {
		h.logger.Warn("channel rejected", "channel", ch, "addr", r.RemoteAddr)
		handlers.RespondJSON(w, MapHTTPStatus(err), Fail[json.RawMessage](err.Error()))
		return
	}

	var args []json.RawMessage
	body := http.MaxBytesReader(w, r.Body, h.maxPayload)
	if err := json.NewDecoder(body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, maxErr.Limit)
		} else {
			err = fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		h.logger.Warn("invoke body rejected", "channel", ch, "error", err)
		handlers.RespondJSON(w, MapHTTPStatus(err), Fail[json.RawMessage](err.Error()))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, h.Dispatch(r.Context(), Request{Channel: ch, Args: args}))
}

// ClientConfig configures the UI-side transports.
type ClientConfig struct {
	// BaseURL is the host bridge mount, e.g. http://127.0.0.1:8080/bridge.
	BaseURL  string
	Registry *Registry
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// RateLimit caps outbound invocations per second; zero disables throttling.
	RateLimit  float64
	HTTPClient *http.Client
}

func (c *ClientConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if c.Registry == nil {
		return fmt.Errorf("registry required")
	}
	return nil
}

func (c *ClientConfig) limiter() *rate.Limiter {
	if c.RateLimit <= 0 {
		return nil
	}
	burst := max(int(c.RateLimit), 1)
	return rate.NewLimiter(rate.Limit(c.RateLimit), burst)
}

type httpClient struct {
	baseURL  string
	registry *Registry
	token    string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPClient creates a Surface that invokes channels over the host's HTTP endpoint.
func NewHTTPClient(cfg ClientConfig) (Surface, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &httpClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		registry: cfg.Registry,
		token:    cfg.Token,
		client:   client,
		limiter:  cfg.limiter(),
	}, nil
}

func (c *httpClient) Invoke(ctx context.Context, ch Channel, args ...any) (Envelope[json.RawMessage], error) {
	var zero Envelope[json.RawMessage]

	if err := c.registry.Check(ch); err != nil {
		return zero, err
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return zero, err
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return zero, fmt.Errorf("encode arguments: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("invoke %s: %w", ch, err)
		}
	}

	endpoint := c.baseURL + "/invoke/" + url.PathEscape(string(ch))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("invoke %s: %w", ch, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("invoke %s: %w", ch, err)
	}
	defer resp.Body.Close()

	var env Envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fmt.Errorf("invoke %s: status %d: decode envelope: %w", ch, resp.StatusCode, err)
	}

	return env, nil
}
