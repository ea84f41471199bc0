package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Surface is the UI-side view of the bridge. Invoke fails with ErrUnknownChannel
// before any transport work when ch is outside the registry. Transport failures
// are returned as errors; remote failures arrive as failed envelopes.
type Surface interface {
	Invoke(ctx context.Context, ch Channel, args ...any) (Envelope[json.RawMessage], error)
}

// Request is a single channel invocation as it crosses the boundary.
type Request struct {
	ID      string            `json:"id,omitempty"`
	Channel Channel           `json:"channel"`
	Args    []json.RawMessage `json:"args"`
}

// Response pairs a request ID with its envelope on multiplexed transports.
type Response struct {
	ID       string                    `json:"id"`
	Envelope Envelope[json.RawMessage] `json:"envelope"`
}

var validate = validator.New()

// Arg decodes the positional argument at index i.
func Arg[T any](args []json.RawMessage, i int) (T, error) {
	var v T
	if i < 0 || i >= len(args) {
		return v, fmt.Errorf("%w: missing argument %d", ErrInvalidArgs, i)
	}
	if err := json.Unmarshal(args[i], &v); err != nil {
		return v, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgs, i, err)
	}
	return v, nil
}

// OptArg is Arg for trailing optional arguments: a missing or null argument
// yields the zero value.
func OptArg[T any](args []json.RawMessage, i int) (T, error) {
	if i >= len(args) || string(args[i]) == "null" {
		var v T
		return v, nil
	}
	return Arg[T](args, i)
}

// Bind decodes the struct argument at index i and validates its `validate` tags.
func Bind[T any](args []json.RawMessage, i int) (T, error) {
	v, err := Arg[T](args, i)
	if err != nil {
		return v, err
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return v, nil
}

func encodeArgs(args []any) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
		raw[i] = data
	}
	return raw, nil
}
