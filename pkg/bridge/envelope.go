package bridge

import (
	"encoding/json"
	"fmt"
)

// Envelope is the uniform result of every channel invocation.
// Data is meaningful only when Success is true; Error only when it is false.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// Ok wraps data in a successful envelope.
func Ok[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Fail builds a failed envelope carrying msg.
func Fail[T any](msg string) Envelope[T] {
	return Envelope[T]{Error: msg}
}

// MarshalJSON emits only the field gated by Success.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	if e.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Data    T    `json:"data"`
		}{true, e.Data})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{false, e.Error})
}

// Result converts the envelope into Go error handling.
// A failed envelope yields a *RemoteError carrying its message.
func (e Envelope[T]) Result() (T, error) {
	if !e.Success {
		var zero T
		return zero, &RemoteError{Message: e.Error}
	}
	return e.Data, nil
}

// Decode converts a raw envelope into a typed one.
// A failed raw envelope stays failed with the same message.
func Decode[T any](raw Envelope[json.RawMessage]) (Envelope[T], error) {
	if !raw.Success {
		return Fail[T](raw.Error), nil
	}

	var out Envelope[T]
	out.Success = true
	if len(raw.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw.Data, &out.Data); err != nil {
		return Envelope[T]{}, fmt.Errorf("decode envelope data: %w", err)
	}
	return out, nil
}
