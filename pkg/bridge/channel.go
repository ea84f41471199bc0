// Package bridge implements the restricted boundary between an unprivileged UI
// process and the privileged host process that performs file-system and remote
// storage work on its behalf.
//
// Only channels listed in a Registry may cross the boundary. Every call resolves
// to an Envelope: a tagged success/failure result that is converted into Go
// error handling by client wrappers, not by the bridge itself.
package bridge

import (
	"fmt"
	"slices"
)

// Channel names a single operation exposed by the host process.
type Channel string

func (c Channel) String() string {
	return string(c)
}

// Registry is a fixed allow-list of channels. It is immutable once built.
type Registry struct {
	channels map[Channel]struct{}
	ordered  []Channel
}

// NewRegistry builds a Registry from an explicit channel list.
// Duplicates are ignored; an empty channel name panics.
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{
		channels: make(map[Channel]struct{}, len(channels)),
		ordered:  make([]Channel, 0, len(channels)),
	}

	for _, ch := range channels {
		if ch == "" {
			panic("bridge: registry channel name cannot be empty")
		}
		if _, ok := r.channels[ch]; ok {
			continue
		}
		r.channels[ch] = struct{}{}
		r.ordered = append(r.ordered, ch)
	}

	return r
}

// Allowed reports whether ch may cross the boundary. A nil registry allows nothing.
func (r *Registry) Allowed(ch Channel) bool {
	if r == nil {
		return false
	}
	_, ok := r.channels[ch]
	return ok
}

// Check returns ErrUnknownChannel, wrapped with the channel name, when ch is not allowed.
func (r *Registry) Check(ch Channel) error {
	if !r.Allowed(ch) {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	return nil
}

// Channels returns the registered channels in registration order.
func (r *Registry) Channels() []Channel {
	if r == nil {
		return nil
	}
	return slices.Clone(r.ordered)
}
