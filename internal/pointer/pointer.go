package pointer

import (
	"context"
	"fmt"
	"strings"
)

type Kind string

const (
	Down  Kind = "down"
	Move  Kind = "move"
	Up    Kind = "up"
	Leave Kind = "leave"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case Down, Move, Up, Leave:
		return k, nil
	}
	return "", fmt.Errorf("unknown pointer event %q", raw)
}

// Event is one sample from a single pointer. X is in logical pixels,
// TimeMs is a monotonic millisecond timestamp.
type Event struct {
	Kind   Kind
	X      float64
	TimeMs int64
}

type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

// ChannelSource is a Source fed by Push; the HTTP API and the evdev reader
// both write into one.
type ChannelSource struct{ ch chan Event }

func NewChannelSource(buffer int) *ChannelSource {
	if buffer < 1 {
		buffer = 64
	}
	return &ChannelSource{ch: make(chan Event, buffer)}
}

func (s *ChannelSource) Start(ctx context.Context) error { return nil }
func (s *ChannelSource) Stop() error                     { return nil }
func (s *ChannelSource) Events() <-chan Event            { return s.ch }

// Push queues ev, waiting for room until ctx is done.
func (s *ChannelSource) Push(ctx context.Context, ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
