package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrUnsupported reports that no speech recognizer is available. Callers
// continue without live transcription.
var ErrUnsupported = errors.New("speech recognition unsupported")

// ErrStopped reports that Stop was called before Start finished connecting.
var ErrStopped = errors.New("speech recognition stopped while starting")

// Event is a recognition result. Interim events replace the live text; a
// final event completes an utterance.
type Event struct {
	Final bool
	Text  string
}

// Capability is a continuous recognizer. Start must deliver events to out
// until ctx is cancelled or Stop is called, and must not block on out after
// ctx is done.
type Capability interface {
	Start(ctx context.Context, out chan<- Event) error
	Stop() error
}

// Channel wraps a Capability with idempotent start/stop and a single event
// stream for the session loop.
type Channel struct {
	capability Capability
	logger     *slog.Logger
	events     chan Event

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	starting bool
	aborted  bool
}

// NewChannel creates a channel for capability. A nil capability yields a
// channel whose Start reports ErrUnsupported.
func NewChannel(capability Capability, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		capability: capability,
		logger:     logger.With(slog.String("component", "speech")),
		events:     make(chan Event, 64),
	}
}

// Events returns the stream of recognition events.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Start begins continuous capture. Calling Start while running or starting
// is a no-op.
func (c *Channel) Start(ctx context.Context) error {
	if c.capability == nil {
		return ErrUnsupported
	}

	c.mu.Lock()
	if c.running || c.starting {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.starting = true
	c.aborted = false
	c.mu.Unlock()

	// The capability may dial the network. Stop must not wait behind it.
	err := c.capability.Start(runCtx, c.events)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false
	if c.aborted {
		cancel()
		c.cancel = nil
		if err == nil {
			if serr := c.capability.Stop(); serr != nil {
				c.logger.Warn("stop after aborted start failed", slog.String("error", serr.Error()))
			}
		}
		return ErrStopped
	}
	if err != nil {
		cancel()
		c.cancel = nil
		if errors.Is(err, ErrUnsupported) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	c.running = true
	c.logger.Info("speech recognition started")
	return nil
}

// Stop ends capture. It is safe to call repeatedly or before Start. A Stop
// during Start cancels the pending connection.
func (c *Channel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.starting {
		c.aborted = true
		c.cancel()
		return nil
	}
	if !c.running {
		return nil
	}
	c.running = false
	c.cancel()
	c.cancel = nil
	if err := c.capability.Stop(); err != nil {
		return fmt.Errorf("stop speech recognition: %w", err)
	}
	c.logger.Info("speech recognition stopped")
	return nil
}

// Running reports whether capture is active.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LiveBuffer holds the in-progress utterance. It is never persisted.
type LiveBuffer struct {
	text string
}

// Set replaces the live text with an interim result.
func (b *LiveBuffer) Set(text string) { b.text = strings.TrimSpace(text) }

// Clear empties the buffer.
func (b *LiveBuffer) Clear() { b.text = "" }

func (b *LiveBuffer) String() string { return b.text }
