package prompter

import (
	"context"

	"github.com/go-audio/audio"
)

// Request contains parameters to synthesize one prompt.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Chunk is a block of decoded PCM audio ready for playback.
type Chunk struct {
	Sequence int
	Buffer   *audio.IntBuffer
	Final    bool
}

// Synthesizer is the contract for producing prompt audio. Implementations
// close both channels when done and stop sending once ctx is cancelled.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (<-chan Chunk, <-chan error)
}

// Player renders synthesized audio.
type Player interface {
	Play(ctx context.Context, chunk Chunk) error
}

// Silent is a Synthesizer that produces no audio.
type Silent struct{}

func (Silent) Synthesize(context.Context, Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error)
	close(chunks)
	close(errs)
	return chunks, errs
}

// Discard is a Player that drops audio.
type Discard struct{}

func (Discard) Play(context.Context, Chunk) error { return nil }

func send(ctx context.Context, chunks chan<- Chunk, chunk Chunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
