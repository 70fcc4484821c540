package prompter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sjawhar/interview-coach/internal/transcript"
)

const synthesisTimeout = 2 * time.Minute

// Options tune synthesized speech.
type Options struct {
	Voice  string
	Speed  float64
	Logger *slog.Logger
}

// Prompter records interviewer prompts in the transcript and speaks them in
// the background. Only one prompt is spoken at a time.
type Prompter struct {
	store  *transcript.Store
	synth  Synthesizer
	player Player
	voice  string
	speed  float64
	logger *slog.Logger

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a prompter writing to store. A nil synth or player disables audio.
func New(store *transcript.Store, synth Synthesizer, player Player, opts Options) *Prompter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if synth == nil {
		synth = Silent{}
	}
	if player == nil {
		player = Discard{}
	}
	speed := opts.Speed
	if speed <= 0 {
		speed = 0.95
	}
	return &Prompter{
		store:  store,
		synth:  synth,
		player: player,
		voice:  opts.Voice,
		speed:  speed,
		logger: logger.With(slog.String("component", "prompter")),
	}
}

// Say appends an AI entry for text, makes it the current question and starts
// speaking it. Any prompt still being spoken is cancelled first.
func (p *Prompter) Say(text string) transcript.Entry {
	entry := p.store.Append(transcript.RoleAI, text)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	p.current = text
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		p.speak(ctx, text)
	}()

	return entry
}

func (p *Prompter) speak(ctx context.Context, text string) {
	chunks, errs := p.synth.Synthesize(ctx, Request{Text: text, Voice: p.voice, Speed: p.speed})
	for chunk := range chunks {
		if err := p.player.Play(ctx, chunk); err != nil {
			p.logger.Warn("prompt playback failed", slog.String("error", err.Error()))
			break
		}
	}
	// Synthesizers stop sending once ctx is done.
	if ctx.Err() == nil {
		for range chunks {
		}
	}
	for err := range errs {
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}
		p.logger.Warn("speech synthesis failed", slog.String("error", err.Error()))
	}
}

// Current returns the most recent prompt.
func (p *Prompter) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Cancel stops any in-flight synthesis. It is safe to call at any time.
func (p *Prompter) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait blocks until background synthesis has finished.
func (p *Prompter) Wait() {
	p.wg.Wait()
}
