package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/speech"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// Ticker is the engine's one second scheduler.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// EngineOptions tune an Engine.
type EngineOptions struct {
	// Generator, when set, is asked for a follow-up after every answer.
	Generator QuestionGenerator
	// NewTicker overrides the scheduler. Tests use it to drive the clock.
	NewTicker func(time.Duration) Ticker
	Logger    *slog.Logger
}

// Engine owns a Machine and serializes every operation, tick and speech
// event onto a single goroutine.
type Engine struct {
	machine   *Machine
	devices   Devices
	generator QuestionGenerator
	newTicker func(time.Duration) Ticker
	logger    *slog.Logger

	commands  chan func()
	generated chan string
	stream    Speech
	speech    <-chan speech.Event
	ticker    Ticker

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	quit      chan struct{}
	stopped   chan struct{}
	wg        sync.WaitGroup
}

// NewEngine starts the dispatch loop for a machine built from settings and deps.
func NewEngine(settings Settings, deps Deps, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	newTicker := opts.NewTicker
	if newTicker == nil {
		newTicker = newRealTicker
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		machine:   NewMachine(settings, deps),
		devices:   deps.Devices,
		generator: opts.Generator,
		newTicker: newTicker,
		logger:    logger.With(slog.String("component", "engine")),
		commands:  make(chan func()),
		generated: make(chan string),
		ctx:       ctx,
		cancel:    cancel,
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	if deps.Speech != nil {
		e.stream = deps.Speech
		e.speech = deps.Speech.Events()
	}

	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.stopped)

	for {
		var tick <-chan time.Time
		if e.ticker != nil {
			tick = e.ticker.C()
		}

		select {
		case <-e.quit:
			e.machine.Abandon()
			e.stopTicker()
			return
		case fn := <-e.commands:
			fn()
		case <-tick:
			e.machine.Tick()
		case ev := <-e.speech:
			if _, ok := e.machine.HandleSpeech(ev); ok {
				e.requestFollowUp()
			}
		case q := <-e.generated:
			e.machine.SetFollowUp(q)
		}

		if e.machine.State() == StateEnded {
			e.stopTicker()
		}
	}
}

func (e *Engine) stopTicker() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

// do runs fn on the loop and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.commands <- func() { fn(); close(done) }:
	case <-e.stopped:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

func (e *Engine) requestFollowUp() {
	if e.generator == nil {
		return
	}
	history := e.machine.Store().All()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		q, err := e.generator.FollowUp(e.ctx, history)
		if err != nil {
			if e.ctx.Err() == nil {
				e.logger.Warn("follow-up question failed, using question bank", slog.String("error", err.Error()))
			}
			return
		}
		select {
		case e.generated <- q:
		case <-e.ctx.Done():
		case <-e.stopped:
		}
	}()
}

// AcquireDevices opens the camera and microphone. The hardware call runs off
// the loop between two queued phases.
func (e *Engine) AcquireDevices(ctx context.Context) (device.Status, error) {
	var err error
	if derr := e.do(ctx, func() { err = e.machine.BeginAcquire() }); derr != nil {
		return device.Status{}, derr
	}
	if err != nil {
		return device.Status{}, err
	}

	status, acquireErr := e.devices.Acquire(ctx)

	if derr := e.do(context.Background(), func() {
		status, err = e.machine.FinishAcquire(status, acquireErr)
	}); derr != nil {
		_ = e.devices.Release()
		return device.Status{}, derr
	}
	return status, err
}

// ToggleCamera flips the camera flag before the session starts.
func (e *Engine) ToggleCamera(ctx context.Context) (device.Status, error) {
	var status device.Status
	var err error
	if derr := e.do(ctx, func() { status, err = e.machine.ToggleCamera() }); derr != nil {
		return device.Status{}, derr
	}
	return status, err
}

// ToggleMic flips the microphone flag before the session starts.
func (e *Engine) ToggleMic(ctx context.Context) (device.Status, error) {
	var status device.Status
	var err error
	if derr := e.do(ctx, func() { status, err = e.machine.ToggleMic() }); derr != nil {
		return device.Status{}, derr
	}
	return status, err
}

// CanStart reports whether Start would succeed for ctx.
func (e *Engine) CanStart(ctx context.Context) (bool, error) {
	var ok bool
	if err := e.do(ctx, func() { ok = e.machine.CanStart(ctx) }); err != nil {
		return false, err
	}
	return ok, nil
}

// Start begins the interview and arms the scheduler. Speech recognition is
// connected off the loop, so ticks and other calls proceed meanwhile.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	derr := e.do(ctx, func() {
		if err = e.machine.Start(ctx); err == nil {
			e.ticker = e.newTicker(time.Second)
		}
	})
	if derr != nil {
		return derr
	}
	if err != nil {
		return err
	}

	speechErr := e.machine.StartSpeech(ctx)

	if derr := e.do(context.Background(), func() { e.machine.SpeechStarted(speechErr) }); derr != nil {
		// The loop is gone and teardown already ran.
		if speechErr == nil && e.stream != nil {
			_ = e.stream.Stop()
		}
	}
	return nil
}

// End stops the interview.
func (e *Engine) End(ctx context.Context) error {
	var err error
	if derr := e.do(ctx, func() { err = e.machine.End() }); derr != nil {
		return derr
	}
	return err
}

// SubmitAnswer records a typed answer in degraded mode.
func (e *Engine) SubmitAnswer(ctx context.Context, text string) (transcript.Entry, error) {
	var entry transcript.Entry
	var err error
	derr := e.do(ctx, func() {
		if entry, err = e.machine.SubmitAnswer(text); err == nil {
			e.requestFollowUp()
		}
	})
	if derr != nil {
		return transcript.Entry{}, derr
	}
	return entry, err
}

// Snapshot returns the current view of the session.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := e.do(ctx, func() { snap = e.machine.Snapshot(ctx) }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Transcript returns all retained entries, oldest first.
func (e *Engine) Transcript() []transcript.Entry {
	return e.machine.Store().All()
}

// Export renders the transcript as a paginated document.
func (e *Engine) Export() transcript.Document {
	return e.machine.Export()
}

// Close abandons the session, runs teardown and stops the loop. It is safe to
// call more than once.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		close(e.quit)
	})

	select {
	case <-e.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
