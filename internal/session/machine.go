package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/prompter"
	"github.com/sjawhar/interview-coach/internal/sentiment"
	"github.com/sjawhar/interview-coach/internal/speech"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// Deps are the collaborators of a Machine. Devices is required; every other
// field has a usable default.
type Deps struct {
	Devices    Devices
	Speech     Speech
	Prompter   Prompter
	Store      *transcript.Store
	Classifier sentiment.Classifier
	Questions  QuestionSource
	Gate       Gate
	Notifier   Notifier
	Sink       EventSink
	Logger     *slog.Logger
}

// Machine is the interview state machine. It is not safe for concurrent use;
// Engine serializes every call onto one goroutine.
type Machine struct {
	settings   Settings
	devices    Devices
	speech     Speech
	prompter   Prompter
	store      *transcript.Store
	classifier sentiment.Classifier
	questions  QuestionSource
	gate       Gate
	notifier   Notifier
	sink       EventSink
	logger     *slog.Logger

	state     State
	timers    TimerPair
	live      speech.LiveBuffer
	mood      sentiment.Sentiment
	degraded  bool
	acquiring bool
	tornDown  bool
	advances  int
	followUp  string
}

// NewMachine creates a machine in StateIdle.
func NewMachine(settings Settings, deps Deps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := deps.Store
	if store == nil {
		store = transcript.NewStore(0)
	}
	m := &Machine{
		settings:   settings,
		devices:    deps.Devices,
		speech:     deps.Speech,
		prompter:   deps.Prompter,
		store:      store,
		classifier: deps.Classifier,
		questions:  deps.Questions,
		gate:       deps.Gate,
		notifier:   deps.Notifier,
		sink:       deps.Sink,
		logger:     logger.With(slog.String("component", "session")),
		mood:       sentiment.Steady,
	}
	if m.prompter == nil {
		m.prompter = prompter.New(store, nil, nil, prompter.Options{Logger: logger})
	}
	if m.classifier == nil {
		m.classifier = sentiment.NewLexiconScorer(sentiment.DefaultLexicon())
	}
	if m.gate == nil {
		m.gate = AllowAll{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.sink == nil {
		m.sink = NopSink{}
	}
	return m
}

// State returns the current lifecycle phase.
func (m *Machine) State() State { return m.state }

// Timers returns the remaining time.
func (m *Machine) Timers() TimerPair { return m.timers }

// Store returns the transcript backing the session.
func (m *Machine) Store() *transcript.Store { return m.store }

// BeginAcquire marks an acquisition as pending. Only one may be in flight.
func (m *Machine) BeginAcquire() error {
	if m.state != StateIdle && m.state != StateChecking {
		return fmt.Errorf("%w: cannot acquire devices while %s", ErrInvalidTransition, m.state)
	}
	if m.acquiring {
		return fmt.Errorf("%w: acquisition already in progress", ErrInvalidTransition)
	}
	m.acquiring = true
	return nil
}

// FinishAcquire applies the result of a device acquisition started with
// BeginAcquire.
func (m *Machine) FinishAcquire(status device.Status, acquireErr error) (device.Status, error) {
	m.acquiring = false

	if m.state != StateIdle && m.state != StateChecking {
		// The session was abandoned while the hardware call was pending.
		m.releaseDevices()
		return device.Status{}, fmt.Errorf("%w: session is %s", ErrInvalidTransition, m.state)
	}

	if acquireErr != nil {
		m.logger.Warn("device acquisition failed", slog.String("error", acquireErr.Error()))
		m.notifier.Notify(MsgDevicesRequired)
		m.setState(StateIdle, ReasonAcquireFailed)
		m.sink.DevicesChanged(device.Status{})
		return device.Status{}, acquireErr
	}

	m.setState(StateChecking, ReasonAcquired)
	m.sink.DevicesChanged(status)
	return status, nil
}

// ToggleCamera flips the camera flag. It is only valid before the session starts.
func (m *Machine) ToggleCamera() (device.Status, error) {
	return m.toggle(m.devices.ToggleCamera)
}

// ToggleMic flips the microphone flag. It is only valid before the session starts.
func (m *Machine) ToggleMic() (device.Status, error) {
	return m.toggle(m.devices.ToggleMic)
}

func (m *Machine) toggle(fn func() (device.Status, error)) (device.Status, error) {
	switch m.state {
	case StateActive:
		m.notifier.Notify(MsgDevicesLocked)
		return m.devices.Status(), fmt.Errorf("%w: devices are locked while %s", ErrInvalidTransition, m.state)
	case StateEnded:
		m.notifier.Notify(MsgSessionEnded)
		return m.devices.Status(), fmt.Errorf("%w: devices are released once the session has %s", ErrInvalidTransition, m.state)
	}
	status, err := fn()
	if err != nil {
		if errors.Is(err, device.ErrLocked) || errors.Is(err, device.ErrNotAcquired) {
			return status, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		return status, err
	}
	m.sink.DevicesChanged(status)
	return status, nil
}

// CanStart reports whether both devices are enabled and the caller is authorized.
func (m *Machine) CanStart(ctx context.Context) bool {
	return m.state == StateChecking && m.devices.Status().Ready() && m.gate.Authorized(ctx)
}

// Start moves Checking to Active: it locks the devices, asks the opening
// question and arms both timers. Recognition is started separately with
// StartSpeech and its outcome applied with SpeechStarted.
func (m *Machine) Start(ctx context.Context) error {
	if m.state != StateChecking || m.acquiring {
		m.notifier.Notify(MsgEnableDevices)
		return fmt.Errorf("%w: cannot start while %s", ErrInvalidTransition, m.state)
	}
	if !m.devices.Status().Ready() {
		m.notifier.Notify(MsgEnableDevices)
		return fmt.Errorf("%w: camera and microphone must both be enabled", ErrInvalidTransition)
	}
	if !m.gate.Authorized(ctx) {
		m.notifier.Notify(MsgNotAuthorized)
		return ErrUnauthorized
	}

	m.devices.Lock()
	m.timers = TimerPair{Total: m.settings.totalSeconds(), Question: m.settings.questionSeconds()}
	m.setState(StateActive, ReasonStarted)

	m.ask(m.settings.OpeningPrompt, false)
	m.sink.TimersChanged(m.timers)
	return nil
}

// StartSpeech begins recognition. It may block on the network and reads no
// machine state, so Engine calls it off the loop.
func (m *Machine) StartSpeech(ctx context.Context) error {
	if m.speech == nil {
		return speech.ErrUnsupported
	}
	// Recognition outlives the request that started the session.
	return m.speech.Start(context.WithoutCancel(ctx))
}

// SpeechStarted applies the result of StartSpeech. A failure degrades the
// session to typed answers. If the session ended meanwhile, recognition is
// stopped again.
func (m *Machine) SpeechStarted(err error) {
	if m.state != StateActive {
		if err == nil {
			m.stopSpeech()
		}
		return
	}
	if err != nil {
		m.degraded = true
		m.logger.Warn("continuing without live transcription", slog.String("error", err.Error()))
		m.notifier.Notify(MsgSpeechUnavailable)
	}
}

func (m *Machine) stopSpeech() {
	if m.speech == nil {
		return
	}
	if err := m.speech.Stop(); err != nil {
		m.logger.Warn("stop speech failed", slog.String("error", err.Error()))
	}
}

// Tick advances the clock by one second. Session expiry wins over question
// expiry in the same tick.
func (m *Machine) Tick() {
	if m.state != StateActive {
		return
	}
	m.timers.Total--
	m.timers.Question--

	if m.timers.Total <= 0 {
		m.timers.Total = 0
		m.sink.TimersChanged(m.timers)
		m.teardown(ReasonTimeout)
		return
	}
	if m.timers.Question <= 0 {
		m.advance()
		m.timers.Question = m.settings.questionSeconds()
	}
	m.sink.TimersChanged(m.timers)
}

func (m *Machine) advance() {
	question := m.followUp
	m.followUp = ""
	if question == "" && m.questions != nil {
		question = m.questions.Next()
	}
	m.advances++
	m.ask(m.settings.AdvancePrefix+question, true)
}

func (m *Machine) ask(text string, auto bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	entry := m.prompter.Say(text)
	m.sink.EntryAppended(entry)
	m.sink.QuestionAsked(text, auto)
}

// SetFollowUp queues a generated question for the next auto-advance.
func (m *Machine) SetFollowUp(question string) {
	if m.state != StateActive {
		return
	}
	m.followUp = strings.TrimSpace(question)
}

// HandleSpeech applies a recognition event. It reports the appended entry and
// true when the event completed an utterance.
func (m *Machine) HandleSpeech(ev speech.Event) (transcript.Entry, bool) {
	if m.state != StateActive {
		return transcript.Entry{}, false
	}
	if !ev.Final {
		m.live.Set(ev.Text)
		m.sink.LiveTextChanged(m.live.String())
		return transcript.Entry{}, false
	}
	return m.finalize(ev.Text)
}

// SubmitAnswer records a typed answer. It is only accepted when live
// transcription is unavailable.
func (m *Machine) SubmitAnswer(text string) (transcript.Entry, error) {
	if m.state != StateActive {
		return transcript.Entry{}, fmt.Errorf("%w: cannot answer while %s", ErrInvalidTransition, m.state)
	}
	if !m.degraded {
		return transcript.Entry{}, fmt.Errorf("%w: answers are transcribed from speech", ErrInvalidTransition)
	}
	entry, ok := m.finalize(text)
	if !ok {
		return transcript.Entry{}, ErrEmptyAnswer
	}
	return entry, nil
}

func (m *Machine) finalize(text string) (transcript.Entry, bool) {
	text = strings.TrimSpace(text)
	if m.live.String() != "" {
		m.live.Clear()
		m.sink.LiveTextChanged("")
	}
	if text == "" {
		return transcript.Entry{}, false
	}

	entry := m.store.Append(transcript.RoleUser, text)
	m.sink.EntryAppended(entry)

	m.timers.Question = m.settings.questionSeconds()
	m.sink.TimersChanged(m.timers)

	m.mood = m.classifier.Classify(text)
	m.sink.SentimentChanged(m.mood)
	return entry, true
}

// End stops a running session.
func (m *Machine) End() error {
	if m.state != StateActive {
		return fmt.Errorf("%w: cannot end while %s", ErrInvalidTransition, m.state)
	}
	m.teardown(ReasonEnded)
	return nil
}

// Abandon ends the session from any state.
func (m *Machine) Abandon() {
	m.teardown(ReasonAbandoned)
}

// teardown runs at most once, on every path into StateEnded.
func (m *Machine) teardown(reason string) {
	if m.tornDown {
		return
	}
	m.tornDown = true
	m.state = StateEnded

	m.stopSpeech()
	m.prompter.Cancel()
	m.releaseDevices()
	m.live.Clear()

	m.logger.Info("session ended", slog.String("reason", reason), slog.Int("entries", m.store.Len()))
	m.sink.StateChanged(StateEnded, reason)
}

func (m *Machine) releaseDevices() {
	if err := m.devices.Release(); err != nil {
		m.logger.Warn("release devices failed", slog.String("error", err.Error()))
	}
}

func (m *Machine) setState(state State, reason string) {
	if m.state == state {
		return
	}
	m.state = state
	m.logger.Info("session state changed", slog.String("state", state.String()), slog.String("reason", reason))
	m.sink.StateChanged(state, reason)
}

// Snapshot returns the current view of the session.
func (m *Machine) Snapshot(ctx context.Context) Snapshot {
	authorized := m.gate.Authorized(ctx)
	status := m.devices.Status()
	return Snapshot{
		State:            m.state,
		Devices:          status,
		Timers:           m.timers,
		Question:         m.prompter.Current(),
		LiveText:         m.live.String(),
		Sentiment:        m.mood,
		Degraded:         m.degraded,
		Acquiring:        m.acquiring,
		Authorized:       authorized,
		CanStart:         m.state == StateChecking && status.Ready() && authorized,
		Advances:         m.advances,
		TranscriptLength: m.store.Len(),
	}
}

// Export renders the transcript. It is available in every state.
func (m *Machine) Export() transcript.Document {
	return m.store.Export(m.settings.Layout)
}
