package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/sentiment"
	"github.com/sjawhar/interview-coach/internal/speech"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// State is the lifecycle phase of an interview.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reasons attached to state change events.
const (
	ReasonAcquired      = "acquired"
	ReasonAcquireFailed = "acquire_failed"
	ReasonStarted       = "started"
	ReasonTimeout       = "timeout"
	ReasonEnded         = "ended"
	ReasonAbandoned     = "abandoned"
)

// User-facing notifications.
const (
	MsgDevicesRequired   = "CRITICAL: Camera and Microphone access are mandatory for this session."
	MsgEnableDevices     = "Please enable both Camera and Mic to start."
	MsgDevicesLocked     = "Camera and microphone cannot be changed while the interview is running."
	MsgSessionEnded      = "The interview has ended. Start a new session to change devices."
	MsgNotAuthorized     = "You are not authorized to start this interview."
	MsgSpeechUnavailable = "Speech recognition is unavailable. Type your answers instead."
)

// TimerPair holds the remaining session and question time in seconds.
type TimerPair struct {
	Total    int `json:"total_remaining"`
	Question int `json:"question_remaining"`
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	State            State               `json:"state"`
	Devices          device.Status       `json:"devices"`
	Timers           TimerPair           `json:"timers"`
	Question         string              `json:"question"`
	LiveText         string              `json:"live_text"`
	Sentiment        sentiment.Sentiment `json:"sentiment"`
	Degraded         bool                `json:"degraded"`
	Acquiring        bool                `json:"acquiring"`
	Authorized       bool                `json:"authorized"`
	CanStart         bool                `json:"can_start"`
	Advances         int                 `json:"advances"`
	TranscriptLength int                 `json:"transcript_length"`
}

// Settings configure a session.
type Settings struct {
	SessionDuration  time.Duration
	QuestionDuration time.Duration
	OpeningPrompt    string
	AdvancePrefix    string
	Layout           transcript.Layout
}

const (
	DefaultOpeningPrompt = "Welcome. All media is now locked. You have 2 minutes per question. Please explain your experience with React and Frontend development."
	DefaultAdvancePrefix = "Time elapsed for this topic. Moving to the next question: "
)

// DefaultSettings returns a ten minute session with two minute questions.
func DefaultSettings() Settings {
	return Settings{
		SessionDuration:  10 * time.Minute,
		QuestionDuration: 2 * time.Minute,
		OpeningPrompt:    DefaultOpeningPrompt,
		AdvancePrefix:    DefaultAdvancePrefix,
		Layout:           transcript.DefaultLayout(),
	}
}

func (s Settings) totalSeconds() int {
	if n := int(s.SessionDuration / time.Second); n > 0 {
		return n
	}
	return 600
}

func (s Settings) questionSeconds() int {
	if n := int(s.QuestionDuration / time.Second); n > 0 {
		return n
	}
	return 120
}

type Devices interface {
	Acquire(ctx context.Context) (device.Status, error)
	ToggleCamera() (device.Status, error)
	ToggleMic() (device.Status, error)
	Lock()
	Status() device.Status
	Release() error
}

type Speech interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan speech.Event
}

type Prompter interface {
	Say(text string) transcript.Entry
	Current() string
	Cancel()
}

type QuestionSource interface {
	Next() string
}

type QuestionGenerator interface {
	FollowUp(ctx context.Context, history []transcript.Entry) (string, error)
}

// Gate decides whether a caller may start the interview.
type Gate interface {
	Authorized(ctx context.Context) bool
}

// AllowAll authorizes every caller.
type AllowAll struct{}

func (AllowAll) Authorized(context.Context) bool { return true }

// Notifier delivers user-facing messages.
type Notifier interface {
	Notify(message string)
}

// EventSink receives every observable change made by the engine. Calls are
// made from the engine loop and must not block.
type EventSink interface {
	StateChanged(state State, reason string)
	DevicesChanged(status device.Status)
	TimersChanged(timers TimerPair)
	EntryAppended(entry transcript.Entry)
	LiveTextChanged(text string)
	SentimentChanged(s sentiment.Sentiment)
	QuestionAsked(question string, auto bool)
}

// NopSink ignores all events. Embed it to implement a subset of EventSink.
type NopSink struct{}

func (NopSink) StateChanged(State, string)           {}
func (NopSink) DevicesChanged(device.Status)         {}
func (NopSink) TimersChanged(TimerPair)              {}
func (NopSink) EntryAppended(transcript.Entry)       {}
func (NopSink) LiveTextChanged(string)               {}
func (NopSink) SentimentChanged(sentiment.Sentiment) {}
func (NopSink) QuestionAsked(string, bool)           {}

// MultiSink fans events out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) StateChanged(state State, reason string) {
	for _, s := range m {
		s.StateChanged(state, reason)
	}
}

func (m MultiSink) DevicesChanged(status device.Status) {
	for _, s := range m {
		s.DevicesChanged(status)
	}
}

func (m MultiSink) TimersChanged(timers TimerPair) {
	for _, s := range m {
		s.TimersChanged(timers)
	}
}

func (m MultiSink) EntryAppended(entry transcript.Entry) {
	for _, s := range m {
		s.EntryAppended(entry)
	}
}

func (m MultiSink) LiveTextChanged(text string) {
	for _, s := range m {
		s.LiveTextChanged(text)
	}
}

func (m MultiSink) SentimentChanged(v sentiment.Sentiment) {
	for _, s := range m {
		s.SentimentChanged(v)
	}
}

func (m MultiSink) QuestionAsked(question string, auto bool) {
	for _, s := range m {
		s.QuestionAsked(question, auto)
	}
}

// MultiNotifier delivers each message to every notifier.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
