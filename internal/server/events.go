package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type StateChangedEvent struct {
	Event
	State  string `json:"state"`
	Reason string `json:"reason"`
}

type DevicesChangedEvent struct {
	Event
	CameraEnabled bool `json:"camera_enabled"`
	MicEnabled    bool `json:"mic_enabled"`
}

type TimersEvent struct {
	Event
	TotalRemaining    int `json:"total_remaining"`
	QuestionRemaining int `json:"question_remaining"`
}

type TranscriptEntryEvent struct {
	Event
	Sequence uint64 `json:"sequence"`
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
}

type LiveTextEvent struct {
	Event
	Text string `json:"text"`
}

type SentimentEvent struct {
	Event
	Sentiment string `json:"sentiment"`
}

type QuestionEvent struct {
	Event
	Question string `json:"question"`
	Auto     bool   `json:"auto"`
}

type NotificationEvent struct {
	Event
	Message string `json:"message"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
