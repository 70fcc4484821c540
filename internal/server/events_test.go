package server

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventSerialization(t *testing.T) {
	at := time.Unix(1, 0)
	events := []any{
		StateChangedEvent{Event: newEvent("state_changed", at), State: "active", Reason: "started"},
		DevicesChangedEvent{Event: newEvent("devices_changed", at), CameraEnabled: true},
		TimersEvent{Event: newEvent("timers", at), TotalRemaining: 600, QuestionRemaining: 120},
		TranscriptEntryEvent{Event: newEvent("transcript_entry", at), Sequence: 1, Speaker: "AI", Text: "hello"},
		LiveTextEvent{Event: newEvent("live_text", at), Text: "partial"},
		SentimentEvent{Event: newEvent("sentiment", at), Sentiment: "Steady"},
		QuestionEvent{Event: newEvent("question", at), Question: "Why?", Auto: true},
		NotificationEvent{Event: newEvent("notification", at), Message: "hi"},
	}

	for _, event := range events {
		b, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var payload map[string]any
		if err := json.Unmarshal(b, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}

		if payload["type"] == nil {
			t.Fatalf("missing type in payload: %s", string(b))
		}
		if payload["version"] == nil {
			t.Fatalf("missing version in payload: %s", string(b))
		}
		if payload["timestamp"] == nil {
			t.Fatalf("missing timestamp in payload: %s", string(b))
		}
	}
}

func TestNewEventDefaultsTimestamp(t *testing.T) {
	e := newEvent("x", time.Time{})
	if e.Timestamp == "" {
		t.Fatal("expected timestamp to be filled")
	}
	if e.Version != EventVersion {
		t.Fatalf("expected version %d, got %d", EventVersion, e.Version)
	}
}
