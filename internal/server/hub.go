package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/sentiment"
	"github.com/sjawhar/interview-coach/internal/session"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// Hub fans engine events out to websocket subscribers. It implements
// session.EventSink and session.Notifier.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

var (
	_ session.EventSink = (*Hub)(nil)
	_ session.Notifier  = (*Hub)(nil)
)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With(slog.String("component", "hub")),
		clients: make(map[chan []byte]struct{}),
	}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast sends msg to every subscriber, dropping it for slow ones.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) StateChanged(state session.State, reason string) {
	h.broadcastEvent(StateChangedEvent{
		Event:  newEvent("state_changed", time.Now().UTC()),
		State:  state.String(),
		Reason: reason,
	})
}

func (h *Hub) DevicesChanged(status device.Status) {
	h.broadcastEvent(DevicesChangedEvent{
		Event:         newEvent("devices_changed", time.Now().UTC()),
		CameraEnabled: status.CameraEnabled,
		MicEnabled:    status.MicEnabled,
	})
}

func (h *Hub) TimersChanged(timers session.TimerPair) {
	h.broadcastEvent(TimersEvent{
		Event:             newEvent("timers", time.Now().UTC()),
		TotalRemaining:    timers.Total,
		QuestionRemaining: timers.Question,
	})
}

func (h *Hub) EntryAppended(entry transcript.Entry) {
	h.broadcastEvent(TranscriptEntryEvent{
		Event:    newEvent("transcript_entry", entry.At),
		Sequence: entry.Sequence,
		Speaker:  string(entry.Speaker),
		Text:     entry.Text,
	})
}

func (h *Hub) LiveTextChanged(text string) {
	h.broadcastEvent(LiveTextEvent{
		Event: newEvent("live_text", time.Now().UTC()),
		Text:  text,
	})
}

func (h *Hub) SentimentChanged(s sentiment.Sentiment) {
	h.broadcastEvent(SentimentEvent{
		Event:     newEvent("sentiment", time.Now().UTC()),
		Sentiment: s.String(),
	})
}

func (h *Hub) QuestionAsked(question string, auto bool) {
	h.broadcastEvent(QuestionEvent{
		Event:    newEvent("question", time.Now().UTC()),
		Question: question,
		Auto:     auto,
	})
}

func (h *Hub) Notify(message string) {
	h.broadcastEvent(NotificationEvent{
		Event:   newEvent("notification", time.Now().UTC()),
		Message: message,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", slog.String("error", err.Error()))
		return
	}
	h.Broadcast(payload)
}
