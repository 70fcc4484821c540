package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/sentiment"
	"github.com/sjawhar/interview-coach/internal/session"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// Envelope is the message published for every engine event. The subject is
// <prefix>.<type>.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Publisher forwards engine events to NATS. It implements session.EventSink
// and session.Notifier.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

var (
	_ session.EventSink = (*Publisher)(nil)
	_ session.Notifier  = (*Publisher)(nil)
)

// Connect dials url and returns a publisher for subjects under prefix.
func Connect(url, prefix string, log *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("no NATS url configured")
	}
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = "interview.events"
	}

	conn, err := nats.Connect(url,
		nats.Name("interview-coach"),
		nats.Timeout(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log = log.With(slog.String("component", "bus"))
	log.Info("connected to NATS", slog.String("url", url))
	return &Publisher{conn: conn, prefix: prefix, log: log, now: time.Now}, nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.log.Warn("nats flush failed", slog.String("error", err.Error()))
	}
	p.conn.Close()
}

func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

func (p *Publisher) publish(eventType string, data any) {
	payload, err := json.Marshal(Envelope{Type: eventType, Timestamp: p.now().UTC(), Data: data})
	if err != nil {
		p.log.Warn("event marshal failed", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	if err := p.conn.Publish(p.prefix+"."+eventType, payload); err != nil {
		p.log.Warn("event publish failed", slog.String("type", eventType), slog.String("error", err.Error()))
	}
}

func (p *Publisher) StateChanged(state session.State, reason string) {
	p.publish("state_changed", map[string]string{"state": state.String(), "reason": reason})
}

func (p *Publisher) DevicesChanged(status device.Status) {
	p.publish("devices_changed", status)
}

func (p *Publisher) TimersChanged(timers session.TimerPair) {
	p.publish("timers", timers)
}

func (p *Publisher) EntryAppended(entry transcript.Entry) {
	p.publish("transcript_entry", entry)
}

// Live text is high volume and never leaves the process.
func (p *Publisher) LiveTextChanged(string) {}

func (p *Publisher) SentimentChanged(s sentiment.Sentiment) {
	p.publish("sentiment", map[string]string{"sentiment": s.String()})
}

func (p *Publisher) QuestionAsked(question string, auto bool) {
	p.publish("question", map[string]any{"question": question, "auto": auto})
}

func (p *Publisher) Notify(message string) {
	p.publish("notification", map[string]string{"message": message})
}
