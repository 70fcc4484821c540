package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/sentiment"
	"github.com/sjawhar/interview-coach/internal/session"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

const meterName = "github.com/sjawhar/interview-coach/session"

// Metrics records engine events as OpenTelemetry instruments exported in
// Prometheus format.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	transitions  metric.Int64Counter
	timerUpdates metric.Int64Counter
	questions    metric.Int64Counter
	entries      metric.Int64Counter
	sentiments   metric.Int64Counter
	toggles      metric.Int64Counter
	remaining    metric.Int64Gauge
}

var _ session.EventSink = (*Metrics)(nil)

// New creates a meter provider backed by a private Prometheus registry.
func New(serviceName string, logger *slog.Logger) (*Metrics, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	m := &Metrics{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if err := m.init(provider.Meter(meterName)); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	logger.Info("telemetry initialized", slog.String("exporter", "prometheus"))
	return m, nil
}

func (m *Metrics) init(meter metric.Meter) error {
	var err error
	if m.transitions, err = meter.Int64Counter("interview.state.transitions", metric.WithDescription("Session state changes")); err != nil {
		return err
	}
	if m.timerUpdates, err = meter.Int64Counter("interview.timer.updates", metric.WithDescription("Timer changes from ticks and resets")); err != nil {
		return err
	}
	if m.questions, err = meter.Int64Counter("interview.questions", metric.WithDescription("Questions asked")); err != nil {
		return err
	}
	if m.entries, err = meter.Int64Counter("interview.transcript.entries", metric.WithDescription("Transcript entries appended")); err != nil {
		return err
	}
	if m.sentiments, err = meter.Int64Counter("interview.sentiment.classifications", metric.WithDescription("Classified answers")); err != nil {
		return err
	}
	if m.toggles, err = meter.Int64Counter("interview.device.changes", metric.WithDescription("Device status changes")); err != nil {
		return err
	}
	if m.remaining, err = meter.Int64Gauge("interview.remaining.seconds", metric.WithDescription("Remaining time per timer")); err != nil {
		return err
	}
	return nil
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler { return m.handler }

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) StateChanged(state session.State, reason string) {
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("state", state.String()),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) DevicesChanged(status device.Status) {
	m.toggles.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Bool("camera_enabled", status.CameraEnabled),
		attribute.Bool("mic_enabled", status.MicEnabled),
	))
}

func (m *Metrics) TimersChanged(timers session.TimerPair) {
	ctx := context.Background()
	m.timerUpdates.Add(ctx, 1)
	m.remaining.Record(ctx, int64(timers.Total), metric.WithAttributes(attribute.String("timer", "total")))
	m.remaining.Record(ctx, int64(timers.Question), metric.WithAttributes(attribute.String("timer", "question")))
}

func (m *Metrics) EntryAppended(entry transcript.Entry) {
	m.entries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("speaker", string(entry.Speaker))))
}

func (m *Metrics) LiveTextChanged(string) {}

func (m *Metrics) SentimentChanged(s sentiment.Sentiment) {
	m.sentiments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sentiment", s.String())))
}

func (m *Metrics) QuestionAsked(_ string, auto bool) {
	m.questions.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("auto", auto)))
}
