package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sjawhar/interview-coach/internal/bus"
	"github.com/sjawhar/interview-coach/internal/config"
	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/llm"
	"github.com/sjawhar/interview-coach/internal/media"
	"github.com/sjawhar/interview-coach/internal/prompter"
	"github.com/sjawhar/interview-coach/internal/questions"
	"github.com/sjawhar/interview-coach/internal/report"
	"github.com/sjawhar/interview-coach/internal/sentiment"
	"github.com/sjawhar/interview-coach/internal/server"
	"github.com/sjawhar/interview-coach/internal/session"
	"github.com/sjawhar/interview-coach/internal/speech"
	"github.com/sjawhar/interview-coach/internal/telemetry"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

const shutdownTimeout = 5 * time.Second

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(logger)
	sinks := session.MultiSink{hub}
	notifiers := session.MultiNotifier{hub}

	metrics, err := telemetry.New("interview-coach", logger)
	if err != nil {
		return err
	}
	defer func() { _ = metrics.Shutdown(context.Background()) }()
	sinks = append(sinks, metrics)

	var embedded *bus.EmbeddedServer
	natsURL := cfg.NATSURL
	if cfg.NATSEmbedded {
		embedded, err = bus.StartEmbedded("127.0.0.1", cfg.NATSPort, logger)
		if err != nil {
			return err
		}
		defer embedded.Shutdown()
		natsURL = embedded.ClientURL()
	}
	if natsURL != "" {
		publisher, err := bus.Connect(natsURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Warn("event bus disabled", slog.String("error", err.Error()))
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
			notifiers = append(notifiers, publisher)
		}
	}

	capability, source := buildMedia(cfg, logger)

	var recognizer speech.Capability
	if cfg.DeepgramAPIKey != "" && source != nil {
		recognizer = speech.NewDeepgram(speech.DeepgramOptions{
			APIKey:   cfg.DeepgramAPIKey,
			Model:    cfg.SpeechModel,
			Language: cfg.SpeechLanguage,
			Source:   source,
			Logger:   logger,
		})
	}

	store := transcript.NewStore(cfg.MaxTranscriptEntries)
	synth, err := buildSynth(cfg)
	if err != nil {
		logger.Warn("spoken prompts disabled", slog.String("error", err.Error()))
	}
	var player prompter.Player
	if synth != nil {
		player = media.PortAudioPlayer{}
	}

	// PortAudio backs both capture and playback.
	if source != nil || player != nil {
		media.Initialize()
		defer media.Teardown()
	}

	gate := server.NewTokenGate(cfg.AuthToken)

	engine := session.NewEngine(settingsFrom(cfg), session.Deps{
		Devices: device.NewManager(capability, cfg.ParsedAcquireTimeout(), logger),
		Speech:  speech.NewChannel(recognizer, logger),
		Prompter: prompter.New(store, synth, player, prompter.Options{
			Voice:  cfg.SynthVoice,
			Speed:  cfg.SynthSpeed,
			Logger: logger,
		}),
		Store:      store,
		Classifier: sentiment.NewLexiconScorer(sentiment.Lexicon{Positive: cfg.PositiveWords, Filler: cfg.FillerWords}),
		Questions:  questions.NewBank(cfg.Questions),
		Gate:       gate,
		Notifier:   notifiers,
		Sink:       sinks,
		Logger:     logger,
	}, session.EngineOptions{
		Generator: buildGenerator(cfg, logger),
		Logger:    logger,
	})

	reports := report.NewPublisher(report.NewFileSink(cfg.Export.Dir, cfg.Export.Filename), buildUploader(ctx, cfg, logger), logger)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.Handler(server.Options{
			Engine:         engine,
			Hub:            hub,
			Gate:           gate,
			Reports:        reports,
			ReportFilename: cfg.Export.Filename,
			Metrics:        metrics.Handler(),
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("interview-coach: listening", slog.String("addr", cfg.HTTPAddr), slog.String("version", version))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server error", slog.String("error", err.Error()))
		}
	}

	logger.Info("interview-coach: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", slog.String("error", err.Error()))
	}
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Warn("engine close failed", slog.String("error", err.Error()))
	}
	return nil
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func settingsFrom(cfg config.Config) session.Settings {
	return session.Settings{
		SessionDuration:  cfg.ParsedSessionDuration(),
		QuestionDuration: cfg.ParsedQuestionDuration(),
		OpeningPrompt:    cfg.OpeningPrompt,
		AdvancePrefix:    cfg.AdvancePrefix,
		Layout: transcript.Layout{
			Title:      cfg.Export.Title,
			LineWidth:  cfg.Export.LineWidth,
			PageHeight: cfg.Export.PageHeight,
			FirstTop:   cfg.Export.FirstTop,
			PageTop:    cfg.Export.PageTop,
			LineHeight: cfg.Export.LineHeight,
			EntryGap:   cfg.Export.EntryGap,
		},
	}
}

// buildMedia returns the device capability and, for real hardware, the
// microphone audio source used for transcription.
func buildMedia(cfg config.Config, logger *slog.Logger) (device.MediaCapability, speech.AudioSource) {
	if cfg.MediaBackend == "virtual" {
		return media.Virtual{}, nil
	}
	hw := media.NewHardware(cfg.CameraDevice, cfg.SampleRateCandidates(), logger)
	return hw, hw
}

func buildSynth(cfg config.Config) (prompter.Synthesizer, error) {
	switch cfg.SynthProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		return prompter.NewOpenAISynth(cfg.OpenAIAPIKey, cfg.SynthModel, cfg.SynthVoice, ""), nil
	case "exec":
		synth, err := prompter.NewExecSynth(cfg.SynthCommand)
		if err != nil {
			return nil, err
		}
		return synth, nil
	default:
		return nil, nil
	}
}

func buildGenerator(cfg config.Config, logger *slog.Logger) session.QuestionGenerator {
	if cfg.QuestionModel == "" {
		return nil
	}
	provider, _, err := llm.ParseModel(cfg.QuestionModel)
	if err != nil {
		logger.Warn("follow-up questions disabled", slog.String("error", err.Error()))
		return nil
	}
	if cfg.ProviderAPIKey(provider) == "" {
		return nil
	}
	factory := func(provider, model string) (llm.Client, error) {
		return llm.NewClient(provider, cfg.ProviderAPIKey(provider), model)
	}
	return questions.NewGenerator(cfg.QuestionModel, factory, logger)
}

func buildUploader(ctx context.Context, cfg config.Config, logger *slog.Logger) report.Uploader {
	if cfg.GDriveFolderID == "" {
		return nil
	}
	drive, err := report.NewDrive(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
	if err != nil {
		logger.Warn("drive upload disabled", slog.String("error", err.Error()))
		return nil
	}
	return drive
}
