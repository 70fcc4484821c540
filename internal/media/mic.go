package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	microphone "github.com/deepgram/deepgram-go-sdk/v3/pkg/audio/microphone"
)

// ErrNoMicrophone reports that audio was requested before a microphone was opened.
var ErrNoMicrophone = errors.New("microphone not open")

// Initialize prepares the audio subsystem. Call once per process.
func Initialize() { microphone.Initialize() }

// Teardown releases the audio subsystem.
func Teardown() { microphone.Teardown() }

// Mic is an open capture stream. Muting keeps the stream open but silences it.
type Mic struct {
	mu         sync.Mutex
	mic        *microphone.Microphone
	sampleRate int
	muted      bool
	closed     bool
}

func openMic(sampleRates []int, logger *slog.Logger) (*Mic, error) {
	var lastErr error
	for _, rate := range sampleRates {
		mic, err := microphone.New(microphone.AudioConfig{InputChannels: 1, SamplingRate: float32(rate)})
		if err != nil {
			logger.Warn("microphone open failed", slog.Int("sample_rate", rate), slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		if err := mic.Start(); err != nil {
			logger.Warn("microphone start failed", slog.Int("sample_rate", rate), slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		logger.Info("microphone started", slog.Int("sample_rate", rate))
		return &Mic{mic: mic, sampleRate: rate}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no sample rates to try")
	}
	return nil, fmt.Errorf("open microphone: %w", lastErr)
}

func (m *Mic) SetEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNoMicrophone
	}
	if enabled {
		m.mic.Unmute()
	} else {
		m.mic.Mute()
	}
	m.muted = !enabled
	return nil
}

func (m *Mic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.mic.Stop()
}

// SampleRate returns the rate the stream was opened at.
func (m *Mic) SampleRate() int { return m.sampleRate }

// Stream writes PCM16-LE audio to w until the stream stops or errors.
func (m *Mic) Stream(w io.Writer) error { return m.mic.Stream(w) }

type streamer interface {
	Stream(w io.Writer) error
}

// streamWithRetry restarts the stream after input overflows, which PortAudio
// reports under load, and gives up on any other error.
func streamWithRetry(ctx context.Context, s streamer, w io.Writer, wait func(time.Duration), logger *slog.Logger) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.Stream(w)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		if strings.Contains(strings.ToLower(err.Error()), "overflow") {
			logger.Warn("mic input overflow, restarting stream")
			wait(250 * time.Millisecond)
			continue
		}

		return fmt.Errorf("mic stream: %w", err)
	}
}
