package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sjawhar/interview-coach/internal/device"
)

// Camera holds the video device node open for the session. Disabling it
// blanks the feed without releasing the node.
type Camera struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
}

func openCamera(path string) (*Camera, error) {
	if path == "" {
		return nil, fmt.Errorf("open camera: no device configured")
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", path, err)
	}
	return &Camera{file: f, enabled: true}, nil
}

func (c *Camera) SetEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return fmt.Errorf("camera closed")
	}
	c.enabled = enabled
	return nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// Hardware opens the local webcam device node and the default microphone. It
// also serves the open microphone as the audio source for transcription.
type Hardware struct {
	cameraPath  string
	sampleRates []int
	logger      *slog.Logger
	wait        func(time.Duration)

	mu  sync.Mutex
	mic *Mic
}

var _ device.MediaCapability = (*Hardware)(nil)

// NewHardware returns a capability for cameraPath trying sampleRates in order.
func NewHardware(cameraPath string, sampleRates []int, logger *slog.Logger) *Hardware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hardware{
		cameraPath:  cameraPath,
		sampleRates: sampleRates,
		logger:      logger.With(slog.String("component", "media")),
		wait:        time.Sleep,
	}
}

func (h *Hardware) OpenCamera(context.Context) (device.Handle, error) {
	return openCamera(h.cameraPath)
}

func (h *Hardware) OpenMicrophone(context.Context) (device.Handle, error) {
	mic, err := openMic(h.sampleRates, h.logger)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.mic = mic
	h.mu.Unlock()
	return mic, nil
}

// SampleRate returns the open microphone's rate, or the preferred rate when
// none is open yet.
func (h *Hardware) SampleRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mic != nil {
		return h.mic.SampleRate()
	}
	if len(h.sampleRates) > 0 {
		return h.sampleRates[0]
	}
	return 16000
}

// Stream copies microphone audio to w until ctx is done.
func (h *Hardware) Stream(ctx context.Context, w io.Writer) error {
	h.mu.Lock()
	mic := h.mic
	h.mu.Unlock()
	if mic == nil {
		return ErrNoMicrophone
	}
	return streamWithRetry(ctx, mic, w, h.wait, h.logger)
}

// Virtual grants both devices without touching hardware. It backs headless
// deployments where answers are typed.
type Virtual struct{}

var _ device.MediaCapability = Virtual{}

func (Virtual) OpenCamera(context.Context) (device.Handle, error)     { return &virtualHandle{}, nil }
func (Virtual) OpenMicrophone(context.Context) (device.Handle, error) { return &virtualHandle{}, nil }

type virtualHandle struct {
	mu      sync.Mutex
	enabled bool
}

func (v *virtualHandle) SetEnabled(enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = enabled
	return nil
}

func (v *virtualHandle) Close() error { return nil }
