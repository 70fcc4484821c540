package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrPermissionDenied reports that camera or microphone access was refused
	// or could not be obtained in time.
	ErrPermissionDenied = errors.New("camera and microphone access denied")
	// ErrLocked reports a toggle attempted after the devices were locked for a session.
	ErrLocked = errors.New("devices are locked")
	// ErrNotAcquired reports a toggle attempted before acquisition.
	ErrNotAcquired = errors.New("devices not acquired")
)

// Handle is an open hardware stream. SetEnabled mutes or unmutes it without
// closing it.
type Handle interface {
	SetEnabled(enabled bool) error
	Close() error
}

// MediaCapability opens the underlying camera and microphone.
type MediaCapability interface {
	OpenCamera(ctx context.Context) (Handle, error)
	OpenMicrophone(ctx context.Context) (Handle, error)
}

// Status is the enable state of both devices.
type Status struct {
	CameraEnabled bool `json:"camera_enabled"`
	MicEnabled    bool `json:"mic_enabled"`
}

// Ready reports whether both devices are enabled.
func (s Status) Ready() bool {
	return s.CameraEnabled && s.MicEnabled
}

// Manager owns the camera and microphone handles for one session.
type Manager struct {
	media   MediaCapability
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	camera Handle
	mic    Handle
	status Status
	locked bool
}

// NewManager creates a manager that bounds each acquisition by timeout.
func NewManager(media MediaCapability, timeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		media:   media,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "device")),
	}
}

type openResult struct {
	camera Handle
	mic    Handle
	err    error
}

// Acquire opens both devices and enables them. Any failure, including the
// timeout, is reported as ErrPermissionDenied.
func (m *Manager) Acquire(ctx context.Context) (Status, error) {
	if m.media == nil {
		return Status{}, fmt.Errorf("%w: no media capability", ErrPermissionDenied)
	}

	m.mu.Lock()
	if m.locked {
		m.mu.Unlock()
		return m.Status(), ErrLocked
	}
	m.closeHandlesLocked()
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan openResult, 1)
	go func() {
		done <- m.open(ctx)
	}()

	var res openResult
	select {
	case res = <-done:
	case <-ctx.Done():
		go func() {
			late := <-done
			closeQuietly(late.camera)
			closeQuietly(late.mic)
		}()
		return Status{}, fmt.Errorf("%w: %w", ErrPermissionDenied, ctx.Err())
	}
	if res.err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrPermissionDenied, res.err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.camera = res.camera
	m.mic = res.mic
	m.status = Status{CameraEnabled: true, MicEnabled: true}
	m.logger.Info("devices acquired")
	return m.status, nil
}

func (m *Manager) open(ctx context.Context) openResult {
	camera, err := m.media.OpenCamera(ctx)
	if err != nil {
		return openResult{err: fmt.Errorf("open camera: %w", err)}
	}
	mic, err := m.media.OpenMicrophone(ctx)
	if err != nil {
		closeQuietly(camera)
		return openResult{err: fmt.Errorf("open microphone: %w", err)}
	}
	return openResult{camera: camera, mic: mic}
}

// ToggleCamera flips the camera enable flag.
func (m *Manager) ToggleCamera() (Status, error) {
	return m.toggle(func() (Handle, *bool) { return m.camera, &m.status.CameraEnabled })
}

// ToggleMic flips the microphone enable flag.
func (m *Manager) ToggleMic() (Status, error) {
	return m.toggle(func() (Handle, *bool) { return m.mic, &m.status.MicEnabled })
}

func (m *Manager) toggle(pick func() (Handle, *bool)) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return m.status, ErrLocked
	}
	handle, flag := pick()
	if handle == nil {
		return m.status, ErrNotAcquired
	}
	if err := handle.SetEnabled(!*flag); err != nil {
		return m.status, fmt.Errorf("toggle device: %w", err)
	}
	*flag = !*flag
	return m.status, nil
}

// Lock freezes the enable flags for the rest of the session.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = true
}

// Status returns the current enable flags.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Release closes all open handles. It is safe to call repeatedly and on a
// manager that never acquired anything.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.camera == nil && m.mic == nil {
		return nil
	}
	err := m.closeHandlesLocked()
	m.logger.Info("devices released")
	return err
}

func (m *Manager) closeHandlesLocked() error {
	var errs []error
	if m.camera != nil {
		if err := m.camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
		m.camera = nil
	}
	if m.mic != nil {
		if err := m.mic.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close microphone: %w", err))
		}
		m.mic = nil
	}
	m.status = Status{}
	return errors.Join(errs...)
}

func closeQuietly(h Handle) {
	if h != nil {
		_ = h.Close()
	}
}
