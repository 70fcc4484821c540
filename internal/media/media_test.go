package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type scriptedStreamer struct {
	errs  []error
	calls int
}

func (s *scriptedStreamer) Stream(w io.Writer) error {
	s.calls++
	_, _ = w.Write([]byte{0x01, 0x00})
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestStreamWithRetry_RestartsOnOverflow(t *testing.T) {
	s := &scriptedStreamer{errs: []error{errors.New("Input overflowed"), errors.New("input overflowed")}}
	var buf bytes.Buffer
	var waits []time.Duration

	err := streamWithRetry(context.Background(), s, &buf, func(d time.Duration) { waits = append(waits, d) }, slog.Default())
	if err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if s.calls != 3 {
		t.Fatalf("expected 3 stream attempts, got %d", s.calls)
	}
	if len(waits) != 2 || waits[0] != 250*time.Millisecond {
		t.Fatalf("expected two 250ms waits, got %v", waits)
	}
	if buf.Len() != 6 {
		t.Fatalf("expected audio from every attempt, got %d bytes", buf.Len())
	}
}

func TestStreamWithRetry_StopsOnOtherErrors(t *testing.T) {
	s := &scriptedStreamer{errs: []error{errors.New("device unplugged")}}

	err := streamWithRetry(context.Background(), s, io.Discard, func(time.Duration) {}, slog.Default())
	if err == nil {
		t.Fatal("expected error for non-overflow failure")
	}
	if s.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", s.calls)
	}
}

func TestStreamWithRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &scriptedStreamer{}

	if err := streamWithRetry(ctx, s, io.Discard, func(time.Duration) {}, slog.Default()); err != nil {
		t.Fatalf("expected nil on cancelled context, got %v", err)
	}
	if s.calls != 0 {
		t.Fatalf("expected no attempts after cancel, got %d", s.calls)
	}
}

func TestOpenCamera(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write fake device: %v", err)
	}

	cam, err := openCamera(path)
	if err != nil {
		t.Fatalf("openCamera failed: %v", err)
	}
	if err := cam.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := cam.SetEnabled(true); err == nil {
		t.Fatal("expected SetEnabled to fail after close")
	}
}

func TestOpenCamera_Missing(t *testing.T) {
	if _, err := openCamera(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing device node")
	}
	if _, err := openCamera(""); err == nil {
		t.Fatal("expected error for empty device path")
	}
}

func TestHardware_StreamWithoutMic(t *testing.T) {
	h := NewHardware("/dev/null", []int{16000}, nil)
	if err := h.Stream(context.Background(), io.Discard); !errors.Is(err, ErrNoMicrophone) {
		t.Fatalf("expected ErrNoMicrophone, got %v", err)
	}
	if h.SampleRate() != 16000 {
		t.Fatalf("expected preferred sample rate, got %d", h.SampleRate())
	}
}

func TestVirtual_GrantsBothDevices(t *testing.T) {
	v := Virtual{}
	cam, err := v.OpenCamera(context.Background())
	if err != nil {
		t.Fatalf("OpenCamera failed: %v", err)
	}
	mic, err := v.OpenMicrophone(context.Background())
	if err != nil {
		t.Fatalf("OpenMicrophone failed: %v", err)
	}
	if err := cam.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if err := mic.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
