package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeCapability struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	out      chan<- Event
}

func (f *fakeCapability) Start(_ context.Context, out chan<- Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.out = out
	return nil
}

func (f *fakeCapability) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func TestChannel_NilCapabilityIsUnsupported(t *testing.T) {
	ch := NewChannel(nil, nil)
	if err := ch.Start(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := ch.Stop(); err != nil {
		t.Fatalf("Stop on never-started channel failed: %v", err)
	}
}

func TestChannel_StartFailureIsUnsupported(t *testing.T) {
	capability := &fakeCapability{startErr: errors.New("no websocket")}
	ch := NewChannel(capability, nil)

	err := ch.Start(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported wrapping, got %v", err)
	}
	if ch.Running() {
		t.Fatal("expected channel not running after failed start")
	}
}

func TestChannel_StartStopIdempotent(t *testing.T) {
	capability := &fakeCapability{}
	ch := NewChannel(capability, nil)

	for i := 0; i < 2; i++ {
		if err := ch.Start(context.Background()); err != nil {
			t.Fatalf("Start #%d failed: %v", i+1, err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := ch.Stop(); err != nil {
			t.Fatalf("Stop #%d failed: %v", i+1, err)
		}
	}

	if capability.starts != 1 || capability.stops != 1 {
		t.Fatalf("expected one start and one stop, got starts=%d stops=%d", capability.starts, capability.stops)
	}
}

func TestChannel_DeliversEvents(t *testing.T) {
	capability := &fakeCapability{}
	ch := NewChannel(capability, nil)
	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	capability.out <- Event{Text: "hel"}
	capability.out <- Event{Final: true, Text: "hello"}

	for _, want := range []Event{{Text: "hel"}, {Final: true, Text: "hello"}} {
		select {
		case got := <-ch.Events():
			if got != want {
				t.Fatalf("expected %+v, got %+v", want, got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestLiveBuffer(t *testing.T) {
	var live LiveBuffer
	live.Set("  partial answer ")
	if live.String() != "partial answer" {
		t.Fatalf("expected trimmed text, got %q", live.String())
	}
	live.Set("partial answer grows")
	if live.String() != "partial answer grows" {
		t.Fatalf("expected overwrite, got %q", live.String())
	}
	live.Clear()
	if live.String() != "" {
		t.Fatalf("expected empty after clear, got %q", live.String())
	}
}

type blockingCapability struct {
	entered chan struct{}
	stops   int
}

func (b *blockingCapability) Start(ctx context.Context, _ chan<- Event) error {
	close(b.entered)
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingCapability) Stop() error {
	b.stops++
	return nil
}

func TestChannel_StopDuringStartCancelsConnect(t *testing.T) {
	capability := &blockingCapability{entered: make(chan struct{})}
	ch := NewChannel(capability, nil)

	result := make(chan error, 1)
	go func() { result <- ch.Start(context.Background()) }()
	<-capability.entered

	stopped := make(chan error, 1)
	go func() { stopped <- ch.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop blocked behind a pending Start")
	}

	select {
	case err := <-result:
		if !errors.Is(err, ErrStopped) {
			t.Fatalf("expected ErrStopped, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if ch.Running() {
		t.Fatal("expected channel not running")
	}
	if capability.stops != 0 {
		t.Fatalf("expected no capability stop for a failed connect, got %d", capability.stops)
	}
}
