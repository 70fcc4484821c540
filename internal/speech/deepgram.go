package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// AudioSource supplies PCM16-LE mono audio for transcription.
type AudioSource interface {
	SampleRate() int
	Stream(ctx context.Context, w io.Writer) error
}

// DeepgramOptions configures live transcription.
type DeepgramOptions struct {
	APIKey   string
	Model    string
	Language string
	Source   AudioSource
	// ConnectTimeout bounds the websocket handshake. Defaults to 10s.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

type dialFunc func(ctx context.Context, opts DeepgramOptions, sampleRate int, cb *deepgramCallback) (io.Writer, func(), error)

// Deepgram streams microphone audio to Deepgram's live API. Consecutive
// is_final fragments are joined into one final event at speech_final or
// UtteranceEnd.
type Deepgram struct {
	opts   DeepgramOptions
	logger *slog.Logger
	dial   dialFunc

	mu   sync.Mutex
	stop func()
}

var _ Capability = (*Deepgram)(nil)

var initOnce sync.Once

const defaultConnectTimeout = 10 * time.Second

type dialResult struct {
	writer io.Writer
	stop   func()
	err    error
}

// NewDeepgram creates a Deepgram capability.
func NewDeepgram(opts DeepgramOptions) *Deepgram {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Model == "" {
		opts.Model = "nova-2"
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	return &Deepgram{
		opts:   opts,
		logger: logger.With(slog.String("component", "deepgram")),
		dial:   dialDeepgram,
	}
}

func (d *Deepgram) Start(ctx context.Context, out chan<- Event) error {
	if d.opts.APIKey == "" || d.opts.Source == nil {
		return ErrUnsupported
	}

	cb := newDeepgramCallback(ctx, out, d.logger)
	writer, stop, err := d.connect(ctx, cb)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.stop = stop
	d.mu.Unlock()

	go func() {
		if err := d.opts.Source.Stream(ctx, writer); err != nil {
			d.logger.Warn("audio stream ended", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// connect runs the dial with a deadline. A dial that completes after the
// deadline or after ctx is cancelled is stopped in the background.
func (d *Deepgram) connect(ctx context.Context, cb *deepgramCallback) (io.Writer, func(), error) {
	results := make(chan dialResult, 1)
	go func() {
		writer, stop, err := d.dial(ctx, d.opts, d.opts.Source.SampleRate(), cb)
		results <- dialResult{writer: writer, stop: stop, err: err}
	}()

	timer := time.NewTimer(d.opts.ConnectTimeout)
	defer timer.Stop()

	select {
	case r := <-results:
		return r.writer, r.stop, r.err
	case <-timer.C:
		go discardDial(results)
		return nil, nil, fmt.Errorf("deepgram connect timed out after %s", d.opts.ConnectTimeout)
	case <-ctx.Done():
		go discardDial(results)
		return nil, nil, ctx.Err()
	}
}

func discardDial(results <-chan dialResult) {
	if r := <-results; r.err == nil && r.stop != nil {
		r.stop()
	}
}

func (d *Deepgram) Stop() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		stop()
	}
	return nil
}

func dialDeepgram(ctx context.Context, opts DeepgramOptions, sampleRate int, cb *deepgramCallback) (io.Writer, func(), error) {
	initOnce.Do(func() {
		client.Init(client.InitLib{LogLevel: client.LogLevelDefault})
	})

	cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          opts.Model,
		Language:       opts.Language,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		Encoding:       "linear16",
		SampleRate:     sampleRate,
		Channels:       1,
	}

	dgClient, err := client.NewWSUsingCallback(ctx, opts.APIKey, cOptions, tOptions, cb)
	if err != nil {
		return nil, nil, fmt.Errorf("create deepgram client: %w", err)
	}
	if ok := dgClient.Connect(); !ok {
		return nil, nil, errors.New("deepgram connect failed")
	}
	return dgClient, func() { dgClient.Stop() }, nil
}

type deepgramCallback struct {
	ctx    context.Context
	out    chan<- Event
	buffer *UtteranceBuffer
	logger *slog.Logger
}

func newDeepgramCallback(ctx context.Context, out chan<- Event, logger *slog.Logger) *deepgramCallback {
	return &deepgramCallback{ctx: ctx, out: out, buffer: NewUtteranceBuffer(), logger: logger}
}

func (c *deepgramCallback) Message(mr *api.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	sentence := strings.TrimSpace(alt.Transcript)

	if !mr.IsFinal {
		if sentence == "" {
			return nil
		}
		live := sentence
		if pending := c.buffer.Text(); pending != "" {
			live = pending + " " + sentence
		}
		c.emit(Event{Text: live})
		return nil
	}

	words := make([]Word, 0, len(alt.Words))
	for _, word := range alt.Words {
		words = append(words, Word{PunctuatedWord: word.PunctuatedWord, Start: word.Start, End: word.End})
	}
	if len(words) == 0 && sentence != "" {
		words = append(words, Word{PunctuatedWord: sentence})
	}
	c.buffer.AddWords(words)

	if mr.SpeechFinal {
		c.flush()
	}
	return nil
}

func (c *deepgramCallback) UtteranceEnd(*api.UtteranceEndResponse) error {
	c.flush()
	return nil
}

func (c *deepgramCallback) flush() {
	text := JoinWords(c.buffer.Flush())
	if text == "" {
		return
	}
	c.emit(Event{Final: true, Text: text})
}

func (c *deepgramCallback) emit(ev Event) {
	select {
	case c.out <- ev:
	case <-c.ctx.Done():
	}
}

func (c *deepgramCallback) Open(*api.OpenResponse) error {
	c.logger.Info("connected to Deepgram")
	return nil
}

func (c *deepgramCallback) Metadata(*api.MetadataResponse) error { return nil }

func (c *deepgramCallback) SpeechStarted(*api.SpeechStartedResponse) error { return nil }

func (c *deepgramCallback) Close(*api.CloseResponse) error {
	c.logger.Info("disconnected from Deepgram")
	return nil
}

func (c *deepgramCallback) Error(er *api.ErrorResponse) error {
	c.logger.Warn("deepgram error", slog.String("code", er.ErrCode), slog.String("description", er.Description))
	return nil
}

func (c *deepgramCallback) UnhandledEvent([]byte) error { return nil }
