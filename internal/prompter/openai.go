package prompter

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

type speechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAISynth renders prompts with the OpenAI text-to-speech API as WAV.
type OpenAISynth struct {
	client speechClient
	model  string
	voice  string
}

// NewOpenAISynth creates a synthesizer using model and voice. An empty baseURL
// uses the public API.
func NewOpenAISynth(apiKey, model, voice, baseURL string) *OpenAISynth {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAISynth{client: openai.NewClientWithConfig(cfg), model: model, voice: voice}
}

func (o *OpenAISynth) Synthesize(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		voice := req.Voice
		if voice == "" {
			voice = o.voice
		}
		resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(o.model),
			Input:          req.Text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatWav,
			Speed:          req.Speed,
		})
		if err != nil {
			errs <- fmt.Errorf("openai speech: %w", err)
			return
		}
		defer func() { _ = resp.Close() }()

		data, err := io.ReadAll(resp)
		if err != nil {
			errs <- fmt.Errorf("read speech audio: %w", err)
			return
		}
		buf, err := decodeWAV(data)
		if err != nil {
			errs <- err
			return
		}
		send(ctx, chunks, Chunk{Sequence: 0, Buffer: buf, Final: true})
	}()
	return chunks, errs
}
