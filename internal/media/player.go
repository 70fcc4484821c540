package media

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/sjawhar/interview-coach/internal/prompter"
)

const playbackFrames = 1024

// PortAudioPlayer plays prompt audio on the default output device. Call
// Initialize first.
type PortAudioPlayer struct{}

var _ prompter.Player = PortAudioPlayer{}

func (PortAudioPlayer) Play(ctx context.Context, chunk prompter.Chunk) error {
	buf := chunk.Buffer
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil
	}
	channels := buf.Format.NumChannels
	out := make([]int16, playbackFrames*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.Format.SampleRate), playbackFrames, out)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	shift := 0
	if buf.SourceBitDepth > 16 {
		shift = buf.SourceBitDepth - 16
	}
	for offset := 0; offset < len(buf.Data); offset += len(out) {
		if ctx.Err() != nil {
			return nil
		}
		for i := range out {
			if offset+i < len(buf.Data) {
				out[i] = int16(buf.Data[offset+i] >> shift)
			} else {
				out[i] = 0
			}
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}
