package prompter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// ExecSynth pipes prompt text to a local command on stdin. When the command
// writes WAV to stdout the audio is played; commands that speak on their own
// (espeak without --stdout, say) produce no chunks.
type ExecSynth struct {
	cmd []string
	mu  sync.Mutex
}

// NewExecSynth parses command with shell quoting rules.
func NewExecSynth(command string) (*ExecSynth, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synth command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synth command empty")
	}
	return &ExecSynth{cmd: args}, nil
}

func (e *ExecSynth) Synthesize(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		e.mu.Lock()
		defer e.mu.Unlock()

		command := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
		command.Stdin = strings.NewReader(req.Text)
		var stdout, stderr bytes.Buffer
		command.Stdout = &stdout
		command.Stderr = &stderr

		if err := command.Run(); err != nil {
			if ctx.Err() != nil {
				errs <- ctx.Err()
				return
			}
			errs <- fmt.Errorf("synth command: %w: %s", err, strings.TrimSpace(stderr.String()))
			return
		}
		if stdout.Len() == 0 {
			return
		}
		buf, err := decodeWAV(stdout.Bytes())
		if err != nil {
			errs <- err
			return
		}
		send(ctx, chunks, Chunk{Sequence: 0, Buffer: buf, Final: true})
	}()
	return chunks, errs
}
