package questions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sjawhar/interview-coach/internal/llm"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// ErrEmptyQuestion reports a model reply that contained no usable question.
var ErrEmptyQuestion = errors.New("model returned no question")

// Bank hands out a fixed list of questions in order, wrapping around.
type Bank struct {
	mu        sync.Mutex
	questions []string
	next      int
}

// NewBank creates a bank from questions, skipping blank entries.
func NewBank(questions []string) *Bank {
	kept := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			kept = append(kept, q)
		}
	}
	return &Bank{questions: kept}
}

// Next returns the next question, or "" for an empty bank.
func (b *Bank) Next() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.questions) == 0 {
		return ""
	}
	q := b.questions[b.next%len(b.questions)]
	b.next++
	return q
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.questions)
}

type ClientFactory func(provider, model string) (llm.Client, error)

const followUpSystemPrompt = `You are a technical interviewer running a timed mock interview for a frontend role.
Based on the conversation so far, ask exactly one concise follow-up question that digs into the candidate's last answer.
Reply with the question only: no preamble, no numbering, no quotes.`

// historyTurns bounds how much of the transcript is sent to the model.
const historyTurns = 12

// Generator asks an LLM for a follow-up question.
type Generator struct {
	model   string
	factory ClientFactory
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
	backoff []time.Duration
}

// NewGenerator creates a generator for model in provider/model form.
func NewGenerator(model string, factory ClientFactory, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		model:   model,
		factory: factory,
		logger:  logger.With(slog.String("component", "questions")),
		sleep:   sleepContext,
		backoff: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// FollowUp returns a question that continues the interview in history.
func (g *Generator) FollowUp(ctx context.Context, history []transcript.Entry) (string, error) {
	provider, model, err := llm.ParseModel(g.model)
	if err != nil {
		return "", err
	}
	client, err := g.factory(provider, model)
	if err != nil {
		return "", fmt.Errorf("create llm client: %w", err)
	}

	prompt := llm.Prompt{
		System:    followUpSystemPrompt,
		Turns:     Turns(history, historyTurns),
		MaxTokens: 120,
	}

	var lastErr error
	for attempt := range g.backoff {
		result, err := client.Complete(ctx, prompt)
		if err == nil {
			question := CleanQuestion(result)
			if question == "" {
				return "", ErrEmptyQuestion
			}
			return question, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		g.logger.Warn("follow-up generation failed", slog.Int("attempt", attempt+1), slog.String("error", err.Error()))
		if attempt < len(g.backoff)-1 {
			if err := g.sleep(ctx, g.backoff[attempt]); err != nil {
				break
			}
		}
	}
	return "", fmt.Errorf("follow-up failed after retries: %w", lastErr)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Turns converts the last limit transcript entries into model turns.
func Turns(history []transcript.Entry, limit int) []llm.Turn {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	turns := make([]llm.Turn, 0, len(history))
	for _, e := range history {
		speaker := llm.Candidate
		if e.Speaker == transcript.RoleAI {
			speaker = llm.Interviewer
		}
		turns = append(turns, llm.Turn{Speaker: speaker, Text: e.Text})
	}
	return turns
}

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*])\s+`)

// CleanQuestion keeps the first non-empty line of a model reply and strips
// surrounding quotes and list markers.
func CleanQuestion(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(line, "\"'` ")
		if line != "" {
			return line
		}
	}
	return ""
}
