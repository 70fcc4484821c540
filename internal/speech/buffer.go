package speech

import (
	"strings"
	"sync"
)

// Word is a single recognized word with its offsets in seconds.
type Word struct {
	PunctuatedWord string
	Start          float64
	End            float64
}

// UtteranceBuffer accumulates words from multiple is_final Deepgram messages
// until speech_final signals the utterance is complete.
type UtteranceBuffer struct {
	mu    sync.Mutex
	words []Word
}

// NewUtteranceBuffer creates an empty utterance buffer.
func NewUtteranceBuffer() *UtteranceBuffer {
	return &UtteranceBuffer{}
}

// AddWords appends words from an is_final message to the buffer.
func (b *UtteranceBuffer) AddWords(words []Word) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words = append(b.words, words...)
}

// Flush returns all accumulated words and resets the buffer.
// Returns nil if the buffer is empty.
func (b *UtteranceBuffer) Flush() []Word {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.words) == 0 {
		return nil
	}
	out := b.words
	b.words = nil
	return out
}

// Text joins the buffered words without flushing them.
func (b *UtteranceBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return JoinWords(b.words)
}

// Len returns the number of words currently in the buffer.
func (b *UtteranceBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.words)
}

// JoinWords renders words as a single space-separated sentence.
func JoinWords(words []Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if text := strings.TrimSpace(w.PunctuatedWord); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
