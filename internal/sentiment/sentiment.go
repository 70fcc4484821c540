package sentiment

import (
	"strings"
	"unicode"
)

// Sentiment is the coarse confidence reading of a candidate answer.
type Sentiment int

const (
	Steady Sentiment = iota
	Confident
	Nervous
)

func (s Sentiment) String() string {
	switch s {
	case Confident:
		return "Confident"
	case Nervous:
		return "Nervous"
	default:
		return "Steady"
	}
}

// MarshalText encodes the sentiment by name for JSON payloads.
func (s Sentiment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classifier maps a finalized utterance to a sentiment.
type Classifier interface {
	Classify(text string) Sentiment
}

// Lexicon lists the words and phrases that count toward each side.
type Lexicon struct {
	Positive []string
	Filler   []string
}

// DefaultLexicon returns the built-in word lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{"confident", "optimized", "scalable", "efficient", "react", "internship"},
		Filler:   []string{"um", "uh", "basically", "actually", "like", "sort of"},
	}
}

// LexiconScorer counts positive and filler tokens. More positive tokens is
// Confident, more filler is Nervous, and a tie is Steady.
type LexiconScorer struct {
	positive [][]string
	filler   [][]string
}

var _ Classifier = (*LexiconScorer)(nil)

// NewLexiconScorer builds a scorer for lex. Entries may be multi-word phrases.
func NewLexiconScorer(lex Lexicon) *LexiconScorer {
	return &LexiconScorer{
		positive: phrases(lex.Positive),
		filler:   phrases(lex.Filler),
	}
}

func (s *LexiconScorer) Classify(text string) Sentiment {
	positive, filler := s.Score(text)
	switch {
	case positive > filler:
		return Confident
	case filler > positive:
		return Nervous
	default:
		return Steady
	}
}

// Score returns the positive and filler match counts for text.
func (s *LexiconScorer) Score(text string) (positive, filler int) {
	tokens := Tokenize(text)
	return countMatches(tokens, s.positive), countMatches(tokens, s.filler)
}

// Tokenize lower-cases text, splits it on whitespace and strips surrounding
// punctuation from each token.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func phrases(words []string) [][]string {
	out := make([][]string, 0, len(words))
	for _, word := range words {
		if tokens := Tokenize(word); len(tokens) > 0 {
			out = append(out, tokens)
		}
	}
	return out
}

func countMatches(tokens []string, set [][]string) int {
	count := 0
	for i := range tokens {
		for _, phrase := range set {
			if hasPhraseAt(tokens, i, phrase) {
				count++
			}
		}
	}
	return count
}

func hasPhraseAt(tokens []string, at int, phrase []string) bool {
	if at+len(phrase) > len(tokens) {
		return false
	}
	for j, word := range phrase {
		if tokens[at+j] != word {
			return false
		}
	}
	return true
}
