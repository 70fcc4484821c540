package sentiment

import (
	"encoding/json"
	"testing"
)

func TestLexiconScorer_Classify(t *testing.T) {
	scorer := NewLexiconScorer(DefaultLexicon())

	tests := []struct {
		name string
		text string
		want Sentiment
	}{
		{name: "positive words", text: "this is confident and scalable", want: Confident},
		{name: "filler words", text: "um uh actually", want: Nervous},
		{name: "no matches", text: "hello world", want: Steady},
		{name: "empty", text: "", want: Steady},
		{name: "tie", text: "um I am confident", want: Steady},
		{name: "case and punctuation", text: "React, basically. REACT!", want: Confident},
		{name: "multi word filler", text: "it was sort of, like, fine", want: Nervous},
		{name: "partial word does not match", text: "reactive likely", want: Steady},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := scorer.Classify(tc.text); got != tc.want {
				t.Fatalf("Classify(%q): expected %s, got %s", tc.text, tc.want, got)
			}
		})
	}
}

func TestLexiconScorer_Score(t *testing.T) {
	scorer := NewLexiconScorer(DefaultLexicon())

	positive, filler := scorer.Score("Um, I sort of optimized the efficient path, like, basically")
	if positive != 2 {
		t.Fatalf("expected 2 positive matches, got %d", positive)
	}
	if filler != 4 {
		t.Fatalf("expected 4 filler matches, got %d", filler)
	}
}

func TestLexiconScorer_CustomLexicon(t *testing.T) {
	scorer := NewLexiconScorer(Lexicon{Positive: []string{"Solid"}, Filler: []string{"you know"}})

	if got := scorer.Classify("a solid plan"); got != Confident {
		t.Fatalf("expected Confident, got %s", got)
	}
	if got := scorer.Classify("you know, it works"); got != Nervous {
		t.Fatalf("expected Nervous, got %s", got)
	}
	if got := scorer.Classify("confident"); got != Steady {
		t.Fatalf("expected default words to be ignored by custom lexicon, got %s", got)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  Hello, WORLD!  it's -- fine ")
	want := []string{"hello", "world", "it's", "fine"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSentiment_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Sentiment{"sentiment": Nervous})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"sentiment":"Nervous"}` {
		t.Fatalf("unexpected json: %s", data)
	}
}
