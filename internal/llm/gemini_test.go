package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiContents(t *testing.T) {
	systemInstruction, contents := geminiContents(Prompt{
		System: "be an interviewer",
		Turns: []Turn{
			{Speaker: Interviewer, Text: "Tell me about hooks."},
			{Speaker: Candidate, Text: "useEffect runs after render."},
		},
	})

	if systemInstruction == nil || len(systemInstruction.Parts) != 1 || systemInstruction.Parts[0].Text != "be an interviewer" {
		t.Fatalf("unexpected system instruction: %#v", systemInstruction)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 conversation messages, got %d", len(contents))
	}
	if contents[0].Role != "model" || contents[0].Parts[0].Text != "Tell me about hooks." {
		t.Fatalf("unexpected first message: %#v", contents[0])
	}
	if contents[1].Role != "user" || contents[1].Parts[0].Text != "useEffect runs after render." {
		t.Fatalf("unexpected second message: %#v", contents[1])
	}
}

func TestGemini_Complete_RequiresCandidateTurn(t *testing.T) {
	client, err := newGeminiClient("test-key", "gemini-test", &clientOptions{baseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("newGeminiClient failed: %v", err)
	}
	_, err = client.Complete(context.Background(), Prompt{Turns: []Turn{{Speaker: Interviewer, Text: "hi"}}})
	if err == nil || !strings.Contains(err.Error(), "no candidate turn") {
		t.Fatalf("expected missing candidate error, got %v", err)
	}
}

func TestGemini_Complete_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]any{
							{"text": ""},
						},
						"role": "model",
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	client, err := newGeminiClient("test-key", "gemini-test", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newGeminiClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), Prompt{Turns: []Turn{{Speaker: Candidate, Text: "hello"}}})
	if err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected 'empty response' in error, got %q", err.Error())
	}
}
