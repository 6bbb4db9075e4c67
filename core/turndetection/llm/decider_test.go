package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/turndetection"
)

type fakeGeneralLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGeneralLLM) Prompt(_ context.Context, prompt string, _ ...llms.PromptOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

type fakeStructuredLLM struct {
	status string
	err    error
	panics bool
}

func (f *fakeStructuredLLM) PromptWithStructure(_ context.Context, _ string, outputSchema any, _ ...llms.PromptOption) error {
	if f.panics {
		panic("classifier exploded")
	}
	if f.err != nil {
		return f.err
	}
	outputSchema.(*decisionResponse).Status = f.status
	return nil
}

func TestDeciderMapsCompleteToShortWait(t *testing.T) {
	d, err := NewDecider(&fakeGeneralLLM{response: "complete"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decision := d.Decide(context.Background(), nil, "That's it, I'm done.")
	if decision.Status != turndetection.StatusComplete || decision.Wait != DefaultShortWait {
		t.Fatalf("expected complete with short wait, got %+v", decision)
	}
}

func TestDeciderMapsThinkingToLongWait(t *testing.T) {
	d, _ := NewDecider(&fakeGeneralLLM{response: "thinking"})

	decision := d.Decide(context.Background(), nil, "So, um, and")
	if decision.Status != turndetection.StatusThinking || decision.Wait != DefaultLongWait {
		t.Fatalf("expected thinking with long wait, got %+v", decision)
	}
}

func TestDeciderDefaultsToThinkingOnFailure(t *testing.T) {
	cases := map[string]LLM{
		"general error":    &fakeGeneralLLM{err: errors.New("network down")},
		"empty response":   &fakeGeneralLLM{response: "  "},
		"structured error": &fakeStructuredLLM{err: errors.New("bad json")},
		"panic":            &fakeStructuredLLM{panics: true},
	}
	for name, llm := range cases {
		d, err := NewDecider(llm)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}

		decision := d.Decide(context.Background(), nil, "I have finished.")
		if decision.Status != turndetection.StatusThinking || decision.Wait != DefaultLongWait {
			t.Fatalf("%s: expected thinking with long wait, got %+v", name, decision)
		}
	}
}

func TestDeciderUsesStructuredStatus(t *testing.T) {
	d, _ := NewDecider(&fakeStructuredLLM{status: "complete"})

	if decision := d.Decide(context.Background(), nil, "done"); decision.Status != turndetection.StatusComplete {
		t.Fatalf("expected complete, got %+v", decision)
	}
}

func TestDeciderPromptsWithRecentHistoryAndBuffer(t *testing.T) {
	llm := &fakeGeneralLLM{response: "thinking"}
	d, _ := NewDecider(llm)

	d.Decide(context.Background(), []llms.Turn{
		{Role: llms.TurnRoleUser, Content: "oldest"},
		{Role: llms.TurnRoleModel, Content: "Tell me about yourself."},
		{Role: llms.TurnRoleUser, Content: "I build agents."},
		{Role: llms.TurnRoleModel, Content: "Which frameworks?"},
	}, "Mostly Go and")

	if len(llm.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(llm.prompts))
	}
	prompt := llm.prompts[0]
	if strings.Contains(prompt, "oldest") {
		t.Fatalf("expected only the last 3 turns in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "model: Tell me about yourself. | user: I build agents. | model: Which frameworks?") {
		t.Fatalf("expected joined history in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, `Current User Input: "Mostly Go and"`) {
		t.Fatalf("expected quoted buffer in prompt, got %q", prompt)
	}
}

func TestNewDeciderRejectsUnsupportedLLM(t *testing.T) {
	if _, err := NewDecider(struct{}{}); err == nil {
		t.Fatalf("expected error for unsupported llm")
	}
}

func TestDeciderCustomWaits(t *testing.T) {
	d, _ := NewDecider(&fakeGeneralLLM{response: "complete"}, WithWaits(100, 200))

	if decision := d.Decide(context.Background(), nil, "done"); decision.Wait != 100 {
		t.Fatalf("expected custom short wait, got %s", decision.Wait)
	}
}

func TestDeciderPanicFallsBackToConfiguredLongWait(t *testing.T) {
	d, _ := NewDecider(&fakeStructuredLLM{panics: true}, WithWaits(0, 7*time.Second))

	decision := d.Decide(context.Background(), nil, "I worked on")
	if decision.Status != turndetection.StatusThinking || decision.Wait != 7*time.Second {
		t.Fatalf("expected thinking with the configured long wait, got %+v", decision)
	}
	if fallback := turndetection.Fallback(d); fallback != decision {
		t.Fatalf("expected the fallback to match the failed decision, got %+v", fallback)
	}
}
