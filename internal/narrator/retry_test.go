package narrator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type flakyNarrator struct {
	failures int
	calls    int
}

func (f *flakyNarrator) Narrate(_ context.Context, req TurnRequest) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("provider unavailable")
	}
	return "the door creaks open", nil
}

func (f *flakyNarrator) Summarize(_ context.Context, req SummaryRequest) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("provider unavailable")
	}
	return "a short summary", nil
}

func TestResilientNarrateRecovers(t *testing.T) {
	inner := &flakyNarrator{failures: 2}
	r := NewResilient(inner, 3)

	text, err := r.Narrate(context.Background(), TurnRequest{Actions: []string{"open the door"}})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if text != "the door creaks open" {
		t.Fatalf("text = %q", text)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestResilientNarrateFallsBack(t *testing.T) {
	inner := &flakyNarrator{failures: 100}
	r := NewResilient(inner, 3)

	text, err := r.Narrate(context.Background(), TurnRequest{Actions: []string{"open the door"}})
	if err != nil {
		t.Fatalf("Narrate returned error instead of fallback: %v", err)
	}
	if text != FallbackNarration {
		t.Fatalf("text = %q, want fallback", text)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestResilientSummarizeKeepsPrevious(t *testing.T) {
	inner := &flakyNarrator{failures: 100}
	r := NewResilient(inner, 2)

	text, err := r.Summarize(context.Background(), SummaryRequest{Previous: "the story so far"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if text != "the story so far" {
		t.Fatalf("text = %q, want previous summary", text)
	}
}

func TestBuildTurnPrompt(t *testing.T) {
	prompt := BuildTurnPrompt(TurnRequest{
		WorldName: "Embers of Korrath",
		World:     "dawn, ash-gray overcast, at the mine entrance",
		Tension:   7,
		Summary:   "The party tracked the dragon to the west face.",
		Lore:      []string{"The mine has two entrances."},
		Recent:    []string{"You found claw marks on the rails."},
		Actions:   []string{"light a torch and descend"},
		Climax:    true,
	})

	for _, want := range []string{
		"Embers of Korrath",
		"Tension level 7",
		"tracked the dragon",
		"two entrances",
		"claw marks",
		"light a torch",
		"dramatic peak",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestStaticNarrator(t *testing.T) {
	var static Static

	text, err := static.Narrate(context.Background(), TurnRequest{
		Actions: []string{"search the desk"},
	})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if !strings.Contains(text, "search the desk") {
		t.Fatalf("narration does not echo the action: %q", text)
	}

	summary, err := static.Summarize(context.Background(), SummaryRequest{
		Previous: "so far",
		Entries:  []string{"one", "two"},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(summary, "so far") || !strings.Contains(summary, "two") {
		t.Fatalf("summary = %q", summary)
	}
}
