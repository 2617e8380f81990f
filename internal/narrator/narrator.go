// Package narrator defines the turn-resolution boundary: the engine
// hands a session snapshot plus the collected actions to a Narrator
// and receives narration text back. Implementations live in
// subpackages; the engine never assumes a particular provider.
package narrator

import (
	"context"
	"fmt"
	"strings"
)

// TurnRequest carries everything a narrator needs to resolve one turn.
type TurnRequest struct {
	WorldName string
	World     string
	Summary   string
	Tension   int

	// Recent is the tail of the session history, oldest first.
	Recent []string

	// Actions are the player actions collected for this turn.
	Actions []string

	Lore []string

	// Climax asks for a dramatic peak in the narration.
	Climax bool
}

// SummaryRequest asks for a rolling summary refresh.
type SummaryRequest struct {
	Previous string
	// Entries are the history lines since the previous summary.
	Entries []string
}

// Narrator resolves turns into narration text.
type Narrator interface {
	Narrate(ctx context.Context, req TurnRequest) (string, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// ClimaxSink receives a non-blocking notification when a turn crosses
// the climax gate. The default sink only logs.
type ClimaxSink func(groupID string, tension int, narration string)

// BuildTurnPrompt renders a turn request as a single prompt string.
func BuildTurnPrompt(req TurnRequest) string {
	var b strings.Builder
	b.WriteString("You are the game master of a tabletop role-playing session.\n")
	fmt.Fprintf(&b, "World: %s (%s). Tension level %d of 10.\n", req.WorldName, req.World, req.Tension)
	if req.Summary != "" {
		fmt.Fprintf(&b, "Story so far: %s\n", req.Summary)
	}
	if len(req.Lore) > 0 {
		b.WriteString("Established lore:\n")
		for _, line := range req.Lore {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	if len(req.Recent) > 0 {
		b.WriteString("Recent events:\n")
		for _, line := range req.Recent {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	b.WriteString("The players act:\n")
	for _, action := range req.Actions {
		fmt.Fprintf(&b, "- %s\n", action)
	}
	if req.Climax {
		b.WriteString("Bring the current thread to a dramatic peak in this narration.\n")
	}
	b.WriteString("Narrate the outcome in second person, three paragraphs at most, ending on a hook.")
	return b.String()
}

// BuildSummaryPrompt renders a summary request as a prompt string.
func BuildSummaryPrompt(req SummaryRequest) string {
	var b strings.Builder
	b.WriteString("Condense this tabletop session into a running summary of at most five sentences.\n")
	if req.Previous != "" {
		fmt.Fprintf(&b, "Previous summary: %s\n", req.Previous)
	}
	b.WriteString("New events:\n")
	for _, entry := range req.Entries {
		fmt.Fprintf(&b, "- %s\n", entry)
	}
	return b.String()
}
