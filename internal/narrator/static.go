package narrator

import (
	"context"
	"fmt"
	"strings"
)

// Static is a deterministic narrator for tests and offline play. It
// echoes the submitted actions into a fixed narration shape instead of
// calling a provider.
type Static struct{}

// Narrate renders a fixed-form narration from the request.
func (Static) Narrate(_ context.Context, req TurnRequest) (string, error) {
	if len(req.Actions) == 0 {
		return fmt.Sprintf("The table is quiet in %s. The moment stretches on.", req.WorldName), nil
	}
	lines := make([]string, 0, len(req.Actions)+1)
	for _, action := range req.Actions {
		lines = append(lines, fmt.Sprintf("You %s.", strings.TrimSuffix(action, ".")))
	}
	if req.Climax {
		lines = append(lines, "Everything comes to a head at once.")
	} else {
		lines = append(lines, "The world shifts in answer, and something new stirs.")
	}
	return strings.Join(lines, " "), nil
}

// Summarize folds the new entries into a compact running summary.
func (Static) Summarize(_ context.Context, req SummaryRequest) (string, error) {
	if len(req.Entries) == 0 {
		return req.Previous, nil
	}
	recent := req.Entries
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	summary := "Recently: " + strings.Join(recent, "; ")
	if req.Previous != "" {
		return req.Previous + " " + summary, nil
	}
	return summary, nil
}
