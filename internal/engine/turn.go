package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/tabletop.chat/internal/batch"
	"github.com/louisbranch/tabletop.chat/internal/dice"
	errs "github.com/louisbranch/tabletop.chat/internal/errors"
	"github.com/louisbranch/tabletop.chat/internal/narrator"
	"github.com/louisbranch/tabletop.chat/internal/session"
)

// SubmitAction offers a player action for the current turn. On a solo
// table the turn resolves before returning and the narration comes
// back directly; on a multiplayer table the action queues into the
// collection window and the narration is delivered via the flush path.
func (e *Engine) SubmitAction(ctx context.Context, groupID, participantID, content string) (queued bool, narration string, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.SubmitAction")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return false, "", err
	}

	l.mu.Lock()
	if !l.sess.Active() {
		l.mu.Unlock()
		return false, "", errs.Newf(errs.CodeSessionNotActive, "group %s", groupID)
	}
	if !l.sess.HasPlayer(participantID) {
		l.mu.Unlock()
		return false, "", errs.Newf(errs.CodePlayerNotFound, "participant %s", participantID)
	}
	characterName := participantID
	if p, ok := l.players[participantID]; ok {
		characterName = p.CharacterName
	}
	playerCount := len(l.sess.PlayerIDs)
	l.mu.Unlock()

	action := batch.Action{
		ParticipantID: participantID,
		CharacterName: characterName,
		Content:       strings.TrimSpace(content),
		SubmittedAt:   e.clock(),
	}
	if e.batcher.Submit(groupID, playerCount, action) {
		return true, "", nil
	}

	narration = e.resolveTurn(ctx, groupID, []batch.Action{action})
	return false, narration, nil
}

// Roll evaluates a dice expression for a participant and records the
// outcome in the session history.
func (e *Engine) Roll(ctx context.Context, groupID, participantID, expression string) (dice.Result, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Roll")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return dice.Result{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.sess.Active() {
		return dice.Result{}, errs.Newf(errs.CodeSessionNotActive, "group %s", groupID)
	}

	e.rngMu.Lock()
	result, rollErr := dice.Evaluate(expression, e.rng)
	e.rngMu.Unlock()
	if rollErr != nil {
		return dice.Result{}, errs.New(errs.CodeInvalidExpression, rollErr)
	}

	characterName := participantID
	if p, ok := l.players[participantID]; ok {
		characterName = p.CharacterName
	}
	l.sess.AddHistory(session.HistoryEntry{
		Kind:          session.EntryDice,
		Content:       describeRoll(result),
		ParticipantID: participantID,
		CharacterName: characterName,
	}, e.clock())
	e.schedulePersist(l)
	return result, nil
}

func describeRoll(result dice.Result) string {
	desc := fmt.Sprintf("rolled %s = %d", result.Expression, result.Total)
	if result.CriticalSuccess {
		desc += " (critical success)"
	}
	if result.CriticalFailure {
		desc += " (critical failure)"
	}
	return desc
}

// resolveBatch is the batcher's flush sink. It runs on the timer
// goroutine or on the final submitter's goroutine.
func (e *Engine) resolveBatch(groupID string, actions []batch.Action) {
	e.resolveTurn(context.Background(), groupID, actions)
}

// resolveTurn runs one turn: record the actions, narrate, score the
// narration, and schedule persistence. Narration failures degrade to a
// fallback line inside the narrator wrapper, so the turn always
// completes.
func (e *Engine) resolveTurn(ctx context.Context, groupID string, actions []batch.Action) string {
	ctx, span := e.tracer.Start(ctx, "engine.resolveTurn")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		log.Printf("engine: resolve turn for group %s: %v", groupID, err)
		return ""
	}

	now := e.clock()

	l.mu.Lock()
	if !l.sess.Active() {
		l.mu.Unlock()
		log.Printf("engine: dropping %d actions for inactive group %s", len(actions), groupID)
		return ""
	}
	actionLines := make([]string, 0, len(actions))
	for _, action := range actions {
		l.sess.AddHistory(session.HistoryEntry{
			Kind:          session.EntryPlayer,
			Content:       action.Content,
			ParticipantID: action.ParticipantID,
			CharacterName: action.CharacterName,
		}, now)
		actionLines = append(actionLines, fmt.Sprintf("%s: %s", action.CharacterName, action.Content))
	}
	req := narrator.TurnRequest{
		WorldName: l.sess.WorldName,
		World:     l.sess.World.Describe(),
		Summary:   l.sess.Story.Summary,
		Tension:   l.sess.Story.Tension,
		Recent:    historyLines(l.sess.RecentHistory(e.cfg.RecentTurns)),
		Actions:   actionLines,
		Lore:      append([]string(nil), l.sess.Lore...),
		Climax:    l.climaxPending,
	}
	l.climaxPending = false
	l.mu.Unlock()

	narration, err := e.narrator.Narrate(ctx, req)
	if err != nil {
		// The resilient wrapper absorbs failures; an error here means
		// the context died mid-turn.
		log.Printf("engine: narration for group %s: %v", groupID, err)
		narration = narrator.FallbackNarration
	}

	l.mu.Lock()
	l.sess.AddHistory(session.HistoryEntry{Kind: session.EntryDM, Content: narration}, e.clock())
	obs := e.tracker.Observe(l.sess, narration)
	if obs.Climax {
		l.climaxPending = true
	}
	l.sess.TrimHistory(e.cfg.HistoryLimit, e.clock())
	tension := l.sess.Story.Tension
	var summaryReq narrator.SummaryRequest
	if obs.NeedsSummary {
		summaryReq = narrator.SummaryRequest{
			Previous: l.sess.Story.Summary,
			Entries:  historyLines(l.sess.RecentHistory(e.cfg.Narrative.SummaryInterval)),
		}
	}
	l.mu.Unlock()

	if obs.Climax {
		sink := e.climaxSink
		go sink(groupID, tension, narration)
	}

	if obs.NeedsSummary {
		if summary, err := e.narrator.Summarize(ctx, summaryReq); err == nil {
			l.mu.Lock()
			l.sess.Story.Summary = summary
			e.tracker.MarkSummarized(l.sess)
			l.mu.Unlock()
		} else {
			log.Printf("engine: summary refresh for group %s: %v", groupID, err)
		}
	}

	l.mu.Lock()
	e.schedulePersist(l)
	l.mu.Unlock()

	return narration
}

func historyLines(entries []session.HistoryEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.CharacterName != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", entry.CharacterName, entry.Content))
			continue
		}
		lines = append(lines, entry.Content)
	}
	return lines
}
