package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func fixedID(id string) func() (string, error) {
	return func() (string, error) { return id, nil }
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := Create(CreateInput{
		GroupID:  "group-1",
		DMID:     "dm-1",
		ModuleID: "solo_mystery",
	}, fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)), fixedID("sess-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func TestCreateDefaults(t *testing.T) {
	s := newTestSession(t)

	if s.Status != StatusActive {
		t.Fatalf("Status = %v, want %v", s.Status, StatusActive)
	}
	if s.Story.Tension != defaultTension {
		t.Fatalf("Tension = %d, want %d", s.Story.Tension, defaultTension)
	}
	if s.World.TimeOfDay == "" || s.World.Weather == "" || s.World.Location == "" {
		t.Fatalf("world defaults missing: %+v", s.World)
	}
	if !s.Active() {
		t.Fatal("Active() = false for a fresh session")
	}
}

func TestCreateRejectsEmptyGroup(t *testing.T) {
	_, err := Create(CreateInput{DMID: "dm-1"}, fixedClock(time.Now()), fixedID("x"))
	if !errors.Is(err, ErrEmptyGroupID) {
		t.Fatalf("err = %v, want ErrEmptyGroupID", err)
	}
}

func TestTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	t.Run("pause and resume", func(t *testing.T) {
		s := newTestSession(t)
		if err := s.Pause(now); err != nil {
			t.Fatalf("Pause: %v", err)
		}
		if s.Status != StatusPaused {
			t.Fatalf("Status = %v, want %v", s.Status, StatusPaused)
		}
		if err := s.Pause(now); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("second Pause err = %v, want ErrInvalidTransition", err)
		}
		if err := s.Resume(now); err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if s.Status != StatusActive {
			t.Fatalf("Status = %v, want %v", s.Status, StatusActive)
		}
	})

	t.Run("end is terminal", func(t *testing.T) {
		s := newTestSession(t)
		if err := s.End(now); err != nil {
			t.Fatalf("End: %v", err)
		}
		if s.EndedAt == nil {
			t.Fatal("EndedAt not set after End")
		}
		if err := s.Resume(now); !errors.Is(err, ErrEnded) {
			t.Fatalf("Resume after End err = %v, want ErrEnded", err)
		}
		if err := s.Pause(now); !errors.Is(err, ErrEnded) {
			t.Fatalf("Pause after End err = %v, want ErrEnded", err)
		}
	})

	t.Run("resume requires paused", func(t *testing.T) {
		s := newTestSession(t)
		if err := s.Resume(now); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Resume while active err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	s := newTestSession(t)

	for i := 0; i < 5; i++ {
		s.AddHistory(HistoryEntry{Kind: EntryPlayer, Content: "action"}, now)
		s.AddHistory(HistoryEntry{Kind: EntryDM, Content: "narration"}, now)
	}

	if got := len(s.History); got != 10 {
		t.Fatalf("len(History) = %d, want 10", got)
	}
	if got := s.DMTurns(); got != 5 {
		t.Fatalf("DMTurns() = %d, want 5", got)
	}
	if got := len(s.RecentHistory(3)); got != 3 {
		t.Fatalf("RecentHistory(3) = %d entries, want 3", got)
	}
	if got := len(s.RecentHistory(100)); got != 10 {
		t.Fatalf("RecentHistory(100) = %d entries, want 10", got)
	}
}

func TestTrimHistoryShiftsWatermarks(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	s := newTestSession(t)

	for i := 0; i < 20; i++ {
		s.AddHistory(HistoryEntry{Kind: EntryPlayer, Content: "action"}, now)
	}
	s.Story.LastClimaxIndex = 12
	s.Story.LastSummaryIndex = 10

	s.TrimHistory(10, now)

	if got := len(s.History); got != 10 {
		t.Fatalf("len(History) = %d, want 10", got)
	}
	if s.Story.LastClimaxIndex != 2 {
		t.Fatalf("LastClimaxIndex = %d, want 2", s.Story.LastClimaxIndex)
	}
	if s.Story.LastSummaryIndex != 0 {
		t.Fatalf("LastSummaryIndex = %d, want 0", s.Story.LastSummaryIndex)
	}

	// Watermarks inside the trimmed prefix reset to the new start.
	s.Story.LastClimaxIndex = 1
	s.TrimHistory(5, now)
	if s.Story.LastClimaxIndex != 0 {
		t.Fatalf("trimmed-away LastClimaxIndex = %d, want 0", s.Story.LastClimaxIndex)
	}
}

func TestMembership(t *testing.T) {
	now := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	s := newTestSession(t)

	s.AddPlayer("p1", now)
	s.AddPlayer("p2", now)
	s.AddPlayer("p1", now)

	if got := len(s.PlayerIDs); got != 2 {
		t.Fatalf("len(PlayerIDs) = %d, want 2", got)
	}
	if !s.HasPlayer("p1") || !s.HasPlayer("p2") {
		t.Fatal("expected p1 and p2 to be members")
	}

	s.RemovePlayer("p1", now)
	if s.HasPlayer("p1") {
		t.Fatal("p1 still a member after RemovePlayer")
	}
	if got := len(s.PlayerIDs); got != 1 {
		t.Fatalf("len(PlayerIDs) = %d, want 1", got)
	}
}

func TestStoryKeyEventsBounded(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < 30; i++ {
		s.Story.AddKeyEvent("event")
	}
	if got := len(s.Story.KeyEvents); got != maxKeyEvents {
		t.Fatalf("len(KeyEvents) = %d, want %d", got, maxKeyEvents)
	}
}

func TestWorldDescribe(t *testing.T) {
	s := newTestSession(t)
	s.World.Location = "misty harbor"
	s.World.TimeOfDay = "dusk"
	s.World.Weather = "rain"

	got := s.World.Describe()
	for _, want := range []string{"misty harbor", "dusk", "rain"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Describe() = %q, missing %q", got, want)
		}
	}
}
