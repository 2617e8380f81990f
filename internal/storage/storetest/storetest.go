// Package storetest provides a conformance suite that every storage
// backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/session"
	"github.com/louisbranch/tabletop.chat/internal/storage"
)

// Run exercises the full storage.Store contract against a backend.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("players", func(t *testing.T) { testPlayers(t, open(t)) })
	t.Run("slots", func(t *testing.T) { testSlots(t, open(t)) })
}

func newSession(t *testing.T, groupID string) *session.Session {
	t.Helper()
	s, err := session.Create(session.CreateInput{
		GroupID:  groupID,
		DMID:     "dm-1",
		ModuleID: "solo_mystery",
	}, nil, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func testSessions(t *testing.T, store storage.Store) {
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "group-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing session err = %v, want ErrNotFound", err)
	}

	sess := newSession(t, "group-1")
	sess.AddHistory(session.HistoryEntry{Kind: session.EntryDM, Content: "you wake in a cell"}, time.Now())
	if err := store.PutSession(ctx, sess); err != nil {
		t.Fatalf("put session: %v", err)
	}

	got, err := store.GetSession(ctx, "group-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ID != sess.ID || got.ModuleID != sess.ModuleID || len(got.History) != 1 {
		t.Fatalf("round trip mismatch: got %+v", got)
	}

	// Upsert replaces the stored record.
	sess.Story.Tension = 9
	if err := store.PutSession(ctx, sess); err != nil {
		t.Fatalf("put session again: %v", err)
	}
	got, err = store.GetSession(ctx, "group-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Story.Tension != 9 {
		t.Fatalf("Tension = %d, want 9", got.Story.Tension)
	}

	if err := store.DeleteSession(ctx, "group-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(ctx, "group-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get deleted session err = %v, want ErrNotFound", err)
	}
}

func testPlayers(t *testing.T, store storage.Store) {
	ctx := context.Background()

	if _, err := store.GetPlayer(ctx, "group-1", "p1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing player err = %v, want ErrNotFound", err)
	}

	now := time.Now()
	for _, id := range []string{"p2", "p1"} {
		p := session.NewPlayer("group-1", id, "hero "+id, nil)
		if err := p.AddItem(session.Item{Name: "rope"}, now); err != nil {
			t.Fatalf("add item: %v", err)
		}
		if err := store.PutPlayer(ctx, p); err != nil {
			t.Fatalf("put player %s: %v", id, err)
		}
	}
	other := session.NewPlayer("group-2", "p9", "stranger", nil)
	if err := store.PutPlayer(ctx, other); err != nil {
		t.Fatalf("put player in other group: %v", err)
	}

	got, err := store.GetPlayer(ctx, "group-1", "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.CharacterName != "hero p1" || len(got.Inventory) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	players, err := store.ListPlayers(ctx, "group-1")
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("len(players) = %d, want 2", len(players))
	}
	if players[0].ParticipantID != "p1" || players[1].ParticipantID != "p2" {
		t.Fatalf("players not ordered by participant id: %s, %s",
			players[0].ParticipantID, players[1].ParticipantID)
	}

	if err := store.DeletePlayer(ctx, "group-1", "p1"); err != nil {
		t.Fatalf("delete player: %v", err)
	}
	players, err = store.ListPlayers(ctx, "group-1")
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("len(players) after delete = %d, want 1", len(players))
	}
}

func testSlots(t *testing.T, store storage.Store) {
	ctx := context.Background()

	sess := newSession(t, "group-1")
	snap := storage.Snapshot{
		Session: sess,
		Players: []*session.Player{session.NewPlayer("group-1", "p1", "Aria", nil)},
	}

	if err := store.SaveSnapshot(ctx, 0, snap, false); err == nil {
		t.Fatal("slot 0 accepted")
	}
	if err := store.SaveSnapshot(ctx, storage.MaxSlots+1, snap, false); err == nil {
		t.Fatal("slot above max accepted")
	}

	if err := store.SaveSnapshot(ctx, 1, snap, false); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := store.SaveSnapshot(ctx, 1, snap, false); !errors.Is(err, storage.ErrSlotOccupied) {
		t.Fatalf("save into occupied slot err = %v, want ErrSlotOccupied", err)
	}
	if err := store.SaveSnapshot(ctx, 1, snap, true); err != nil {
		t.Fatalf("overwrite snapshot: %v", err)
	}

	if _, err := store.LoadSnapshot(ctx, "group-1", 2); !errors.Is(err, storage.ErrSlotEmpty) {
		t.Fatalf("load empty slot err = %v, want ErrSlotEmpty", err)
	}

	loaded, err := store.LoadSnapshot(ctx, "group-1", 1)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if loaded.Session == nil || loaded.Session.ID != sess.ID {
		t.Fatalf("loaded session mismatch: %+v", loaded.Session)
	}
	if len(loaded.Players) != 1 || loaded.Players[0].CharacterName != "Aria" {
		t.Fatalf("loaded players mismatch: %+v", loaded.Players)
	}

	metas, err := store.ListSlots(ctx, "group-1")
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(metas) != 1 || metas[0].Slot != 1 || metas[0].SessionID != sess.ID {
		t.Fatalf("slot metadata mismatch: %+v", metas)
	}

	if err := store.DeleteSlot(ctx, "group-1", 1); err != nil {
		t.Fatalf("delete slot: %v", err)
	}
	if err := store.DeleteSlot(ctx, "group-1", 1); !errors.Is(err, storage.ErrSlotEmpty) {
		t.Fatalf("delete empty slot err = %v, want ErrSlotEmpty", err)
	}
}
