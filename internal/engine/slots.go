package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	errs "github.com/louisbranch/tabletop.chat/internal/errors"
	"github.com/louisbranch/tabletop.chat/internal/session"
	"github.com/louisbranch/tabletop.chat/internal/storage"
)

// SaveToSlot writes a synchronous snapshot of the group's game into a
// numbered slot.
func (e *Engine) SaveToSlot(ctx context.Context, groupID string, slot int, overwrite bool) (storage.SlotMeta, error) {
	ctx, span := e.tracer.Start(ctx, "engine.SaveToSlot")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return storage.SlotMeta{}, err
	}

	l.mu.Lock()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	if err := e.store.SaveSnapshot(ctx, slot, snap, overwrite); err != nil {
		if errors.Is(err, storage.ErrSlotOccupied) {
			return storage.SlotMeta{}, errs.Newf(errs.CodeSlotOccupied, "slot %d", slot)
		}
		return storage.SlotMeta{}, errs.New(errs.CodePersistenceFailure, err)
	}
	return storage.MetaFor(slot, snap, e.clock()), nil
}

// LoadFromSlot replaces the group's game with the snapshot stored in a
// slot. The restored session resumes as the live one; any in-flight
// batch window is discarded.
func (e *Engine) LoadFromSlot(ctx context.Context, groupID string, slot int) (*session.Session, error) {
	ctx, span := e.tracer.Start(ctx, "engine.LoadFromSlot")
	defer span.End()

	snap, err := e.store.LoadSnapshot(ctx, groupID, slot)
	if err != nil {
		if errors.Is(err, storage.ErrSlotEmpty) {
			return nil, errs.Newf(errs.CodeSlotEmpty, "slot %d", slot)
		}
		return nil, errs.New(errs.CodePersistenceFailure, err)
	}
	if snap.Session == nil {
		return nil, errs.Newf(errs.CodeSlotEmpty, "slot %d holds no session", slot)
	}
	if snap.Session.Status == session.StatusEnded {
		return nil, fmt.Errorf("slot %d holds an ended session", slot)
	}

	if discarded := e.batcher.Cancel(groupID); discarded > 0 {
		log.Printf("engine: discarded %d queued actions on load for group %s", discarded, groupID)
	}

	l := &live{sess: snap.Session, players: make(map[string]*session.Player, len(snap.Players))}
	for _, p := range snap.Players {
		l.players[p.ParticipantID] = p
	}

	e.mu.Lock()
	e.sessions[groupID] = l
	e.mu.Unlock()

	l.mu.Lock()
	e.schedulePersist(l)
	snapOut := l.snapshotLocked()
	l.mu.Unlock()
	return snapOut.Session, nil
}

// ListSlots lists the group's occupied save slots.
func (e *Engine) ListSlots(ctx context.Context, groupID string) ([]storage.SlotMeta, error) {
	metas, err := e.store.ListSlots(ctx, groupID)
	if err != nil {
		return nil, errs.New(errs.CodePersistenceFailure, err)
	}
	return metas, nil
}

// DeleteSlot clears one of the group's save slots.
func (e *Engine) DeleteSlot(ctx context.Context, groupID string, slot int) error {
	if err := e.store.DeleteSlot(ctx, groupID, slot); err != nil {
		if errors.Is(err, storage.ErrSlotEmpty) {
			return errs.Newf(errs.CodeSlotEmpty, "slot %d", slot)
		}
		return errs.New(errs.CodePersistenceFailure, err)
	}
	return nil
}
