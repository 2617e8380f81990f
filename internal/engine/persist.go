package engine

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/session"
	"github.com/louisbranch/tabletop.chat/internal/storage"
)

// persistWriteTimeout bounds one snapshot write.
const persistWriteTimeout = 5 * time.Second

// writeReq is one queued snapshot write. A non-nil done channel makes
// the write synchronous: the worker reports the outcome on it.
type writeReq struct {
	snap storage.Snapshot
	done chan error
}

// schedulePersist queues an asynchronous snapshot write. The queue is
// drained by a single worker, so writes for one group commit in the
// order they were scheduled. When the queue is full the write is
// dropped; the next mutation or the autosave loop covers it.
func (e *Engine) schedulePersist(l *live) {
	snap := l.snapshotLocked()
	select {
	case e.writes <- writeReq{snap: snap}:
	default:
		log.Printf("engine: persistence queue full, deferring write for group %s", snap.Session.GroupID)
	}
}

// persistSync pushes a snapshot through the write queue and waits for
// it to commit. Going through the queue keeps it ordered after any
// writes already scheduled for the group.
func (e *Engine) persistSync(snap storage.Snapshot) error {
	done := make(chan error, 1)
	e.writes <- writeReq{snap: snap, done: done}
	return <-done
}

func (e *Engine) persistLoop() {
	defer close(e.done)
	for req := range e.writes {
		err := e.writeSnapshot(context.Background(), req.snap)
		if req.done != nil {
			req.done <- err
			continue
		}
		if err != nil {
			log.Printf("engine: persist group %s: %v", req.snap.Session.GroupID, err)
		}
	}
}

func (e *Engine) writeSnapshot(ctx context.Context, snap storage.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, persistWriteTimeout)
	defer cancel()

	if err := e.store.PutSession(ctx, snap.Session); err != nil {
		return err
	}
	for _, p := range snap.Players {
		if err := e.store.PutPlayer(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Autosave writes a snapshot of every live session. Called on a timer
// by the process entrypoint.
func (e *Engine) Autosave(ctx context.Context) error {
	e.mu.Lock()
	groups := make([]*live, 0, len(e.sessions))
	for _, l := range e.sessions {
		groups = append(groups, l)
	}
	e.mu.Unlock()

	// One failing group must not starve the rest of the sweep.
	var firstErr error
	for _, l := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.mu.Lock()
		snap := l.snapshotLocked()
		l.mu.Unlock()
		if err := e.persistSync(snap); err != nil {
			log.Printf("engine: autosave group %s: %v", snap.Session.GroupID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// snapshotLocked deep-copies the live state. Callers hold l.mu, except
// inside engine mutations that already hold it.
func (l *live) snapshotLocked() storage.Snapshot {
	snap := storage.Snapshot{Session: cloneSession(l.sess)}
	for _, p := range l.players {
		snap.Players = append(snap.Players, clonePlayer(p))
	}
	return snap
}

// cloneSession deep-copies a session through its JSON form, the same
// shape the stores persist.
func cloneSession(s *session.Session) *session.Session {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("engine: clone session %s: %v", s.ID, err)
		copied := *s
		return &copied
	}
	var out session.Session
	if err := json.Unmarshal(payload, &out); err != nil {
		copied := *s
		return &copied
	}
	return &out
}

func clonePlayer(p *session.Player) *session.Player {
	payload, err := json.Marshal(p)
	if err != nil {
		copied := *p
		return &copied
	}
	var out session.Player
	if err := json.Unmarshal(payload, &out); err != nil {
		copied := *p
		return &copied
	}
	return &out
}
