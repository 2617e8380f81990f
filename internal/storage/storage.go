package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/session"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrSlotOccupied indicates a save slot already holds a snapshot.
	ErrSlotOccupied = errors.New("save slot is occupied")
	// ErrSlotEmpty indicates a load targeted an empty save slot.
	ErrSlotEmpty = errors.New("save slot is empty")
)

// MaxSlots is the number of save slots available per group.
const MaxSlots = 3

// ValidateSlot rejects slot numbers outside [1, MaxSlots].
func ValidateSlot(slot int) error {
	if slot < 1 || slot > MaxSlots {
		return fmt.Errorf("slot %d out of range [1, %d]", slot, MaxSlots)
	}
	return nil
}

// SessionStore persists the live session record for a group.
type SessionStore interface {
	PutSession(ctx context.Context, s *session.Session) error
	GetSession(ctx context.Context, groupID string) (*session.Session, error)
	DeleteSession(ctx context.Context, groupID string) error
}

// PlayerStore persists character records, one per participant per group.
type PlayerStore interface {
	PutPlayer(ctx context.Context, p *session.Player) error
	GetPlayer(ctx context.Context, groupID, participantID string) (*session.Player, error)
	ListPlayers(ctx context.Context, groupID string) ([]*session.Player, error)
	DeletePlayer(ctx context.Context, groupID, participantID string) error
}

// SlotMeta describes one save slot without its snapshot payload.
type SlotMeta struct {
	Slot      int
	GroupID   string
	SessionID string
	ModuleID  string
	WorldName string
	Summary   string
	TurnCount int
	SavedAt   time.Time
}

// Snapshot is a full point-in-time copy of a group's game state.
type Snapshot struct {
	Session *session.Session
	Players []*session.Player
}

// SlotStore persists full snapshots into numbered save slots.
type SlotStore interface {
	// SaveSnapshot writes a snapshot into a slot. An occupied slot is
	// rejected with ErrSlotOccupied unless overwrite is set.
	SaveSnapshot(ctx context.Context, slot int, snap Snapshot, overwrite bool) error
	LoadSnapshot(ctx context.Context, groupID string, slot int) (Snapshot, error)
	ListSlots(ctx context.Context, groupID string) ([]SlotMeta, error)
	DeleteSlot(ctx context.Context, groupID string, slot int) error
}

// Store bundles the three persistence concerns a backend must cover.
type Store interface {
	SessionStore
	PlayerStore
	SlotStore
	Close() error
}

// MetaFor derives slot metadata from a snapshot.
func MetaFor(slot int, snap Snapshot, savedAt time.Time) SlotMeta {
	meta := SlotMeta{Slot: slot, SavedAt: savedAt.UTC()}
	if snap.Session != nil {
		meta.GroupID = snap.Session.GroupID
		meta.SessionID = snap.Session.ID
		meta.ModuleID = snap.Session.ModuleID
		meta.WorldName = snap.Session.WorldName
		meta.Summary = snap.Session.Story.Summary
		meta.TurnCount = snap.Session.DMTurns()
	}
	return meta
}
