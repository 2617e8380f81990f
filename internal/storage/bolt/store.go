// Package bolt provides a BoltDB-backed game state store for
// single-file deployments without SQLite.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/session"
	"github.com/louisbranch/tabletop.chat/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	sessionBucket = "sessions"
	playerBucket  = "players"
	slotBucket    = "slots"
)

// slotRecord is the stored form of one occupied save slot.
type slotRecord struct {
	Meta    storage.SlotMeta  `json:"meta"`
	Session *session.Session  `json:"session"`
	Players []*session.Player `json:"players"`
}

// Store provides a BoltDB-backed store for sessions, players, and
// save slots.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutSession upserts the live session record for a group.
func (s *Store) PutSession(ctx context.Context, sess *session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess == nil || strings.TrimSpace(sess.GroupID) == "" {
		return fmt.Errorf("session group id is required")
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(sess.GroupID), payload)
	})
}

// GetSession fetches the live session record for a group.
func (s *Store) GetSession(ctx context.Context, groupID string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sess *session.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(sessionBucket)).Get([]byte(groupID))
		if payload == nil {
			return storage.ErrNotFound
		}
		sess = &session.Session{}
		if err := json.Unmarshal(payload, sess); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// DeleteSession removes the live session record for a group.
func (s *Store) DeleteSession(ctx context.Context, groupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Delete([]byte(groupID))
	})
}

// PutPlayer upserts a character record.
func (s *Store) PutPlayer(ctx context.Context, p *session.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || strings.TrimSpace(p.GroupID) == "" || strings.TrimSpace(p.ParticipantID) == "" {
		return fmt.Errorf("player group and participant ids are required")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(playerBucket)).Put(playerKey(p.GroupID, p.ParticipantID), payload)
	})
}

// GetPlayer fetches one character record.
func (s *Store) GetPlayer(ctx context.Context, groupID, participantID string) (*session.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var player *session.Player
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(playerBucket)).Get(playerKey(groupID, participantID))
		if payload == nil {
			return storage.ErrNotFound
		}
		player = &session.Player{}
		if err := json.Unmarshal(payload, player); err != nil {
			return fmt.Errorf("unmarshal player: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// ListPlayers fetches every character record in a group, ordered by
// participant ID.
func (s *Store) ListPlayers(ctx context.Context, groupID string) ([]*session.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := playerKey(groupID, "")
	var players []*session.Player
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(playerBucket)).Cursor()
		for key, payload := cursor.Seek(prefix); key != nil && strings.HasPrefix(string(key), string(prefix)); key, payload = cursor.Next() {
			player := &session.Player{}
			if err := json.Unmarshal(payload, player); err != nil {
				return fmt.Errorf("unmarshal player: %w", err)
			}
			players = append(players, player)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}

// DeletePlayer removes one character record.
func (s *Store) DeletePlayer(ctx context.Context, groupID, participantID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(playerBucket)).Delete(playerKey(groupID, participantID))
	})
}

// SaveSnapshot writes a snapshot into a numbered slot.
func (s *Store) SaveSnapshot(ctx context.Context, slot int, snap storage.Snapshot, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	if snap.Session == nil {
		return fmt.Errorf("snapshot session is required")
	}

	record := slotRecord{
		Meta:    storage.MetaFor(slot, snap, time.Now()),
		Session: snap.Session,
		Players: snap.Players,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := slotKey(snap.Session.GroupID, slot)
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		if !overwrite && bucket.Get(key) != nil {
			return storage.ErrSlotOccupied
		}
		return bucket.Put(key, payload)
	})
}

// LoadSnapshot reads the snapshot stored in a numbered slot.
func (s *Store) LoadSnapshot(ctx context.Context, groupID string, slot int) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	if err := storage.ValidateSlot(slot); err != nil {
		return storage.Snapshot{}, err
	}

	var snap storage.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(slotBucket)).Get(slotKey(groupID, slot))
		if payload == nil {
			return storage.ErrSlotEmpty
		}
		var record slotRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		snap = storage.Snapshot{Session: record.Session, Players: record.Players}
		return nil
	})
	if err != nil {
		return storage.Snapshot{}, err
	}
	return snap, nil
}

// ListSlots lists occupied save slots for a group, ordered by slot.
func (s *Store) ListSlots(ctx context.Context, groupID string) ([]storage.SlotMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var metas []storage.SlotMeta
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		for slot := 1; slot <= storage.MaxSlots; slot++ {
			payload := bucket.Get(slotKey(groupID, slot))
			if payload == nil {
				continue
			}
			var record slotRecord
			if err := json.Unmarshal(payload, &record); err != nil {
				return fmt.Errorf("unmarshal snapshot: %w", err)
			}
			metas = append(metas, record.Meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}

// DeleteSlot clears a numbered save slot.
func (s *Store) DeleteSlot(ctx context.Context, groupID string, slot int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(slotBucket))
		key := slotKey(groupID, slot)
		if bucket.Get(key) == nil {
			return storage.ErrSlotEmpty
		}
		return bucket.Delete(key)
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{sessionBucket, playerBucket, slotBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func playerKey(groupID, participantID string) []byte {
	return []byte(groupID + "/" + participantID)
}

func slotKey(groupID string, slot int) []byte {
	return []byte(fmt.Sprintf("%s/%d", groupID, slot))
}
