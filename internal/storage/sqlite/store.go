// Package sqlite provides a SQLite-backed game state store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/session"
	"github.com/louisbranch/tabletop.chat/internal/storage"
	"github.com/louisbranch/tabletop.chat/internal/storage/sqlite/migrations"
	"github.com/louisbranch/tabletop.chat/internal/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides SQLite-backed persistence for sessions, players, and
// save slots.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the provided path and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutSession upserts the live session record for a group.
func (s *Store) PutSession(ctx context.Context, sess *session.Session) error {
	if sess == nil || strings.TrimSpace(sess.GroupID) == "" {
		return fmt.Errorf("session group id is required")
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (group_id, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (group_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
`, sess.GroupID, string(payload), toMillis(sess.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession fetches the live session record for a group.
func (s *Store) GetSession(ctx context.Context, groupID string) (*session.Session, error) {
	var payload string
	row := s.sqlDB.QueryRowContext(ctx, "SELECT payload FROM sessions WHERE group_id = ?", groupID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes the live session record for a group.
func (s *Store) DeleteSession(ctx context.Context, groupID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM sessions WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PutPlayer upserts a character record.
func (s *Store) PutPlayer(ctx context.Context, p *session.Player) error {
	if p == nil || strings.TrimSpace(p.GroupID) == "" || strings.TrimSpace(p.ParticipantID) == "" {
		return fmt.Errorf("player group and participant ids are required")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO players (group_id, participant_id, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (group_id, participant_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
`, p.GroupID, p.ParticipantID, string(payload), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put player: %w", err)
	}
	return nil
}

// GetPlayer fetches one character record.
func (s *Store) GetPlayer(ctx context.Context, groupID, participantID string) (*session.Player, error) {
	var payload string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT payload FROM players WHERE group_id = ? AND participant_id = ?", groupID, participantID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return decodePlayer(payload)
}

// ListPlayers fetches every character record in a group, ordered by
// participant ID.
func (s *Store) ListPlayers(ctx context.Context, groupID string) ([]*session.Player, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT payload FROM players WHERE group_id = ? ORDER BY participant_id", groupID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []*session.Player
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p, err := decodePlayer(payload)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

// DeletePlayer removes one character record.
func (s *Store) DeletePlayer(ctx context.Context, groupID, participantID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM players WHERE group_id = ? AND participant_id = ?", groupID, participantID)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

// SaveSnapshot writes a snapshot into a numbered slot.
func (s *Store) SaveSnapshot(ctx context.Context, slot int, snap storage.Snapshot, overwrite bool) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	if snap.Session == nil {
		return fmt.Errorf("snapshot session is required")
	}

	if !overwrite {
		var one int
		row := s.sqlDB.QueryRowContext(ctx,
			"SELECT 1 FROM save_slots WHERE group_id = ? AND slot = ?", snap.Session.GroupID, slot)
		if err := row.Scan(&one); err == nil {
			return storage.ErrSlotOccupied
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check slot: %w", err)
		}
	}

	sessionPayload, err := json.Marshal(snap.Session)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	playersPayload, err := json.Marshal(snap.Players)
	if err != nil {
		return fmt.Errorf("marshal player snapshots: %w", err)
	}

	meta := storage.MetaFor(slot, snap, time.Now())
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO save_slots (group_id, slot, session_id, module_id, world_name, summary, turn_count, session_payload, players_payload, saved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (group_id, slot) DO UPDATE SET
    session_id = excluded.session_id,
    module_id = excluded.module_id,
    world_name = excluded.world_name,
    summary = excluded.summary,
    turn_count = excluded.turn_count,
    session_payload = excluded.session_payload,
    players_payload = excluded.players_payload,
    saved_at = excluded.saved_at
`, meta.GroupID, slot, meta.SessionID, meta.ModuleID, meta.WorldName, meta.Summary,
		meta.TurnCount, string(sessionPayload), string(playersPayload), toMillis(meta.SavedAt))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot stored in a numbered slot.
func (s *Store) LoadSnapshot(ctx context.Context, groupID string, slot int) (storage.Snapshot, error) {
	if err := storage.ValidateSlot(slot); err != nil {
		return storage.Snapshot{}, err
	}

	var sessionPayload, playersPayload string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT session_payload, players_payload FROM save_slots WHERE group_id = ? AND slot = ?", groupID, slot)
	if err := row.Scan(&sessionPayload, &playersPayload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Snapshot{}, storage.ErrSlotEmpty
		}
		return storage.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap storage.Snapshot
	if err := json.Unmarshal([]byte(sessionPayload), &snap.Session); err != nil {
		return storage.Snapshot{}, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(playersPayload), &snap.Players); err != nil {
		return storage.Snapshot{}, fmt.Errorf("unmarshal player snapshots: %w", err)
	}
	return snap, nil
}

// ListSlots lists occupied save slots for a group, ordered by slot.
func (s *Store) ListSlots(ctx context.Context, groupID string) ([]storage.SlotMeta, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT slot, session_id, module_id, world_name, summary, turn_count, saved_at
FROM save_slots WHERE group_id = ? ORDER BY slot
`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var metas []storage.SlotMeta
	for rows.Next() {
		meta := storage.SlotMeta{GroupID: groupID}
		var savedAt int64
		if err := rows.Scan(&meta.Slot, &meta.SessionID, &meta.ModuleID, &meta.WorldName,
			&meta.Summary, &meta.TurnCount, &savedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		meta.SavedAt = fromMillis(savedAt)
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return metas, nil
}

// DeleteSlot clears a numbered save slot.
func (s *Store) DeleteSlot(ctx context.Context, groupID string, slot int) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM save_slots WHERE group_id = ? AND slot = ?", groupID, slot)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot result: %w", err)
	}
	if affected == 0 {
		return storage.ErrSlotEmpty
	}
	return nil
}

func decodePlayer(payload string) (*session.Player, error) {
	var p session.Player
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("unmarshal player: %w", err)
	}
	return &p, nil
}
