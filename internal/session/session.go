package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tabletop.chat/internal/id"
)

// Status describes the lifecycle state of a session.
type Status int

const (
	// StatusUnspecified represents an invalid session status value.
	StatusUnspecified Status = iota
	// StatusActive indicates the session accepts player actions.
	StatusActive
	// StatusPaused indicates play is temporarily suspended.
	StatusPaused
	// StatusEnded indicates the session has ended. Terminal.
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unspecified"
	}
}

var (
	// ErrEmptyGroupID indicates a missing group ID.
	ErrEmptyGroupID = errors.New("group id is required")
	// ErrAlreadyMember indicates a join request from a current member.
	ErrAlreadyMember = errors.New("already a session member")
	// ErrNoPendingJoin indicates no outstanding join request to resolve.
	ErrNoPendingJoin = errors.New("no pending join request")
	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrEnded indicates a mutation attempt on a terminal session.
	ErrEnded = errors.New("session has ended")
)

// EntryKind classifies a history entry.
type EntryKind string

const (
	// EntryDM records narrator output.
	EntryDM EntryKind = "dm"
	// EntryPlayer records a player action.
	EntryPlayer EntryKind = "player"
	// EntrySystem records lifecycle notices.
	EntrySystem EntryKind = "system"
	// EntryDice records a dice roll.
	EntryDice EntryKind = "dice"
)

// HistoryEntry is one line of the session's turn history.
type HistoryEntry struct {
	Kind          EntryKind
	Content       string
	Timestamp     time.Time
	ParticipantID string
	CharacterName string
}

// WorldState holds the free-form world descriptor. Values are open strings
// so custom modules can introduce arbitrary times, weathers, and places.
type WorldState struct {
	TimeOfDay           string
	Weather             string
	Location            string
	LocationDescription string
	Custom              map[string]string
}

// Describe renders the world state as one line for prompts and status output.
func (w WorldState) Describe() string {
	return fmt.Sprintf("%s, %s, at %s", w.TimeOfDay, w.Weather, w.Location)
}

// NPC is the mutable state of a non-player character.
type NPC struct {
	Name        string
	Status      string
	Location    string
	Attitude    string
	Description string
	Notes       string
}

// StoryContext is the rolling narrative ledger for a session.
type StoryContext struct {
	// Tension is the narrative-tension score, always within [0, 10].
	Tension int
	Summary string
	// KeyEvents keeps the most recent notable events, bounded.
	KeyEvents       []string
	OpenThreads     []string
	DiscoveredClues []string
	// LastClimaxIndex and LastSummaryIndex are history watermarks for the
	// climax gate and the summary refresh cadence.
	LastClimaxIndex  int
	LastSummaryIndex int
}

// maxKeyEvents bounds the key-event list.
const maxKeyEvents = 20

// AddKeyEvent appends a notable event, discarding the oldest past the bound.
func (c *StoryContext) AddKeyEvent(event string) {
	c.KeyEvents = append(c.KeyEvents, event)
	if len(c.KeyEvents) > maxKeyEvents {
		c.KeyEvents = c.KeyEvents[len(c.KeyEvents)-maxKeyEvents:]
	}
}

// AddClue records a discovered clue once.
func (c *StoryContext) AddClue(clue string) {
	for _, existing := range c.DiscoveredClues {
		if existing == clue {
			return
		}
	}
	c.DiscoveredClues = append(c.DiscoveredClues, clue)
}

// PendingJoin is a mid-join request awaiting confirmation. Requests do not
// expire; they stay until accepted or rejected.
type PendingJoin struct {
	ParticipantID string
	CharacterName string
	RequestedAt   time.Time
}

// Session represents one game scoped to a communication group.
type Session struct {
	ID      string
	GroupID string
	Status  Status

	// DMID is the participant who started the session and arbitrates
	// mid-session join requests.
	DMID string

	ModuleID  string
	WorldName string
	World     WorldState
	Lore      []string

	History   []HistoryEntry
	NPCs      map[string]NPC
	PlayerIDs []string
	Story     StoryContext

	// PendingJoins maps requester participant ID to the outstanding
	// mid-join confirmation request.
	PendingJoins map[string]PendingJoin

	CreatedAt time.Time
	UpdatedAt time.Time
	EndedAt   *time.Time
}

// CreateInput describes the metadata needed to create a session.
type CreateInput struct {
	GroupID   string
	DMID      string
	ModuleID  string
	WorldName string
}

// defaultTension is the neutral baseline for a fresh story.
const defaultTension = 3

// Create builds a new active session with a generated ID and timestamps.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (*Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.GroupID = strings.TrimSpace(input.GroupID)
	if input.GroupID == "" {
		return nil, ErrEmptyGroupID
	}
	input.WorldName = strings.TrimSpace(input.WorldName)
	if input.WorldName == "" {
		input.WorldName = "open fantasy world"
	}

	sessionID, err := idGenerator()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return &Session{
		ID:        sessionID,
		GroupID:   input.GroupID,
		Status:    StatusActive,
		DMID:      input.DMID,
		ModuleID:  input.ModuleID,
		WorldName: input.WorldName,
		World: WorldState{
			TimeOfDay: "day",
			Weather:   "sunny",
			Location:  "unknown",
		},
		NPCs:         make(map[string]NPC),
		PendingJoins: make(map[string]PendingJoin),
		Story:        StoryContext{Tension: defaultTension},
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// Active reports whether the session accepts player actions.
func (s *Session) Active() bool {
	return s != nil && s.Status == StatusActive
}

// Pause suspends an active session.
func (s *Session) Pause(now time.Time) error {
	if s.Status != StatusActive {
		return fmt.Errorf("%w: %s -> paused", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusPaused
	s.touch(now)
	return nil
}

// Resume reactivates a paused session.
func (s *Session) Resume(now time.Time) error {
	if s.Status != StatusPaused {
		return fmt.Errorf("%w: %s -> active", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusActive
	s.touch(now)
	return nil
}

// End terminates the session from any non-terminal status.
func (s *Session) End(now time.Time) error {
	if s.Status == StatusEnded {
		return fmt.Errorf("%w: already ended", ErrInvalidTransition)
	}
	s.Status = StatusEnded
	ended := now.UTC()
	s.EndedAt = &ended
	s.touch(now)
	return nil
}

// AddHistory appends one entry to the turn history.
func (s *Session) AddHistory(entry HistoryEntry, now time.Time) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now.UTC()
	}
	s.History = append(s.History, entry)
	s.touch(now)
}

// RecentHistory returns up to count entries from the end of the history.
func (s *Session) RecentHistory(count int) []HistoryEntry {
	if count <= 0 || len(s.History) == 0 {
		return nil
	}
	if count > len(s.History) {
		count = len(s.History)
	}
	return s.History[len(s.History)-count:]
}

// TrimHistory bounds the history length, shifting the story-context
// watermarks so cadence logic stays consistent. Returns the removed count.
func (s *Session) TrimHistory(maxLength int, now time.Time) int {
	if maxLength <= 0 || len(s.History) <= maxLength {
		return 0
	}

	removed := len(s.History) - maxLength
	s.History = append([]HistoryEntry(nil), s.History[removed:]...)

	s.Story.LastClimaxIndex = max(0, s.Story.LastClimaxIndex-removed)
	s.Story.LastSummaryIndex = max(0, s.Story.LastSummaryIndex-removed)

	s.touch(now)
	return removed
}

// DMTurns counts resolved narrator turns in the history.
func (s *Session) DMTurns() int {
	count := 0
	for _, entry := range s.History {
		if entry.Kind == EntryDM {
			count++
		}
	}
	return count
}

// AddPlayer records a participant as a session member.
func (s *Session) AddPlayer(participantID string, now time.Time) {
	for _, existing := range s.PlayerIDs {
		if existing == participantID {
			return
		}
	}
	s.PlayerIDs = append(s.PlayerIDs, participantID)
	s.touch(now)
}

// RemovePlayer drops a participant from the member set.
func (s *Session) RemovePlayer(participantID string, now time.Time) {
	for i, existing := range s.PlayerIDs {
		if existing == participantID {
			s.PlayerIDs = append(s.PlayerIDs[:i], s.PlayerIDs[i+1:]...)
			s.touch(now)
			return
		}
	}
}

// HasPlayer reports membership of a participant.
func (s *Session) HasPlayer(participantID string) bool {
	for _, existing := range s.PlayerIDs {
		if existing == participantID {
			return true
		}
	}
	return false
}

// RequestJoin records a mid-session join waiting on the DM's decision.
// A duplicate request from the same participant replaces the earlier one.
func (s *Session) RequestJoin(participantID, characterName string, now time.Time) error {
	if s.HasPlayer(participantID) {
		return ErrAlreadyMember
	}
	if s.PendingJoins == nil {
		s.PendingJoins = make(map[string]PendingJoin)
	}
	s.PendingJoins[participantID] = PendingJoin{
		ParticipantID: participantID,
		CharacterName: characterName,
		RequestedAt:   now.UTC(),
	}
	s.touch(now)
	return nil
}

// ResolveJoin settles a pending join request. An approved requester
// becomes a member; either way the request is cleared.
func (s *Session) ResolveJoin(participantID string, approve bool, now time.Time) (PendingJoin, error) {
	pending, ok := s.PendingJoins[participantID]
	if !ok {
		return PendingJoin{}, ErrNoPendingJoin
	}
	delete(s.PendingJoins, participantID)
	if approve {
		s.AddPlayer(participantID, now)
	}
	s.touch(now)
	return pending, nil
}

// SetNPC inserts or replaces an NPC by name.
func (s *Session) SetNPC(npc NPC, now time.Time) {
	if s.NPCs == nil {
		s.NPCs = make(map[string]NPC)
	}
	s.NPCs[npc.Name] = npc
	s.touch(now)
}

func (s *Session) touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}
