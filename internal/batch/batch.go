// Package batch collects player actions during a timed window so a
// multiplayer turn resolves once for the whole table instead of once
// per message.
package batch

import (
	"sync"
	"time"
)

// Window defaults.
const (
	DefaultCollectWindow = 60 * time.Second
	DefaultExtraWait     = 15 * time.Second
	DefaultMaxExtensions = 2

	// DefaultMinPlayers is the table size below which actions skip
	// batching entirely.
	DefaultMinPlayers = 2
)

// Action is one submitted player action awaiting resolution.
type Action struct {
	ParticipantID string
	CharacterName string
	Content       string
	SubmittedAt   time.Time
}

// Flusher receives the collected actions when a window closes. It runs
// on the timer goroutine when the window expires, and on the
// submitter's goroutine when the table completes early.
type Flusher func(groupID string, actions []Action)

// Config tunes the batcher. Zero values fall back to defaults.
type Config struct {
	CollectWindow time.Duration
	ExtraWait     time.Duration
	MaxExtensions int
	MinPlayers    int
}

func (c Config) normalize() Config {
	if c.CollectWindow <= 0 {
		c.CollectWindow = DefaultCollectWindow
	}
	if c.ExtraWait <= 0 {
		c.ExtraWait = DefaultExtraWait
	}
	if c.MaxExtensions <= 0 {
		c.MaxExtensions = DefaultMaxExtensions
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = DefaultMinPlayers
	}
	return c
}

// timer is the stoppable handle the batcher keeps per open window.
type timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// startTimer is the scheduling seam, overridable in tests.
type startTimer func(d time.Duration, fn func()) timer

func realTimer(d time.Duration, fn func()) timer {
	return time.AfterFunc(d, fn)
}

// window is one in-flight collection for a group.
type window struct {
	groupID  string
	expected int
	order    []string
	actions  map[string]Action

	// deadline slides forward on later submissions, never past ceiling.
	deadline time.Time
	ceiling  time.Time
	timer    timer
	closed   bool
}

func (w *window) collected() []Action {
	out := make([]Action, 0, len(w.order))
	for _, participantID := range w.order {
		out = append(out, w.actions[participantID])
	}
	return out
}

// Batcher tracks at most one open window per group.
type Batcher struct {
	cfg      Config
	flush    Flusher
	newTimer startTimer
	clock    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New builds a batcher delivering closed windows to flush.
func New(cfg Config, flush Flusher) *Batcher {
	return &Batcher{
		cfg:      cfg.normalize(),
		flush:    flush,
		newTimer: realTimer,
		clock:    time.Now,
		windows:  make(map[string]*window),
	}
}

// Submit offers an action for batching. When the table is below the
// multiplayer threshold the action is not queued and the caller
// resolves it directly; otherwise the action joins the group's window,
// opening one if needed. A second action from the same participant
// replaces the first. A later submission slides the deadline to
// now+ExtraWait, bounded by the window's hard ceiling. When every
// expected participant has submitted, the window closes early and
// flushes before Submit returns.
func (b *Batcher) Submit(groupID string, expectedPlayers int, action Action) (queued bool) {
	if expectedPlayers < b.cfg.MinPlayers {
		return false
	}

	b.mu.Lock()
	now := b.clock()
	w, ok := b.windows[groupID]
	if !ok {
		w = &window{
			groupID:  groupID,
			expected: expectedPlayers,
			actions:  make(map[string]Action),
			deadline: now.Add(b.cfg.CollectWindow),
		}
		w.ceiling = w.deadline.Add(b.cfg.ExtraWait * time.Duration(b.cfg.MaxExtensions))
		w.timer = b.newTimer(b.cfg.CollectWindow, func() { b.expire(w) })
		b.windows[groupID] = w
	} else if extended := now.Add(b.cfg.ExtraWait); extended.After(w.deadline) {
		if extended.After(w.ceiling) {
			extended = w.ceiling
		}
		if extended.After(w.deadline) {
			w.deadline = extended
			w.timer.Reset(extended.Sub(now))
		}
	}

	if _, seen := w.actions[action.ParticipantID]; !seen {
		w.order = append(w.order, action.ParticipantID)
	}
	w.actions[action.ParticipantID] = action
	w.expected = expectedPlayers

	if len(w.actions) >= w.expected {
		b.closeLocked(w)
		actions := w.collected()
		b.mu.Unlock()
		b.flush(groupID, actions)
		return true
	}
	b.mu.Unlock()
	return true
}

// Pending reports how many actions are queued for a group.
func (b *Batcher) Pending(groupID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[groupID]
	if !ok {
		return 0
	}
	return len(w.actions)
}

// Cancel discards a group's open window without flushing. Used when a
// session pauses or ends mid-collection.
func (b *Batcher) Cancel(groupID string) (discarded int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[groupID]
	if !ok {
		return 0
	}
	b.closeLocked(w)
	return len(w.actions)
}

// expire runs on the timer goroutine when a window's deadline passes
// and hands the batch to the flusher in submission order.
func (b *Batcher) expire(w *window) {
	b.mu.Lock()
	if w.closed {
		b.mu.Unlock()
		return
	}

	// A slid deadline may not have reached the timer yet.
	if remaining := w.deadline.Sub(b.clock()); remaining > 0 {
		w.timer.Reset(remaining)
		b.mu.Unlock()
		return
	}

	b.closeLocked(w)
	actions := w.collected()
	b.mu.Unlock()

	if len(actions) > 0 {
		b.flush(w.groupID, actions)
	}
}

func (b *Batcher) closeLocked(w *window) {
	w.closed = true
	w.timer.Stop()
	delete(b.windows, w.groupID)
}
