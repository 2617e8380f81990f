// Package engine orchestrates game sessions: lifecycle, membership,
// action batching, turn resolution, and persistence scheduling. It is
// the only writer of session state; transports call it and stay dumb.
package engine

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/tabletop.chat/internal/batch"
	errs "github.com/louisbranch/tabletop.chat/internal/errors"
	"github.com/louisbranch/tabletop.chat/internal/id"
	"github.com/louisbranch/tabletop.chat/internal/module"
	"github.com/louisbranch/tabletop.chat/internal/narrative"
	"github.com/louisbranch/tabletop.chat/internal/narrator"
	"github.com/louisbranch/tabletop.chat/internal/random"
	"github.com/louisbranch/tabletop.chat/internal/session"
	"github.com/louisbranch/tabletop.chat/internal/storage"
)

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	Batch     batch.Config
	Narrative narrative.Config

	// MaxRetries bounds narration attempts per turn.
	MaxRetries int

	// HistoryLimit bounds the per-session history length.
	HistoryLimit int

	// RecentTurns is how many history lines feed the turn prompt.
	RecentTurns int
}

func (c Config) normalize() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = narrator.DefaultMaxTries
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 200
	}
	if c.RecentTurns <= 0 {
		c.RecentTurns = 10
	}
	if c.Narrative.SummaryInterval <= 0 {
		c.Narrative.SummaryInterval = narrative.DefaultSummaryInterval
	}
	return c
}

// live is the in-memory hot copy of one group's game. Its lock
// serializes all mutation for that group; distinct groups never
// contend.
type live struct {
	mu      sync.Mutex
	sess    *session.Session
	players map[string]*session.Player

	// climaxPending marks that the last resolved turn crossed the
	// climax gate; the next turn's prompt asks for the dramatic peak.
	climaxPending bool
}

// Engine coordinates the core components behind one API.
type Engine struct {
	cfg      Config
	store    storage.Store
	catalog  *module.Catalog
	narrator narrator.Narrator
	tracker  *narrative.Tracker
	batcher  *batch.Batcher

	climaxSink narrator.ClimaxSink
	tracer     trace.Tracer

	clock       func() time.Time
	idGenerator func() (string, error)

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	sessions map[string]*live

	writes chan writeReq
	done   chan struct{}
}

// Option adjusts engine construction, mostly for tests.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRand replaces the dice RNG.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithIDGenerator replaces the session ID generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.idGenerator = gen }
}

// WithClimaxSink replaces the climax notification sink.
func WithClimaxSink(sink narrator.ClimaxSink) Option {
	return func(e *Engine) { e.climaxSink = sink }
}

// New builds an engine and starts its persistence worker. The narrator
// is wrapped with retries; callers pass the raw provider.
func New(store storage.Store, catalog *module.Catalog, n narrator.Narrator, cfg Config, opts ...Option) *Engine {
	cfg = cfg.normalize()
	rng, err := random.NewRand()
	if err != nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{
		cfg:         cfg,
		store:       store,
		catalog:     catalog,
		narrator:    narrator.NewResilient(n, cfg.MaxRetries),
		tracker:     narrative.NewTracker(cfg.Narrative),
		tracer:      otel.Tracer("engine"),
		clock:       time.Now,
		idGenerator: id.NewID,
		rng:         rng,
		sessions:    make(map[string]*live),
		writes:      make(chan writeReq, 64),
		done:        make(chan struct{}),
	}
	e.climaxSink = func(groupID string, tension int, _ string) {
		log.Printf("engine: climax reached in group %s at tension %d", groupID, tension)
	}
	for _, opt := range opts {
		opt(e)
	}
	e.batcher = batch.New(cfg.Batch, e.resolveBatch)
	go e.persistLoop()
	return e
}

// Close drains the persistence queue and stops the worker.
func (e *Engine) Close() error {
	close(e.writes)
	<-e.done
	return nil
}

// Start opens a new session for a group. The starter becomes the
// session's DM-of-record for join arbitration; players join
// explicitly.
func (e *Engine) Start(ctx context.Context, groupID, starterID, moduleID string) (*session.Session, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Start")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.sessions[groupID]; ok && l.sessionActiveOrPaused() {
		return nil, errs.Newf(errs.CodeAlreadyActive, "group %s", groupID)
	}
	if stored, err := e.store.GetSession(ctx, groupID); err == nil && stored.Status != session.StatusEnded {
		return nil, errs.Newf(errs.CodeAlreadyActive, "group %s", groupID)
	}

	template, err := e.catalog.Resolve(moduleID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	sess, err := session.Create(session.CreateInput{
		GroupID: groupID,
		DMID:    starterID,
	}, e.clock, e.idGenerator)
	if err != nil {
		return nil, err
	}
	template.Apply(sess, now)

	l := &live{sess: sess, players: make(map[string]*session.Player)}
	e.sessions[groupID] = l

	e.schedulePersist(l)
	return cloneSession(sess), nil
}

// Join adds a participant to an active session. Once the story has
// begun (at least one resolved turn) the join becomes a pending
// request awaiting the DM's decision.
func (e *Engine) Join(ctx context.Context, groupID, participantID, characterName string) (pending bool, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.Join")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.sess.Active() {
		return false, errs.Newf(errs.CodeSessionNotActive, "group %s", groupID)
	}
	if l.sess.HasPlayer(participantID) {
		return false, errs.Newf(errs.CodeDuplicateParticipant, "participant %s", participantID)
	}

	now := e.clock()
	// The module's opening narration is not a resolved turn; the story
	// begins with the first narrated player action.
	if l.sess.DMTurns() > 1 {
		if err := l.sess.RequestJoin(participantID, characterName, now); err != nil {
			return false, err
		}
		e.schedulePersist(l)
		return true, nil
	}

	l.sess.AddPlayer(participantID, now)
	// A rejoining participant gets their previous character back.
	if _, ok := l.players[participantID]; !ok {
		l.players[participantID] = session.NewPlayer(groupID, participantID, characterName, e.clock)
	}
	e.schedulePersist(l)
	return false, nil
}

// ResolveJoin settles a pending join request. Only the session's DM
// may decide. Approving an already-promoted participant is idempotent.
func (e *Engine) ResolveJoin(ctx context.Context, groupID, dmID, participantID string, approve bool) error {
	ctx, span := e.tracer.Start(ctx, "engine.ResolveJoin")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sess.Status == session.StatusEnded {
		return errs.Newf(errs.CodeSessionNotActive, "group %s", groupID)
	}
	if dmID != l.sess.DMID {
		return errs.Newf(errs.CodeNotSessionDM, "participant %s", dmID)
	}
	if l.sess.HasPlayer(participantID) {
		// Already promoted; clear any stale request.
		delete(l.sess.PendingJoins, participantID)
		return nil
	}

	now := e.clock()
	pendingJoin, err := l.sess.ResolveJoin(participantID, approve, now)
	if err != nil {
		return err
	}
	if approve {
		l.players[participantID] = session.NewPlayer(groupID, participantID, pendingJoin.CharacterName, e.clock)
		l.sess.AddHistory(session.HistoryEntry{
			Kind:          session.EntrySystem,
			Content:       fmt.Sprintf("%s joins the table.", l.players[participantID].CharacterName),
			ParticipantID: participantID,
		}, now)
	}
	e.schedulePersist(l)
	return nil
}

// Leave removes a participant from the session. Their character record
// is kept so a later rejoin restores it.
func (e *Engine) Leave(ctx context.Context, groupID, participantID string) error {
	ctx, span := e.tracer.Start(ctx, "engine.Leave")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sess.Status == session.StatusEnded {
		return errs.Newf(errs.CodeSessionNotActive, "group %s", groupID)
	}
	if !l.sess.HasPlayer(participantID) {
		return errs.Newf(errs.CodePlayerNotFound, "participant %s", participantID)
	}
	l.sess.RemovePlayer(participantID, e.clock())
	e.schedulePersist(l)
	return nil
}

// Pause suspends an active session and discards any in-flight batch.
func (e *Engine) Pause(ctx context.Context, groupID string) error {
	ctx, span := e.tracer.Start(ctx, "engine.Pause")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.sess.Pause(e.clock()); err != nil {
		return errs.New(errs.CodeInvalidTransition, err)
	}
	if discarded := e.batcher.Cancel(groupID); discarded > 0 {
		log.Printf("engine: discarded %d queued actions on pause of group %s", discarded, groupID)
	}
	e.schedulePersist(l)
	return nil
}

// Resume reactivates a paused session.
func (e *Engine) Resume(ctx context.Context, groupID string) error {
	ctx, span := e.tracer.Start(ctx, "engine.Resume")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.sess.Resume(e.clock()); err != nil {
		return errs.New(errs.CodeInvalidTransition, err)
	}
	e.schedulePersist(l)
	return nil
}

// End terminates a session, discards any in-flight batch, writes a
// final synchronous snapshot, and evicts the group from the hot set.
func (e *Engine) End(ctx context.Context, groupID string) error {
	ctx, span := e.tracer.Start(ctx, "engine.End")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if err := l.sess.End(e.clock()); err != nil {
		l.mu.Unlock()
		return errs.New(errs.CodeInvalidTransition, err)
	}
	if discarded := e.batcher.Cancel(groupID); discarded > 0 {
		log.Printf("engine: discarded %d queued actions on end of group %s", discarded, groupID)
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	if err := e.persistSync(snap); err != nil {
		return errs.New(errs.CodePersistenceFailure, err)
	}

	e.mu.Lock()
	delete(e.sessions, groupID)
	e.mu.Unlock()
	return nil
}

// Report is a read-only view of a group's game state.
type Report struct {
	Session *session.Session
	Players []*session.Player
	Pending int
}

// Status returns a snapshot of the group's session, its characters,
// and the number of actions queued in the current window.
func (e *Engine) Status(ctx context.Context, groupID string) (Report, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Status")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return Report{}, err
	}

	l.mu.Lock()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	return Report{
		Session: snap.Session,
		Players: snap.Players,
		Pending: e.batcher.Pending(groupID),
	}, nil
}

// Player returns a snapshot of one character.
func (e *Engine) Player(ctx context.Context, groupID, participantID string) (*session.Player, error) {
	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.players[participantID]
	if !ok {
		return nil, errs.Newf(errs.CodePlayerNotFound, "participant %s", participantID)
	}
	return clonePlayer(p), nil
}

// UpdatePlayer applies a mutation to one character under the session
// lock and schedules persistence.
func (e *Engine) UpdatePlayer(ctx context.Context, groupID, participantID string, mutate func(*session.Player, time.Time) error) (*session.Player, error) {
	ctx, span := e.tracer.Start(ctx, "engine.UpdatePlayer")
	defer span.End()

	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sess.Status == session.StatusEnded {
		return nil, errs.Newf(errs.CodeSessionNotActive, "group %s", groupID)
	}
	p, ok := l.players[participantID]
	if !ok {
		return nil, errs.Newf(errs.CodePlayerNotFound, "participant %s", participantID)
	}
	if err := mutate(p, e.clock()); err != nil {
		return nil, err
	}
	e.schedulePersist(l)
	return clonePlayer(p), nil
}

// SearchLore returns session lore and clue lines matching the query.
func (e *Engine) SearchLore(ctx context.Context, groupID, query string) ([]string, error) {
	l, err := e.lookup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	var matches []string
	for _, line := range l.sess.Lore {
		if query == "" || strings.Contains(strings.ToLower(line), query) {
			matches = append(matches, line)
		}
	}
	for _, clue := range l.sess.Story.DiscoveredClues {
		if query == "" || strings.Contains(strings.ToLower(clue), query) {
			matches = append(matches, clue)
		}
	}
	return matches, nil
}

// lookup returns the live record for a group, loading it from storage
// on first touch.
func (e *Engine) lookup(ctx context.Context, groupID string) (*live, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.sessions[groupID]; ok {
		return l, nil
	}

	sess, err := e.store.GetSession(ctx, groupID)
	if err != nil {
		return nil, errs.Newf(errs.CodeNotFound, "no session for group %s", groupID)
	}
	players, err := e.store.ListPlayers(ctx, groupID)
	if err != nil {
		return nil, errs.New(errs.CodePersistenceFailure, err)
	}

	l := &live{sess: sess, players: make(map[string]*session.Player, len(players))}
	for _, p := range players {
		l.players[p.ParticipantID] = p
	}
	e.sessions[groupID] = l
	return l, nil
}

func (l *live) sessionActiveOrPaused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sess.Status != session.StatusEnded
}
