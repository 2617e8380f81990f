// Package narrative tracks story tension across resolved turns and
// decides when the story warrants a climax beat or a summary refresh.
package narrative

import (
	"strings"

	"github.com/louisbranch/tabletop.chat/internal/session"
)

// Tension bounds and defaults.
const (
	MinTension      = 0
	MaxTension      = 10
	DefaultBaseline = 3

	// DefaultClimaxMinInterval is the minimum number of history entries
	// between climax triggers.
	DefaultClimaxMinInterval = 5
	// DefaultSummaryInterval is the history-entry cadence for summary
	// refreshes.
	DefaultSummaryInterval = 10

	// maxDeltaPerTurn caps how fast tension can rise in one turn.
	maxDeltaPerTurn = 3
)

// Keyword is one weighted tension trigger word.
type Keyword struct {
	Word   string
	Weight int
}

// DefaultKeywords returns the built-in tension vocabulary.
func DefaultKeywords() []Keyword {
	return []Keyword{
		{Word: "attack", Weight: 1},
		{Word: "ambush", Weight: 2},
		{Word: "blood", Weight: 1},
		{Word: "scream", Weight: 2},
		{Word: "betray", Weight: 2},
		{Word: "collapse", Weight: 1},
		{Word: "explosion", Weight: 2},
		{Word: "dying", Weight: 2},
		{Word: "dragon", Weight: 1},
		{Word: "ritual", Weight: 1},
		{Word: "chase", Weight: 1},
		{Word: "trap", Weight: 1},
	}
}

// Config tunes the tracker. Zero values fall back to defaults.
type Config struct {
	Baseline          int
	ClimaxMinInterval int
	SummaryInterval   int
	Keywords          []Keyword
}

func (c Config) normalize() Config {
	if c.Baseline <= 0 {
		c.Baseline = DefaultBaseline
	}
	if c.ClimaxMinInterval <= 0 {
		c.ClimaxMinInterval = DefaultClimaxMinInterval
	}
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = DefaultSummaryInterval
	}
	if len(c.Keywords) == 0 {
		c.Keywords = DefaultKeywords()
	}
	return c
}

// Observation is the tracker's verdict for one resolved turn.
type Observation struct {
	Hits    int
	Delta   int
	Tension int

	// Climax reports that this turn crossed the climax gate. The
	// trigger is recorded on the session so the gate stays closed for
	// the configured interval.
	Climax bool

	// NeedsSummary reports that enough history accumulated since the
	// last summary refresh.
	NeedsSummary bool
}

// Tracker scores resolved turn text against the tension vocabulary.
type Tracker struct {
	cfg Config
}

// NewTracker builds a tracker with the provided config.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg.normalize()}
}

// Observe scores one resolved turn and updates the session's story
// context in place. Text with keyword hits raises tension by the
// capped hit weight; text without hits decays tension one point
// toward the baseline.
func (t *Tracker) Observe(s *session.Session, text string) Observation {
	obs := Observation{}
	lowered := strings.ToLower(text)

	for _, keyword := range t.cfg.Keywords {
		if keyword.Word == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword.Word)) {
			obs.Hits++
			obs.Delta += keyword.Weight
		}
	}
	if obs.Delta > maxDeltaPerTurn {
		obs.Delta = maxDeltaPerTurn
	}

	tension := s.Story.Tension
	if obs.Hits == 0 {
		switch {
		case tension > t.cfg.Baseline:
			tension--
			obs.Delta = -1
		case tension < t.cfg.Baseline:
			tension++
			obs.Delta = 1
		default:
			obs.Delta = 0
		}
	} else {
		tension += obs.Delta
	}
	s.Story.Tension = clampTension(tension)
	obs.Tension = s.Story.Tension

	historyLen := len(s.History)
	if t.climaxReady(obs, s.Story.LastClimaxIndex, historyLen) {
		obs.Climax = true
		s.Story.LastClimaxIndex = historyLen
	}

	if historyLen-s.Story.LastSummaryIndex >= t.cfg.SummaryInterval {
		obs.NeedsSummary = true
	}

	return obs
}

// MarkSummarized records that a summary refresh covered the current
// history.
func (t *Tracker) MarkSummarized(s *session.Session) {
	s.Story.LastSummaryIndex = len(s.History)
}

func (t *Tracker) climaxReady(obs Observation, lastClimaxIndex, historyLen int) bool {
	if historyLen-lastClimaxIndex < t.cfg.ClimaxMinInterval {
		return false
	}
	if obs.Hits >= 2 {
		return true
	}
	return obs.Tension >= 7 && obs.Hits >= 1
}

func clampTension(value int) int {
	if value < MinTension {
		return MinTension
	}
	if value > MaxTension {
		return MaxTension
	}
	return value
}
