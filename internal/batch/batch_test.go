package batch

import (
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	fn      func()
	dur     time.Duration
	resets  []time.Duration
	stopped bool
}

func (f *fakeTimer) Stop() bool { f.stopped = true; return true }

func (f *fakeTimer) Reset(d time.Duration) bool {
	f.resets = append(f.resets, d)
	return true
}

func (f *fakeTimer) fire() { f.fn() }

type fakeClockBatcher struct {
	*Batcher
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (fb *fakeClockBatcher) advance(d time.Duration) {
	fb.mu.Lock()
	fb.now = fb.now.Add(d)
	fb.mu.Unlock()
}

func (fb *fakeClockBatcher) lastTimer(t *testing.T) *fakeTimer {
	t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.timers) == 0 {
		t.Fatal("no timer scheduled")
	}
	return fb.timers[len(fb.timers)-1]
}

type flushRecorder struct {
	mu      sync.Mutex
	groups  []string
	batches [][]Action
}

func (r *flushRecorder) flush(groupID string, actions []Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, groupID)
	r.batches = append(r.batches, actions)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func newFakeBatcher(cfg Config, recorder *flushRecorder) *fakeClockBatcher {
	fb := &fakeClockBatcher{
		Batcher: New(cfg, recorder.flush),
		now:     time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC),
	}
	fb.Batcher.clock = func() time.Time {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return fb.now
	}
	fb.Batcher.newTimer = func(d time.Duration, fn func()) timer {
		timer := &fakeTimer{fn: fn, dur: d}
		fb.mu.Lock()
		fb.timers = append(fb.timers, timer)
		fb.mu.Unlock()
		return timer
	}
	return fb
}

func action(participantID, content string) Action {
	return Action{ParticipantID: participantID, Content: content}
}

func TestSubmitPassThroughBelowThreshold(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	if queued := fb.Submit("group-1", 1, action("p1", "open the door")); queued {
		t.Fatal("solo table action was queued")
	}
	if fb.Pending("group-1") != 0 {
		t.Fatal("pass-through left a pending window")
	}
}

func TestSubmitOpensWindow(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	if queued := fb.Submit("group-1", 3, action("p1", "draw sword")); !queued {
		t.Fatal("multiplayer action not queued")
	}
	if got := fb.Pending("group-1"); got != 1 {
		t.Fatalf("Pending = %d, want 1", got)
	}
	if timer := fb.lastTimer(t); timer.dur != DefaultCollectWindow {
		t.Fatalf("window duration = %v, want %v", timer.dur, DefaultCollectWindow)
	}
	if recorder.count() != 0 {
		t.Fatal("flush before window closed")
	}
}

func TestSubmitReplacesDuplicate(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 3, action("p1", "draw sword"))
	fb.Submit("group-1", 3, action("p1", "sheathe sword"))

	if got := fb.Pending("group-1"); got != 1 {
		t.Fatalf("Pending = %d, want 1", got)
	}

	fb.advance(DefaultCollectWindow + DefaultExtraWait*time.Duration(DefaultMaxExtensions) + time.Second)
	fb.lastTimer(t).fire()
	if recorder.count() != 1 {
		t.Fatalf("flushes = %d, want 1", recorder.count())
	}
	if got := recorder.batches[0][0].Content; got != "sheathe sword" {
		t.Fatalf("flushed content = %q, want replacement", got)
	}
}

func TestSubmitFlushesEarlyWhenComplete(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 2, action("p1", "draw sword"))
	fb.Submit("group-1", 2, action("p2", "nock arrow"))

	if recorder.count() != 1 {
		t.Fatalf("flushes = %d, want 1", recorder.count())
	}
	batch := recorder.batches[0]
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
	// Actions keep submission order.
	if batch[0].ParticipantID != "p1" || batch[1].ParticipantID != "p2" {
		t.Fatalf("batch order = %s, %s", batch[0].ParticipantID, batch[1].ParticipantID)
	}
	if !fb.lastTimer(t).stopped {
		t.Fatal("early flush left the timer running")
	}
	if fb.Pending("group-1") != 0 {
		t.Fatal("window not cleared after flush")
	}
}

func TestLateSubmissionSlidesDeadline(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 3, action("p1", "draw sword"))
	timer := fb.lastTimer(t)

	// Near the end of the window a new submission buys extra time.
	fb.advance(DefaultCollectWindow - 5*time.Second)
	fb.Submit("group-1", 3, action("p2", "nock arrow"))
	if len(timer.resets) != 1 || timer.resets[0] != DefaultExtraWait {
		t.Fatalf("resets = %v, want one of %v", timer.resets, DefaultExtraWait)
	}

	// An early submission inside the window does not shorten it.
	recorder2 := &flushRecorder{}
	fb2 := newFakeBatcher(Config{}, recorder2)
	fb2.Submit("group-1", 3, action("p1", "draw sword"))
	fb2.advance(time.Second)
	fb2.Submit("group-1", 3, action("p2", "nock arrow"))
	if resets := fb2.lastTimer(t).resets; len(resets) != 0 {
		t.Fatalf("early submission slid the deadline: %v", resets)
	}
}

func TestDeadlineCeiling(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)
	timerZero := fb.now

	fb.Submit("group-1", 3, action("p1", "draw sword"))
	timer := fb.lastTimer(t)

	ceiling := timerZero.Add(DefaultCollectWindow + DefaultExtraWait*time.Duration(DefaultMaxExtensions))

	// A submission close to the ceiling is clamped to it.
	fb.advance(ceiling.Sub(timerZero) - 10*time.Second)
	fb.Submit("group-1", 3, action("p2", "nock arrow"))
	if len(timer.resets) != 1 || timer.resets[0] != 10*time.Second {
		t.Fatalf("resets = %v, want one of %v", timer.resets, 10*time.Second)
	}

	// At the ceiling no further extension is possible.
	fb.advance(10 * time.Second)
	fb.Submit("group-1", 3, action("p2", "loose arrow"))
	if len(timer.resets) != 1 {
		t.Fatalf("deadline slid past the ceiling: %v", timer.resets)
	}
}

func TestExpiryFlushesPartialBatch(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 3, action("p1", "draw sword"))
	fb.advance(DefaultCollectWindow + time.Second)
	fb.lastTimer(t).fire()

	if recorder.count() != 1 {
		t.Fatalf("flushes = %d, want 1", recorder.count())
	}
	if len(recorder.batches[0]) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(recorder.batches[0]))
	}
	if fb.Pending("group-1") != 0 {
		t.Fatal("window not cleared after expiry")
	}
}

func TestExpiryBeforeSlidDeadlineRearms(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 3, action("p1", "draw sword"))
	timer := fb.lastTimer(t)

	fb.advance(DefaultCollectWindow - 5*time.Second)
	fb.Submit("group-1", 3, action("p2", "nock arrow"))

	// The original timer fires at the old deadline; the window re-arms
	// for the remainder instead of flushing.
	fb.advance(5 * time.Second)
	timer.fire()
	if recorder.count() != 0 {
		t.Fatal("flushed before the slid deadline")
	}
	if len(timer.resets) != 2 {
		t.Fatalf("resets = %v, want re-arm after premature fire", timer.resets)
	}

	fb.advance(DefaultExtraWait)
	timer.fire()
	if recorder.count() != 1 {
		t.Fatalf("flushes = %d, want 1", recorder.count())
	}
	if len(recorder.batches[0]) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(recorder.batches[0]))
	}
}

func TestCancelDiscardsWindow(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 3, action("p1", "draw sword"))
	fb.Submit("group-1", 3, action("p2", "nock arrow"))

	if discarded := fb.Cancel("group-1"); discarded != 2 {
		t.Fatalf("discarded = %d, want 2", discarded)
	}
	if !fb.lastTimer(t).stopped {
		t.Fatal("cancel left the timer running")
	}

	// A fired timer after cancel must not flush.
	fb.advance(DefaultCollectWindow * 2)
	fb.lastTimer(t).fire()
	if recorder.count() != 0 {
		t.Fatal("cancelled window flushed")
	}

	if discarded := fb.Cancel("group-1"); discarded != 0 {
		t.Fatalf("second cancel discarded = %d, want 0", discarded)
	}
}

func TestWindowsAreIndependentPerGroup(t *testing.T) {
	recorder := &flushRecorder{}
	fb := newFakeBatcher(Config{}, recorder)

	fb.Submit("group-1", 2, action("p1", "draw sword"))
	fb.Submit("group-2", 2, action("p9", "light torch"))

	if fb.Pending("group-1") != 1 || fb.Pending("group-2") != 1 {
		t.Fatal("windows not tracked per group")
	}

	fb.Submit("group-1", 2, action("p2", "nock arrow"))
	if recorder.count() != 1 {
		t.Fatalf("flushes = %d, want 1", recorder.count())
	}
	if recorder.groups[0] != "group-1" {
		t.Fatalf("flushed group = %s, want group-1", recorder.groups[0])
	}
	if fb.Pending("group-2") != 1 {
		t.Fatal("group-2 window disturbed by group-1 flush")
	}
}
