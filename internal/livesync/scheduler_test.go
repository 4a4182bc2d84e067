package livesync

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-live-remark/internal/deck"
)

type stubAdapter struct {
	mu        sync.Mutex
	navigates []int
	reloads   int
}

func (a *stubAdapter) Navigate(slide int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.navigates = append(a.navigates, slide)
}

func (a *stubAdapter) Reload() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reloads++
}

func (a *stubAdapter) SessionActive() bool { return true }

func (a *stubAdapter) calls() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.navigates...)
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) live() []*fakeTimer {
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fireAll fires every unstopped timer.
func (c *fakeClock) fireAll() {
	for _, t := range c.live() {
		t.stopped = true
		t.fn()
	}
}

var threeSlides = deck.NewDocument("Intro\n---\nB\n---\nC")

func TestSchedulerCoalescesBurst(t *testing.T) {
	adapter := &stubAdapter{}
	clock := &fakeClock{}
	s := NewScheduler(adapter, WithAfterFunc(clock.AfterFunc))

	text := threeSlides.String()
	s.Arm(threeSlides, 0)
	s.Arm(threeSlides, strings.Index(text, "B"))
	s.Arm(threeSlides, strings.Index(text, "C"))

	require.Len(t, clock.live(), 1, "only one timer may be pending")
	assert.True(t, s.Armed())
	assert.Equal(t, DefaultDelay, clock.live()[0].delay)

	clock.fireAll()

	assert.Equal(t, []int{3}, adapter.calls(), "the last position wins")
	assert.False(t, s.Armed())
	assert.Equal(t, strings.Index(text, "C"), s.LastSynced())
}

func TestSchedulerSkipsUnchangedPosition(t *testing.T) {
	adapter := &stubAdapter{}
	clock := &fakeClock{}
	s := NewScheduler(adapter, WithAfterFunc(clock.AfterFunc))

	s.Arm(threeSlides, 7)
	clock.fireAll()
	s.Arm(threeSlides, 7)
	clock.fireAll()

	assert.Equal(t, []int{1}, adapter.calls())
	assert.Equal(t, 7, s.LastSynced())
}

func TestSchedulerFirstFireAlwaysSyncs(t *testing.T) {
	adapter := &stubAdapter{}
	clock := &fakeClock{}
	s := NewScheduler(adapter, WithAfterFunc(clock.AfterFunc))

	assert.Equal(t, -1, s.LastSynced())
	s.Arm(deck.NewDocument(""), 0)
	clock.fireAll()

	assert.Equal(t, []int{1}, adapter.calls())
}

func TestSchedulerStaleTimerIgnored(t *testing.T) {
	adapter := &stubAdapter{}
	clock := &fakeClock{}
	s := NewScheduler(adapter, WithAfterFunc(clock.AfterFunc))

	s.Arm(threeSlides, 0)
	stale := clock.timers[0]
	s.Arm(threeSlides, threeSlides.Len())

	// The first timer's callback was already running when it got replaced.
	stale.fn()
	assert.Empty(t, adapter.calls())

	clock.fireAll()
	assert.Equal(t, []int{3}, adapter.calls())
}

func TestSchedulerStop(t *testing.T) {
	adapter := &stubAdapter{}
	clock := &fakeClock{}
	s := NewScheduler(adapter, WithAfterFunc(clock.AfterFunc))

	s.Arm(threeSlides, 0)
	pending := clock.timers[0]
	s.Stop()

	assert.True(t, pending.stopped)
	assert.False(t, s.Armed())
	pending.fn()
	assert.Empty(t, adapter.calls())
	assert.Equal(t, -1, s.LastSynced())
}

func TestSchedulerWithDelay(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(&stubAdapter{}, WithDelay(50*time.Millisecond), WithAfterFunc(clock.AfterFunc))

	s.Arm(threeSlides, 0)
	assert.Equal(t, 50*time.Millisecond, clock.timers[0].delay)

	ignored := NewScheduler(&stubAdapter{}, WithDelay(0))
	assert.Equal(t, DefaultDelay, ignored.delay)
}

func TestSchedulerRealTimer(t *testing.T) {
	adapter := &stubAdapter{}
	s := NewScheduler(adapter, WithDelay(20*time.Millisecond))

	for c := 0; c <= threeSlides.Len(); c++ {
		s.Arm(threeSlides, c)
	}

	assert.Eventually(t, func() bool {
		return len(adapter.calls()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{3}, adapter.calls())
	assert.Never(t, func() bool {
		return len(adapter.calls()) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}
