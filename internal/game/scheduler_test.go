// internal/game/scheduler_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects every emitted event for later inspection.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockBroadcaster) broadcast(code string, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockBroadcaster) count(typ EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (m *mockBroadcaster) last(typ EventType) (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Type == typ {
			return m.events[i], true
		}
	}
	return Event{}, false
}

// waitFor polls until at least n events of the given type have arrived.
func (m *mockBroadcaster) waitFor(t *testing.T, typ EventType, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.count(typ) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q events, got %d", n, typ, m.count(typ))
}

// newTestScheduler wires a scheduler with millisecond delays so a whole
// game fits inside a test.
func newTestScheduler(r *Registry) (*Scheduler, *mockBroadcaster) {
	mb := &mockBroadcaster{}
	s := NewScheduler(r)
	s.StartDelay = 10 * time.Millisecond
	s.NextRoundDelay = 10 * time.Millisecond
	s.GameOverDelay = 10 * time.Millisecond
	s.BroadcastFn = mb.broadcast
	return s, mb
}

func TestSchedulerFullGameLifecycle(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, _, err := r.UpdateSettings(conns[0], map[string]interface{}{
		"rounds":       float64(2),
		"timePerRound": float64(1),
	})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	s.BeginGame(l.Code)

	mb.waitFor(t, EventGameStart, 1, time.Second)
	mb.waitFor(t, EventRoundStart, 1, time.Second)
	mb.waitFor(t, EventRoundEnd, 1, 3*time.Second)
	mb.waitFor(t, EventRoundStart, 2, 3*time.Second)
	mb.waitFor(t, EventRoundEnd, 2, 3*time.Second)
	mb.waitFor(t, EventGameOver, 1, 3*time.Second)
	mb.waitFor(t, EventLobbyState, 1, time.Second)

	ev, ok := mb.last(EventRoundEnd)
	require.True(t, ok)
	assert.True(t, ev.Payload.(RoundEndPayload).GameOver)

	l.Mu.Lock()
	defer l.Mu.Unlock()
	assert.Equal(t, StateWaiting, l.State, "lobby returns to waiting after the game")
	assert.Nil(t, l.CurrentRound)
	assert.Len(t, l.RoundHistory, 2, "history stays visible until the next game starts")
}

func TestSchedulerRoundStartWithholdsAnswer(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, _, err := r.UpdateSettings(conns[0], map[string]interface{}{"timePerRound": float64(5)})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	s.BeginGame(l.Code)
	mb.waitFor(t, EventRoundStart, 1, time.Second)
	s.CancelLobby(l.Code)

	ev, ok := mb.last(EventRoundStart)
	require.True(t, ok)
	payload := ev.Payload.(RoundStartPayload)
	assert.Equal(t, 1, payload.RoundNumber)
	assert.Equal(t, 5, payload.TimePerRound)
	assert.Empty(t, payload.Options, "open style sends no options")
}

func TestSchedulerAllGuessedEndsEarly(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, _, err := r.UpdateSettings(conns[0], map[string]interface{}{
		"rounds":       float64(1),
		"timePerRound": float64(30),
	})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	s.BeginGame(l.Code)
	mb.waitFor(t, EventRoundStart, 1, time.Second)

	_, _, all, round, err := r.SubmitGuess(conns[0], "whatever")
	require.NoError(t, err)
	require.True(t, all)
	s.EndRound(l.Code, round)

	mb.waitFor(t, EventRoundEnd, 1, time.Second)
	s.CancelLobby(l.Code)
}

func TestSchedulerEndRoundIdempotent(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, _, err := r.UpdateSettings(conns[0], map[string]interface{}{
		"rounds":       float64(1),
		"timePerRound": float64(30),
	})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	// Long delays so the advance timer cannot fire mid-assertion.
	s.NextRoundDelay = time.Minute
	s.GameOverDelay = time.Minute
	s.BeginGame(l.Code)
	mb.waitFor(t, EventRoundStart, 1, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.EndRound(l.Code, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mb.count(EventRoundEnd), "round ends exactly once")
	s.CancelLobby(l.Code)
}

func TestSchedulerStaleEndRoundIgnored(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, _, err := r.UpdateSettings(conns[0], map[string]interface{}{"timePerRound": float64(30)})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	s.BeginGame(l.Code)
	mb.waitFor(t, EventRoundStart, 1, time.Second)

	s.EndRound(l.Code, 7)
	s.EndRound("NOSUCH", 1)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, mb.count(EventRoundEnd))
	s.CancelLobby(l.Code)
}

func TestSchedulerCancelBeforeFirstRound(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, err := r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	s.StartDelay = 50 * time.Millisecond
	s.BeginGame(l.Code)
	s.CancelLobby(l.Code)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, mb.count(EventRoundStart), "cancelled before the grace timer fired")
}

func TestSchedulerForceEndRound(t *testing.T) {
	r := NewRegistry()
	l, conns := newTestLobby(t, r, 1, 3)
	_, _, err := r.UpdateSettings(conns[0], map[string]interface{}{
		"rounds":       float64(1),
		"timePerRound": float64(30),
	})
	require.NoError(t, err)
	_, err = r.StartGame(conns[0])
	require.NoError(t, err)

	s, mb := newTestScheduler(r)
	s.GameOverDelay = time.Minute
	s.BeginGame(l.Code)
	mb.waitFor(t, EventRoundStart, 1, time.Second)

	s.ForceEndRound(l.Code)
	mb.waitFor(t, EventRoundEnd, 1, time.Second)

	// A second skip with no round active is a no-op.
	s.ForceEndRound(l.Code)
	assert.Equal(t, 1, mb.count(EventRoundEnd))
	s.CancelLobby(l.Code)
}
