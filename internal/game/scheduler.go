// internal/game/scheduler.go
package game

import (
	"context"
	"sync"
	"time"
)

// Scheduler drives the wall-clock side of every game: the post-start grace
// delay, the per-second countdown, the hard round deadline and the advance
// to the next round or to final results. It is the only component that ends
// rounds; every termination path (deadline, all players guessed, host skip,
// lobby deletion) funnels through endRound, which commits at most once per
// round under the scheduler mutex. A timer that fires for a lobby that no
// longer exists is a benign no-op.
type Scheduler struct {
	registry *Registry

	mu     sync.Mutex
	timers map[string]*lobbyTimers

	// Delays between phases. Overridable in tests.
	StartDelay     time.Duration
	NextRoundDelay time.Duration
	GameOverDelay  time.Duration

	// BroadcastFn delivers an event to every connection in the lobby's
	// room. Injected by the transport layer; nil drops events.
	BroadcastFn func(code string, ev Event)

	// OnRoundArchived and OnGameArchived fire after a reveal and after
	// final results, outside all locks, for persistence side channels.
	OnRoundArchived func(code string, res *RoundResult)
	OnGameArchived  func(code string, res *GameResults)
}

// lobbyTimers is the cancellable timer pair for one lobby. round is zero
// while a between-rounds advance timer is pending.
type lobbyTimers struct {
	round      int
	cancelTick context.CancelFunc
	deadline   *time.Timer
	ended      bool
}

// NewScheduler builds a scheduler over the registry with production delays.
func NewScheduler(registry *Registry) *Scheduler {
	return &Scheduler{
		registry:       registry,
		timers:         make(map[string]*lobbyTimers),
		StartDelay:     3 * time.Second,
		NextRoundDelay: 5 * time.Second,
		GameOverDelay:  8 * time.Second,
	}
}

func (s *Scheduler) emit(code string, ev Event) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(code, ev)
	}
}

// BeginGame announces the start and arms the grace timer for round one.
// The lobby must already be in the playing state (StartGame does that).
func (s *Scheduler) BeginGame(code string) {
	l, ok := s.registry.GetLobby(code)
	if !ok {
		return
	}
	l.Mu.Lock()
	snap := l.SnapshotUnsafe()
	l.Mu.Unlock()
	s.emit(code, Event{Type: EventGameStart, Payload: snap})

	s.mu.Lock()
	s.stopLocked(code)
	s.timers[code] = &lobbyTimers{
		deadline: time.AfterFunc(s.StartDelay, func() { s.beginRound(code) }),
	}
	s.mu.Unlock()
}

// beginRound starts the next round and arms its countdown and deadline.
// When the pool is exhausted early it falls through to final results.
func (s *Scheduler) beginRound(code string) {
	l, ok := s.registry.GetLobby(code)
	if !ok {
		return
	}

	l.Mu.Lock()
	rs := l.StartRoundUnsafe()
	if rs == nil {
		gameOver := l.State == StatePlaying || l.State == StateRoundEnd
		if gameOver {
			l.State = StateGameOver
		}
		l.Mu.Unlock()
		if gameOver {
			s.finishGame(code)
		}
		return
	}
	payload := RoundStartPayload{
		RoundNumber:  rs.RoundNumber,
		TotalRounds:  l.Settings.Rounds,
		TimePerRound: l.Settings.TimePerRound,
		GuessStyle:   l.Settings.GuessStyle,
		Options:      rs.GridOptions,
		PreviewURL:   rs.Song.PreviewURL,
		StartTime:    rs.Song.StartTime,
		EndTime:      rs.Song.EndTime,
	}
	seconds := l.Settings.TimePerRound
	l.Mu.Unlock()

	s.emit(code, Event{Type: EventRoundStart, Payload: payload})

	ctx, cancel := context.WithCancel(context.Background())
	round := payload.RoundNumber

	s.mu.Lock()
	s.stopLocked(code)
	s.timers[code] = &lobbyTimers{
		round:      round,
		cancelTick: cancel,
		deadline: time.AfterFunc(time.Duration(seconds)*time.Second, func() {
			s.EndRound(code, round)
		}),
	}
	s.mu.Unlock()

	go s.tickLoop(ctx, code, seconds)
}

// tickLoop emits the visible countdown once per second until cancelled.
func (s *Scheduler) tickLoop(ctx context.Context, code string, seconds int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	left := seconds
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			left--
			if left <= 0 {
				return
			}
			s.emit(code, Event{Type: EventRoundTick, Payload: RoundTickPayload{SecondsLeft: left}})
		}
	}
}

// EndRound terminates the given round exactly once. Callers: the deadline
// timer, the all-players-guessed path, the host skip, and departures that
// complete the guess set. Stale or repeated calls are no-ops.
func (s *Scheduler) EndRound(code string, round int) {
	s.mu.Lock()
	lt, ok := s.timers[code]
	if !ok || lt.round != round || lt.ended {
		s.mu.Unlock()
		return
	}
	lt.ended = true
	if lt.cancelTick != nil {
		lt.cancelTick()
	}
	lt.deadline.Stop()
	s.mu.Unlock()

	l, ok := s.registry.GetLobby(code)
	if !ok {
		return
	}
	l.Mu.Lock()
	res := l.EndRoundUnsafe()
	l.Mu.Unlock()
	if res == nil {
		return
	}

	payload := RoundEndPayload{
		RoundNumber: res.RoundNumber,
		Song:        res.Song,
		Scoreboard:  make(map[string]int, len(res.Scoreboard)),
		Guesses:     make(map[string]GuessView, len(res.Guesses)),
		GameOver:    res.GameOver,
	}
	for id, score := range res.Scoreboard {
		payload.Scoreboard[id.String()] = score
	}
	for id, g := range res.Guesses {
		payload.Guesses[id.String()] = GuessView{Guess: g.Guess, Correct: g.Correct, Elapsed: g.Elapsed, Score: g.Score}
	}
	s.emit(code, Event{Type: EventRoundEnd, Payload: payload})

	if s.OnRoundArchived != nil {
		go s.OnRoundArchived(code, res)
	}

	delay := s.NextRoundDelay
	next := func() { s.beginRound(code) }
	if res.GameOver {
		delay = s.GameOverDelay
		next = func() { s.finishGame(code) }
	}
	s.mu.Lock()
	s.timers[code] = &lobbyTimers{deadline: time.AfterFunc(delay, next)}
	s.mu.Unlock()
}

// ForceEndRound ends whatever round is currently active for the lobby.
// Used for the host skip.
func (s *Scheduler) ForceEndRound(code string) {
	s.mu.Lock()
	lt, ok := s.timers[code]
	if !ok || lt.round == 0 || lt.ended {
		s.mu.Unlock()
		return
	}
	round := lt.round
	s.mu.Unlock()
	s.EndRound(code, round)
}

// finishGame emits final results, resets the lobby to waiting and hands
// the archive off.
func (s *Scheduler) finishGame(code string) {
	s.CancelLobby(code)

	l, ok := s.registry.GetLobby(code)
	if !ok {
		return
	}
	l.Mu.Lock()
	res := l.FinalResultsUnsafe()
	payload := GameOverPayload{Players: make([]PlayerView, 0, len(res.Players))}
	for _, p := range res.Players {
		payload.Players = append(payload.Players, newPlayerView(p))
	}
	if res.MVP != nil {
		mvp := newPlayerView(res.MVP)
		payload.MVP = &mvp
	}
	l.ResetToWaitingUnsafe()
	snap := l.SnapshotUnsafe()
	l.Mu.Unlock()

	s.emit(code, Event{Type: EventGameOver, Payload: payload})
	s.emit(code, Event{Type: EventLobbyState, Payload: snap})

	if s.OnGameArchived != nil {
		go s.OnGameArchived(code, res)
	}
}

// CancelLobby drops every pending timer for the lobby. Safe to call for
// unknown codes and safe to call twice; used when a lobby is deleted or a
// game finishes.
func (s *Scheduler) CancelLobby(code string) {
	s.mu.Lock()
	s.stopLocked(code)
	s.mu.Unlock()
}

func (s *Scheduler) stopLocked(code string) {
	lt, ok := s.timers[code]
	if !ok {
		return
	}
	lt.ended = true
	if lt.cancelTick != nil {
		lt.cancelTick()
	}
	if lt.deadline != nil {
		lt.deadline.Stop()
	}
	delete(s.timers, code)
}
