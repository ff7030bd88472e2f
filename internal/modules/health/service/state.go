package service

import (
	"sync/atomic"
	"time"
)

// State — живое состояние демона для health-эндпоинтов.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	streamUp     atomic.Bool  // WS-поток цен подключён
	lastTickUnix atomic.Int64 // unix seconds последнего тика
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetStreamUp(v bool) { s.streamUp.Store(v) }
func (s *State) StreamUp() bool     { return s.streamUp.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
