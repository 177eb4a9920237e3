package controller

import (
	"sync"
	"time"
)

// Timer is a handle on one pending tick.
type Timer interface {
	// Stop prevents the tick from firing. It reports whether the call
	// stopped the tick before it fired.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallScheduler schedules ticks on the wall clock with time.AfterFunc.
type WallScheduler struct{}

// AfterFunc implements Scheduler.
func (WallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler queues ticks until Advance is called. It lets tests drive
// the cadence deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler returns an empty manual scheduler at logical time 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.pending = append(s.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the number of ticks that are neither stopped nor fired.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// NextDelay returns the delay until the earliest pending tick.
func (s *ManualScheduler) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.nextLocked()
	if t == nil {
		return 0, false
	}
	return t.at - s.now, true
}

// Now returns the logical time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves logical time forward by d and fires every tick that falls
// due, including ticks scheduled by those ticks. It returns the number of
// ticks fired.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	deadline := s.now + d
	s.mu.Unlock()

	fired := 0
	for {
		s.mu.Lock()
		t := s.nextLocked()
		if t == nil || t.at > deadline {
			s.now = deadline
			s.mu.Unlock()
			return fired
		}
		s.now = t.at
		t.fired = true
		s.mu.Unlock()

		t.f()
		fired++
	}
}

// Fire runs the earliest pending tick regardless of its due time.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	t := s.nextLocked()
	if t == nil {
		s.mu.Unlock()
		return false
	}
	if t.at > s.now {
		s.now = t.at
	}
	t.fired = true
	s.mu.Unlock()

	t.f()
	return true
}

func (s *ManualScheduler) nextLocked() *manualTimer {
	var next *manualTimer
	live := s.pending[:0]
	for _, t := range s.pending {
		if t.stopped || t.fired {
			continue
		}
		live = append(live, t)
		if next == nil || t.at < next.at {
			next = t
		}
	}
	s.pending = live
	return next
}
