// Package stage runs the per-frame loop that turns the current signal into
// visual parameters for the DJ stage.
package stage

import (
	"sync"
	"time"
)

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameFunc is invoked once for a requested frame.
type FrameFunc func(now time.Time)

// Scheduler requests single frame callbacks, like a browser's
// requestAnimationFrame.
type Scheduler interface {
	RequestFrame(cb FrameFunc) FrameID
	CancelFrame(id FrameID)
}

// TimerScheduler fires each requested callback one frame interval after the
// request. A cancelled callback never runs, even if its timer has already
// expired.
type TimerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]*time.Timer
}

// NewTimerScheduler creates a scheduler running at fps frames per second.
func NewTimerScheduler(fps int) *TimerScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &TimerScheduler{
		interval: time.Second / time.Duration(fps),
		pending:  make(map[FrameID]*time.Timer),
	}
}

// Interval returns the frame interval.
func (s *TimerScheduler) Interval() time.Duration { return s.interval }

func (s *TimerScheduler) RequestFrame(cb FrameFunc) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.pending[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if ok {
			cb(time.Now())
		}
	})
	return id
}

func (s *TimerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[id]; ok {
		t.Stop()
		delete(s.pending, id)
	}
}

// Pending returns the number of outstanding requests.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
