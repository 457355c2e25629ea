package round

import (
	"sync"
	"time"
)

// QuestionTimer fires a callback after a fixed duration unless stopped.
// The answer window is non-adaptive: it never shortens because players
// answered early, but Stop cuts it off when a room is dissolved
// mid-round. It is safe for concurrent use.
type QuestionTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewQuestionTimer creates and starts a timer that calls onFire after
// duration. onFire is called in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: Returns a running QuestionTimer; onFire will be called
// unless Stop is called first.
func NewQuestionTimer(duration time.Duration, onFire func()) *QuestionTimer {
	qt := &QuestionTimer{}
	qt.timer = time.AfterFunc(duration, func() {
		qt.mu.Lock()
		stopped := qt.stopped
		qt.mu.Unlock()
		if !stopped {
			onFire()
		}
	})
	return qt
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns.
func (qt *QuestionTimer) Stop() {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	qt.stopped = true
	qt.timer.Stop()
}
