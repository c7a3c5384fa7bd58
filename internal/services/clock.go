package services

import (
	"sync"
	"time"

	"github.com/zachjustice/richard-bday-sub001/internal/models"
)

// DeadlineHandler receives deadline callbacks from the clock.
type DeadlineHandler func(roomID, gamePromptID uint, phase models.RoomStatus)

// PhaseClock delivers "run at or after T" deadline triggers, one pending
// trigger per room. Delivery may overshoot the deadline but never
// undershoots it. A trigger that fires after its round already advanced is
// not an error; the phase machine's stale check renders it inert, so the
// clock makes no attempt to cancel superseded timers beyond replacing them
// on reschedule.
type PhaseClock struct {
	mu      sync.Mutex
	timers  map[uint]*time.Timer
	handler DeadlineHandler
}

func NewPhaseClock() *PhaseClock {
	return &PhaseClock{timers: make(map[uint]*time.Timer)}
}

// Bind sets the deadline handler. Must be called before any ScheduleAt;
// split from the constructor because the clock and the phase machine
// reference each other.
func (c *PhaseClock) Bind(handler DeadlineHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// ScheduleAt arms the room's deadline trigger, replacing any pending one.
func (c *PhaseClock) ScheduleAt(at time.Time, roomID, gamePromptID uint, phase models.RoomStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.timers[roomID]; ok {
		existing.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	c.timers[roomID] = time.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.timers, roomID)
		handler := c.handler
		c.mu.Unlock()

		if handler != nil {
			handler(roomID, gamePromptID, phase)
		}
	})
}

// Cancel drops the room's pending trigger, if any. Used on room teardown;
// routine phase preemption relies on the stale check instead.
func (c *PhaseClock) Cancel(roomID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[roomID]; ok {
		timer.Stop()
		delete(c.timers, roomID)
	}
}
