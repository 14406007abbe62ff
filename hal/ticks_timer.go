package hal

import "time"

// TicksTimer implements [CountdownTimer] against the host monotonic clock,
// converting core-clock ticks to wall-clock durations at a fixed frequency.
//
// It is the countdown used by host-side Hardware implementations, where no
// real SysTick exists. Not goroutine-safe; the transport owns it exclusively
// for the duration of each timing operation.
type TicksTimer struct {
	hz       uint32
	now      func() time.Time
	loaded   time.Duration
	deadline time.Time
	running  bool
}

var _ CountdownTimer = (*TicksTimer)(nil)

// NewTicksTimer creates a TicksTimer for the given core clock frequency.
func NewTicksTimer(coreClockHz uint32) *TicksTimer {
	return &TicksTimer{
		hz:  coreClockHz,
		now: time.Now,
	}
}

// SetNowFunc replaces the time source. Intended for tests that need a
// deterministic clock.
func (t *TicksTimer) SetNowFunc(now func() time.Time) {
	t.now = now
}

// Load programs the countdown with the given number of core-clock ticks.
func (t *TicksTimer) Load(ticks uint32) {
	t.loaded = time.Duration(ticks) * time.Second / time.Duration(t.hz)
}

// Start begins the countdown from the loaded value.
func (t *TicksTimer) Start() {
	t.deadline = t.now().Add(t.loaded)
	t.running = true
}

// Stop halts the countdown.
func (t *TicksTimer) Stop() {
	t.running = false
}

// Expired reports whether the countdown has run out since Start.
func (t *TicksTimer) Expired() bool {
	return t.running && !t.now().Before(t.deadline)
}
