package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestTicksTimer_ExpiresAtDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	tm := NewTicksTimer(1_000_000) // 1 MHz: one tick per microsecond
	tm.SetNowFunc(clock.Now)

	tm.Load(20_000) // 20 ms
	tm.Start()

	assert.False(t, tm.Expired())

	clock.Advance(19 * time.Millisecond)
	assert.False(t, tm.Expired())

	clock.Advance(1 * time.Millisecond)
	assert.True(t, tm.Expired())
}

func TestTicksTimer_NotExpiredBeforeStart(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	tm := NewTicksTimer(1_000_000)
	tm.SetNowFunc(clock.Now)

	tm.Load(1)
	clock.Advance(time.Hour)

	assert.False(t, tm.Expired())
}

func TestTicksTimer_StopClearsExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	tm := NewTicksTimer(1_000_000)
	tm.SetNowFunc(clock.Now)

	tm.Load(1_000)
	tm.Start()
	clock.Advance(time.Second)
	assert.True(t, tm.Expired())

	tm.Stop()
	assert.False(t, tm.Expired())
}

func TestTicksTimer_RestartReloads(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	tm := NewTicksTimer(1_000_000)
	tm.SetNowFunc(clock.Now)

	tm.Load(10_000) // 10 ms
	tm.Start()
	clock.Advance(15 * time.Millisecond)
	assert.True(t, tm.Expired())

	// Start counts down from the loaded value again.
	tm.Start()
	assert.False(t, tm.Expired())
	clock.Advance(10 * time.Millisecond)
	assert.True(t, tm.Expired())
}
