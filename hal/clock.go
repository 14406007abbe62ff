package hal

// Peripheral identifies a clock-gated peripheral block.
type Peripheral int

const (
	// PeripheralUART is the UART block used for ECU communication.
	PeripheralUART Peripheral = iota
)

// Clock is the system clock and reset capability.
type Clock interface {
	// EnablePeripheral enables the clock domain of a peripheral.
	EnablePeripheral(p Peripheral)

	// ResetPeripheral pulses the peripheral's reset line, returning its
	// register state to power-on defaults.
	ResetPeripheral(p Peripheral)

	// CoreClockHz returns the fixed system core clock frequency, used to
	// convert wall-clock durations to timer ticks.
	CoreClockHz() uint32
}

// CountdownTimer is a single-shot, SysTick-shaped countdown: load a tick
// count, start it, and poll the expired flag. It is exclusively owned by one
// timing operation at a time; the owner must Stop it on every exit path.
type CountdownTimer interface {
	// Load programs the countdown with the given number of core-clock ticks.
	Load(ticks uint32)

	// Start begins (or restarts) the countdown from the loaded value.
	Start()

	// Stop halts the countdown. Expired reports false after Stop until the
	// timer is started again.
	Stop()

	// Expired reports whether the countdown has reached zero since Start.
	Expired() bool
}
