package hal

// PinMode selects the electrical characteristics of a pin.
// Modes are bit flags and may be combined where the hardware allows it.
type PinMode uint32

const (
	// ModeNone configures a plain push-pull output or plain input.
	ModeNone PinMode = 0

	// ModeHysteresis enables the input hysteresis (Schmitt trigger) stage.
	// Used on the RX pin for boards with an inverting transistor driver,
	// where the idle level sits close to the switching threshold.
	ModeHysteresis PinMode = 1 << 5

	// ModeOpenDrain configures a pseudo open-drain output that can pull the
	// line low but relies on the external pull-up to raise it. Required for
	// the wire-ORed K-line bus on MC33660-coupled boards.
	ModeOpenDrain PinMode = 1 << 10
)

// PinDir selects a pin's direction.
type PinDir int

const (
	// Input configures the pin as a digital input.
	Input PinDir = iota
	// Output configures the pin as a digital output.
	Output
)

// GPIO is the pin-level capability: electrical mode, direction, and raw
// level access, parameterized by (port, pin).
type GPIO interface {
	// ConfigurePin sets the electrical characteristics of a pin.
	ConfigurePin(port, pin int, mode PinMode)

	// SetDir sets the pin direction.
	SetDir(port, pin int, dir PinDir)

	// WritePin drives an output pin to the given electrical level (0 or 1).
	WritePin(port, pin, level int)

	// ReadPin samples the instantaneous electrical level of a pin (0 or 1).
	ReadPin(port, pin int) int
}
