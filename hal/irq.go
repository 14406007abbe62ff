package hal

// Line identifies an interrupt line at the interrupt controller.
type Line int

const (
	// LineUART is the interrupt line of the ECU UART peripheral.
	LineUART Line = iota
)

// IRQ is the interrupt controller capability. The transport is strictly
// polling-driven and only ever disables its UART line.
type IRQ interface {
	// Enable unmasks the interrupt line.
	Enable(line Line)

	// Disable masks the interrupt line.
	Disable(line Line)
}
