package hal

// Switch-matrix assignment register layout for the ECU UART pins.
// The RXD function occupies bits 16–23 and the TXD function bits 8–15;
// a field value of 0xFF leaves the function disconnected from any pin.
const (
	// MuxFieldMask covers both the RXD and TXD assignment fields.
	MuxFieldMask uint32 = 0x00FFFF00

	// MuxDisconnect is the "no pin" pattern for both fields. ORing it over
	// the register detaches the UART from the pins, leaving them as raw GPIO.
	MuxDisconnect uint32 = 0x00FFFF00

	// MuxRxShift is the bit position of the RXD assignment field.
	MuxRxShift = 16

	// MuxTxShift is the bit position of the TXD assignment field.
	MuxTxShift = 8
)

// PinMux is the pin-multiplexing capability: direct access to the assignment
// register routing the UART functions onto physical pins.
type PinMux interface {
	// Assign returns the current assignment register image.
	Assign() uint32

	// SetAssign writes the assignment register image.
	SetAssign(v uint32)
}
