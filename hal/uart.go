package hal

// UART status register bits, at their LPC15xx USART STAT positions.
const (
	// StatRxReady indicates a received byte is waiting in the data register.
	StatRxReady uint32 = 1 << 0

	// StatTxReady indicates the transmitter can accept a byte.
	StatTxReady uint32 = 1 << 2

	// StatFrameErr is the latched framing-error flag. Cleared by writing it
	// back through ClearStatus.
	StatFrameErr uint32 = 1 << 13

	// StatParityErr is the latched parity-error flag. Cleared by writing it
	// back through ClearStatus.
	StatParityErr uint32 = 1 << 14
)

// Framing selects the character framing programmed by Setup.
type Framing int

const (
	// Framing8N1 is 8 data bits, no parity, 1 stop bit, the only framing
	// used on the K-line.
	Framing8N1 Framing = iota
)

// SetupConfig carries the parameters handed to the vendor setup service,
// mirroring the ROM driver's UART configuration block.
type SetupConfig struct {
	// ClockHz is the peripheral input clock frequency in Hz.
	ClockHz uint32

	// Baud is the target baud rate in bits per second.
	Baud uint32

	// Framing is the character framing.
	Framing Framing

	// Async selects asynchronous mode.
	Async bool

	// ErrorsEnabled selects whether the setup service programs receive-error
	// reporting. The transport always disables it and polls the latched
	// status flags instead.
	ErrorsEnabled bool
}

// UART is the serial peripheral capability: an opaque vendor initialization
// service plus the status and data register surface the transport polls.
type UART interface {
	// Setup invokes the vendor ROM setup/initialization service. scratch is
	// a transient work area the service may use during the call; it is not
	// retained afterwards. Register-backed implementations never fail;
	// host-side implementations may.
	Setup(scratch []byte, cfg SetupConfig) error

	// Status returns the current status register image (Stat* bits).
	Status() uint32

	// ClearStatus clears the latched status bits in mask by writing them back.
	ClearStatus(mask uint32)

	// Tx writes one byte to the transmit data register. The caller must have
	// observed StatTxReady.
	Tx(b byte)

	// Rx reads one byte from the receive data register. Without StatRxReady
	// the returned value is peripheral-defined stale data.
	Rx() byte

	// SetTxInverted sets the transmit polarity inversion flag (TXPOL),
	// used with simple transistor-based K-line drivers.
	SetTxInverted(inverted bool)
}
