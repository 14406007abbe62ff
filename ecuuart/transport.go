package ecuuart

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/DragonWar/allpro/hal"
	"github.com/DragonWar/allpro/logger"
)

// setupScratchLen is the size of the transient work area handed to the vendor
// UART setup service, matching the ROM driver's memory block requirement.
const setupScratchLen = 40

// errStatMask covers the latched receive-error flags scrubbed by Clear.
const errStatMask = hal.StatFrameErr | hal.StatParityErr

// ErrConfigNil indicates that a nil Config was provided.
var ErrConfigNil = errors.New("ecuuart: config is nil")

// Transport is the K-line byte transport. It owns the RX/TX pin
// configuration, the UART-vs-bit-bang mode flag, and the byte-level
// send/receive/echo-check operations.
//
// Construct exactly one Transport per board with [New] and pass it by
// reference to all protocol-layer callers. Transport is NOT goroutine-safe;
// see the package documentation.
type Transport struct {
	hw     *hal.Hardware
	cfg    *Config
	logger logger.Logger

	// pinAssign is the switch-matrix word routing the UART onto the
	// configured pins, computed once at construction.
	pinAssign uint32

	bitBang bool

	metrics TransportMetrics
}

// New creates a Transport on the given hardware with the given configuration.
//
// The hardware is not touched until [Transport.Configure] is called.
func New(hw *hal.Hardware, cfg *Config) (*Transport, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if err := hw.Validate(); err != nil {
		return nil, err
	}

	return &Transport{
		hw:        hw,
		cfg:       cfg,
		logger:    cfg.logger,
		pinAssign: cfg.PinAssign(),
	}, nil
}

// Configure performs the one-time pin and clock setup.
//
// It programs the RX pin as a plain input (with hysteresis on the
// inverting-driver variant), the TX pin as a push-pull or open-drain output
// per the configuration, enables and resets the UART clock domain, and
// drives the TX line to the K-line idle-high level.
//
// Configure must be called exactly once, before any other operation; calling
// operations first is undefined (the peripheral is not clocked yet).
func (t *Transport) Configure() {
	rxMode := hal.ModeNone
	if t.cfg.invertOutput {
		rxMode = hal.ModeHysteresis
	}

	txMode := hal.ModeNone
	if t.cfg.openDrain {
		txMode = hal.ModeOpenDrain
	}

	t.hw.GPIO.ConfigurePin(t.cfg.rxPort, t.cfg.rxPin, rxMode)
	t.hw.GPIO.ConfigurePin(t.cfg.txPort, t.cfg.txPin, txMode)

	t.hw.GPIO.SetDir(t.cfg.rxPort, t.cfg.rxPin, hal.Input)
	t.hw.GPIO.SetDir(t.cfg.txPort, t.cfg.txPin, hal.Output)

	t.hw.Clock.EnablePeripheral(hal.PeripheralUART)
	t.hw.Clock.ResetPeripheral(hal.PeripheralUART)

	// K-line idles high.
	t.SetBit(1)

	t.logger.Debug("ecuuart: configured",
		"rx", fmt.Sprintf("P%d.%d", t.cfg.rxPort, t.cfg.rxPin),
		"tx", fmt.Sprintf("P%d.%d", t.cfg.txPort, t.cfg.txPin),
		"openDrain", t.cfg.openDrain,
		"invertOutput", t.cfg.invertOutput,
	)
}

// Init leaves bit-bang mode and programs the UART peripheral for the given
// baud rate via the vendor setup service, using a transient scratch block
// that is discarded when the call returns.
//
// The UART interrupt line is disabled: the transport is polling-driven.
// On the inverting-driver variant the transmit polarity flag is set so the
// electrical output matches the wire.
//
// baud must be achievable from the core clock; no range validation is done
// here. Register-backed hardware never fails; host-side backends may return
// an error from the setup service.
func (t *Transport) Init(baud uint32) error {
	t.SetBitBang(false)

	t.hw.IRQ.Disable(hal.LineUART)

	scratch := make([]byte, setupScratchLen)

	setup := hal.SetupConfig{
		ClockHz:       t.hw.Clock.CoreClockHz(),
		Baud:          baud,
		Framing:       hal.Framing8N1,
		Async:         true,
		ErrorsEnabled: false,
	}

	if err := t.hw.UART.Setup(scratch, setup); err != nil {
		return fmt.Errorf("ecuuart: UART setup at %d baud: %w", baud, err)
	}

	if t.cfg.invertOutput {
		t.hw.UART.SetTxInverted(true)
	}

	t.logger.Debug("ecuuart: UART initialized", "baud", baud)

	return nil
}

// Send writes one byte to the transmitter, busy-waiting until the peripheral
// reports transmit-ready.
//
// There is no bound on the wait: a transmitter that never becomes ready is a
// fatal hardware condition, not a recoverable error.
func (t *Transport) Send(b byte) {
	for t.hw.UART.Status()&hal.StatTxReady == 0 {
		runtime.Gosched()
	}
	t.hw.UART.Tx(b)
	t.metrics.incSendCount()
}

// Ready reports whether a received byte is waiting. Pure status read, no
// side effects.
func (t *Transport) Ready() bool {
	return t.hw.UART.Status()&hal.StatRxReady != 0
}

// Get reads one byte from the receiver.
//
// The caller must have observed [Transport.Ready] true; otherwise the value
// is peripheral-defined stale data.
func (t *Transport) Get() byte {
	return t.hw.UART.Rx()
}

// GetEcho verifies that the byte just transmitted with [Transport.Send] is
// echoed back on the receive path within the configured window.
//
// TX and RX are wire-coupled through the bus transceiver, so every sent byte
// reappears on RX shortly after transmission; a missing or different echo
// means bus contention or a wiring fault. GetEcho races the countdown timer
// against receive-ready in a poll loop. The ready check comes first, so a
// byte that arrives in the same iteration the window expires is still
// consumed and compared.
//
// A false return conflates "timed out" and "echo mismatched"; the two causes
// are distinguished by [Transport.Metrics]. On timeout no byte is consumed.
//
// Call GetEcho once per transmitted byte, immediately after Send.
func (t *Transport) GetEcho(b byte) bool {
	ticks := uint32(t.cfg.echoTimeout/time.Millisecond) * (t.hw.Clock.CoreClockHz() / 1000)

	timer := t.hw.Timer
	timer.Load(ticks)
	timer.Start()
	// The countdown must not leak into later timing operations, whichever
	// path returns.
	defer timer.Stop()

	for !t.Ready() {
		if timer.Expired() {
			t.metrics.incEchoTimeoutCount()
			t.logger.Debug("ecuuart: echo timeout", "sent", b)

			return false
		}
		runtime.Gosched()
	}

	echo := t.Get()
	if echo != b {
		t.metrics.incEchoMismatchCount()
		t.logger.Debug("ecuuart: echo mismatch", "sent", b, "echo", echo)

		return false
	}

	t.metrics.incEchoMatchCount()

	return true
}

// Clear scrubs a latched framing or parity error: the status flags are
// written back and the byte of the faulty reception is discarded.
//
// When neither flag is set, Clear is a strict no-op: no register writes, no
// byte consumed. Clear is never invoked implicitly; the caller checks and
// scrubs before trusting further reads.
func (t *Transport) Clear() {
	if t.hw.UART.Status()&errStatMask == 0 {
		return
	}

	t.hw.UART.ClearStatus(errStatMask)
	_ = t.hw.UART.Rx()

	t.metrics.incErrorClearCount()
	t.logger.Debug("ecuuart: cleared framing/parity error")
}

// SetBitBang switches between bit-bang and UART pin routing.
//
// Enabled detaches both pins from the UART by ORing the disconnect pattern
// over the assignment register, leaving them as raw GPIO for slow-init
// sequences. Disabled restores the UART routing from the configured pin
// assignment. Only the multiplexing register is touched; clocks and
// directions stay as Configure left them. Both switches are idempotent.
func (t *Transport) SetBitBang(enabled bool) {
	v := t.hw.PinMux.Assign()

	if enabled {
		v |= hal.MuxDisconnect
	} else {
		v &^= hal.MuxFieldMask
		v |= t.pinAssign
	}

	t.hw.PinMux.SetAssign(v)
	t.bitBang = enabled
}

// BitBang reports whether bit-bang pin routing is active.
func (t *Transport) BitBang() bool {
	return t.bitBang
}

// SetBit drives the TX pin to the given logical level (0 or 1) while in
// bit-bang mode.
//
// On the inverting-driver variant the electrical level is flipped, so the
// logical level callers see is always protocol-true.
func (t *Transport) SetBit(level int) {
	if t.cfg.invertOutput {
		if level == 0 {
			level = 1
		} else {
			level = 0
		}
	}

	t.hw.GPIO.WritePin(t.cfg.txPort, t.cfg.txPin, level)
}

// GetBit samples the instantaneous electrical level of the RX pin (0 or 1),
// used by slow-init timing loops.
func (t *Transport) GetBit() int {
	return t.hw.GPIO.ReadPin(t.cfg.rxPort, t.cfg.rxPin)
}

// Metrics returns the transport's metrics counters.
func (t *Transport) Metrics() *TransportMetrics {
	return &t.metrics
}
