// Package sim provides an in-memory implementation of every hal capability,
// modeling the K-line wire coupling of the real adapter: each byte written to
// the transmitter reappears on the receive queue after a configurable delay,
// the way the bus transceiver echoes the adapter's own transmissions.
//
// The board is the substrate for the ecuuart test suite and for running the
// transport without hardware. Test controls allow suppressing or corrupting
// echoes, injecting received bytes, and latching framing/parity errors.
package sim

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/DragonWar/allpro/hal"
	"github.com/DragonWar/allpro/internal/pool"
	"github.com/DragonWar/allpro/internal/queue"
	"github.com/DragonWar/allpro/logger"
)

// CoreClockHz is the simulated core clock frequency (LPC1549 at 72 MHz).
const CoreClockHz uint32 = 72_000_000

type pinKey struct {
	port int
	pin  int
}

type pinState struct {
	mode  hal.PinMode
	dir   hal.PinDir
	level int
}

// wireCouple mirrors writes on the TX pin onto the RX pin, optionally through
// an inverting driver stage.
type wireCouple struct {
	rx       pinKey
	tx       pinKey
	inverted bool
}

// Board is a simulated adapter board. It implements hal.GPIO, hal.Clock,
// hal.PinMux, hal.UART and hal.IRQ; the countdown timer is a hal.TicksTimer.
//
// Pin state lives in a concurrent map so test goroutines can inspect pins
// while the transport polls; the UART and register state is guarded by one
// mutex.
type Board struct {
	logger logger.Logger

	pins  *xsync.MapOf[pinKey, pinState]
	timer *hal.TicksTimer

	mu sync.Mutex

	wire *wireCouple

	// Switch matrix.
	assign uint32

	// UART peripheral.
	status     uint32 // latched error flags; ready bits are derived
	rxQueue    *queue.Bytes
	lastRx     byte // stale data returned when the queue is empty
	sent       []byte
	txInverted bool
	setupCalls int
	lastSetup  hal.SetupConfig
	setupErr   error

	// Echo channel controls.
	echoEnabled bool
	echoDelay   time.Duration
	dropNext    bool
	corruptNext *byte

	// Clock and interrupt controller.
	uartClockEnabled bool
	uartResetCount   int
	irqEnabled       map[hal.Line]bool
}

// Compile-time checks: Board provides every board-side capability.
var (
	_ hal.GPIO   = (*Board)(nil)
	_ hal.Clock  = (*Board)(nil)
	_ hal.PinMux = (*Board)(nil)
	_ hal.UART   = (*Board)(nil)
	_ hal.IRQ    = (*Board)(nil)
)

// NewBoard creates a simulated board with echo enabled and zero echo delay
// (echoes are delivered synchronously within Tx).
func NewBoard(l logger.Logger) *Board {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Board{
		logger:      l,
		pins:        xsync.NewMapOf[pinKey, pinState](),
		rxQueue:     queue.NewBytes(16),
		timer:       hal.NewTicksTimer(CoreClockHz),
		echoEnabled: true,
		irqEnabled:  map[hal.Line]bool{hal.LineUART: true},
	}
}

// Hardware returns the capability bundle wired to this board.
func (b *Board) Hardware() *hal.Hardware {
	return &hal.Hardware{
		GPIO:   b,
		Clock:  b,
		PinMux: b,
		Timer:  b.timer,
		UART:   b,
		IRQ:    b,
	}
}

// Timer returns the board's countdown timer, exposed for tests that inject a
// deterministic time source.
func (b *Board) Timer() *hal.TicksTimer {
	return b.timer
}

// CoupleWire connects the TX pin to the RX pin the way the K-line does,
// so levels driven in bit-bang mode are sampled back. inverted models an
// inverting driver stage between the pin and the bus.
func (b *Board) CoupleWire(rxPort, rxPin, txPort, txPin int, inverted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wire = &wireCouple{
		rx:       pinKey{rxPort, rxPin},
		tx:       pinKey{txPort, txPin},
		inverted: inverted,
	}
}

// --- hal.GPIO ---

func (b *Board) ConfigurePin(port, pin int, mode hal.PinMode) {
	key := pinKey{port, pin}
	b.pins.Compute(key, func(old pinState, _ bool) (pinState, bool) {
		old.mode = mode
		return old, false
	})
}

func (b *Board) SetDir(port, pin int, dir hal.PinDir) {
	key := pinKey{port, pin}
	b.pins.Compute(key, func(old pinState, _ bool) (pinState, bool) {
		old.dir = dir
		return old, false
	})
}

func (b *Board) WritePin(port, pin, level int) {
	key := pinKey{port, pin}
	b.pins.Compute(key, func(old pinState, _ bool) (pinState, bool) {
		old.level = level
		return old, false
	})

	b.mu.Lock()
	wire := b.wire
	b.mu.Unlock()

	if wire != nil && wire.tx == key {
		busLevel := level
		if wire.inverted {
			busLevel = 1 - busLevel
		}
		b.pins.Compute(wire.rx, func(old pinState, _ bool) (pinState, bool) {
			old.level = busLevel
			return old, false
		})
	}
}

func (b *Board) ReadPin(port, pin int) int {
	st, _ := b.pins.Load(pinKey{port, pin})
	return st.level
}

// --- hal.Clock ---

func (b *Board) EnablePeripheral(p hal.Peripheral) {
	if p != hal.PeripheralUART {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.uartClockEnabled = true
}

// ResetPeripheral returns the UART register state to power-on defaults.
func (b *Board) ResetPeripheral(p hal.Peripheral) {
	if p != hal.PeripheralUART {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.uartResetCount++
	b.status = 0
	b.rxQueue.Reset()
	b.lastRx = 0
	b.txInverted = false
}

func (b *Board) CoreClockHz() uint32 {
	return CoreClockHz
}

// --- hal.PinMux ---

func (b *Board) Assign() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.assign
}

func (b *Board) SetAssign(v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.assign = v
}

// --- hal.UART ---

func (b *Board) Setup(scratch []byte, cfg hal.SetupConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.uartClockEnabled {
		b.logger.Warn("sim: UART setup before clock enable")
	}
	_ = scratch // the ROM service's work area; nothing to scribble here

	b.setupCalls++
	b.lastSetup = cfg

	return b.setupErr
}

func (b *Board) Status() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.status | hal.StatTxReady
	if b.rxQueue.Len() > 0 {
		s |= hal.StatRxReady
	}

	return s
}

func (b *Board) ClearStatus(mask uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status &^= mask
}

func (b *Board) Tx(v byte) {
	b.mu.Lock()

	b.sent = append(b.sent, v)

	if !b.echoEnabled || b.dropNext {
		b.dropNext = false
		b.mu.Unlock()

		return
	}

	echo := v
	if b.corruptNext != nil {
		echo = *b.corruptNext
		b.corruptNext = nil
	}

	if b.echoDelay <= 0 {
		b.rxQueue.Push(echo)
		b.mu.Unlock()

		return
	}

	delay := b.echoDelay
	b.mu.Unlock()

	go func() {
		t := pool.GetTimer(delay)
		<-t.C
		pool.PutTimer(t)

		b.InjectRxByte(echo)
	}()
}

func (b *Board) Rx() byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.rxQueue.Pop()
	if !ok {
		// Stale data register contents, like reading RXDATA with no RXRDY.
		return b.lastRx
	}
	b.lastRx = v

	return v
}

func (b *Board) SetTxInverted(inverted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.txInverted = inverted
}

// --- hal.IRQ ---

func (b *Board) Enable(line hal.Line) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.irqEnabled[line] = true
}

func (b *Board) Disable(line hal.Line) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.irqEnabled[line] = false
}

// --- Test controls and inspection ---

// InjectRxByte places a byte on the receive queue, as if the ECU transmitted it.
func (b *Board) InjectRxByte(v byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rxQueue.Push(v)
}

// SetEchoEnabled turns the wire echo on or off. Off simulates a broken or
// contended bus where transmissions never come back.
func (b *Board) SetEchoEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.echoEnabled = enabled
}

// SetEchoDelay sets the delay between a transmit and its echo. Zero delivers
// the echo synchronously within Tx.
func (b *Board) SetEchoDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.echoDelay = d
}

// DropNextEcho suppresses the echo of the next transmitted byte only.
func (b *Board) DropNextEcho() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dropNext = true
}

// CorruptNextEcho replaces the echo of the next transmitted byte with v,
// simulating bus contention garbling the wire.
func (b *Board) CorruptNextEcho(v byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.corruptNext = &v
}

// RaiseFrameError latches the framing-error flag and queues the garbled byte
// of the faulty reception.
func (b *Board) RaiseFrameError(garbled byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status |= hal.StatFrameErr
	b.rxQueue.Push(garbled)
}

// RaiseParityError latches the parity-error flag and queues the garbled byte
// of the faulty reception.
func (b *Board) RaiseParityError(garbled byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status |= hal.StatParityErr
	b.rxQueue.Push(garbled)
}

// SetSetupError makes subsequent Setup calls fail with err.
func (b *Board) SetSetupError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setupErr = err
}

// SentBytes returns a copy of every byte written to the transmitter.
func (b *Board) SentBytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, len(b.sent))
	copy(out, b.sent)

	return out
}

// RxQueueLen returns the number of undelivered received bytes.
func (b *Board) RxQueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.rxQueue.Len()
}

// PinLevel returns the electrical level last driven or coupled onto a pin.
func (b *Board) PinLevel(port, pin int) int {
	st, _ := b.pins.Load(pinKey{port, pin})
	return st.level
}

// PinDirOf returns the configured direction of a pin.
func (b *Board) PinDirOf(port, pin int) hal.PinDir {
	st, _ := b.pins.Load(pinKey{port, pin})
	return st.dir
}

// PinModeOf returns the configured electrical mode of a pin.
func (b *Board) PinModeOf(port, pin int) hal.PinMode {
	st, _ := b.pins.Load(pinKey{port, pin})
	return st.mode
}

// UARTClockEnabled reports whether the UART clock domain has been enabled.
func (b *Board) UARTClockEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.uartClockEnabled
}

// UARTResetCount returns how many times the UART peripheral has been reset.
func (b *Board) UARTResetCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.uartResetCount
}

// SetupCalls returns how many times the vendor setup service has been invoked.
func (b *Board) SetupCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.setupCalls
}

// LastSetup returns the configuration passed to the most recent Setup call.
func (b *Board) LastSetup() hal.SetupConfig {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lastSetup
}

// TxInverted reports whether transmit polarity inversion is programmed.
func (b *Board) TxInverted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.txInverted
}

// IRQEnabled reports whether the given interrupt line is unmasked.
func (b *Board) IRQEnabled(line hal.Line) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.irqEnabled[line]
}
