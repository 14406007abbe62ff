// Package hostserial backs the hal capabilities with a physical serial port,
// so the K-line transport can run on a host machine against a USB K-line
// adapter instead of MCU registers.
//
// Only the UART capability maps onto real hardware: the adapter owns the
// electrical layer, so the GPIO, pin-mux, clock and interrupt capabilities
// are inert register images: bit-bang operations record state but do not
// drive the wire. The countdown timer is a hal.TicksTimer against the host
// clock.
package hostserial

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tarm/serial"

	"github.com/DragonWar/allpro/hal"
	"github.com/DragonWar/allpro/internal/queue"
	"github.com/DragonWar/allpro/logger"
)

// DefaultCoreClockHz is the nominal core clock used for tick conversion when
// none is configured. The value only scales countdown durations; any
// consistent frequency works.
const DefaultCoreClockHz uint32 = 72_000_000

// Port adapts a host serial port to the hal capability set.
//
// The serial port itself is opened lazily by Setup, because the baud rate is
// not known until the transport programs it.
type Port struct {
	logger      logger.Logger
	device      string
	coreClockHz uint32
	timer       *hal.TicksTimer

	mu        sync.Mutex
	port      *serial.Port
	readerGen int
	rxQueue   *queue.Bytes
	lastRx    byte
	closed    bool

	// Inert register images.
	assign     uint32
	pinLevels  map[[2]int]int
	irqEnabled map[hal.Line]bool
}

var (
	_ hal.GPIO   = (*Port)(nil)
	_ hal.Clock  = (*Port)(nil)
	_ hal.PinMux = (*Port)(nil)
	_ hal.UART   = (*Port)(nil)
	_ hal.IRQ    = (*Port)(nil)
)

// Option configures a Port.
type Option func(*Port)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Port) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCoreClockHz overrides the nominal core clock used for tick conversion.
func WithCoreClockHz(hz uint32) Option {
	return func(p *Port) {
		if hz > 0 {
			p.coreClockHz = hz
		}
	}
}

// Open creates a Port for the given serial device (e.g. "/dev/ttyUSB0").
// The device is not opened until the transport calls Setup with a baud rate.
func Open(device string, opts ...Option) (*Port, error) {
	if device == "" {
		return nil, errors.New("hostserial: device path is empty")
	}

	p := &Port{
		logger:      logger.GetLogger(),
		device:      device,
		coreClockHz: DefaultCoreClockHz,
		rxQueue:     queue.NewBytes(64),
		pinLevels:   make(map[[2]int]int),
		irqEnabled:  make(map[hal.Line]bool),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.timer = hal.NewTicksTimer(p.coreClockHz)

	return p, nil
}

// Hardware returns the capability bundle wired to this port.
func (p *Port) Hardware() *hal.Hardware {
	return &hal.Hardware{
		GPIO:   p,
		Clock:  p,
		PinMux: p,
		Timer:  p.timer,
		UART:   p,
		IRQ:    p,
	}
}

// Close releases the serial port. Further operations on the UART capability
// are no-ops.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.port == nil {
		return nil
	}

	err := p.port.Close()
	p.port = nil

	return err
}

// --- hal.UART ---

// Setup opens (or reopens) the serial device at the requested baud rate and
// starts the background reader feeding the receive queue. The scratch block
// exists for interface parity with the ROM service and is unused.
func (p *Port) Setup(scratch []byte, cfg hal.SetupConfig) error {
	_ = scratch

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("hostserial: port is closed")
	}

	if p.port != nil {
		_ = p.port.Close()
		p.port = nil
	}

	sp, err := serial.OpenPort(&serial.Config{
		Name: p.device,
		Baud: int(cfg.Baud),
	})
	if err != nil {
		return fmt.Errorf("hostserial: open %s at %d baud: %w", p.device, cfg.Baud, err)
	}

	p.port = sp
	p.readerGen++
	go p.readLoop(sp, p.readerGen)

	p.logger.Debug("hostserial: port opened", "device", p.device, "baud", cfg.Baud)

	return nil
}

// readLoop drains the serial port into the receive queue until the port is
// closed or superseded by a reopen.
func (p *Port) readLoop(sp *serial.Port, gen int) {
	buf := make([]byte, 64)

	for {
		n, err := sp.Read(buf)

		p.mu.Lock()
		if gen != p.readerGen || p.closed {
			p.mu.Unlock()
			return
		}
		if n > 0 {
			p.rxQueue.Append(buf[:n])
		}
		p.mu.Unlock()

		if err != nil {
			return
		}
	}
}

func (p *Port) Status() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The OS write path buffers, so the transmitter is always ready.
	s := hal.StatTxReady
	if p.rxQueue.Len() > 0 {
		s |= hal.StatRxReady
	}

	return s
}

// ClearStatus is a no-op: the host serial layer does not latch framing or
// parity errors.
func (p *Port) ClearStatus(mask uint32) {
	_ = mask
}

func (p *Port) Tx(b byte) {
	p.mu.Lock()
	sp := p.port
	p.mu.Unlock()

	if sp == nil {
		p.logger.Warn("hostserial: Tx before Setup", "byte", b)
		return
	}

	if _, err := sp.Write([]byte{b}); err != nil {
		p.logger.Error("hostserial: write failed", "error", err)
	}
}

func (p *Port) Rx() byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.rxQueue.Pop()
	if !ok {
		return p.lastRx
	}
	p.lastRx = v

	return v
}

// SetTxInverted is driven by the adapter hardware on host setups; recorded
// but not applied.
func (p *Port) SetTxInverted(inverted bool) {
	if inverted {
		p.logger.Warn("hostserial: TX polarity inversion is owned by the adapter, ignoring")
	}
}

// --- Inert capabilities ---

func (p *Port) ConfigurePin(port, pin int, mode hal.PinMode) {
	_, _, _ = port, pin, mode
}

func (p *Port) SetDir(port, pin int, dir hal.PinDir) {
	_, _, _ = port, pin, dir
}

func (p *Port) WritePin(port, pin, level int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pinLevels[[2]int{port, pin}] = level
}

func (p *Port) ReadPin(port, pin int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pinLevels[[2]int{port, pin}]
}

func (p *Port) EnablePeripheral(hal.Peripheral) {}

func (p *Port) ResetPeripheral(hal.Peripheral) {}

func (p *Port) CoreClockHz() uint32 {
	return p.coreClockHz
}

func (p *Port) Assign() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.assign
}

func (p *Port) SetAssign(v uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.assign = v
}

func (p *Port) Enable(line hal.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.irqEnabled[line] = true
}

func (p *Port) Disable(line hal.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.irqEnabled[line] = false
}
