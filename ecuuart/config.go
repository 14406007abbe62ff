package ecuuart

import (
	"errors"
	"fmt"
	"time"

	"github.com/DragonWar/allpro/hal"
	"github.com/DragonWar/allpro/logger"
)

// Default pin assignment, matching the AllPro adapter board: the K-line
// transceiver sits on port 0, RX on pin 7 and TX on pin 8.
const (
	DefaultRxPort = 0
	DefaultRxPin  = 7
	DefaultTxPort = 0
	DefaultTxPin  = 8
)

// DefaultEchoTimeout is the default window for the transmit echo to appear on
// the receive path.
const DefaultEchoTimeout = 20 * time.Millisecond

// Echo timeout limits.
const (
	MinEchoTimeout = 1 * time.Millisecond
	MaxEchoTimeout = 1 * time.Second
)

// Pin coordinate limits of the switch matrix.
const (
	MaxPort = 2
	MaxPin  = 31
)

// Config holds all configuration for a K-line transport.
//
// Board-variant behavior that the original firmware selected at compile time
// (output inversion, open-drain drive) is expressed as runtime fields here,
// so one binary can serve multiple board revisions.
type Config struct {
	rxPort int
	rxPin  int
	txPort int
	txPin  int

	// invertOutput selects the simple transistor-based K-line driver variant:
	// the electrical TX level is the inverse of the logical level, the RX
	// input needs hysteresis, and the UART transmit polarity is inverted.
	invertOutput bool

	// openDrain selects open-drain TX drive, required on boards where the
	// K-line is wire-ORed through an MC33660-class transceiver.
	openDrain bool

	echoTimeout time.Duration

	logger logger.Logger
}

// NewConfig creates a transport configuration.
//
// opts are functional options applied in order; see the With* functions.
// Defaults match the stock AllPro board: pins P0.7/P0.8, open-drain drive,
// no output inversion, 20 ms echo timeout.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		rxPort:      DefaultRxPort,
		rxPin:       DefaultRxPin,
		txPort:      DefaultTxPort,
		txPin:       DefaultTxPin,
		openDrain:   true,
		echoTimeout: DefaultEchoTimeout,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.rxPort == cfg.txPort && cfg.rxPin == cfg.txPin {
		return nil, fmt.Errorf("ecuuart: RX and TX cannot share pin P%d.%d", cfg.rxPort, cfg.rxPin)
	}

	return cfg, nil
}

// --- Getters ---

// RxPort returns the RX pin's port number.
func (cfg *Config) RxPort() int { return cfg.rxPort }

// RxPin returns the RX pin number.
func (cfg *Config) RxPin() int { return cfg.rxPin }

// TxPort returns the TX pin's port number.
func (cfg *Config) TxPort() int { return cfg.txPort }

// TxPin returns the TX pin number.
func (cfg *Config) TxPin() int { return cfg.txPin }

// InvertOutput returns whether the inverting-driver board variant is selected.
func (cfg *Config) InvertOutput() bool { return cfg.invertOutput }

// OpenDrain returns whether the TX pin uses open-drain drive.
func (cfg *Config) OpenDrain() bool { return cfg.openDrain }

// EchoTimeout returns the echo-verification window.
func (cfg *Config) EchoTimeout() time.Duration { return cfg.echoTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// PinAssign returns the switch-matrix assignment word routing the UART RXD
// and TXD functions onto the configured pins.
func (cfg *Config) PinAssign() uint32 {
	rx := uint32(cfg.rxPort*32 + cfg.rxPin) //nolint:gosec // bounded by MaxPort/MaxPin
	tx := uint32(cfg.txPort*32 + cfg.txPin) //nolint:gosec // bounded by MaxPort/MaxPin

	return rx<<hal.MuxRxShift | tx<<hal.MuxTxShift
}

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

func validPin(port, pin int) error {
	if port < 0 || port > MaxPort {
		return fmt.Errorf("ecuuart: port %d out of range [0, %d]", port, MaxPort)
	}
	if pin < 0 || pin > MaxPin {
		return fmt.Errorf("ecuuart: pin %d out of range [0, %d]", pin, MaxPin)
	}

	return nil
}

// WithPins sets the RX and TX pin coordinates.
func WithPins(rxPort, rxPin, txPort, txPin int) Option {
	return optFunc(func(cfg *Config) error {
		if err := validPin(rxPort, rxPin); err != nil {
			return err
		}
		if err := validPin(txPort, txPin); err != nil {
			return err
		}

		cfg.rxPort, cfg.rxPin = rxPort, rxPin
		cfg.txPort, cfg.txPin = txPort, txPin

		return nil
	})
}

// WithInvertOutput enables or disables the inverting-driver board variant.
// Disabled by default.
func WithInvertOutput(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.invertOutput = enabled

		return nil
	})
}

// WithOpenDrain enables or disables open-drain TX drive. Enabled by default.
func WithOpenDrain(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.openDrain = enabled

		return nil
	})
}

// WithEchoTimeout sets the echo-verification window. Valid range 1ms–1s.
func WithEchoTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinEchoTimeout || d > MaxEchoTimeout {
			return fmt.Errorf("ecuuart: echo timeout %v out of range [%v, %v]", d, MinEchoTimeout, MaxEchoTimeout)
		}
		cfg.echoTimeout = d

		return nil
	})
}

// WithLogger sets the logger for the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("ecuuart: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
