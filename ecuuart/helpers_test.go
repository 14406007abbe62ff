package ecuuart

import (
	"testing"
	"time"

	"github.com/DragonWar/allpro/hal/sim"
	"github.com/DragonWar/allpro/logger"
)

// newTestConfig creates a Config with a short echo window suitable for tests.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	defaults := []Option{
		WithEchoTimeout(20 * time.Millisecond),
	}

	cfg, err := NewConfig(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// newTestTransport creates a Transport backed by a simulated board whose wire
// couples the config's TX pin onto its RX pin, inverting when the config
// selects the inverting-driver variant.
func newTestTransport(t *testing.T, cfg *Config) (*Transport, *sim.Board) {
	t.Helper()

	board := sim.NewBoard(logger.GetLogger())
	board.CoupleWire(cfg.RxPort(), cfg.RxPin(), cfg.TxPort(), cfg.TxPin(), cfg.InvertOutput())

	tr, err := New(board.Hardware(), cfg)
	if err != nil {
		t.Fatalf("newTestTransport: %v", err)
	}

	return tr, board
}

// newReadyTransport returns a transport that has been configured and
// initialized at 10400 baud (the ISO 14230 rate).
func newReadyTransport(t *testing.T, cfg *Config) (*Transport, *sim.Board) {
	t.Helper()

	tr, board := newTestTransport(t, cfg)
	tr.Configure()
	if err := tr.Init(10400); err != nil {
		t.Fatalf("newReadyTransport: %v", err)
	}

	return tr, board
}
