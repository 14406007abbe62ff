package ecuuart

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DragonWar/allpro/hal"
	"github.com/DragonWar/allpro/hal/sim"
	"github.com/DragonWar/allpro/logger"
)

// ===========================================================================
// Construction
// ===========================================================================

func TestNew_NilConfig(t *testing.T) {
	board := sim.NewBoard(nil)

	tr, err := New(board.Hardware(), nil)
	require.Error(t, err)
	assert.Nil(t, tr)
	assert.True(t, errors.Is(err, ErrConfigNil))
}

func TestNew_MissingCapability(t *testing.T) {
	cfg := newTestConfig(t)
	board := sim.NewBoard(nil)

	hw := board.Hardware()
	hw.UART = nil

	tr, err := New(hw, cfg)
	require.Error(t, err)
	assert.Nil(t, tr)
}

// ===========================================================================
// Configure
// ===========================================================================

func TestConfigure_PinSetup(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newTestTransport(t, cfg)

	tr.Configure()

	assert.Equal(t, hal.Input, board.PinDirOf(cfg.RxPort(), cfg.RxPin()))
	assert.Equal(t, hal.Output, board.PinDirOf(cfg.TxPort(), cfg.TxPin()))

	// Stock board: plain RX input, open-drain TX.
	assert.Equal(t, hal.ModeNone, board.PinModeOf(cfg.RxPort(), cfg.RxPin()))
	assert.Equal(t, hal.ModeOpenDrain, board.PinModeOf(cfg.TxPort(), cfg.TxPin()))

	assert.True(t, board.UARTClockEnabled())
	assert.Equal(t, 1, board.UARTResetCount())
}

func TestConfigure_InvertingDriverVariant(t *testing.T) {
	cfg := newTestConfig(t, WithInvertOutput(true), WithOpenDrain(false))
	tr, board := newTestTransport(t, cfg)

	tr.Configure()

	assert.Equal(t, hal.ModeHysteresis, board.PinModeOf(cfg.RxPort(), cfg.RxPin()))
	assert.Equal(t, hal.ModeNone, board.PinModeOf(cfg.TxPort(), cfg.TxPin()))
}

func TestConfigure_IdleHigh(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newTestTransport(t, cfg)

	tr.Configure()

	// TX drives high and the coupled wire reads back high.
	assert.Equal(t, 1, board.PinLevel(cfg.TxPort(), cfg.TxPin()))
	assert.Equal(t, 1, tr.GetBit())
}

func TestConfigure_IdleHigh_Inverted(t *testing.T) {
	cfg := newTestConfig(t, WithInvertOutput(true))
	tr, board := newTestTransport(t, cfg)

	tr.Configure()

	// The electrical TX level is low, but the inverting driver puts the
	// bus, and therefore the sampled RX level, at the protocol idle-high.
	assert.Equal(t, 0, board.PinLevel(cfg.TxPort(), cfg.TxPin()))
	assert.Equal(t, 1, tr.GetBit())
}

// ===========================================================================
// Init
// ===========================================================================

func TestInit_ProgramsPeripheral(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newTestTransport(t, cfg)

	tr.Configure()
	require.NoError(t, tr.Init(10400))

	assert.False(t, board.IRQEnabled(hal.LineUART))
	assert.Equal(t, 1, board.SetupCalls())
	assert.False(t, tr.BitBang())

	setup := board.LastSetup()
	assert.Equal(t, sim.CoreClockHz, setup.ClockHz)
	assert.Equal(t, uint32(10400), setup.Baud)
	assert.Equal(t, hal.Framing8N1, setup.Framing)
	assert.True(t, setup.Async)
	assert.False(t, setup.ErrorsEnabled)

	assert.False(t, board.TxInverted())
}

func TestInit_InvertedVariantSetsTxPolarity(t *testing.T) {
	cfg := newTestConfig(t, WithInvertOutput(true))
	tr, board := newTestTransport(t, cfg)

	tr.Configure()
	require.NoError(t, tr.Init(10400))

	assert.True(t, board.TxInverted())
}

func TestInit_SetupError(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newTestTransport(t, cfg)

	tr.Configure()

	setupErr := errors.New("no such device")
	board.SetSetupError(setupErr)

	err := tr.Init(10400)
	require.Error(t, err)
	assert.True(t, errors.Is(err, setupErr))
}

// ===========================================================================
// Byte I/O and echo verification
// ===========================================================================

func TestSendGet(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	tr.Send(0xC1)

	assert.Equal(t, []byte{0xC1}, board.SentBytes())

	// The wire echoes the byte back.
	require.True(t, tr.Ready())
	assert.Equal(t, byte(0xC1), tr.Get())
	assert.False(t, tr.Ready())
}

func TestGetEcho_Match(t *testing.T) {
	cfg := newTestConfig(t)
	tr, _ := newReadyTransport(t, cfg)

	for _, b := range []byte{0x00, 0x33, 0x55, 0xAA, 0xFF} {
		tr.Send(b)
		assert.True(t, tr.GetEcho(b), "echo of 0x%02X", b)
	}

	assert.Equal(t, uint64(5), tr.Metrics().EchoMatchCount.Load())
	assert.Equal(t, uint64(5), tr.Metrics().SendCount.Load())
}

func TestGetEcho_Match_DelayedEcho(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	board.SetEchoDelay(2 * time.Millisecond)

	tr.Send(0x68)
	assert.True(t, tr.GetEcho(0x68))
}

func TestGetEcho_Mismatch(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	board.CorruptNextEcho(0x7F)

	tr.Send(0x31)
	assert.False(t, tr.GetEcho(0x31))

	// The differing byte was consumed; nothing else is pending.
	assert.Equal(t, 0, board.RxQueueLen())
	assert.Equal(t, uint64(1), tr.Metrics().EchoMismatchCount.Load())
	assert.Equal(t, uint64(0), tr.Metrics().EchoTimeoutCount.Load())
}

func TestGetEcho_Timeout(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	board.SetEchoEnabled(false)

	tr.Send(0x81)

	start := time.Now()
	ok := tr.GetEcho(0x81)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 19*time.Millisecond)
	assert.Equal(t, uint64(1), tr.Metrics().EchoTimeoutCount.Load())
}

func TestGetEcho_Timeout_LateEchoNotConsumed(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	// Echo arrives well past the 20 ms window.
	board.SetEchoDelay(60 * time.Millisecond)

	tr.Send(0x81)
	assert.False(t, tr.GetEcho(0x81))

	// The late echo is still delivered to the receive path untouched.
	assert.Eventually(t, tr.Ready, 200*time.Millisecond, time.Millisecond)
	assert.Equal(t, byte(0x81), tr.Get())
}

func TestGetEcho_Timeout_LogsDebug(t *testing.T) {
	mockLogger := logger.NewMockLogger()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Return()

	cfg := newTestConfig(t, WithLogger(mockLogger))
	tr, board := newReadyTransport(t, cfg)

	board.SetEchoEnabled(false)

	tr.Send(0x81)
	require.False(t, tr.GetEcho(0x81))

	mockLogger.AssertCalled(t, "Debug", "ecuuart: echo timeout", []any{"sent", byte(0x81)})
}

func TestGetEcho_QueuedByteWinsOverTimeout(t *testing.T) {
	cfg := newTestConfig(t, WithEchoTimeout(MinEchoTimeout))
	tr, board := newReadyTransport(t, cfg)

	board.SetEchoEnabled(false)
	board.InjectRxByte(0x42)

	// The ready check runs before the expiry check, so an already-waiting
	// byte is consumed even under the shortest window.
	assert.True(t, tr.GetEcho(0x42))
}

func TestGetEcho_TimerStoppedOnEveryExit(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	tr.Send(0x10)
	require.True(t, tr.GetEcho(0x10))
	assert.False(t, board.Timer().Expired(), "timer left running after match")

	board.SetEchoEnabled(false)
	tr.Send(0x20)
	require.False(t, tr.GetEcho(0x20))
	assert.False(t, board.Timer().Expired(), "timer left running after timeout")
}

// ===========================================================================
// Ready / Clear
// ===========================================================================

func TestReady_SideEffectFree(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	for i := 0; i < 3; i++ {
		assert.False(t, tr.Ready())
	}

	board.InjectRxByte(0x5A)

	for i := 0; i < 3; i++ {
		assert.True(t, tr.Ready())
	}
	assert.Equal(t, 1, board.RxQueueLen())

	assert.Equal(t, byte(0x5A), tr.Get())
	assert.False(t, tr.Ready())
}

func TestClear_NoopWithoutError(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	board.InjectRxByte(0x5A)

	tr.Clear()

	// Nothing consumed, nothing counted.
	assert.Equal(t, 1, board.RxQueueLen())
	assert.Equal(t, uint64(0), tr.Metrics().ErrorClearCount.Load())
}

func TestClear_ScrubsFramingError(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	board.RaiseFrameError(0xE5)
	require.NotZero(t, board.Status()&hal.StatFrameErr)

	tr.Clear()

	assert.Zero(t, board.Status()&(hal.StatFrameErr|hal.StatParityErr))
	assert.Equal(t, 0, board.RxQueueLen(), "faulty byte not discarded")
	assert.Equal(t, uint64(1), tr.Metrics().ErrorClearCount.Load())
}

func TestClear_ScrubsParityError(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	board.RaiseParityError(0x0F)

	tr.Clear()

	assert.Zero(t, board.Status()&(hal.StatFrameErr|hal.StatParityErr))
	assert.Equal(t, 0, board.RxQueueLen())
}

// ===========================================================================
// Bit-bang mode
// ===========================================================================

func TestSetBitBang_RoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	before := board.Assign()

	tr.SetBitBang(true)
	assert.True(t, tr.BitBang())
	assert.Equal(t, before|hal.MuxDisconnect, board.Assign())

	// Switching on twice leaves the register unchanged.
	afterFirst := board.Assign()
	tr.SetBitBang(true)
	assert.Equal(t, afterFirst, board.Assign())

	tr.SetBitBang(false)
	assert.False(t, tr.BitBang())
	assert.Equal(t, before, board.Assign())
}

func TestSetBitBang_RestoresPinAssignment(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newReadyTransport(t, cfg)

	tr.SetBitBang(true)
	tr.SetBitBang(false)

	assert.Equal(t, cfg.PinAssign(), board.Assign()&hal.MuxFieldMask)
}

func TestSetBit_LogicalLevels(t *testing.T) {
	cfg := newTestConfig(t)
	tr, board := newTestTransport(t, cfg)

	tr.Configure()
	tr.SetBitBang(true)

	tr.SetBit(0)
	assert.Equal(t, 0, board.PinLevel(cfg.TxPort(), cfg.TxPin()))
	assert.Equal(t, 0, tr.GetBit())

	tr.SetBit(1)
	assert.Equal(t, 1, board.PinLevel(cfg.TxPort(), cfg.TxPin()))
	assert.Equal(t, 1, tr.GetBit())
}

func TestSetBit_InvertedDriver(t *testing.T) {
	cfg := newTestConfig(t, WithInvertOutput(true))
	tr, board := newTestTransport(t, cfg)

	tr.Configure()
	tr.SetBitBang(true)

	// The electrical pin level is flipped, but the logical bus level the
	// caller observes stays protocol-true.
	tr.SetBit(0)
	assert.Equal(t, 1, board.PinLevel(cfg.TxPort(), cfg.TxPin()))
	assert.Equal(t, 0, tr.GetBit())

	tr.SetBit(1)
	assert.Equal(t, 0, board.PinLevel(cfg.TxPort(), cfg.TxPin()))
	assert.Equal(t, 1, tr.GetBit())
}
