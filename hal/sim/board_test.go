package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DragonWar/allpro/hal"
)

func TestBoard_EchoesTransmitsSynchronously(t *testing.T) {
	board := NewBoard(nil)

	board.Tx(0x55)

	assert.NotZero(t, board.Status()&hal.StatRxReady)
	assert.Equal(t, byte(0x55), board.Rx())
	assert.Zero(t, board.Status()&hal.StatRxReady)
	assert.Equal(t, []byte{0x55}, board.SentBytes())
}

func TestBoard_DelayedEcho(t *testing.T) {
	board := NewBoard(nil)
	board.SetEchoDelay(2 * time.Millisecond)

	board.Tx(0xA7)

	assert.Zero(t, board.Status()&hal.StatRxReady)
	assert.Eventually(t, func() bool {
		return board.Status()&hal.StatRxReady != 0
	}, 200*time.Millisecond, time.Millisecond)
	assert.Equal(t, byte(0xA7), board.Rx())
}

func TestBoard_DropNextEcho(t *testing.T) {
	board := NewBoard(nil)

	board.DropNextEcho()
	board.Tx(0x11)
	assert.Zero(t, board.Status()&hal.StatRxReady)

	// Only the next echo is suppressed.
	board.Tx(0x22)
	require.NotZero(t, board.Status()&hal.StatRxReady)
	assert.Equal(t, byte(0x22), board.Rx())
}

func TestBoard_CorruptNextEcho(t *testing.T) {
	board := NewBoard(nil)

	board.CorruptNextEcho(0xEE)
	board.Tx(0x11)
	assert.Equal(t, byte(0xEE), board.Rx())

	board.Tx(0x22)
	assert.Equal(t, byte(0x22), board.Rx())
}

func TestBoard_RxStaleDataWhenEmpty(t *testing.T) {
	board := NewBoard(nil)

	board.Tx(0x3C)
	require.Equal(t, byte(0x3C), board.Rx())

	// Reading with no data returns the stale register contents.
	assert.Equal(t, byte(0x3C), board.Rx())
}

func TestBoard_ErrorFlagsLatch(t *testing.T) {
	board := NewBoard(nil)

	board.RaiseFrameError(0xF0)
	assert.NotZero(t, board.Status()&hal.StatFrameErr)
	assert.NotZero(t, board.Status()&hal.StatRxReady)

	board.ClearStatus(hal.StatFrameErr | hal.StatParityErr)
	assert.Zero(t, board.Status()&hal.StatFrameErr)

	// The garbled byte stays queued until read.
	assert.Equal(t, byte(0xF0), board.Rx())
}

func TestBoard_ResetClearsUARTState(t *testing.T) {
	board := NewBoard(nil)

	board.Tx(0x44)
	board.RaiseParityError(0x00)
	board.SetTxInverted(true)

	board.ResetPeripheral(hal.PeripheralUART)

	assert.Zero(t, board.Status()&(hal.StatParityErr|hal.StatRxReady))
	assert.False(t, board.TxInverted())
	assert.Equal(t, 1, board.UARTResetCount())
}

func TestBoard_WireCoupling(t *testing.T) {
	board := NewBoard(nil)
	board.CoupleWire(0, 7, 0, 8, false)

	board.WritePin(0, 8, 1)
	assert.Equal(t, 1, board.ReadPin(0, 7))

	board.WritePin(0, 8, 0)
	assert.Equal(t, 0, board.ReadPin(0, 7))
}

func TestBoard_WireCoupling_Inverted(t *testing.T) {
	board := NewBoard(nil)
	board.CoupleWire(0, 7, 0, 8, true)

	board.WritePin(0, 8, 0)
	assert.Equal(t, 1, board.ReadPin(0, 7))

	board.WritePin(0, 8, 1)
	assert.Equal(t, 0, board.ReadPin(0, 7))
}

func TestBoard_PinConfiguration(t *testing.T) {
	board := NewBoard(nil)

	board.ConfigurePin(0, 8, hal.ModeOpenDrain)
	board.SetDir(0, 8, hal.Output)
	board.WritePin(0, 8, 1)

	assert.Equal(t, hal.ModeOpenDrain, board.PinModeOf(0, 8))
	assert.Equal(t, hal.Output, board.PinDirOf(0, 8))
	assert.Equal(t, 1, board.PinLevel(0, 8))
}

func TestBoard_AssignRegister(t *testing.T) {
	board := NewBoard(nil)

	board.SetAssign(0x0007_0800)
	assert.Equal(t, uint32(0x0007_0800), board.Assign())
}

func TestBoard_IRQMasking(t *testing.T) {
	board := NewBoard(nil)

	assert.True(t, board.IRQEnabled(hal.LineUART))

	board.Disable(hal.LineUART)
	assert.False(t, board.IRQEnabled(hal.LineUART))

	board.Enable(hal.LineUART)
	assert.True(t, board.IRQEnabled(hal.LineUART))
}
