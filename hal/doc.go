// Package hal defines the hardware capability interfaces consumed by the
// K-line transport: GPIO pin control, peripheral clocking, the pin-multiplexing
// switch matrix, a single-shot countdown timer, the UART peripheral, and the
// interrupt controller.
//
// The interfaces mirror the register surface of an LPC15xx-class MCU (the
// original AllPro adapter hardware) closely enough that a firmware target can
// implement them as raw register accesses, while host-side implementations
// (hal/sim, hal/hostserial) back them with memory or a physical serial port.
//
// Implementations are bundled into a [Hardware] value and handed to
// ecuuart.New. None of the interfaces are required to be goroutine-safe
// beyond what their concrete implementation documents; the transport drives
// them from a single goroutine.
package hal
