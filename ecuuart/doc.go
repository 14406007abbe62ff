// Package ecuuart implements the half-duplex K-line serial transport used to
// talk to an automotive ECU over an ISO 9141 / ISO 14230 style single-wire bus.
//
// On the K-line, transmit and receive are the same conductor: the bus
// transceiver wire-ORs the adapter's TX driver onto the line its own receiver
// listens to, so every transmitted byte is observed back on the receive path.
// The transport exposes that property as a bounded-time echo-verification
// primitive ([Transport.GetEcho]) which doubles as a bus-health check.
//
// # Operating modes
//
// The transport owns two mutually exclusive pin routings:
//
//   - UART mode: the RX/TX pins are routed through the hardware serial
//     peripheral and bytes move through [Transport.Send], [Transport.Ready],
//     [Transport.Get] and [Transport.GetEcho].
//   - Bit-bang mode: the pins are detached from the peripheral and driven or
//     sampled directly ([Transport.SetBit], [Transport.GetBit]), which is how
//     the 5-baud ISO slow-init address and other wake-up sequences below the
//     UART's reach are produced.
//
// [Transport.SetBitBang] switches between the two by rewriting only the
// pin-multiplexing register; [Transport.Init] returns to UART mode and
// programs the peripheral for a target baud rate.
//
// # Concurrency
//
// Every operation is a synchronous register access or a busy-wait poll on the
// calling goroutine; there is no interrupt-driven path and no cancellation.
// A Transport is not goroutine-safe. If multiple callers share one, all
// operations must be serialized externally.
//
// Protocol semantics (framing, checksums, transaction sequencing, retry
// policy) belong to the caller. The transport moves single bytes.
package ecuuart
