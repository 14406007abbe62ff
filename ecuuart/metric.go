package ecuuart

import (
	"sync/atomic"
)

// TransportMetrics contains atomic metrics for a K-line transport.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
//
// The echo counters split the single false return of [Transport.GetEcho]
// into its two causes, which the boolean contract deliberately conflates:
// EchoTimeoutCount counts windows that expired with no byte, and
// EchoMismatchCount counts echoes that arrived but differed from the sent byte.
type TransportMetrics struct {
	// SendCount indicates the number of bytes written to the transmitter.
	SendCount atomic.Uint64
	// EchoMatchCount indicates the number of successful echo verifications.
	EchoMatchCount atomic.Uint64
	// EchoTimeoutCount indicates the number of echo windows that timed out.
	EchoTimeoutCount atomic.Uint64
	// EchoMismatchCount indicates the number of echoes differing from the sent byte.
	EchoMismatchCount atomic.Uint64
	// ErrorClearCount indicates the number of framing/parity error scrubs.
	ErrorClearCount atomic.Uint64
}

func (m *TransportMetrics) incSendCount() {
	m.SendCount.Add(1)
}

func (m *TransportMetrics) incEchoMatchCount() {
	m.EchoMatchCount.Add(1)
}

func (m *TransportMetrics) incEchoTimeoutCount() {
	m.EchoTimeoutCount.Add(1)
}

func (m *TransportMetrics) incEchoMismatchCount() {
	m.EchoMismatchCount.Add(1)
}

func (m *TransportMetrics) incErrorClearCount() {
	m.ErrorClearCount.Add(1)
}
