package hal

import "errors"

// Hardware bundles one implementation of each capability the transport
// consumes. All fields are required.
type Hardware struct {
	GPIO   GPIO
	Clock  Clock
	PinMux PinMux
	Timer  CountdownTimer
	UART   UART
	IRQ    IRQ
}

// Validate reports an error if any capability is missing.
func (h *Hardware) Validate() error {
	switch {
	case h == nil:
		return errors.New("hal: hardware is nil")
	case h.GPIO == nil:
		return errors.New("hal: GPIO capability is nil")
	case h.Clock == nil:
		return errors.New("hal: clock capability is nil")
	case h.PinMux == nil:
		return errors.New("hal: pin-mux capability is nil")
	case h.Timer == nil:
		return errors.New("hal: countdown timer capability is nil")
	case h.UART == nil:
		return errors.New("hal: UART capability is nil")
	case h.IRQ == nil:
		return errors.New("hal: interrupt controller capability is nil")
	}

	return nil
}
