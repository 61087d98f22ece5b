package fpgasign

import "context"

// HAL is the transport between the host and the FPGA.
type HAL interface {
	// Open configures the bus. No key material is touched.
	Open(ctx context.Context) error
	// Tx does one synchronous full-duplex exchange of len(w) bytes.
	//
	// w and r must have the same length.
	Tx(w, r []byte) error
	// Close releases the bus.
	Close() error
}

// newHAL returns the HAL described by cfg, wrapped for debug output.
func newHAL(cfg IfaceConfig) (HAL, error) {
	var hal HAL
	switch cfg.IfaceType {
	case IfaceSPI:
		if cfg.SPI.Port == nil {
			return nil, ErrNullArgument
		}
		hal = newHALSPI(cfg)
	case IfaceHID:
		h, err := newHALHID(cfg)
		if err != nil {
			return nil, err
		}
		hal = h
	case IfaceEmulator:
		h, err := newHALEmulator(cfg)
		if err != nil {
			return nil, err
		}
		hal = h
	default:
		return nil, ErrPeripheralInit
	}
	return &halDebug{cfg.IfaceType.String(), getLogger(cfg), hal}, nil
}
