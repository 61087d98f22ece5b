package fpgasign

import (
	"context"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/spi"
)

var errSPIPortClosed = errors.New("fpgasign: spi port is closed and cannot be reopened")

// halSPI talks to the FPGA directly on a SPI port.
//
// port is nil after Close.
type halSPI struct {
	port spi.PortCloser
	conn spi.Conn
	cfg  SPIConfig
}

func newHALSPI(cfg IfaceConfig) *halSPI {
	return &halSPI{port: cfg.SPI.Port, cfg: cfg.SPI}
}

func (h *halSPI) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.port == nil {
		if h.cfg.Reopen == nil {
			return errSPIPortClosed
		}
		port, err := h.cfg.Reopen()
		if err != nil {
			return fmt.Errorf("fpgasign: failed to reopen spi port: %w", err)
		}
		h.port = port
	}

	c, err := h.port.Connect(h.cfg.MaxFreq, h.cfg.Mode, 8)
	if err != nil {
		return fmt.Errorf("fpgasign: failed to connect to spi port: %w", err)
	}
	h.conn = c
	return nil
}

func (h *halSPI) Tx(w, r []byte) error {
	if h.conn == nil {
		return errors.New("fpgasign: spi port is not connected")
	}
	if len(w) != len(r) {
		return errors.New("fpgasign: spi transfer requires equal buffer sizes")
	}
	return h.conn.Tx(w, r)
}

func (h *halSPI) Close() error {
	if h.port == nil {
		return errSPIPortClosed
	}
	h.conn = nil
	err := h.port.Close()
	h.port = nil
	return err
}
