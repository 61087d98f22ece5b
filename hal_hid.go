package fpgasign

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/karalabe/usb"
)

// ErrUSBNotSupported is returned when the USB support is missing.
//
// When building, CGO is required for USB support. If CGO is not enabled, the
// HID interface will not be available.
var ErrUSBNotSupported = errors.New("fpgasign: usb support is missing")

// MCP2210 command codes.
const (
	bridgeCmdSetTransferSettings = 0x40
	bridgeCmdTransferData        = 0x42
)

// MCP2210 SPI engine status, reported with every transfer response.
const (
	bridgeEngineFinished = 0x10
	bridgeEngineStarted  = 0x20
	bridgeEnginePending  = 0x30
)

const (
	// bridgeMaxChunk is the number of SPI bytes one report can carry.
	bridgeMaxChunk = 60
	// bridgeMaxReports bounds the reports exchanged for a single frame.
	bridgeMaxReports = 64
)

// halHID talks to the FPGA through a MCP2210 USB-HID to SPI bridge.
type halHID struct {
	dev  io.ReadWriteCloser
	dial func() (io.ReadWriteCloser, error)
	buf  []byte
	cfg  HIDConfig
}

func newHALHID(cfg IfaceConfig) (*halHID, error) {
	if cfg.HID.PacketSize < bridgeMaxChunk+4 {
		return nil, fmt.Errorf("%w: hid packet size %d too small", ErrPeripheralInit, cfg.HID.PacketSize)
	}
	return &halHID{
		dial: func() (io.ReadWriteCloser, error) { return openHIDDevice(cfg.HID) },
		buf:  make([]byte, cfg.HID.PacketSize),
		cfg:  cfg.HID,
	}, nil
}

// openHIDDevice opens the bridge at cfg.DevIndex among the enumerated ones.
func openHIDDevice(cfg HIDConfig) (io.ReadWriteCloser, error) {
	if !usb.Supported() {
		return nil, ErrUSBNotSupported
	}

	deviceInfos, err := usb.EnumerateHid(cfg.VendorID, cfg.ProductID)
	if err != nil {
		return nil, fmt.Errorf("fpgasign: failed to get hid devices: %w", err)
	}
	if cfg.DevIndex >= len(deviceInfos) {
		return nil, errors.New("fpgasign: no hid devices found")
	}
	return deviceInfos[cfg.DevIndex].Open()
}

func (h *halHID) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.dev == nil {
		dev, err := h.dial()
		if err != nil {
			return err
		}
		h.dev = dev
	}

	if err := h.setTransferSettings(FrameSize); err != nil {
		_ = h.dev.Close()
		h.dev = nil
		return err
	}
	return nil
}

// setTransferSettings configures the bridge so one SPI transaction spans size
// bytes with chip select held active.
func (h *halHID) setTransferSettings(size int) error {
	report := h.newReport(bridgeCmdSetTransferSettings)
	binary.LittleEndian.PutUint32(report[4:], h.cfg.BitRate)
	binary.LittleEndian.PutUint16(report[8:], h.cfg.IdleCS)
	binary.LittleEndian.PutUint16(report[10:], h.cfg.ActiveCS)
	// CS to data, data to CS and inter-byte delays stay at zero.
	binary.LittleEndian.PutUint16(report[18:], uint16(size))
	report[20] = h.cfg.Mode

	rsp, err := h.exchange(report)
	if err != nil {
		return err
	}
	return validateBridgeStatus(rsp)
}

func (h *halHID) Tx(w, r []byte) error {
	if h.dev == nil {
		return errors.New("fpgasign: hid bridge is not open")
	}
	if len(w) != len(r) {
		return errors.New("fpgasign: spi transfer requires equal buffer sizes")
	}

	var sent, received int
	for i := 0; i < bridgeMaxReports; i++ {
		chunk := w[sent:]
		if len(chunk) > bridgeMaxChunk {
			chunk = chunk[:bridgeMaxChunk]
		}

		report := h.newReport(bridgeCmdTransferData)
		report[1] = byte(len(chunk))
		copy(report[4:], chunk)

		rsp, err := h.exchange(report)
		if err != nil {
			return err
		}
		switch err := validateBridgeStatus(rsp); {
		case errors.Is(err, errBridgeBusy):
			// the bridge did not take the chunk, send it again
			continue
		case err != nil:
			return err
		}
		sent += len(chunk)

		n := int(rsp[2])
		if n > len(rsp)-4 || received+n > len(r) {
			return errors.New("fpgasign: bridge returned too much data")
		}
		received += copy(r[received:], rsp[4:4+n])

		switch rsp[3] {
		case bridgeEngineFinished:
			if received != len(r) {
				return fmt.Errorf("fpgasign: bridge received %d of %d bytes", received, len(r))
			}
			return nil
		case bridgeEngineStarted, bridgeEnginePending:
		default:
			return errBridgeStatus
		}
	}
	return errors.New("fpgasign: bridge transfer did not finish")
}

func (h *halHID) Close() error {
	if h.dev == nil {
		return nil
	}
	err := h.dev.Close()
	h.dev = nil
	return err
}

// newReport returns a zeroed report for the command.
func (h *halHID) newReport(cmd byte) []byte {
	for i := range h.buf {
		h.buf[i] = 0
	}
	h.buf[0] = cmd
	return h.buf
}

// exchange writes one report and reads the response to it.
func (h *halHID) exchange(report []byte) ([]byte, error) {
	cmd := report[0]
	if _, err := h.dev.Write(report); err != nil {
		return nil, err
	}

	rsp := make([]byte, h.cfg.PacketSize)
	n, err := h.dev.Read(rsp)
	if err != nil {
		return nil, err
	} else if n < 4 {
		return nil, errors.New("fpgasign: short bridge response")
	} else if rsp[0] != cmd {
		return nil, fmt.Errorf("fpgasign: bridge answered %#02x to %#02x", rsp[0], cmd)
	}
	return rsp[:n], nil
}
