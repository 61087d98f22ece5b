package fpgasign

import (
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

type IfaceType int

const (
	IfaceSPI IfaceType = iota
	IfaceHID
	IfaceEmulator
)

func (it IfaceType) String() string {
	switch it {
	case IfaceSPI:
		return "spi"
	case IfaceHID:
		return "hid"
	case IfaceEmulator:
		return "emu"
	default:
		return "unknown"
	}
}

// CipherType selects the backend used by Session.Decrypt.
type CipherType int

const (
	// CipherSoftware decrypts with crypto/aes.
	CipherSoftware CipherType = iota
	// CipherKernel decrypts with the Linux kernel crypto API (AF_ALG).
	CipherKernel
)

// IfaceConfig is the configuration object for a session.
//
// It describes how the FPGA is reached and how the host side decrypts.
type IfaceConfig struct {
	// IfaceType selects the HAL used to talk to the FPGA.
	IfaceType IfaceType
	// Board is the host board the FPGA is wired to.
	Board Board
	// SPI contains SPI specific configuration.
	SPI SPIConfig
	// HID contains configuration for the USB-HID to SPI bridge.
	HID HIDConfig
	// Emulator contains configuration for the software FPGA model.
	Emulator EmulatorConfig
	// Cipher selects the decrypt backend.
	Cipher CipherType
	// Debug is used for debug output.
	Debug Logger
}

type SPIConfig struct {
	// Port is the SPI port the FPGA is connected to. The session takes
	// ownership and closes it on Terminate.
	Port spi.PortCloser
	// Reopen opens the port again when a terminated session is initialized
	// again. A closed port cannot be connected twice, so without Reopen the
	// session can only be initialized once.
	Reopen func() (spi.PortCloser, error)
	// MaxFreq is the SPI clock frequency.
	MaxFreq physic.Frequency
	// Mode is the SPI mode (clock polarity and phase).
	Mode spi.Mode
}

type HIDConfig struct {
	// DevIndex is the HID enumeration index to use.
	DevIndex int

	// VendorID of the bridge.
	VendorID uint16

	// ProductID of the bridge.
	ProductID uint16

	// PacketSize is the size of the USB report.
	PacketSize int

	// BitRate is the SPI clock in bits per second.
	BitRate uint32

	// IdleCS is the chip select value while idle.
	IdleCS uint16

	// ActiveCS is the chip select value during a transfer.
	ActiveCS uint16

	// Mode is the SPI mode (0-3).
	Mode uint8
}

type EmulatorConfig struct {
	// Key is the AES key hardcoded in the FPGA design. It must be 16 or 32
	// bytes, selecting AES-128 or AES-256.
	Key []byte
	// IV is the initialization vector hardcoded in the FPGA design.
	IV []byte
}

// DefaultKey is the test key used by the benchmark, zero-padded to 32 bytes.
var DefaultKey = func() []byte {
	var key [KeySize]byte
	copy(key[:], "abcdefghijklmnop")
	return key[:]
}()

// DefaultIV is the IV string handed to Sign by the benchmark.
//
// The FPGA ignores it, but the emulator uses it as its hardcoded IV so host
// side verification works against the emulator.
var DefaultIV = []byte("aaaabbbbccccdddd")

// ConfigFPGA_SPIDefault returns a default config for an FPGA on a SPI port.
func ConfigFPGA_SPIDefault(port spi.PortCloser) IfaceConfig {
	return IfaceConfig{
		IfaceType: IfaceSPI,
		Board:     BoardRaspberryPi,
		Cipher:    CipherSoftware,
		SPI: SPIConfig{
			Port:    port,
			MaxFreq: BoardRaspberryPi.SPIFrequency(),
			Mode:    spi.Mode0,
		},
	}
}

const (
	vendorMicrochip = 0x04d8

	productMCP2210 = 0x00de
)

// ConfigFPGA_HIDDefault returns a configuration for a MCP2210 USB bridge.
func ConfigFPGA_HIDDefault() IfaceConfig {
	return IfaceConfig{
		IfaceType: IfaceHID,
		Cipher:    CipherSoftware,
		HID: HIDConfig{
			DevIndex:   0,
			VendorID:   vendorMicrochip,
			ProductID:  productMCP2210,
			PacketSize: 64,
			BitRate:    12_000_000,
			IdleCS:     0x01ff,
			ActiveCS:   0x01fe,
			Mode:       0,
		},
	}
}

// ConfigFPGA_EmulatorDefault returns a configuration for the software model.
func ConfigFPGA_EmulatorDefault() IfaceConfig {
	return IfaceConfig{
		IfaceType: IfaceEmulator,
		Cipher:    CipherSoftware,
		Emulator: EmulatorConfig{
			Key: DefaultKey,
			IV:  DefaultIV,
		},
	}
}
