package fpgasign

import (
	"errors"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// Board represents the host board the FPGA is wired to.
type Board int

const (
	BoardRaspberryPi Board = iota
	BoardGalileo
)

func (b Board) String() string {
	switch b {
	case BoardRaspberryPi:
		return "rpi"
	case BoardGalileo:
		return "galileo"
	default:
		return "unknown"
	}
}

// BoardFromName returns the board with the given name.
func BoardFromName(name string) (Board, error) {
	switch strings.ToLower(name) {
	case "rpi", "raspberrypi", "pi":
		return BoardRaspberryPi, nil
	case "galileo":
		return BoardGalileo, nil
	default:
		return 0, errors.New("fpgasign: unknown board")
	}
}

// boardProfile holds the per-board defaults.
type boardProfile struct {
	spiFrequency physic.Frequency
	analogInput  string
}

var boardProfiles = map[Board]boardProfile{
	// BCM2835 core clock of 250MHz with a clock divider of 8.
	BoardRaspberryPi: {
		spiFrequency: 31250 * physic.KiloHertz,
	},
	BoardGalileo: {
		spiFrequency: 4 * physic.MegaHertz,
		analogInput:  "A0",
	},
}

// SPIFrequency returns the SPI clock the FPGA design was validated with on
// this board.
func (b Board) SPIFrequency() physic.Frequency {
	if p, ok := boardProfiles[b]; ok {
		return p.spiFrequency
	}
	return boardProfiles[BoardRaspberryPi].spiFrequency
}

// AnalogInput returns the name of the analog input used for sampling.
//
// It returns an empty string when the board has no analog input, in which
// case pseudo-random data is used instead.
func (b Board) AnalogInput() string {
	return boardProfiles[b].analogInput
}
