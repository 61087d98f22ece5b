package main

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// openADC returns the analog input with the given name, on the I²C bus
// named bus. Halting the returned pin releases the bus.
var openADC = openADS1x15

var adcChannels = map[string]ads1x15.Channel{
	"A0": ads1x15.Channel0,
	"A1": ads1x15.Channel1,
	"A2": ads1x15.Channel2,
	"A3": ads1x15.Channel3,
}

// adcPin is an ADS1x15 input that owns its bus.
type adcPin struct {
	analog.PinADC
	bus i2c.BusCloser
}

func (p *adcPin) Halt() error {
	return errors.Join(p.PinADC.Halt(), p.bus.Close())
}

func openADS1x15(bus, name string) (analog.PinADC, error) {
	ch, ok := adcChannels[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("bench: no analog input %q, want A0 to A3", name)
	}

	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("bench: failed to open i2c bus: %w", err)
	}

	dev, err := ads1x15.NewADS1115(b, &ads1x15.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, err
	}
	// 5V full scale at the lowest data rate both parts support.
	pin, err := dev.PinForChannel(ch, 5*physic.Volt, 128*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &adcPin{PinADC: pin, bus: b}, nil
}
