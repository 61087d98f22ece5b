// Package sensor produces the payloads that get signed.
//
// A payload is eight 16-bit readings written as lowercase hex, four digits
// each, which fills exactly 32 bytes.
package sensor

import (
	"errors"
	"fmt"
	"math/rand"

	"periph.io/x/conn/v3/analog"
)

// Readings is the number of samples in a payload.
const Readings = 8

// PayloadSize is the size of a formatted payload.
const PayloadSize = Readings * 4

// Sampler yields 16-bit readings.
type Sampler interface {
	Sample() (uint16, error)
}

// Fill takes Readings samples from s and formats them into a payload.
func Fill(s Sampler) ([]byte, error) {
	payload := make([]byte, 0, PayloadSize)
	for i := 0; i < Readings; i++ {
		v, err := s.Sample()
		if err != nil {
			return nil, fmt.Errorf("sensor: reading %d: %w", i, err)
		}
		payload = fmt.Appendf(payload, "%04x", v)
	}
	return payload, nil
}

// Random stands in for a sensor on boards without an analog input.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a pseudo-random sampler seeded with seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Sample() (uint16, error) {
	return uint16(r.rng.Int63() & 0xffff), nil
}

// ADC is the part of analog.PinADC used for sampling.
type ADC interface {
	Read() (analog.Sample, error)
}

var errOutOfRange = errors.New("sensor: raw sample out of range")

// Analog samples an ADC pin and uses the raw conversion value.
type Analog struct {
	pin ADC
}

func NewAnalog(pin ADC) *Analog {
	return &Analog{pin: pin}
}

func (a *Analog) Sample() (uint16, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, err
	}
	if s.Raw < 0 || s.Raw > 0xffff {
		return 0, fmt.Errorf("%w: %d", errOutOfRange, s.Raw)
	}
	return uint16(s.Raw), nil
}
