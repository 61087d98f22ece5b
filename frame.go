package fpgasign

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// Frame layout of the full-duplex transfer with the FPGA.
//
// The layout is fixed by the hardware design. The first 32 bytes carry the
// payload, the next 10 bytes give the FPGA time to finish hashing and
// encrypting, and the last 32 bytes clock the result back out.
const (
	// FrameSize is the size of one transfer in both directions.
	FrameSize = PayloadSize + ReservedSize + ResultSize
	// PayloadSize is the size of the plaintext at the start of the frame.
	PayloadSize = 32
	// ReservedSize is the number of delay bytes after the payload.
	ReservedSize = 10
	// ResultOffset is where the result starts in the inbound frame.
	ResultOffset = PayloadSize + ReservedSize
	// ResultSize is the size of the digest or ciphertext returned.
	ResultSize = 32
)

// encodeFrame builds the outbound frame.
//
// Every byte after the payload is zero.
func encodeFrame(payload []byte) ([]byte, error) {
	if len(payload) != PayloadSize {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidLength, len(payload), PayloadSize)
	}

	b := cryptobyte.NewFixedBuilder(make([]byte, 0, FrameSize))
	b.AddBytes(payload)
	b.AddBytes(make([]byte, ReservedSize+ResultSize))
	return b.Bytes()
}

// frameResult extracts a copy of the result from an inbound frame.
func frameResult(frame []byte) ([]byte, error) {
	if len(frame) != FrameSize {
		return nil, fmt.Errorf("%w: frame is %d bytes, want %d", ErrInvalidLength, len(frame), FrameSize)
	}

	s := cryptobyte.String(frame)
	result := make([]byte, ResultSize)
	if !s.Skip(ResultOffset) || !s.CopyBytes(result) || !s.Empty() {
		return nil, fmt.Errorf("%w: malformed frame", ErrTransfer)
	}
	return result, nil
}
