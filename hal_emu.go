package fpgasign

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
)

// halEmulator is a software model of the FPGA design.
//
// It answers a frame the same way the hardware does: the result is the
// SHA-256 digest of the payload, encrypted with AES-CBC under the key and IV
// built into the design. Everything before the result reads as zero.
type halEmulator struct {
	block cipher.Block
	iv    []byte
	open  bool
}

func newHALEmulator(cfg IfaceConfig) (*halEmulator, error) {
	switch len(cfg.Emulator.Key) {
	case 16, 32:
	default:
		return nil, fmt.Errorf("%w: emulator key must be 16 or 32 bytes", ErrPeripheralInit)
	}
	if len(cfg.Emulator.IV) != aes.BlockSize {
		return nil, fmt.Errorf("%w: emulator iv must be %d bytes", ErrPeripheralInit, aes.BlockSize)
	}

	block, err := aes.NewCipher(cfg.Emulator.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPeripheralInit, err)
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, cfg.Emulator.IV)
	return &halEmulator{block: block, iv: iv}, nil
}

func (h *halEmulator) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.open = true
	return nil
}

func (h *halEmulator) Tx(w, r []byte) error {
	if !h.open {
		return errors.New("fpgasign: emulator is not open")
	}
	if len(w) != FrameSize || len(r) != FrameSize {
		return fmt.Errorf("fpgasign: emulator expects %d byte frames", FrameSize)
	}

	digest := sha256.Sum256(w[:PayloadSize])
	for i := range r[:ResultOffset] {
		r[i] = 0
	}
	cipher.NewCBCEncrypter(h.block, h.iv).CryptBlocks(r[ResultOffset:], digest[:])
	return nil
}

func (h *halEmulator) Close() error {
	if !h.open {
		return errors.New("fpgasign: emulator is not open")
	}
	h.open = false
	return nil
}
