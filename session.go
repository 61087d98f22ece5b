package fpgasign

import (
	"context"
	"fmt"
)

type sessionState int

const (
	sessionStateUninitialized sessionState = iota
	sessionStateInitialized
	sessionStateTerminated
)

func (s sessionState) String() string {
	switch s {
	case sessionStateUninitialized:
		return "uninitialized"
	case sessionStateInitialized:
		return "initialized"
	case sessionStateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session owns the bus to the FPGA and the secret key used on the host.
//
// A Session is not safe for concurrent use.
type Session struct {
	hal   HAL
	state sessionState
	cfg   IfaceConfig
	log   Logger
	dec   decrypter

	secretKey [KeySize]byte
}

// New returns an uninitialized session using the supplied HAL for
// communication.
func New(hal HAL, cfg IfaceConfig) *Session {
	return &Session{
		hal:   hal,
		state: sessionStateUninitialized,
		cfg:   cfg,
		log:   getLogger(cfg),
	}
}

// Open returns an initialized session for the interface described by cfg.
func Open(ctx context.Context, cfg IfaceConfig) (*Session, error) {
	hal, err := newHAL(cfg)
	if err != nil {
		return nil, err
	}
	s := New(hal, cfg)
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize configures the bus and clears the secret key.
//
// A terminated session may be initialized again.
func (s *Session) Initialize(ctx context.Context) error {
	if s == nil || s.hal == nil {
		return ErrNullArgument
	}
	if s.state == sessionStateInitialized {
		return ErrAlreadyInitialized
	}

	// The decrypt backend is set up here so a missing kernel algorithm
	// surfaces before anything is sent to the FPGA.
	dec, err := newDecrypter(s.cfg.Cipher)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPeripheralInit, err)
	}
	if err := s.hal.Open(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPeripheralInit, err)
	}

	s.state = sessionStateInitialized
	s.dec = dec
	s.secretKey = [KeySize]byte{}
	return nil
}

// SetKey replaces the secret key.
//
// The key must be exactly 32 bytes. On failure the previous key is kept.
func (s *Session) SetKey(key []byte) error {
	if s == nil || key == nil {
		return ErrNullArgument
	}
	if s.state != sessionStateInitialized {
		return ErrNotInitialized
	}
	if len(key) != KeySize {
		return fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidLength, len(key), KeySize)
	}

	copy(s.secretKey[:], key)
	return nil
}

// Sign has the FPGA digest plaintext with SHA-256 and encrypt the digest
// with AES-CBC, returning the 32 byte result.
//
// The plaintext must be exactly 32 bytes. The iv is required but otherwise
// ignored: the FPGA design hardcodes its own IV, so the value passed here has
// no effect on the result.
//
// Sign is a single blocking transfer. ctx is only checked before the
// transfer starts; a stalled bus blocks until the driver returns.
func (s *Session) Sign(ctx context.Context, plaintext, iv []byte) ([]byte, error) {
	if s == nil || plaintext == nil || iv == nil {
		return nil, ErrNullArgument
	}
	if s.state != sessionStateInitialized {
		return nil, ErrNotInitialized
	}

	w, err := encodeFrame(plaintext)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.log.Printf("sign: iv %x ignored, hardware uses its own", iv)

	var r [FrameSize]byte
	if err := s.hal.Tx(w, r[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	return frameResult(r[:])
}

// Decrypt decrypts ciphertext with AES-256-CBC under the secret key.
//
// This runs entirely on the host. The ciphertext length must be a multiple
// of the AES block size and the iv must be one block.
func (s *Session) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if s == nil || ciphertext == nil || iv == nil {
		return nil, ErrNullArgument
	}
	if s.state != sessionStateInitialized {
		return nil, ErrNotInitialized
	}
	if err := checkDecryptArgs(ciphertext, iv); err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	if err := s.dec.Decrypt(plaintext, ciphertext, s.secretKey[:], iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCipherSetup, err)
	}
	return plaintext, nil
}

// Terminate releases the bus.
//
// The session is terminated even when releasing the bus fails; that error is
// still returned. All later operations fail with ErrNotInitialized.
func (s *Session) Terminate() error {
	if s == nil {
		return ErrNullArgument
	}
	if s.state != sessionStateInitialized {
		return ErrNotInitialized
	}

	err := s.hal.Close()
	s.state = sessionStateTerminated
	s.dec = nil
	s.secretKey = [KeySize]byte{}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	return nil
}
