package fpgasign

import (
	"errors"
)

// Session errors.
//
// All errors returned by a Session wrap one of these. Use errors.Is to test
// for them.
var (
	// ErrNullArgument is used when a required argument is nil.
	ErrNullArgument = errors.New("fpgasign: argument is nil")

	// ErrNotInitialized is used when the session is not initialized.
	//
	// This covers both a session that was never initialized and a session
	// that has been terminated.
	ErrNotInitialized = errors.New("fpgasign: session is not initialized")

	// ErrAlreadyInitialized is used when initializing an active session.
	ErrAlreadyInitialized = errors.New("fpgasign: session is already initialized")

	// ErrPeripheralInit is used when the bus could not be set up.
	ErrPeripheralInit = errors.New("fpgasign: peripheral init failed")

	// ErrTransfer is used when the bus reports a failure during a transfer.
	//
	// The frame carries no acknowledgement or checksum, so a failed transfer
	// is final for that call.
	ErrTransfer = errors.New("fpgasign: transfer failed")

	// ErrCipherSetup is used for any failure of the decrypt cipher.
	ErrCipherSetup = errors.New("fpgasign: cipher setup failed")

	// ErrInvalidLength is used when a fixed size buffer has the wrong size.
	ErrInvalidLength = errors.New("fpgasign: invalid length")
)

// Bridge errors.
var (
	errBridgeBusy        = errors.New("fpgasign: bridge transfer in progress")
	errBridgeUnavailable = errors.New("fpgasign: bridge spi bus not available")
	errBridgeStatus      = errors.New("fpgasign: bridge returned unexpected status")
)

// validateBridgeStatus validates the status byte of a MCP2210 response.
func validateBridgeStatus(response []byte) error {
	if len(response) < 2 {
		return errors.New("fpgasign: empty bridge response")
	}

	switch response[1] {
	case 0x00:
		return nil
	case 0xf7:
		return errBridgeUnavailable
	case 0xf8:
		return errBridgeBusy
	default:
		return errBridgeStatus
	}
}
