// Package record persists signed payloads.
//
// The text format is the one the benchmark has always written to data.out:
// for every record, the payload on one line followed by the signature as 64
// lowercase hex characters on the next. JSON lines and CBOR carry the same
// records plus the time the signature took.
package record

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	PayloadSize   = 32
	SignatureSize = 32
)

// ErrInvalidRecord is returned for a record with a wrong sized field.
var ErrInvalidRecord = errors.New("record: invalid record")

// Record is one signed payload.
type Record struct {
	Payload   []byte
	Signature []byte
	// Elapsed is the time the signature took. The text format drops it.
	Elapsed time.Duration
}

func (r *Record) validate() error {
	if len(r.Payload) != PayloadSize {
		return fmt.Errorf("%w: payload is %d bytes", ErrInvalidRecord, len(r.Payload))
	}
	if len(r.Signature) != SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes", ErrInvalidRecord, len(r.Signature))
	}
	return nil
}

// Format is an on-disk encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "text", "txt", "":
		return FormatText, nil
	case "json", "jsonl":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("record: unknown format %q", name)
	}
}

// Writer appends records to a stream.
type Writer interface {
	Write(r Record) error
}

// Reader reads records from a stream. Read returns io.EOF after the last
// record.
type Reader interface {
	Read() (Record, error)
}

// NewWriter returns a writer for the format.
func NewWriter(w io.Writer, f Format) (Writer, error) {
	switch f {
	case FormatText:
		return NewTextWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatCBOR:
		return NewCBORWriter(w)
	default:
		return nil, fmt.Errorf("record: unknown format %d", f)
	}
}

// NewReader returns a reader for the format.
func NewReader(r io.Reader, f Format) (Reader, error) {
	switch f {
	case FormatText:
		return NewTextReader(r), nil
	case FormatJSON:
		return NewJSONReader(r), nil
	case FormatCBOR:
		return NewCBORReader(r), nil
	default:
		return nil, fmt.Errorf("record: unknown format %d", f)
	}
}

// ReadAll reads records until io.EOF.
func ReadAll(r Reader) ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
