package record

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

type cborRecord struct {
	Payload   []byte `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"`
	ElapsedNS int64  `cbor:"3,keyasint,omitempty"`
}

// CBORWriter writes a sequence of deterministically encoded CBOR maps.
type CBORWriter struct {
	enc *cbor.Encoder
}

func NewCBORWriter(w io.Writer) (*CBORWriter, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return &CBORWriter{enc: em.NewEncoder(w)}, nil
}

func (c *CBORWriter) Write(r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	return c.enc.Encode(cborRecord{
		Payload:   r.Payload,
		Signature: r.Signature,
		ElapsedNS: r.Elapsed.Nanoseconds(),
	})
}

type CBORReader struct {
	dec *cbor.Decoder
}

func NewCBORReader(r io.Reader) *CBORReader {
	return &CBORReader{dec: cbor.NewDecoder(r)}
}

func (c *CBORReader) Read() (Record, error) {
	var cr cborRecord
	if err := c.dec.Decode(&cr); err != nil {
		return Record{}, err
	}
	rec := Record{
		Payload:   cr.Payload,
		Signature: cr.Signature,
		Elapsed:   time.Duration(cr.ElapsedNS),
	}
	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
