package record

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type jsonRecord struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	ElapsedNS int64  `json:"elapsed_ns,omitempty"`
}

// JSONWriter writes one JSON object per line.
//
// The payload is text and is kept as a string, the signature is hex.
type JSONWriter struct {
	enc *json.Encoder
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

func (j *JSONWriter) Write(r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	return j.enc.Encode(jsonRecord{
		Payload:   string(r.Payload),
		Signature: hex.EncodeToString(r.Signature),
		ElapsedNS: r.Elapsed.Nanoseconds(),
	})
}

type JSONReader struct {
	dec *json.Decoder
}

func NewJSONReader(r io.Reader) *JSONReader {
	return &JSONReader{dec: json.NewDecoder(r)}
}

func (j *JSONReader) Read() (Record, error) {
	var jr jsonRecord
	if err := j.dec.Decode(&jr); err != nil {
		return Record{}, err
	}
	sig, err := hex.DecodeString(jr.Signature)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	rec := Record{
		Payload:   []byte(jr.Payload),
		Signature: sig,
		Elapsed:   time.Duration(jr.ElapsedNS),
	}
	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
