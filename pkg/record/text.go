package record

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
)

// TextWriter writes the data.out format.
type TextWriter struct {
	w io.Writer
}

func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (t *TextWriter) Write(r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(t.w, "%s\n%x\n", r.Payload, r.Signature)
	return err
}

// TextReader reads the data.out format.
type TextReader struct {
	s    *bufio.Scanner
	line int
}

func NewTextReader(r io.Reader) *TextReader {
	return &TextReader{s: bufio.NewScanner(r)}
}

func (t *TextReader) next() ([]byte, bool) {
	if !t.s.Scan() {
		return nil, false
	}
	t.line++
	return t.s.Bytes(), true
}

func (t *TextReader) Read() (Record, error) {
	payload, ok := t.next()
	if !ok {
		if err := t.s.Err(); err != nil {
			return Record{}, err
		}
		return Record{}, io.EOF
	}
	rec := Record{Payload: append([]byte(nil), payload...)}

	sig, ok := t.next()
	if !ok {
		if err := t.s.Err(); err != nil {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: line %d: missing signature", ErrInvalidRecord, t.line)
	}
	b, err := hex.DecodeString(string(sig))
	if err != nil {
		return Record{}, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, t.line, err)
	}
	rec.Signature = b

	if err := rec.validate(); err != nil {
		return Record{}, fmt.Errorf("line %d: %w", t.line, err)
	}
	return rec, nil
}
