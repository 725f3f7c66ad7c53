package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Encoder writes envelopes as newline-delimited JSON, flushing after each
// line when the writer supports it.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder creates an NDJSON encoder on w.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// Send writes one envelope line.
func (e *Encoder) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", env.Type, err)
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// MaxLineBytes bounds a single decoded line.
const MaxLineBytes = 4 << 20

// Decoder reads an NDJSON envelope stream. Lines that are blank, malformed,
// longer than MaxLineBytes, or carry an unknown version are skipped.
type Decoder struct {
	r       *bufio.Reader
	maxLine int
	skipped int
	ended   bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024), maxLine: MaxLineBytes}
}

// Next returns the next envelope. It returns io.EOF after the end sentinel
// or when the input is exhausted.
func (d *Decoder) Next() (Envelope, error) {
	if d.ended {
		return Envelope{}, io.EOF
	}
	for {
		line, tooLong, err := d.readLine()
		if errors.Is(err, io.EOF) {
			return Envelope{}, io.EOF
		}
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to read stream: %w", err)
		}
		if tooLong {
			d.skipped++
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil || env.V != Version || env.Type == "" {
			d.skipped++
			continue
		}
		if env.Type == TypeEnd {
			d.ended = true
			return Envelope{}, io.EOF
		}
		return env, nil
	}
}

// readLine returns the next line. A line over maxLine is consumed up to its
// newline and reported as tooLong without its content.
func (d *Decoder) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := d.r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > d.maxLine+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(readErr, bufio.ErrBufferFull):
			continue
		case errors.Is(readErr, io.EOF):
			if len(line) > 0 || tooLong {
				return line, tooLong, nil
			}
			return nil, false, io.EOF
		case readErr != nil:
			return nil, false, readErr
		}
		return line, tooLong, nil
	}
}

// Skipped returns how many lines were discarded as malformed.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Ended reports whether the end sentinel was seen.
func (d *Decoder) Ended() bool {
	return d.ended
}
