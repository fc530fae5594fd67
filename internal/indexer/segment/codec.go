// Package segment is the on-disk contract between the indexer and the query
// engine. It writes and reads two little-endian files:
//
//	forward.idx   int32 count, then per document three length-prefixed
//	              strings (title, url, external id), each int32 len + bytes
//	inverted.idx  int64 count, then per term int64 total frequency,
//	              int32 len + term bytes, int32 doc count, doc count x int32
//
// Strings carry no terminator. Readers fail with ErrCorruptIndex on any
// short read or impossible value instead of returning a partial index.
package segment

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
)

var byteOrder = binary.LittleEndian

// Strings longer than this are streamed instead of allocated up front, so a
// corrupt length cannot trigger a huge allocation.
const directReadLimit = 64 * 1024

type encoder struct {
	w       *bufio.Writer
	scratch [8]byte
	err     error
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: bufio.NewWriterSize(w, 64*1024)}
}

func (e *encoder) int32(v int32) {
	if e.err != nil {
		return
	}
	byteOrder.PutUint32(e.scratch[:4], uint32(v))
	_, e.err = e.w.Write(e.scratch[:4])
}

func (e *encoder) int64(v int64) {
	if e.err != nil {
		return
	}
	byteOrder.PutUint64(e.scratch[:8], uint64(v))
	_, e.err = e.w.Write(e.scratch[:8])
}

func (e *encoder) string(s string) {
	if e.err != nil {
		return
	}
	if len(s) > math.MaxInt32 {
		e.err = fmt.Errorf("string of %d bytes exceeds int32 length prefix", len(s))
		return
	}
	e.int32(int32(len(s)))
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// decoder reads the primitive values of one file. Reads take a constant
// field name; the record being decoded is tracked separately via at and
// only formatted into a message when a read fails.
type decoder struct {
	r       *bufio.Reader
	scratch [8]byte
	file    string

	kind  string
	index int64
	term  string
}

func newDecoder(r io.Reader, file string) *decoder {
	return &decoder{r: bufio.NewReaderSize(r, 64*1024), file: file}
}

// at marks the start of record i of the given kind.
func (d *decoder) at(kind string, i int64) {
	d.kind, d.index, d.term = kind, i, ""
}

func (d *decoder) int32(what string) (int32, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:4]); err != nil {
		return 0, d.fail(what, err)
	}
	return int32(byteOrder.Uint32(d.scratch[:4])), nil
}

func (d *decoder) int64(what string) (int64, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:8]); err != nil {
		return 0, d.fail(what, err)
	}
	return int64(byteOrder.Uint64(d.scratch[:8])), nil
}

func (d *decoder) string(what string) (string, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:4]); err != nil {
		return "", d.fail(what+" length", err)
	}
	n := int32(byteOrder.Uint32(d.scratch[:4]))
	if n < 0 {
		return "", d.corrupt("negative %s length %d", d.describe(what), n)
	}
	if n <= directReadLimit {
		buf := make([]byte, n)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return "", d.fail(what, err)
		}
		return string(buf), nil
	}
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, d.r, int64(n))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", d.corrupt("%s truncated: want %d bytes, got %d", d.describe(what), n, copied)
		}
		return "", fmt.Errorf("reading %s from %s: %w", d.describe(what), d.file, err)
	}
	return buf.String(), nil
}

func (d *decoder) describe(what string) string {
	switch {
	case d.kind == "":
		return what
	case d.term != "":
		return fmt.Sprintf("%s of %s %d (%q)", what, d.kind, d.index, d.term)
	default:
		return fmt.Sprintf("%s of %s %d", what, d.kind, d.index)
	}
}

// expectEOF reports trailing bytes after the declared records.
func (d *decoder) expectEOF() error {
	if _, err := d.r.ReadByte(); err == nil {
		return d.corrupt("trailing data after last record")
	} else if !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading %s: %w", d.file, err)
	}
	return nil
}

func (d *decoder) fail(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return d.corrupt("unexpected end of file reading %s", d.describe(what))
	}
	return fmt.Errorf("reading %s from %s: %w", d.describe(what), d.file, err)
}

func (d *decoder) corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperrors.ErrCorruptIndex, d.file, fmt.Sprintf(format, args...))
}
