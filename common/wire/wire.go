// Package wire reads and writes the big-endian primitives shared by the
// snapshot and task history encodings. Strings are a 4-byte length followed
// by UTF-8 bytes.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) Bool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) Int32(i int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(i))
	w.buf.Write(b[:])
}

func (w *Writer) Int64(i int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(i))
	w.buf.Write(b[:])
}

// Count writes a collection size as a 4-byte int.
func (w *Writer) Count(n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("count %d too large to encode", n)
	}
	w.Int32(int32(n))
	return nil
}

func (w *Writer) String(s string) error {
	return w.Blob([]byte(s))
}

// Blob writes a 4-byte length followed by data.
func (w *Writer) Blob(data []byte) error {
	if err := w.Count(len(data)); err != nil {
		return err
	}
	w.buf.Write(data)
	return nil
}

// ShortBlob writes a 1-byte length followed by data.
func (w *Writer) ShortBlob(data []byte) error {
	if len(data) > math.MaxUint8 {
		return fmt.Errorf("%d bytes too long for a 1-byte length", len(data))
	}
	w.buf.WriteByte(byte(len(data)))
	w.buf.Write(data)
	return nil
}

// OptionalInt64 writes a not-null flag and, when set, the value.
func (w *Writer) OptionalInt64(i *int64) {
	w.Bool(i != nil)
	if i != nil {
		w.Int64(*i)
	}
}

// Reader decodes what Writer encodes. Every method returns an error
// describing what was being read when the input ran out.
type Reader struct {
	r *bytes.Reader
}

func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

func (r *Reader) Byte(what string) (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, errors.Wrapf(err, "truncated input reading %s", what)
	}
	return b, nil
}

func (r *Reader) Bool(what string) (bool, error) {
	b, err := r.Byte(what)
	return b != 0, err
}

func (r *Reader) Int32(what string) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, errors.Wrapf(err, "truncated input reading %s", what)
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func (r *Reader) Int64(what string) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, errors.Wrapf(err, "truncated input reading %s", what)
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

// Count reads a 4-byte collection size, rejecting negative values and
// sizes that can't fit in what is left of the input.
func (r *Reader) Count(what string) (int, error) {
	n, err := r.Int32(what)
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > r.r.Len() {
		return 0, fmt.Errorf("invalid %s %d with %d bytes remaining", what, n, r.r.Len())
	}
	return int(n), nil
}

func (r *Reader) String(what string) (string, error) {
	b, err := r.Blob(what)
	return string(b), err
}

func (r *Reader) Blob(what string) ([]byte, error) {
	n, err := r.Count(what + " length")
	if err != nil {
		return nil, err
	}
	return r.read(n, what)
}

func (r *Reader) ShortBlob(what string) ([]byte, error) {
	n, err := r.Byte(what + " length")
	if err != nil {
		return nil, err
	}
	return r.read(int(n), what)
}

func (r *Reader) OptionalInt64(what string) (*int64, error) {
	present, err := r.Bool(what + " flag")
	if err != nil || !present {
		return nil, err
	}
	i, err := r.Int64(what)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *Reader) read(n int, what string) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, errors.Wrapf(err, "truncated input reading %s", what)
	}
	return b, nil
}
