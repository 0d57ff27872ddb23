package binfmt

import (
	"encoding/binary"
	"math"
)

// Writer accumulates little-endian encoded bytes. It is the encode-side
// counterpart to Reader, used by the loader's tests to build well-formed
// executable images without hand-assembling byte slices.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteRaw appends b verbatim.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteU8 appends one byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteI8 appends one signed byte.
func (w *Writer) WriteI8(v int8) {
	w.WriteU8(uint8(v))
}

// WriteU16LE appends a little-endian 16-bit unsigned integer.
func (w *Writer) WriteU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU64LE appends a little-endian 64-bit unsigned integer.
func (w *Writer) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI64LE appends a little-endian 64-bit signed integer.
func (w *Writer) WriteI64LE(v int64) {
	w.WriteU64LE(uint64(v))
}

// WriteF64LE appends a little-endian IEEE-754 double.
func (w *Writer) WriteF64LE(v float64) {
	w.WriteU64LE(math.Float64bits(v))
}

// WriteCString appends s followed by a single 0x00 terminator.
func (w *Writer) WriteCString(s string) {
	w.buf = append(w.buf, []byte(s)...)
	w.buf = append(w.buf, 0)
}
