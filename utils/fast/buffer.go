// Package fast provides minimal byte-buffer helpers for linear
// serialization: a Writer that appends to a slice and a Reader that walks
// an offset. Neither performs bounds checking; reading past the end panics.
// They are intended for internal, trusted encoding paths only.
package fast

// Reader consumes a byte slice front to back.
type Reader struct {
	buf    []byte
	offset int
}

// Writer accumulates bytes by appending to a slice.
type Writer struct {
	buf []byte
}

// NewReader creates a Reader over bb.
func NewReader(bb []byte) *Reader {
	return &Reader{
		buf:    bb,
		offset: 0,
	}
}

// NewWriter creates a Writer appending to bb. Callers usually pass
// make([]byte, 0, capacity) to pre-size the buffer.
func NewWriter(bb []byte) *Writer {
	return &Writer{
		buf: bb,
	}
}

// WriteByte appends one byte.
func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

// Write appends a slice of bytes.
func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Read consumes and returns the next n bytes. The returned slice aliases
// the underlying buffer. Panics if fewer than n bytes remain.
func (b *Reader) Read(n int) []byte {
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

// ReadByte consumes and returns one byte. Panics if the buffer is empty.
func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position returns the number of bytes consumed so far.
func (b *Reader) Position() int {
	return b.offset
}

// Bytes returns the whole underlying buffer.
func (b *Reader) Bytes() []byte {
	return b.buf
}

// Bytes returns the accumulated content.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Empty reports whether the Reader has consumed the entire buffer.
func (b *Reader) Empty() bool {
	return len(b.buf) == b.offset
}
