// Package bits implements an unaligned bit-stream reader and writer.
//
// The compact serialization format (see utils/cser) splits every value into
// two streams: small side-channel integers and flags go into a bit stream,
// raw bytes go into a byte stream. This package is the bit-stream half.
// Bits are filled from the least significant position of each byte upward,
// so a value written with Write(n, v) is read back with Read(n).
package bits

type (
	// Array is the backing byte slice of a bit stream.
	Array struct {
		Bytes []byte
	}

	// Writer appends bits to an Array. bitOffset is the index of the next
	// free bit inside the last byte of the array (0 means a fresh byte is
	// allocated on the next write).
	Writer struct {
		*Array
		bitOffset int
	}

	// Reader consumes bits from an Array, tracking both the current byte
	// and the bit position inside it.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

// NewWriter creates a bit-stream writer appending to arr.
func NewWriter(arr *Array) *Writer {
	return &Writer{
		Array: arr,
	}
}

// NewReader creates a bit-stream reader consuming arr from the beginning.
func NewReader(arr *Array) *Reader {
	return &Reader{
		Array: arr,
	}
}

func (a *Writer) byteBitsFree() int {
	return 8 - a.bitOffset
}

// writeIntoLastByte ORs the low bits of v into the free region of the
// current byte.
func (a *Writer) writeIntoLastByte(v uint) {
	a.Bytes[len(a.Bytes)-1] |= byte(v << a.bitOffset)
}

// zeroTopByteBits masks v so that only the bits fitting into the remaining
// space of one byte survive.
func zeroTopByteBits(v uint, bits int) uint {
	mask := uint(0xff) >> bits
	return v & mask
}

// Write appends the lowest 'bits' bits of v to the stream.
func (a *Writer) Write(bits int, v uint) {
	if a.bitOffset == 0 {
		a.Bytes = append(a.Bytes, byte(0))
	}

	free := a.byteBitsFree()

	if bits <= free {
		toWrite := bits
		a.writeIntoLastByte(v)
		if toWrite == free {
			a.bitOffset = 0
		} else {
			a.bitOffset += toWrite
		}
	} else {
		// Spills into the next byte: fill the current byte, recurse for
		// the remainder.
		toWrite := free
		clear := a.bitOffset
		a.writeIntoLastByte(zeroTopByteBits(v, clear))
		a.bitOffset = 0
		a.Write(bits-toWrite, v>>toWrite)
	}
}

func (a *Reader) byteBitsFree() int {
	return 8 - a.bitOffset
}

// Read consumes 'bits' bits and returns them as an integer. Panics with a
// slice bounds error if the stream is exhausted, consistent with the
// trusted-input contract of the cser package.
func (a *Reader) Read(bits int) (v uint) {
	if bits == 0 {
		return 0
	}

	free := a.byteBitsFree()

	if bits <= free {
		toRead := bits
		clear := 8 - (a.bitOffset + toRead)
		v = zeroTopByteBits(uint(a.Bytes[a.byteOffset]), clear) >> a.bitOffset
		if toRead == free {
			a.bitOffset = 0
			a.byteOffset++
		} else {
			a.bitOffset += toRead
		}
	} else {
		// Spans two bytes: take the rest of this byte, recurse, and splice
		// the high part above the low part.
		toRead := free
		v = uint(a.Bytes[a.byteOffset]) >> a.bitOffset
		a.bitOffset = 0
		a.byteOffset++
		rest := a.Read(bits - toRead)
		v |= rest << toRead
	}
	return
}

// View reads 'bits' bits without advancing the cursor.
func (a *Reader) View(bits int) (v uint) {
	cp := *a
	return (&cp).Read(bits)
}

// NonReadBytes returns the number of not-fully-consumed bytes left.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits returns the number of unread bits left in the stream.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
