package fast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWriterReader_roundTrip verifies bytes written through the Writer come
// back from the Reader in order, and that the cursor accounting is exact.
func TestWriterReader_roundTrip(t *testing.T) {
	w := NewWriter(make([]byte, 0, 16))
	w.WriteByte(0x01)
	w.Write([]byte{0x02, 0x03, 0x04})
	w.WriteByte(0x05)

	r := NewReader(w.Bytes())
	require.Equal(t, byte(0x01), r.ReadByte())
	require.Equal(t, []byte{0x02, 0x03, 0x04}, r.Read(3))
	require.Equal(t, 4, r.Position())
	require.False(t, r.Empty())
	require.Equal(t, byte(0x05), r.ReadByte())
	require.True(t, r.Empty())
}

// TestReader_sharesMemory documents that Read returns a view into the
// underlying buffer, not a copy.
func TestReader_sharesMemory(t *testing.T) {
	buf := []byte{1, 2, 3}
	r := NewReader(buf)
	view := r.Read(2)
	view[0] = 9
	require.Equal(t, byte(9), buf[0], "Read must alias the source buffer")
}

// TestReader_panicsPastEnd pins the trusted-input contract: overreads panic
// instead of returning an error.
func TestReader_panicsPastEnd(t *testing.T) {
	r := NewReader([]byte{1})
	r.ReadByte()
	require.Panics(t, func() { r.ReadByte() })
	require.Panics(t, func() { NewReader([]byte{1}).Read(2) })
}
