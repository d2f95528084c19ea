package bits

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteRead_acrossByteBoundaries verifies that values written with odd
// bit widths survive a round trip even when they straddle byte boundaries.
func TestWriteRead_acrossByteBoundaries(t *testing.T) {
	r := rand.New(rand.NewSource(0))

	arr := &Array{}
	w := NewWriter(arr)

	widths := []int{1, 3, 7, 8, 11, 16, 23, 32}
	values := make([]uint, len(widths))
	for i, width := range widths {
		values[i] = uint(r.Int63()) & ((1 << uint(width)) - 1)
		w.Write(width, values[i])
	}

	rd := NewReader(arr)
	for i, width := range widths {
		got := rd.Read(width)
		assert.Equal(t, values[i], got, "width %d at index %d", width, i)
	}
}

// TestRead_zeroWidth verifies a zero-bit read is a no-op returning zero.
func TestRead_zeroWidth(t *testing.T) {
	arr := &Array{}
	w := NewWriter(arr)
	w.Write(5, 0b10110)

	r := NewReader(arr)
	require.Equal(t, uint(0), r.Read(0))
	require.Equal(t, uint(0b10110), r.Read(5))
}

// TestView_doesNotAdvance verifies View peeks without consuming.
func TestView_doesNotAdvance(t *testing.T) {
	arr := &Array{}
	w := NewWriter(arr)
	w.Write(12, 0xABC)

	r := NewReader(arr)
	require.Equal(t, uint(0xABC), r.View(12))
	require.Equal(t, uint(0xABC), r.Read(12), "View must not move the cursor")
}

// TestNonReadBits_accounting verifies the remaining-bits bookkeeping used by
// the canonical-encoding checks in the cser package.
func TestNonReadBits_accounting(t *testing.T) {
	arr := &Array{}
	w := NewWriter(arr)
	w.Write(10, 0x3FF)

	r := NewReader(arr)
	require.Equal(t, 2, r.NonReadBytes())
	require.Equal(t, 16, r.NonReadBits())

	r.Read(3)
	require.Equal(t, 13, r.NonReadBits())

	r.Read(7)
	require.Equal(t, 1, r.NonReadBytes())
	require.Equal(t, 6, r.NonReadBits())
}
