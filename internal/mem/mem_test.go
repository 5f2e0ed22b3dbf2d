package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStore_Unaligned(t *testing.T) {
	buf := make([]byte, 32)
	base := SlicePtr(buf)

	Store(Add(base, 1), float32(5.5))
	Store(Add(base, 5), int64(-42))
	Store(Add(base, 13), [3]float32{1, 2, 3})

	assert.Equal(t, float32(5.5), Load[float32](Add(base, 1)))
	assert.Equal(t, int64(-42), Load[int64](Add(base, 5)))
	assert.Equal(t, [3]float32{1, 2, 3}, Load[[3]float32](Add(base, 13)))
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, 4, SizeOf[float32]())
	assert.Equal(t, 8, SizeOf[int64]())
	assert.Equal(t, 1, SizeOf[bool]())
	assert.Equal(t, 12, SizeOf[[3]float32]())
}

func TestSlicePtr_Empty(t *testing.T) {
	assert.Nil(t, SlicePtr([]byte(nil)))
	assert.Nil(t, SlicePtr([]uint32{}))
}

func TestClear(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Clear(Add(SlicePtr(buf), 1), 2)
	require.Len(t, buf, 4)
	assert.Equal(t, []byte{1, 0, 0, 4}, buf)
}
