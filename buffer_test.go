package leafmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Alignment(t *testing.T) {
	buf := NewBuffer(0)
	a := buf.Alloc(1, 1)
	b := buf.Alloc(8, 8)
	c := buf.Alloc(2, 2)
	d := buf.Alloc(4, 4)

	assert.EqualValues(t, 0, a)
	assert.EqualValues(t, 8, b)
	assert.EqualValues(t, 16, c)
	assert.EqualValues(t, 20, d)
	assert.Equal(t, 24, buf.Len())
}

func TestBuffer_GrowKeepsContents(t *testing.T) {
	buf := NewBuffer(0)
	addr := buf.Alloc(8, 8)
	require.NoError(t, buf.Store(addr, Int64, 123456789))

	for i := 0; i < 100; i++ {
		buf.Alloc(64, 8)
	}

	v, err := buf.Load(addr, Int64)
	require.NoError(t, err)
	assert.Equal(t, 123456789.0, v)
}

func TestBuffer_OutOfRange(t *testing.T) {
	buf := NewBuffer(4)
	_, err := buf.Bytes(2, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = buf.Bytes(Address(^uintptr(0)), 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	b, err := buf.Bytes(0, 4)
	require.NoError(t, err)
	assert.Len(t, b, 4)
}

func TestBuffer_LittleEndian(t *testing.T) {
	buf := NewBuffer(0)
	addr := buf.Alloc(4, 4)
	require.NoError(t, buf.Store(addr, Uint32, 0x01020304))
	assert.Equal(t, []byte{4, 3, 2, 1}, buf.Raw()[addr:addr+4])
}
