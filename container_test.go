package leafmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerValues(t *testing.T, buf *Buffer, s ContainerSupport, hdr Address) []float64 {
	n, err := s.Length(buf, hdr)
	require.NoError(t, err)
	var out []float64
	for i := 0; i < n; i++ {
		addr, err := s.Element(buf, hdr, i)
		require.NoError(t, err)
		v, err := buf.Load(addr, s.Elem)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestSequence_AppendGrows(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewSequence(buf, Int16, 1)
	for _, v := range []float64{3, -1, 4, 1, 5, 9} {
		require.NoError(t, Append(buf, hdr, Int16, v))
	}
	assert.Equal(t, []float64{3, -1, 4, 1, 5, 9}, containerValues(t, buf, SequenceSupport(Int16), hdr))
}

func TestSequence_ElementOutOfRange(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewSequence(buf, Int16, 4)
	require.NoError(t, Append(buf, hdr, Int16, 1))

	_, err := SequenceSupport(Int16).Element(buf, hdr, 1)
	var idxErr *IndexError
	assert.ErrorAs(t, err, &idxErr)
}

func TestSet_Insert(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewSequence(buf, Uint32, 0)
	for _, v := range []float64{5, 1, 3, 1, 5} {
		_, err := Insert(buf, hdr, Uint32, v, true)
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{1, 3, 5}, containerValues(t, buf, SequenceSupport(Uint32), hdr))

	added, err := Insert(buf, hdr, Uint32, 3, true)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestMultiset_Insert(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewSequence(buf, Float64, 0)
	for _, v := range []float64{2.5, -1, 2.5, 0} {
		added, err := Insert(buf, hdr, Float64, v, false)
		require.NoError(t, err)
		assert.True(t, added)
	}
	assert.Equal(t, []float64{-1, 0, 2.5, 2.5}, containerValues(t, buf, SequenceSupport(Float64), hdr))
}

func TestDeque_PushBothEnds(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewDeque(buf, Int32, 2)
	require.NoError(t, PushBack(buf, hdr, Int32, 1))
	require.NoError(t, PushFront(buf, hdr, Int32, 0))
	require.NoError(t, PushBack(buf, hdr, Int32, 2)) // grows
	require.NoError(t, PushFront(buf, hdr, Int32, -1))
	require.NoError(t, PushBack(buf, hdr, Int32, 3))

	assert.Equal(t, []float64{-1, 0, 1, 2, 3}, containerValues(t, buf, DequeSupport(Int32), hdr))
}

func TestContainerElem(t *testing.T) {
	cases := map[string]ScalarType{
		"vector<int>":                       Int32,
		"std::set<unsigned short>":          Uint16,
		"vector<double,allocator<double> >": Float64,
		"deque<uint8>":                      Uint8,
		"[]float32":                         Float32,
		"multiset<long long>":               Int64,
	}
	for name, want := range cases {
		got, ok := ContainerElem(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"vector", "[]string", "list<Hit>", "vector<std::string>"} {
		_, ok := ContainerElem(name)
		assert.False(t, ok, name)
	}
}

func TestContainerTable_Register(t *testing.T) {
	tab := NewContainerTable()
	_, found := tab.Lookup("vector<int32>")
	assert.False(t, found)

	require.NoError(t, RegisterBufferContainers(tab))
	s, found := tab.Lookup("vector<int32>")
	require.True(t, found)
	assert.Equal(t, Int32, s.Elem)
	assert.Equal(t, SequenceSize, s.Size)

	s, found = tab.Lookup("std::vector<unsigned int, std::allocator<unsigned int> >")
	require.True(t, found)
	assert.Equal(t, Uint32, s.Elem)

	_, found = tab.Lookup("list<int>")
	assert.False(t, found)

	s, found = tab.Lookup("deque<bool>")
	require.True(t, found)
	assert.Equal(t, DequeSize, s.Size)

	assert.Error(t, tab.Register("broken", ContainerSupport{Elem: Int8}))
}

func TestDeque_CorruptHeader(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewDeque(buf, Int32, 2)
	require.NoError(t, PushBack(buf, hdr, Int32, 1))
	support := DequeSupport(Int32)

	// length larger than capacity
	require.NoError(t, writeU32(buf, hdr+4, 3))
	_, err := support.Length(buf, hdr)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = support.Element(buf, hdr, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	// ring outside the buffer
	require.NoError(t, writeU32(buf, hdr+4, 1))
	require.NoError(t, writeU32(buf, hdr+8, 1<<20))
	_, err = support.Length(buf, hdr)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSequence_ElementOutsideBuffer(t *testing.T) {
	buf := NewBuffer(0)
	hdr := NewSequence(buf, Int64, 1)
	require.NoError(t, Append(buf, hdr, Int64, 5))
	require.NoError(t, writeU64(buf, hdr+8, Address(buf.Len())))

	_, err := SequenceSupport(Int64).Element(buf, hdr, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
