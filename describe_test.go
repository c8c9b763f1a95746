package leafmap

import (
	"reflect"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calib struct {
	Gain   int8
	Offset [3]int16
}

type detector struct {
	ID      int32
	Energy  float64 `leaf:"e"`
	Grid    [2][2]uint16
	Samples []float32
	Label   string
	Scratch int64 `leaf:"-"`
	Calib   calib
	OK      bool
}

func TestDescribeGo(t *testing.T) {
	cat := NewCatalog()
	name, err := DescribeGo(cat, reflect.TypeOf(detector{}))
	require.NoError(t, err)
	assert.Equal(t, "leafmap.detector", name)
	assert.Equal(t, []string{"leafmap.calib", "leafmap.detector"}, cat.Names())

	td, found := cat.Type(name)
	require.True(t, found)
	assert.EqualValues(t, reflect.TypeOf(detector{}).Size(), td.Size)

	e, found := td.Member("e")
	require.True(t, found)
	assert.Equal(t, Scalar, e.Category)
	assert.Equal(t, Float64, e.Scalar)

	grid, _ := td.Member("Grid")
	assert.Equal(t, []int{2, 2}, grid.Dims)
	assert.EqualValues(t, 2, grid.UnitSize)

	samples, _ := td.Member("Samples")
	assert.Equal(t, Container, samples.Category)
	assert.Equal(t, "[]float32", samples.TypeName)
	_, found = cat.Containers.Lookup("[]float32")
	assert.True(t, found)

	scratch, _ := td.Member("Scratch")
	assert.False(t, scratch.Mapped())

	c, _ := td.Member("Calib")
	assert.Equal(t, Composite, c.Category)
	assert.Equal(t, "leafmap.calib", c.TypeName)
}

func TestDescribeGo_Repeat(t *testing.T) {
	cat := NewCatalog()
	_, err := DescribeGo(cat, reflect.TypeOf(detector{}))
	require.NoError(t, err)
	_, err = DescribeGo(cat, reflect.TypeOf(detector{}))
	require.NoError(t, err)
}

func TestDescribeGo_NotStruct(t *testing.T) {
	_, err := DescribeGo(NewCatalog(), reflect.TypeOf(3))
	assert.Error(t, err)
}

func TestDescriptorEqual(t *testing.T) {
	a := describeGo(reflect.TypeOf(detector{}))
	b := describeGo(reflect.TypeOf(detector{}))
	c := describeGo(reflect.TypeOf(calib{}))
	assert.True(t, a.types[0].Equal(&b.types[0]))
	assert.False(t, a.types[0].Equal(&c.types[0]))

	moved := a.types[0]
	moved.Members = append([]MemberDescriptor(nil), moved.Members...)
	moved.Members[1].Offset++
	assert.False(t, a.types[0].Equal(&moved))
}

func TestBind(t *testing.T) {
	cat := NewCatalog()
	d := &detector{
		ID:      7,
		Energy:  1.5,
		Samples: []float32{0.25, 0.5},
		Label:   "front",
		Calib:   calib{Gain: -3, Offset: [3]int16{10, 20, 30}},
		OK:      true,
	}
	d.Grid[1][0] = 42

	b, err := Bind(cat, d)
	require.NoError(t, err)
	m := NewMapper(cat)
	m.Log, _ = logtest.NewNullLogger()

	res, err := b.Map(m, "det")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"det.ID",
		"det.e",
		"det.Grid[0][0]", "det.Grid[0][1]", "det.Grid[1][0]", "det.Grid[1][1]",
		"det.Samples[0]", "det.Samples[1]",
		"det.Calib.Gain",
		"det.Calib.Offset[0]", "det.Calib.Offset[1]", "det.Calib.Offset[2]",
		"det.OK",
	}, leafNames(res.Leaves))

	require.Len(t, res.Skipped, 1)
	var typeErr *UnsupportedTypeError
	require.ErrorAs(t, res.Skipped[0], &typeErr)
	assert.Equal(t, "det.Label", typeErr.Member)

	tab, err := NewTable(b.Mem, nil, res)
	require.NoError(t, err)
	get := func(name string) float64 {
		v, found := tab.Get(name)
		require.True(t, found, name)
		return v
	}
	assert.Equal(t, 7.0, get("det.ID"))
	assert.Equal(t, 1.5, get("det.e"))
	assert.Equal(t, 42.0, get("det.Grid[1][0]"))
	assert.Equal(t, 0.5, get("det.Samples[1]"))
	assert.Equal(t, -3.0, get("det.Calib.Gain"))
	assert.Equal(t, 30.0, get("det.Calib.Offset[2]"))
	assert.Equal(t, 1.0, get("det.OK"))

	d.Energy = -8
	assert.Equal(t, -8.0, get("det.e"))

	require.NoError(t, tab.Set("det.Calib.Offset[1]", 21.9))
	assert.EqualValues(t, 21, d.Calib.Offset[1])
}

func TestBind_SliceGrowth(t *testing.T) {
	cat := NewCatalog()
	d := &detector{Samples: []float32{1}}
	b, err := Bind(cat, d)
	require.NoError(t, err)
	m := NewMapper(cat)
	m.Log, _ = logtest.NewNullLogger()

	res, err := b.Map(m, "")
	require.NoError(t, err)
	assert.Contains(t, leafNames(res.Leaves), "Samples[0]")
	assert.NotContains(t, leafNames(res.Leaves), "Samples[2]")

	d.Samples = append(d.Samples, 2, 3)
	res, err = b.Map(m, "")
	require.NoError(t, err)
	assert.Contains(t, leafNames(res.Leaves), "Samples[2]")

	leaf, err := m.Resolve(b.Mem, mustType(t, cat, b.TypeName), b.Addr, "Samples[2]")
	require.NoError(t, err)
	v, err := NewReaders().New(b.Mem, leaf.Type, leaf.Addr).Value()
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestBind_Errors(t *testing.T) {
	cat := NewCatalog()
	_, err := Bind(cat, detector{})
	assert.Error(t, err)

	var d *detector
	_, err = Bind(cat, d)
	assert.Error(t, err)
}

func mustType(t *testing.T, p Provider, name string) *TypeDescriptor {
	td, found := p.Type(name)
	require.True(t, found, name)
	return td
}

func TestDescribeGo_NameCollision(t *testing.T) {
	cat := NewCatalog()
	{
		type local struct{ A int32 }
		_, err := DescribeGo(cat, reflect.TypeOf(local{}))
		require.NoError(t, err)
	}
	{
		type local struct{ B int64 }
		_, err := DescribeGo(cat, reflect.TypeOf(local{}))
		assert.ErrorIs(t, err, ErrConflictingType)
	}
}

func TestSliceSupport(t *testing.T) {
	s := []int16{4, -5, 6}
	mem := &liveMemory{root: &s}
	addr := Address(reflect.ValueOf(&s).Pointer())
	support := SliceSupport(Int16)

	n, err := support.Length(mem, addr)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	elem, err := support.Element(mem, addr, 1)
	require.NoError(t, err)
	v, err := load(mem, elem, Int16)
	require.NoError(t, err)
	assert.Equal(t, -5.0, v)

	_, err = support.Element(mem, addr, 3)
	var idxErr *IndexError
	assert.ErrorAs(t, err, &idxErr)
}
