package leafmap

import (
	"encoding/binary"
	"fmt"
	"math"
)

// codec decodes and encodes one scalar type.
type codec struct {
	size   uintptr
	decode func(b []byte, o binary.ByteOrder) float64
	encode func(b []byte, o binary.ByteOrder, v float64)
}

// codecs is the dispatch table over the closed set of scalar types.
var codecs = [numScalarTypes]codec{
	Int8: {1,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int8(b[0])) },
		func(b []byte, o binary.ByteOrder, v float64) { b[0] = byte(int8(v)) }},
	Uint8: {1,
		func(b []byte, o binary.ByteOrder) float64 { return float64(b[0]) },
		func(b []byte, o binary.ByteOrder, v float64) { b[0] = uint8(v) }},
	Int16: {2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(int16(v))) }},
	Uint16: {2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(v)) }},
	Int32: {4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(int32(v))) }},
	Uint32: {4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(v)) }},
	Int64: {8,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int64(o.Uint64(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, uint64(int64(v))) }},
	Uint64: {8,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, uint64(v)) }},
	Float32: {4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, math.Float32bits(float32(v))) }},
	Float64: {8,
		func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, math.Float64bits(v)) }},
	Bool: {1,
		func(b []byte, o binary.ByteOrder) float64 {
			if b[0] != 0 {
				return 1
			}
			return 0
		},
		func(b []byte, o binary.ByteOrder, v float64) {
			if v != 0 {
				b[0] = 1
			} else {
				b[0] = 0
			}
		}},
}

func load(mem Memory, addr Address, t ScalarType) (float64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("invalid scalar type %v", t)
	}
	c := &codecs[t]
	b, err := mem.Bytes(addr, c.size)
	if err != nil {
		return 0, err
	}
	return c.decode(b, mem.Order()), nil
}

func store(mem Memory, addr Address, t ScalarType, v float64) error {
	if !t.Valid() {
		return fmt.Errorf("invalid scalar type %v", t)
	}
	c := &codecs[t]
	b, err := mem.Bytes(addr, c.size)
	if err != nil {
		return err
	}
	c.encode(b, mem.Order(), v)
	return nil
}

// Reader gives access to one scalar in memory. Every call goes back to
// memory, so a Reader always reflects what the owner of the memory last
// wrote. Readers do no locking of their own.
type Reader interface {
	// Read returns the current value widened to float64, or NaN if the
	// address can no longer be read.
	Read() float64
	// Value is like Read but reports why a value could not be read.
	Value() (float64, error)
	// Set narrows v to the bound type and stores it.
	Set(v float64) error
	// Type is the scalar type the reader decodes.
	Type() ScalarType
	// Addr is the address the reader is bound to.
	Addr() Address
}

type scalarReader struct {
	mem  Memory
	addr Address
	typ  ScalarType
	c    *codec
}

func (r *scalarReader) Read() float64 {
	v, err := r.Value()
	if err != nil {
		return math.NaN()
	}
	return v
}

func (r *scalarReader) Value() (float64, error) {
	b, err := r.mem.Bytes(r.addr, r.c.size)
	if err != nil {
		return 0, err
	}
	return r.c.decode(b, r.mem.Order()), nil
}

func (r *scalarReader) Set(v float64) error {
	b, err := r.mem.Bytes(r.addr, r.c.size)
	if err != nil {
		return err
	}
	r.c.encode(b, r.mem.Order(), v)
	return nil
}

func (r *scalarReader) Type() ScalarType { return r.typ }
func (r *scalarReader) Addr() Address    { return r.addr }

// Readers is the registry that turns a scalar type tag into a Reader. Build
// one with NewReaders and share it; it is read-only after construction.
type Readers struct {
	table map[ScalarType]*codec
}

// NewReaders creates a registry covering every ScalarType.
func NewReaders() *Readers {
	r := &Readers{table: make(map[ScalarType]*codec, len(ScalarTypes))}
	for _, t := range ScalarTypes {
		r.table[t] = &codecs[t]
	}
	return r
}

// New creates a Reader for the scalar of type t at addr. It returns nil if
// t is not a supported scalar type.
func (r *Readers) New(mem Memory, t ScalarType, addr Address) Reader {
	c, found := r.table[t]
	if !found {
		return nil
	}
	return &scalarReader{mem: mem, addr: addr, typ: t, c: c}
}
