package leafmap

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// Address locates a byte within a Memory. What it means depends on the
// Memory: an offset for a Buffer, a process address for live memory.
type Address uintptr

// Memory is a byte-addressed view over the storage that leaves point into.
// The core never owns this storage; it only borrows views of it.
type Memory interface {
	// Bytes returns the n bytes starting at addr. The returned slice aliases
	// the underlying storage, so writes to it are visible to later reads.
	Bytes(addr Address, n uintptr) ([]byte, error)
	// Order is the byte order in which scalars are stored.
	Order() binary.ByteOrder
}

// Buffer is a growable little-endian arena. Addresses are offsets from the
// start of the arena, so they stay valid when the arena grows.
type Buffer struct {
	data []byte
}

// NewBuffer creates a zero-filled arena of the given size.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// BufferFrom creates an arena over existing bytes without copying them.
func BufferFrom(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len is the current size of the arena in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Raw returns the arena contents. The slice is invalidated by Alloc.
func (b *Buffer) Raw() []byte {
	return b.data
}

// Order implements Memory.
func (b *Buffer) Order() binary.ByteOrder {
	return binary.LittleEndian
}

// Bytes implements Memory.
func (b *Buffer) Bytes(addr Address, n uintptr) ([]byte, error) {
	end := uintptr(addr) + n
	if end < uintptr(addr) || end > uintptr(len(b.data)) {
		return nil, fmt.Errorf("%w: %d bytes at %d (buffer len=%d)", ErrOutOfRange, n, addr, len(b.data))
	}
	return b.data[addr:end:end], nil
}

// Alloc makes room for size bytes at the end of the arena, aligned to align,
// and returns the address of the new region. The region is zero-filled.
func (b *Buffer) Alloc(size, align uintptr) Address {
	next := uintptr(len(b.data))
	if align > 1 && next%align != 0 {
		next += align - (next % align)
	}
	end := next + size
	if end > uintptr(cap(b.data)) {
		grown := make([]byte, end, 2*end)
		copy(grown, b.data)
		b.data = grown
	} else {
		b.data = b.data[:end]
		clear(b.data[next:end])
	}
	return Address(next)
}

// Store narrows v to t and writes it at addr.
func (b *Buffer) Store(addr Address, t ScalarType, v float64) error {
	return store(b, addr, t, v)
}

// Load reads the scalar of type t at addr.
func (b *Buffer) Load(addr Address, t ScalarType) (float64, error) {
	return load(b, addr, t)
}

// liveMemory views the memory of the running process. It keeps a reference
// to the root object so that the garbage collector does not reclaim it while
// leaves point into it.
type liveMemory struct {
	root interface{}
}

func (m *liveMemory) Order() binary.ByteOrder {
	return binary.NativeEndian
}

func (m *liveMemory) Bytes(addr Address, n uintptr) ([]byte, error) {
	if addr == 0 {
		return nil, fmt.Errorf("%w: nil address", ErrOutOfRange)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n), nil
}
