package leafmap

import (
	"fmt"
	"strings"
	"sync"
)

// ContainerSupport teaches the mapper how to enumerate one container type.
type ContainerSupport struct {
	// Size is the size of one container instance, used to step through
	// arrays of containers.
	Size uintptr
	// Elem is the scalar type of the elements.
	Elem ScalarType
	// Length returns the number of elements currently held by the container
	// at addr.
	Length func(mem Memory, addr Address) (int, error)
	// Element returns the address of element i of the container at addr.
	Element func(mem Memory, addr Address, i int) (Address, error)
}

// ContainerTable maps container type names to their support functions. It
// starts out empty: every supported container type must be registered.
type ContainerTable struct {
	mu    sync.RWMutex
	kinds map[string]ContainerSupport
}

// NewContainerTable creates an empty table.
func NewContainerTable() *ContainerTable {
	return &ContainerTable{kinds: make(map[string]ContainerSupport)}
}

// Register adds support for the named container type, replacing any
// previous registration.
func (t *ContainerTable) Register(name string, s ContainerSupport) error {
	if s.Length == nil || s.Element == nil {
		return fmt.Errorf("container %s: Length and Element must both be set", name)
	}
	if !s.Elem.Valid() {
		return fmt.Errorf("container %s: invalid element type %v", name, s.Elem)
	}
	t.mu.Lock()
	t.kinds[name] = s
	t.mu.Unlock()
	return nil
}

// Lookup gets the support functions for the named container type. Names
// that are not registered as spelled are retried in canonical form, so that
// "std::vector<unsigned int>" finds "vector<uint32>".
func (t *ContainerTable) Lookup(name string) (ContainerSupport, bool) {
	if t == nil {
		return ContainerSupport{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, found := t.kinds[name]; found {
		return s, true
	}
	if canon, ok := canonicalContainer(name); ok {
		s, found := t.kinds[canon]
		return s, found
	}
	return ContainerSupport{}, false
}

// canonicalContainer rewrites a templated container name to the spelling
// used by RegisterBufferContainers.
func canonicalContainer(name string) (string, bool) {
	open := strings.IndexByte(name, '<')
	if open < 0 {
		return "", false
	}
	elem, ok := ContainerElem(name)
	if !ok {
		return "", false
	}
	kind := strings.TrimPrefix(strings.TrimSpace(name[:open]), "std::")
	return kind + "<" + elem.String() + ">", true
}

// ContainerElem extracts the element type from a container type name such
// as "vector<int>", "std::set<unsigned short>" or "[]float64".
func ContainerElem(name string) (ScalarType, bool) {
	if strings.HasPrefix(name, "[]") {
		return ParseScalarType(name[2:])
	}
	open := strings.IndexByte(name, '<')
	if open < 0 || !strings.HasSuffix(name, ">") {
		return 0, false
	}
	elem := name[open+1 : len(name)-1]
	// drop an allocator argument, as in vector<int,allocator<int> >
	if comma := strings.IndexByte(elem, ','); comma >= 0 {
		elem = elem[:comma]
	}
	return ParseScalarType(elem)
}

// Buffer container layouts. All fields are little-endian.
//
//	sequence (vector, set, multiset), 16 bytes:
//	  0: uint32 len   4: uint32 cap   8: uint64 data
//	deque (ring buffer), 24 bytes:
//	  0: uint32 head  4: uint32 len   8: uint32 cap   16: uint64 data
const (
	SequenceSize uintptr = 16
	DequeSize    uintptr = 24
)

func readU32(mem Memory, addr Address) (int, error) {
	b, err := mem.Bytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return int(mem.Order().Uint32(b)), nil
}

func readU64(mem Memory, addr Address) (Address, error) {
	b, err := mem.Bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return Address(mem.Order().Uint64(b)), nil
}

func writeU32(mem Memory, addr Address, v int) error {
	b, err := mem.Bytes(addr, 4)
	if err != nil {
		return err
	}
	mem.Order().PutUint32(b, uint32(v))
	return nil
}

func writeU64(mem Memory, addr Address, v Address) error {
	b, err := mem.Bytes(addr, 8)
	if err != nil {
		return err
	}
	mem.Order().PutUint64(b, uint64(v))
	return nil
}

// SequenceSupport describes a contiguous sequence of elem values laid out as
// created by NewSequence.
func SequenceSupport(elem ScalarType) ContainerSupport {
	size := elem.Size()
	return ContainerSupport{
		Size: SequenceSize,
		Elem: elem,
		Length: func(mem Memory, addr Address) (int, error) {
			n, err := readU32(mem, addr)
			if err != nil {
				return 0, err
			}
			if err := checkSequence(mem, addr, n, size); err != nil {
				return 0, err
			}
			return n, nil
		},
		Element: func(mem Memory, addr Address, i int) (Address, error) {
			n, err := readU32(mem, addr)
			if err != nil {
				return 0, err
			}
			if i < 0 || i >= n {
				return 0, &IndexError{Index: i, Len: n}
			}
			data, err := readU64(mem, addr+8)
			if err != nil {
				return 0, err
			}
			elem := data + Address(uintptr(i)*size)
			if _, err := mem.Bytes(elem, size); err != nil {
				return 0, err
			}
			return elem, nil
		},
	}
}

// checkSequence verifies that the header at addr describes n elements that
// all lie within mem.
func checkSequence(mem Memory, addr Address, n int, size uintptr) error {
	capacity, err := readU32(mem, addr+4)
	if err != nil {
		return err
	}
	if n > capacity {
		return fmt.Errorf("%w: sequence length %d exceeds capacity %d", ErrOutOfRange, n, capacity)
	}
	if n == 0 {
		return nil
	}
	data, err := readU64(mem, addr+8)
	if err != nil {
		return err
	}
	_, err = mem.Bytes(data, uintptr(n)*size)
	return err
}

// checkDeque verifies that the ring described by the header at addr lies
// within mem and holds at most its capacity.
func checkDeque(mem Memory, addr Address, size uintptr) (n int, err error) {
	head, err := readU32(mem, addr)
	if err != nil {
		return 0, err
	}
	if n, err = readU32(mem, addr+4); err != nil {
		return 0, err
	}
	capacity, err := readU32(mem, addr+8)
	if err != nil {
		return 0, err
	}
	if n > capacity || (capacity > 0 && head >= capacity) {
		return 0, fmt.Errorf("%w: deque head %d length %d capacity %d", ErrOutOfRange, head, n, capacity)
	}
	if n == 0 {
		return 0, nil
	}
	data, err := readU64(mem, addr+16)
	if err != nil {
		return 0, err
	}
	if _, err := mem.Bytes(data, uintptr(capacity)*size); err != nil {
		return 0, err
	}
	return n, nil
}

// DequeSupport describes a ring buffer of elem values laid out as created
// by NewDeque.
func DequeSupport(elem ScalarType) ContainerSupport {
	size := elem.Size()
	return ContainerSupport{
		Size: DequeSize,
		Elem: elem,
		Length: func(mem Memory, addr Address) (int, error) {
			return checkDeque(mem, addr, size)
		},
		Element: func(mem Memory, addr Address, i int) (Address, error) {
			head, err := readU32(mem, addr)
			if err != nil {
				return 0, err
			}
			n, err := readU32(mem, addr+4)
			if err != nil {
				return 0, err
			}
			if i < 0 || i >= n {
				return 0, &IndexError{Index: i, Len: n}
			}
			capacity, err := readU32(mem, addr+8)
			if err != nil {
				return 0, err
			}
			if capacity < n {
				return 0, fmt.Errorf("%w: deque length %d exceeds capacity %d", ErrOutOfRange, n, capacity)
			}
			data, err := readU64(mem, addr+16)
			if err != nil {
				return 0, err
			}
			elem := data + Address(uintptr((head+i)%capacity)*size)
			if _, err := mem.Bytes(elem, size); err != nil {
				return 0, err
			}
			return elem, nil
		},
	}
}

// RegisterBufferContainers registers vector<T>, set<T>, multiset<T> and
// deque<T> for every scalar type T, using the Buffer layouts.
func RegisterBufferContainers(t *ContainerTable) error {
	for _, elem := range ScalarTypes {
		seq := SequenceSupport(elem)
		for _, kind := range []string{"vector", "set", "multiset"} {
			if err := t.Register(kind+"<"+elem.String()+">", seq); err != nil {
				return err
			}
		}
		if err := t.Register("deque<"+elem.String()+">", DequeSupport(elem)); err != nil {
			return err
		}
	}
	return nil
}

// NewSequence allocates an empty sequence in b with room for capacity
// elements, and returns the address of its header.
func NewSequence(b *Buffer, elem ScalarType, capacity int) Address {
	hdr := b.Alloc(SequenceSize, 8)
	_ = InitSequence(b, hdr, elem, capacity) // hdr was just allocated
	return hdr
}

// InitSequence writes an empty sequence header at hdr, such as the address of
// a container member, with room for capacity elements.
func InitSequence(b *Buffer, hdr Address, elem ScalarType, capacity int) error {
	var data Address
	if capacity > 0 {
		data = b.Alloc(uintptr(capacity)*elem.Size(), elem.Size())
	}
	if err := writeU32(b, hdr, 0); err != nil {
		return err
	}
	if err := writeU32(b, hdr+4, capacity); err != nil {
		return err
	}
	return writeU64(b, hdr+8, data)
}

// growSequence makes sure the sequence at hdr has room for one more element.
// Existing elements move only if the capacity is exhausted.
func growSequence(b *Buffer, hdr Address, elem ScalarType) (n int, data Address, err error) {
	if n, err = readU32(b, hdr); err != nil {
		return
	}
	capacity, err := readU32(b, hdr+4)
	if err != nil {
		return
	}
	if data, err = readU64(b, hdr+8); err != nil {
		return
	}
	if n < capacity {
		return
	}

	size := elem.Size()
	newcap := 2 * capacity
	if newcap < 4 {
		newcap = 4
	}
	newdata := b.Alloc(uintptr(newcap)*size, size)
	if n > 0 {
		old, err := b.Bytes(data, uintptr(n)*size)
		if err != nil {
			return 0, 0, err
		}
		dst, err := b.Bytes(newdata, uintptr(n)*size)
		if err != nil {
			return 0, 0, err
		}
		copy(dst, old)
	}
	if err = writeU32(b, hdr+4, newcap); err != nil {
		return
	}
	if err = writeU64(b, hdr+8, newdata); err != nil {
		return
	}
	return n, newdata, nil
}

// Append adds v at the end of the sequence at hdr.
func Append(b *Buffer, hdr Address, elem ScalarType, v float64) error {
	n, data, err := growSequence(b, hdr, elem)
	if err != nil {
		return err
	}
	if err := b.Store(data+Address(uintptr(n)*elem.Size()), elem, v); err != nil {
		return err
	}
	return writeU32(b, hdr, n+1)
}

// Insert adds v to the sorted sequence at hdr, keeping it sorted. If unique
// is set and v is already present, nothing is added and Insert returns false.
func Insert(b *Buffer, hdr Address, elem ScalarType, v float64, unique bool) (bool, error) {
	n, data, err := growSequence(b, hdr, elem)
	if err != nil {
		return false, err
	}
	size := Address(elem.Size())

	// find the first element greater than v
	pos := n
	for i := 0; i < n; i++ {
		x, err := b.Load(data+Address(i)*size, elem)
		if err != nil {
			return false, err
		}
		if unique && x == v {
			return false, nil
		}
		if x > v {
			pos = i
			break
		}
	}

	for i := n; i > pos; i-- {
		x, err := b.Load(data+Address(i-1)*size, elem)
		if err != nil {
			return false, err
		}
		if err := b.Store(data+Address(i)*size, elem, x); err != nil {
			return false, err
		}
	}
	if err := b.Store(data+Address(pos)*size, elem, v); err != nil {
		return false, err
	}
	return true, writeU32(b, hdr, n+1)
}

// NewDeque allocates an empty deque in b with room for capacity elements,
// and returns the address of its header.
func NewDeque(b *Buffer, elem ScalarType, capacity int) Address {
	hdr := b.Alloc(DequeSize, 8)
	_ = InitDeque(b, hdr, elem, capacity) // hdr was just allocated
	return hdr
}

// InitDeque writes an empty deque header at hdr with room for capacity
// elements. The capacity is at least one.
func InitDeque(b *Buffer, hdr Address, elem ScalarType, capacity int) error {
	if capacity < 1 {
		capacity = 1
	}
	data := b.Alloc(uintptr(capacity)*elem.Size(), elem.Size())
	if err := writeU32(b, hdr, 0); err != nil {
		return err
	}
	if err := writeU32(b, hdr+4, 0); err != nil {
		return err
	}
	if err := writeU32(b, hdr+8, capacity); err != nil {
		return err
	}
	return writeU64(b, hdr+16, data)
}

// growDeque makes room for one more element, moving the contents to a new
// region in logical order when the ring is full.
func growDeque(b *Buffer, hdr Address, elem ScalarType) (head, n, capacity int, data Address, err error) {
	if head, err = readU32(b, hdr); err != nil {
		return
	}
	if n, err = readU32(b, hdr+4); err != nil {
		return
	}
	if capacity, err = readU32(b, hdr+8); err != nil {
		return
	}
	if data, err = readU64(b, hdr+16); err != nil {
		return
	}
	if n < capacity {
		return
	}

	size := Address(elem.Size())
	newcap := 2 * capacity
	newdata := b.Alloc(uintptr(newcap)*uintptr(size), uintptr(size))
	for i := 0; i < n; i++ {
		x, err := b.Load(data+Address((head+i)%capacity)*size, elem)
		if err != nil {
			return 0, 0, 0, 0, err
		}
		if err := b.Store(newdata+Address(i)*size, elem, x); err != nil {
			return 0, 0, 0, 0, err
		}
	}
	head, capacity, data = 0, newcap, newdata
	if err = writeU32(b, hdr, head); err != nil {
		return
	}
	if err = writeU32(b, hdr+8, capacity); err != nil {
		return
	}
	err = writeU64(b, hdr+16, data)
	return
}

// PushBack adds v at the end of the deque at hdr.
func PushBack(b *Buffer, hdr Address, elem ScalarType, v float64) error {
	head, n, capacity, data, err := growDeque(b, hdr, elem)
	if err != nil {
		return err
	}
	slot := data + Address(uintptr((head+n)%capacity)*elem.Size())
	if err := b.Store(slot, elem, v); err != nil {
		return err
	}
	return writeU32(b, hdr+4, n+1)
}

// PushFront adds v at the start of the deque at hdr.
func PushFront(b *Buffer, hdr Address, elem ScalarType, v float64) error {
	head, n, capacity, data, err := growDeque(b, hdr, elem)
	if err != nil {
		return err
	}
	head = (head + capacity - 1) % capacity
	if err := b.Store(data+Address(uintptr(head)*elem.Size()), elem, v); err != nil {
		return err
	}
	if err := writeU32(b, hdr, head); err != nil {
		return err
	}
	return writeU32(b, hdr+4, n+1)
}
