package leafmap

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// A Leaf is one scalar reachable from a mapped object.
type Leaf struct {
	Name string     // Name is the fully qualified name, e.g. "event.hits[2]"
	Addr Address    // Addr is where the scalar lives
	Type ScalarType // Type is how to decode it
}

// Result is the outcome of one mapping pass.
type Result struct {
	// Leaves are the leaves in member declaration order.
	Leaves []Leaf
	// Skipped holds one error for each member or subtree that could not be
	// mapped.
	Skipped []error
}

// Mapper flattens objects into leaves using the type descriptors of a
// Provider.
type Mapper struct {
	Provider   Provider
	Containers *ContainerTable
	// Log receives one warning per skipped member. Nil means the logrus
	// standard logger.
	Log logrus.FieldLogger
	// Strict makes the first skipped member fail the whole pass.
	Strict bool
}

// NewMapper creates a mapper over the types and containers of a catalog.
func NewMapper(cat *Catalog) *Mapper {
	return &Mapper{
		Provider:   cat,
		Containers: cat.Containers,
	}
}

func (m *Mapper) log() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

// MapType looks up the named type and maps the object of that type at base.
func (m *Mapper) MapType(mem Memory, typeName string, base Address, prefix string) (*Result, error) {
	t, found := m.Provider.Type(typeName)
	if !found {
		return nil, &UnknownTypeError{TypeName: typeName}
	}
	return m.Map(mem, t, base, prefix)
}

// Map walks the object of type t at base and returns one leaf per scalar it
// contains, named relative to prefix. Members that cannot be mapped are
// logged, recorded in Result.Skipped and left out; in strict mode the first
// of them is returned as an error instead.
func (m *Mapper) Map(mem Memory, t *TypeDescriptor, base Address, prefix string) (*Result, error) {
	if t == nil {
		return nil, errors.New("nil type descriptor")
	}
	w := walker{
		m:      m,
		mem:    mem,
		res:    new(Result),
		active: make(map[string]bool),
	}
	w.walkType(t, base, prefix)
	if w.err != nil {
		return nil, w.err
	}
	return w.res, nil
}

// join builds the name of a member from the name of its owner.
func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// walker holds the state of one mapping pass.
type walker struct {
	m      *Mapper
	mem    Memory
	res    *Result
	active map[string]bool // composite types currently being walked
	err    error           // set in strict mode to stop the walk
}

func (w *walker) emit(name string, addr Address, t ScalarType) {
	w.res.Leaves = append(w.res.Leaves, Leaf{Name: name, Addr: addr, Type: t})
}

func (w *walker) skip(md *MemberDescriptor, name string, err error) {
	w.m.log().WithFields(logrus.Fields{
		"member": name,
		"type":   md.TypeName,
	}).WithError(err).Warn("member will not be mapped")
	w.res.Skipped = append(w.res.Skipped, err)
	if w.m.Strict && w.err == nil {
		w.err = err
	}
}

func (w *walker) walkType(t *TypeDescriptor, base Address, prefix string) {
	w.active[t.Name] = true
	defer delete(w.active, t.Name)

	for i := range t.Members {
		if w.err != nil {
			return
		}
		md := &t.Members[i]
		if !md.Mapped() {
			continue
		}
		w.walkMember(md, base, join(prefix, md.Name))
	}
}

func (w *walker) walkMember(md *MemberDescriptor, base Address, name string) {
	addr := base + Address(md.Offset)

	var suffixes []string
	if len(md.Dims) > 0 {
		var err error
		suffixes, err = Flatten(md.Dims)
		if err != nil {
			var dimErr *DimensionalityError
			if errors.As(err, &dimErr) {
				dimErr.Member = name
			} else {
				err = fmt.Errorf("array %s: %w", name, err)
			}
			w.skip(md, name, err)
			return
		}
	}

	switch md.Category {
	case Scalar:
		if !md.Scalar.Valid() {
			w.skip(md, name, &UnsupportedTypeError{Member: name, TypeName: md.TypeName})
			return
		}
		if suffixes == nil {
			w.emit(name, addr, md.Scalar)
			return
		}
		unit := md.UnitSize
		if unit == 0 {
			unit = md.Scalar.Size()
		}
		for i, suffix := range suffixes {
			w.emit(name+suffix, addr+Address(uintptr(i)*unit), md.Scalar)
		}

	case Container:
		support, found := w.m.Containers.Lookup(md.TypeName)
		if !found {
			w.skip(md, name, &UnsupportedContainerError{Member: name, TypeName: md.TypeName})
			return
		}
		if suffixes == nil {
			w.walkContainer(md, support, addr, name)
			return
		}
		unit := md.UnitSize
		if unit == 0 {
			unit = support.Size
		}
		for i, suffix := range suffixes {
			if w.err != nil {
				return
			}
			w.walkContainer(md, support, addr+Address(uintptr(i)*unit), name+suffix)
		}

	case Composite:
		t, found := w.m.Provider.Type(md.TypeName)
		if !found {
			w.skip(md, name, &UnknownTypeError{Member: name, TypeName: md.TypeName})
			return
		}
		if w.active[t.Name] {
			w.skip(md, name, &RecursiveTypeError{Member: name, TypeName: t.Name})
			return
		}
		if suffixes == nil {
			w.walkType(t, addr, name)
			return
		}
		unit := md.UnitSize
		if unit == 0 {
			unit = t.Size
		}
		for i, suffix := range suffixes {
			if w.err != nil {
				return
			}
			w.walkType(t, addr+Address(uintptr(i)*unit), name+suffix)
		}

	default:
		w.skip(md, name, fmt.Errorf("member %s has invalid category %v", name, md.Category))
	}
}

// walkContainer emits one leaf per element currently held by the container
// instance at addr. A container with any unreadable element contributes no
// leaves at all.
func (w *walker) walkContainer(md *MemberDescriptor, support ContainerSupport, addr Address, name string) {
	n, err := support.Length(w.mem, addr)
	if err != nil {
		w.skip(md, name, fmt.Errorf("reading length of %s: %w", name, err))
		return
	}
	var leaves []Leaf
	for j := 0; j < n; j++ {
		elem, err := support.Element(w.mem, addr, j)
		if err != nil {
			w.skip(md, name, fmt.Errorf("reading element %d of %s: %w", j, name, err))
			return
		}
		leaves = append(leaves, Leaf{Name: name + "[" + strconv.Itoa(j) + "]", Addr: elem, Type: support.Elem})
	}
	w.res.Leaves = append(w.res.Leaves, leaves...)
}

// Resolve finds a single leaf of the object of type t at base by its path
// relative to the object, such as "hits[2].energy", without mapping the
// rest of the object.
func (m *Mapper) Resolve(mem Memory, t *TypeDescriptor, base Address, path string) (Leaf, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Leaf{}, err
	}

	cur, addr := t, base
	for i, seg := range segs {
		last := i == len(segs)-1
		md, found := cur.Member(seg.Name)
		if !found || !md.Mapped() {
			return Leaf{}, fmt.Errorf("%s: %w %q in type %s", path, ErrNoMember, seg.Name, cur.Name)
		}
		a := addr + Address(md.Offset)
		indices := seg.Indices

		var elemType *TypeDescriptor
		var support ContainerSupport
		switch md.Category {
		case Scalar:
			if !md.Scalar.Valid() {
				return Leaf{}, &UnsupportedTypeError{Member: path, TypeName: md.TypeName}
			}
		case Container:
			if support, found = m.Containers.Lookup(md.TypeName); !found {
				return Leaf{}, &UnsupportedContainerError{Member: path, TypeName: md.TypeName}
			}
		case Composite:
			if elemType, found = m.Provider.Type(md.TypeName); !found {
				return Leaf{}, &UnknownTypeError{Member: path, TypeName: md.TypeName}
			}
		}

		if nd := len(md.Dims); nd > 0 {
			if nd > MaxDims {
				return Leaf{}, &DimensionalityError{Member: path, Dims: nd}
			}
			if len(indices) < nd {
				return Leaf{}, fmt.Errorf("%s: %w: %s needs %d indices", path, ErrNotLeaf, seg.Name, nd)
			}
			pos, err := FlatIndex(md.Dims, indices[:nd])
			if err != nil {
				var idxErr *IndexError
				if errors.As(err, &idxErr) {
					idxErr.Path = path
				}
				return Leaf{}, err
			}
			unit := md.UnitSize
			if unit == 0 {
				switch md.Category {
				case Scalar:
					unit = md.Scalar.Size()
				case Container:
					unit = support.Size
				case Composite:
					unit = elemType.Size
				}
			}
			a += Address(uintptr(pos) * unit)
			indices = indices[nd:]
		}

		switch md.Category {
		case Scalar:
			if len(indices) > 0 || !last {
				return Leaf{}, fmt.Errorf("%s: %w: %s is a scalar", path, ErrNotLeaf, seg.Name)
			}
			return Leaf{Name: path, Addr: a, Type: md.Scalar}, nil

		case Container:
			if len(indices) != 1 || !last {
				return Leaf{}, fmt.Errorf("%s: %w: %s needs exactly one element index", path, ErrNotLeaf, seg.Name)
			}
			n, err := support.Length(mem, a)
			if err != nil {
				return Leaf{}, err
			}
			if indices[0] >= n {
				return Leaf{}, &IndexError{Path: path, Index: indices[0], Len: n}
			}
			elem, err := support.Element(mem, a, indices[0])
			if err != nil {
				return Leaf{}, err
			}
			return Leaf{Name: path, Addr: elem, Type: support.Elem}, nil

		case Composite:
			if len(indices) > 0 || last {
				return Leaf{}, fmt.Errorf("%s: %w: %s is a composite of type %s", path, ErrNotLeaf, seg.Name, elemType.Name)
			}
			cur, addr = elemType, a

		default:
			return Leaf{}, fmt.Errorf("%s: member %s has invalid category %v", path, seg.Name, md.Category)
		}
	}
	return Leaf{}, fmt.Errorf("%s: %w", path, ErrNotLeaf)
}
