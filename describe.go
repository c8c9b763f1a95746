package leafmap

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

var (
	goTypeCache     = make(map[reflect.Type]*goTypeInfo)
	goTypeCacheLock sync.Mutex
)

// goTypeInfo holds the descriptors computed for a Go struct type and the
// struct types reachable from it by value.
type goTypeInfo struct {
	name   string
	types  []TypeDescriptor
	slices []reflect.Type // slices of scalars that need container support
}

// DescribeGo registers descriptors for the Go struct type t and for every
// struct type it contains by value, together with container support for the
// slices of scalars among their fields. It returns the name under which t
// was registered.
//
// Types are registered under reflect.Type.String(), such as "pkg.Event".
// That name does not include the import path, so two distinct types that
// share it, like function-local types of the same name or same-named types
// in packages with the same name, cannot be described into one catalog: the
// second one fails with ErrConflictingType.
//
// Field names can be overridden with a `leaf:"name"` tag, and a `leaf:"-"`
// tag marks a field as transient. Fields of kinds that have no scalar
// equivalent (strings, pointers, maps, interfaces...) are described but will
// be skipped by the mapper.
func DescribeGo(cat *Catalog, t reflect.Type) (string, error) {
	if t.Kind() != reflect.Struct {
		return "", fmt.Errorf("expected a struct type but got %v", t)
	}

	info := lookupGoType(t)
	for _, st := range info.slices {
		elem, _ := scalarFromKind(st.Elem().Kind())
		if err := cat.Containers.Register(st.String(), SliceSupport(elem)); err != nil {
			return "", err
		}
	}
	for _, td := range info.types {
		if err := cat.Register(td); err != nil {
			return "", err
		}
	}
	return info.name, nil
}

// lookupGoType gets the descriptors for t, computing them on first use.
func lookupGoType(t reflect.Type) *goTypeInfo {
	goTypeCacheLock.Lock()
	info, found := goTypeCache[t]
	goTypeCacheLock.Unlock()

	if !found {
		info = describeGo(t)

		goTypeCacheLock.Lock()
		goTypeCache[t] = info
		goTypeCacheLock.Unlock()
	}
	return info
}

// describeGo computes descriptors for t and every struct type reachable from
// it by value, breadth first.
func describeGo(t reflect.Type) *goTypeInfo {
	info := &goTypeInfo{name: t.String()}
	var queue []reflect.Type
	seen := make(map[reflect.Type]bool)

	push := func(t reflect.Type) {
		if !seen[t] {
			seen[t] = true
			queue = append(queue, t)
		}
	}

	push(t)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		td := TypeDescriptor{
			Name:  cur.String(),
			Size:  cur.Size(),
			Align: uintptr(cur.Align()),
		}

		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if f.Type.Size() == 0 {
				continue
			}

			md := MemberDescriptor{
				Name:   f.Name,
				Offset: f.Offset,
			}
			if tag := f.Tag.Get("leaf"); tag == "-" {
				md.Transient = true
			} else if tag != "" {
				md.Name = tag
			}

			ft := f.Type
			for ft.Kind() == reflect.Array {
				md.Dims = append(md.Dims, ft.Len())
				ft = ft.Elem()
			}
			md.TypeName = ft.String()
			md.UnitSize = ft.Size()

			if s, ok := scalarFromKind(ft.Kind()); ok {
				md.Category = Scalar
				md.Scalar = s
			} else {
				switch ft.Kind() {
				case reflect.Struct:
					md.Category = Composite
					push(ft)
				case reflect.Slice:
					md.Category = Container
					if s, ok := scalarFromKind(ft.Elem().Kind()); ok {
						md.Scalar = s
						if !seen[ft] {
							seen[ft] = true
							info.slices = append(info.slices, ft)
						}
					}
				default:
					md.Category = Scalar
				}
			}
			td.Members = append(td.Members, md)
		}
		info.types = append(info.types, td)
	}
	return info
}

// Layout of a Go slice value: data pointer, length and capacity, one word
// each.
const (
	wordSize  = unsafe.Sizeof(uintptr(0))
	sliceSize = 3 * wordSize
)

func readWord(mem Memory, addr Address) (uint64, error) {
	b, err := mem.Bytes(addr, wordSize)
	if err != nil {
		return 0, err
	}
	if wordSize == 4 {
		return uint64(mem.Order().Uint32(b)), nil
	}
	return mem.Order().Uint64(b), nil
}

// sliceAt decodes the data pointer and length of the slice stored at addr.
func sliceAt(mem Memory, addr Address) (data Address, n int, err error) {
	p, err := readWord(mem, addr)
	if err != nil {
		return 0, 0, err
	}
	l, err := readWord(mem, addr+Address(wordSize))
	if err != nil {
		return 0, 0, err
	}
	return Address(p), int(l), nil
}

// SliceSupport enumerates the elements of a Go slice of elem values held in
// live memory.
func SliceSupport(elem ScalarType) ContainerSupport {
	elemSize := elem.Size()
	return ContainerSupport{
		Size: sliceSize,
		Elem: elem,
		Length: func(mem Memory, addr Address) (int, error) {
			_, n, err := sliceAt(mem, addr)
			return n, err
		},
		Element: func(mem Memory, addr Address, i int) (Address, error) {
			data, n, err := sliceAt(mem, addr)
			if err != nil {
				return 0, err
			}
			if i < 0 || i >= n {
				return 0, &IndexError{Index: i, Len: n}
			}
			return data + Address(uintptr(i)*elemSize), nil
		},
	}
}

// A Binding ties a live Go object to the descriptor of its type.
type Binding struct {
	Mem      Memory  // Mem views the memory of the running process
	Addr     Address // Addr is the address of the object
	TypeName string  // TypeName is the name the object's type is registered under
}

// Bind describes the struct that ptr points to and returns a binding through
// which it can be mapped. The object must stay where it is for as long as
// the binding, or any leaf derived from it, is in use; the binding keeps it
// reachable.
func Bind(cat *Catalog, ptr interface{}) (*Binding, error) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("expected a non-nil pointer to a struct but got %T", ptr)
	}
	name, err := DescribeGo(cat, v.Type().Elem())
	if err != nil {
		return nil, err
	}
	return &Binding{
		Mem:      &liveMemory{root: ptr},
		Addr:     Address(v.Pointer()),
		TypeName: name,
	}, nil
}

// Map maps the bound object with m, naming leaves relative to prefix.
func (b *Binding) Map(m *Mapper, prefix string) (*Result, error) {
	return m.MapType(b.Mem, b.TypeName, b.Addr, prefix)
}
