package leafmap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:generate go tool stringer -type=Category -linecomment -output=category_string.go

// Category says how the mapper treats a member.
type Category int

const (
	_ Category = iota

	Scalar    // scalar
	Container // container
	Composite // composite
)

// A TypeDescriptor describes the memory layout of one composite type.
type TypeDescriptor struct {
	Name    string             // Name uniquely identifies the type within a provider
	Size    uintptr            // Size is the size in bytes of one value of the type
	Align   uintptr            // Align is the required alignment of the type
	Members []MemberDescriptor // Members are the data members in declaration order
}

// A MemberDescriptor describes one data member of a composite type.
type MemberDescriptor struct {
	Name     string     // Name is the name of the member
	TypeName string     // TypeName is the declared type: a scalar, container or composite type name
	Offset   uintptr    // Offset is the position of the member relative to the start of its owner
	Category Category   // Category selects scalar, container or composite handling
	Scalar   ScalarType // Scalar is the type of scalars, and of container elements
	Dims     []int      // Dims are the array extents, empty for non-arrays
	UnitSize uintptr    // UnitSize is the size of one array element
	// Transient members are never mapped.
	Transient bool
	// Comment is free text attached to the member. A comment starting with
	// '!' or '#' marks the member as transient.
	Comment string
}

// Mapped reports whether the member takes part in mapping.
func (m *MemberDescriptor) Mapped() bool {
	if m.Transient {
		return false
	}
	return !strings.HasPrefix(m.Comment, "!") && !strings.HasPrefix(m.Comment, "#")
}

// Member finds a member by name.
func (t *TypeDescriptor) Member(name string) (*MemberDescriptor, bool) {
	for i := range t.Members {
		if t.Members[i].Name == name {
			return &t.Members[i], true
		}
	}
	return nil, false
}

// Equal reports whether two descriptors describe the same layout.
func (t *TypeDescriptor) Equal(u *TypeDescriptor) bool {
	if t.Name != u.Name || t.Size != u.Size || t.Align != u.Align {
		return false
	}
	if len(t.Members) != len(u.Members) {
		return false
	}
	for i := range t.Members {
		a, b := &t.Members[i], &u.Members[i]
		if a.Name != b.Name || a.TypeName != b.TypeName {
			return false
		}
		if a.Offset != b.Offset || a.UnitSize != b.UnitSize {
			return false
		}
		if a.Category != b.Category || a.Scalar != b.Scalar {
			return false
		}
		if a.Mapped() != b.Mapped() {
			return false
		}
		if len(a.Dims) != len(b.Dims) {
			return false
		}
		for j := range a.Dims {
			if a.Dims[j] != b.Dims[j] {
				return false
			}
		}
	}
	return true
}

// Provider supplies type descriptors by name.
type Provider interface {
	// Type returns the descriptor registered under name.
	Type(name string) (*TypeDescriptor, bool)
}

// ErrConflictingType is returned by Catalog.Register when a different
// descriptor is already registered under the same name.
var ErrConflictingType = errors.New("a different type is already registered under this name")

// Catalog is a Provider populated by explicit registration. It also carries
// the container support table used when mapping its types.
type Catalog struct {
	Containers *ContainerTable

	mu    sync.RWMutex
	types map[string]*TypeDescriptor
}

// NewCatalog creates an empty catalog with an empty container table.
func NewCatalog() *Catalog {
	return &Catalog{
		Containers: NewContainerTable(),
		types:      make(map[string]*TypeDescriptor),
	}
}

// Register validates a descriptor, fills in scalar types and unit sizes that
// can be derived from type names, and adds it to the catalog. Registering an
// equal descriptor twice is a no-op.
func (c *Catalog) Register(t TypeDescriptor) error {
	if t.Name == "" {
		return errors.New("type descriptor has no name")
	}

	seen := make(map[string]bool)
	members := make([]MemberDescriptor, len(t.Members))
	for i, m := range t.Members {
		if m.Name == "" {
			return fmt.Errorf("type %s: member %d has no name", t.Name, i)
		}
		if seen[m.Name] {
			return fmt.Errorf("type %s: duplicate member %s", t.Name, m.Name)
		}
		seen[m.Name] = true

		switch m.Category {
		case Scalar:
			if m.Scalar == 0 {
				m.Scalar, _ = ParseScalarType(m.TypeName)
			}
			if m.TypeName == "" {
				m.TypeName = m.Scalar.String()
			}
		case Container:
			if m.Scalar == 0 {
				m.Scalar, _ = ContainerElem(m.TypeName)
			}
			if m.TypeName == "" {
				return fmt.Errorf("type %s: container member %s has no type name", t.Name, m.Name)
			}
		case Composite:
			if m.TypeName == "" {
				return fmt.Errorf("type %s: composite member %s has no type name", t.Name, m.Name)
			}
		default:
			return fmt.Errorf("type %s: member %s has invalid category %v", t.Name, m.Name, m.Category)
		}
		if m.UnitSize == 0 {
			switch m.Category {
			case Scalar:
				m.UnitSize = m.Scalar.Size()
			case Container:
				if s, found := c.Containers.Lookup(m.TypeName); found {
					m.UnitSize = s.Size
				}
			}
		}
		m.Dims = append([]int(nil), m.Dims...)
		members[i] = m
	}
	t.Members = members

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, found := c.types[t.Name]; found {
		if prev.Equal(&t) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrConflictingType, t.Name)
	}
	c.types[t.Name] = &t
	return nil
}

// Type implements Provider.
func (c *Catalog) Type(name string) (*TypeDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, found := c.types[name]
	return t, found
}

// Names lists the registered type names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
