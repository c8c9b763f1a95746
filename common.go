// Package leafmap flattens composite objects into named scalar leaves.
//
// A Mapper walks the members of a type, as described by a Provider, and
// produces one Leaf for every scalar it reaches through nested composites,
// fixed arrays and registered containers. A Table indexes the leaves by
// name and hands out Readers that decode the current value on every call.
package leafmap

import (
	"errors"
	"fmt"
)

// MaxDims is the deepest array nesting the mapper will flatten.
const MaxDims = 4

var (
	// ErrInvalidExtent is returned by Flatten when it is given no dimensions
	// or a dimension with an extent smaller than one.
	ErrInvalidExtent = errors.New("array extents must be non-empty and positive")

	// ErrOutOfRange is returned by memory views when an access falls outside
	// the memory they cover.
	ErrOutOfRange = errors.New("address out of range")
)

// DimensionalityError is produced for array members with more than MaxDims
// dimensions.
type DimensionalityError struct {
	Member string
	Dims   int
}

func (e *DimensionalityError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("arrays of more than %d dimensions are not supported (got %d)", MaxDims, e.Dims)
	}
	return fmt.Sprintf("array %s has %d dimensions, at most %d are supported", e.Member, e.Dims, MaxDims)
}

// UnsupportedTypeError is produced for scalar members whose type is outside
// the fixed set of scalar types.
type UnsupportedTypeError struct {
	Member   string
	TypeName string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no support for basic data type %q (member %s)", e.TypeName, e.Member)
}

// UnsupportedContainerError is produced for container members whose type has
// no registered ContainerSupport.
type UnsupportedContainerError struct {
	Member   string
	TypeName string
}

func (e *UnsupportedContainerError) Error() string {
	return fmt.Sprintf("no support for container type %q (member %s)", e.TypeName, e.Member)
}

// UnknownTypeError is produced when a composite type is not known to the
// provider.
type UnknownTypeError struct {
	Member   string
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("unknown type %q", e.TypeName)
	}
	return fmt.Sprintf("unknown type %q (member %s)", e.TypeName, e.Member)
}

// RecursiveTypeError is produced when a composite type contains itself by
// value, directly or through other members.
type RecursiveTypeError struct {
	Member   string
	TypeName string
}

func (e *RecursiveTypeError) Error() string {
	return fmt.Sprintf("type %q contains itself (member %s)", e.TypeName, e.Member)
}

// IndexError is returned when a path refers to an array or container element
// that does not exist.
type IndexError struct {
	Path  string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("index %d out of range (length %d)", e.Index, e.Len)
	}
	return fmt.Sprintf("index %d out of range in %s (length %d)", e.Index, e.Path, e.Len)
}

var (
	// ErrNoMember is returned by Resolve when a path names a member that the
	// type does not declare.
	ErrNoMember = errors.New("no such member")

	// ErrNotLeaf is returned by Resolve when a path stops at, or tries to
	// descend through, something that is not where it expects a scalar.
	ErrNotLeaf = errors.New("path does not name a scalar")
)

// ErrUnknownLeaf is returned by Table.Set for names that are not in the table.
var ErrUnknownLeaf = errors.New("no leaf with this name")
