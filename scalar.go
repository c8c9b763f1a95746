package leafmap

import (
	"reflect"
	"strings"
)

//go:generate go tool stringer -type=ScalarType -linecomment -output=scalartype_string.go

// ScalarType identifies one of the primitive types a Reader can decode.
type ScalarType int

const (
	_ ScalarType = iota // zero value is not a valid scalar type

	Int8    // int8
	Uint8   // uint8
	Int16   // int16
	Uint16  // uint16
	Int32   // int32
	Uint32  // uint32
	Int64   // int64
	Uint64  // uint64
	Float32 // float32
	Float64 // float64
	Bool    // bool

	numScalarTypes = int(iota)
)

// ScalarTypes lists every valid scalar type in declaration order.
var ScalarTypes = []ScalarType{
	Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64, Bool,
}

// Valid reports whether t is one of the supported scalar types.
func (t ScalarType) Valid() bool {
	return t > 0 && int(t) < numScalarTypes
}

// Size is the number of bytes occupied by one value of this type.
func (t ScalarType) Size() uintptr {
	switch t {
	case Int8, Uint8, Bool:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// scalarNames maps type spellings to scalar types. The C spellings assume an
// LP64 data model.
var scalarNames = map[string]ScalarType{
	"int8":    Int8,
	"uint8":   Uint8,
	"byte":    Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"rune":    Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float32": Float32,
	"float64": Float64,
	"bool":    Bool,

	"char":               Int8,
	"signed char":        Int8,
	"unsigned char":      Uint8,
	"short":              Int16,
	"unsigned short":     Uint16,
	"int":                Int32,
	"unsigned int":       Uint32,
	"unsigned":           Uint32,
	"long":               Int64,
	"unsigned long":      Uint64,
	"long long":          Int64,
	"unsigned long long": Uint64,
	"float":              Float32,
	"double":             Float64,
}

// ParseScalarType looks up a scalar type by its Go or C spelling. It returns
// false for anything outside the supported set, including "long double".
func ParseScalarType(name string) (ScalarType, bool) {
	t, ok := scalarNames[strings.Join(strings.Fields(name), " ")]
	return t, ok
}

// scalarFromKind gets the scalar type for a Go kind, using the size of the
// platform int for int and uint.
func scalarFromKind(k reflect.Kind) (ScalarType, bool) {
	switch k {
	case reflect.Int8:
		return Int8, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Int64:
		return Int64, true
	case reflect.Uint64:
		return Uint64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	case reflect.Bool:
		return Bool, true
	case reflect.Int:
		if reflect.TypeOf(int(0)).Size() == 4 {
			return Int32, true
		}
		return Int64, true
	case reflect.Uint, reflect.Uintptr:
		if reflect.TypeOf(uint(0)).Size() == 4 {
			return Uint32, true
		}
		return Uint64, true
	}
	return 0, false
}
