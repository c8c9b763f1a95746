// Package gosource builds type descriptors from Go source code, without
// running the code. Descriptors are named the way reflect names types,
// "<package name>.<type name>", so they agree with the ones produced by
// leafmap.DescribeGo for the same types.
package gosource

import (
	"go/types"
	"reflect"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"

	leafmap "github.com/alexflint/go-leafmap"
)

// LoadMode is what Load needs to know about each package.
const LoadMode = packages.NeedName |
	packages.NeedTypes |
	packages.NeedTypesSizes

// Load loads the packages matching patterns and registers every exported
// struct type they declare, together with the struct types those contain by
// value. It returns the names of the exported types.
func Load(cat *leafmap.Catalog, patterns ...string) ([]string, error) {
	cfg := &packages.Config{Mode: LoadMode}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "load packages")
	}

	var names []string
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, errors.Errorf("package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
		sizes := pkg.TypesSizes
		if sizes == nil {
			sizes = types.SizesFor("gc", runtime.GOARCH)
		}
		pkgNames, err := FromPackage(cat, pkg.Types, sizes)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s", pkg.PkgPath)
		}
		names = append(names, pkgNames...)
	}
	return names, nil
}

// FromPackage registers every exported struct type declared in pkg, laid out
// according to sizes.
func FromPackage(cat *leafmap.Catalog, pkg *types.Package, sizes types.Sizes) ([]string, error) {
	d := &describer{
		cat:   cat,
		sizes: sizes,
		seen:  make(map[*types.Named]bool),
	}

	var names []string
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !obj.Exported() || obj.IsAlias() {
			continue
		}
		named, ok := obj.Type().(*types.Named)
		if !ok {
			continue
		}
		if _, ok := named.Underlying().(*types.Struct); !ok {
			continue
		}
		if named.TypeParams().Len() > 0 {
			continue
		}
		d.push(named)
		names = append(names, typeName(named))
	}

	if err := d.run(); err != nil {
		return nil, err
	}
	return names, nil
}

// describer registers struct types breadth first.
type describer struct {
	cat   *leafmap.Catalog
	sizes types.Sizes
	queue []*types.Named
	seen  map[*types.Named]bool
}

func (d *describer) push(t *types.Named) {
	if !d.seen[t] {
		d.seen[t] = true
		d.queue = append(d.queue, t)
	}
}

func (d *describer) run() error {
	for len(d.queue) > 0 {
		cur := d.queue[0]
		d.queue = d.queue[1:]
		if err := d.cat.Register(d.describe(cur)); err != nil {
			return errors.Wrapf(err, "register %s", typeName(cur))
		}
	}
	return nil
}

func (d *describer) describe(t *types.Named) leafmap.TypeDescriptor {
	st := t.Underlying().(*types.Struct)
	td := leafmap.TypeDescriptor{
		Name:  typeName(t),
		Size:  uintptr(d.sizes.Sizeof(t)),
		Align: uintptr(d.sizes.Alignof(t)),
	}

	fields := make([]*types.Var, st.NumFields())
	for i := range fields {
		fields[i] = st.Field(i)
	}
	offsets := d.sizes.Offsetsof(fields)

	for i, f := range fields {
		if d.sizes.Sizeof(f.Type()) == 0 {
			continue
		}
		md := leafmap.MemberDescriptor{
			Name:   f.Name(),
			Offset: uintptr(offsets[i]),
		}
		if tag := reflect.StructTag(st.Tag(i)).Get("leaf"); tag == "-" {
			md.Transient = true
		} else if tag != "" {
			md.Name = tag
		}

		ft := f.Type()
		for {
			arr, ok := ft.Underlying().(*types.Array)
			if !ok {
				break
			}
			md.Dims = append(md.Dims, int(arr.Len()))
			ft = arr.Elem()
		}
		md.TypeName = typeName(ft)
		md.UnitSize = uintptr(d.sizes.Sizeof(ft))

		if s, ok := d.scalar(ft); ok {
			md.Category = leafmap.Scalar
			md.Scalar = s
		} else {
			switch u := ft.Underlying().(type) {
			case *types.Struct:
				md.Category = leafmap.Composite
				if named, ok := ft.(*types.Named); ok {
					d.push(named)
				}
			case *types.Slice:
				md.Category = leafmap.Container
				if s, ok := d.scalar(u.Elem()); ok {
					md.Scalar = s
					// the slice support is only valid for slices of the
					// running program
					if err := d.cat.Containers.Register(md.TypeName, leafmap.SliceSupport(s)); err != nil {
						md.Scalar = 0
					}
				}
			default:
				md.Category = leafmap.Scalar
			}
		}
		td.Members = append(td.Members, md)
	}
	return td
}

// scalar gets the scalar type of a basic type, sizing int and uint with the
// target sizes.
func (d *describer) scalar(t types.Type) (leafmap.ScalarType, bool) {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0, false
	}
	switch b.Kind() {
	case types.Bool:
		return leafmap.Bool, true
	case types.Int8:
		return leafmap.Int8, true
	case types.Uint8:
		return leafmap.Uint8, true
	case types.Int16:
		return leafmap.Int16, true
	case types.Uint16:
		return leafmap.Uint16, true
	case types.Int32:
		return leafmap.Int32, true
	case types.Uint32:
		return leafmap.Uint32, true
	case types.Int64:
		return leafmap.Int64, true
	case types.Uint64:
		return leafmap.Uint64, true
	case types.Float32:
		return leafmap.Float32, true
	case types.Float64:
		return leafmap.Float64, true
	case types.Int:
		if d.sizes.Sizeof(b) == 4 {
			return leafmap.Int32, true
		}
		return leafmap.Int64, true
	case types.Uint:
		if d.sizes.Sizeof(b) == 4 {
			return leafmap.Uint32, true
		}
		return leafmap.Uint64, true
	}
	return 0, false
}

// typeName spells t the way reflect.Type.String does.
func typeName(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string {
		return p.Name()
	})
}
