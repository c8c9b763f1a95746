package manifest

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	leafmap "github.com/alexflint/go-leafmap"
)

// Export builds a manifest for the named types and every composite type
// they contain. Offsets and sizes are written out explicitly, so loading the
// manifest reproduces the descriptors exactly.
func Export(p leafmap.Provider, names ...string) (*File, error) {
	var f File
	seen := make(map[string]bool)
	queue := append([]string(nil), names...)
	for _, name := range names {
		seen[name] = true
	}

	var types []*leafmap.TypeDescriptor
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		td, found := p.Type(name)
		if !found {
			return nil, &leafmap.UnknownTypeError{TypeName: name}
		}
		types = append(types, td)
		for _, md := range td.Members {
			if md.Category == leafmap.Composite && !seen[md.TypeName] {
				seen[md.TypeName] = true
				queue = append(queue, md.TypeName)
			}
		}
	}

	for _, td := range types {
		t := Type{Name: td.Name, Size: td.Size, Align: td.Align}
		for _, md := range td.Members {
			offset := md.Offset
			m := Member{
				Name:      md.Name,
				Type:      md.TypeName,
				Dims:      md.Dims,
				Offset:    &offset,
				Transient: md.Transient,
				Comment:   md.Comment,
			}
			if md.Category != leafmap.Composite {
				m.Size = md.UnitSize
			}
			if md.Category == leafmap.Scalar && md.Scalar.Valid() {
				if s, _ := leafmap.ParseScalarType(md.TypeName); s != md.Scalar {
					m.Type = md.Scalar.String()
				}
			}
			t.Members = append(t.Members, m)
		}
		f.Types = append(f.Types, t)
	}
	return &f, nil
}

// Dump writes a manifest for the named types to w.
func Dump(w io.Writer, p leafmap.Provider, names ...string) error {
	f, err := Export(p, names...)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	return enc.Close()
}
