// Package manifest loads type descriptors from YAML files, for data whose
// layout is known from outside the program, such as memory images written
// by C or C++ code.
//
// A manifest lists composite types and their data members:
//
//	types:
//	  - name: Hit
//	    members:
//	      - {name: energy, type: double}
//	      - {name: channel, type: unsigned short}
//	  - name: Track
//	    members:
//	      - {name: hits, type: Hit, dims: [3]}
//	      - {name: samples, type: vector<float>}
//	      - {name: scratch, type: int, comment: "! not persisted"}
//
// Members without an explicit offset are laid out with natural alignment,
// the way a C compiler lays out a struct on an LP64 platform.
package manifest

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	leafmap "github.com/alexflint/go-leafmap"
)

// containerAlign is the alignment of container headers.
const containerAlign = 8

// File is the top level of a manifest.
type File struct {
	Types []Type `yaml:"types"`
}

// Type declares one composite type.
type Type struct {
	Name    string   `yaml:"name"`
	Comment string   `yaml:"comment,omitempty"`
	Size    uintptr  `yaml:"size,omitempty"`  // overrides the computed size
	Align   uintptr  `yaml:"align,omitempty"` // overrides the computed alignment
	Members []Member `yaml:"members"`
}

// Member declares one data member.
type Member struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Dims      []int    `yaml:"dims,omitempty,flow"`
	Offset    *uintptr `yaml:"offset,omitempty"`
	Size      uintptr  `yaml:"size,omitempty"` // size of one element, for types the loader cannot size
	Transient bool     `yaml:"transient,omitempty"`
	Comment   string   `yaml:"comment,omitempty"`
}

// Parse decodes a manifest.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse manifest")
	}
	return &f, nil
}

// Load reads a manifest from r and registers its types with cat. Container
// support must be registered with the catalog beforehand, since it is needed
// to lay out container members. It returns the names of the types declared
// by the manifest in the order they appear.
func Load(r io.Reader, cat *leafmap.Catalog) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Register(cat)
}

// LoadFile loads the manifest at path into cat.
func LoadFile(path string, cat *leafmap.Catalog) ([]string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %s", path)
	}
	defer fd.Close()

	names, err := Load(fd, cat)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return names, nil
}

// Register computes the layout of every type in f and registers it with cat.
func (f *File) Register(cat *leafmap.Catalog) ([]string, error) {
	b := &builder{
		cat:  cat,
		decl: make(map[string]*Type),
		done: make(map[string]*leafmap.TypeDescriptor),
		busy: make(map[string]bool),
	}
	var names []string
	for i := range f.Types {
		t := &f.Types[i]
		if t.Name == "" {
			return nil, errors.Errorf("type %d has no name", i)
		}
		if _, dup := b.decl[t.Name]; dup {
			return nil, errors.Errorf("type %s is declared twice", t.Name)
		}
		b.decl[t.Name] = t
		names = append(names, t.Name)
	}

	for _, name := range names {
		td, err := b.build(name)
		if err != nil {
			return nil, err
		}
		if err := cat.Register(*td); err != nil {
			return nil, errors.Wrapf(err, "register %s", name)
		}
	}
	return names, nil
}

// builder lays out the types of one manifest, building the types that a
// member refers to before the member itself.
type builder struct {
	cat  *leafmap.Catalog
	decl map[string]*Type
	done map[string]*leafmap.TypeDescriptor
	busy map[string]bool
}

func alignUp(n, align uintptr) uintptr {
	if align > 1 && n%align != 0 {
		n += align - n%align
	}
	return n
}

func (b *builder) build(name string) (*leafmap.TypeDescriptor, error) {
	if td, found := b.done[name]; found {
		return td, nil
	}
	if b.busy[name] {
		return nil, errors.Errorf("type %s contains itself", name)
	}
	b.busy[name] = true
	defer delete(b.busy, name)

	t := b.decl[name]
	td := &leafmap.TypeDescriptor{Name: t.Name, Align: 1}
	var end uintptr
	for _, m := range t.Members {
		md := leafmap.MemberDescriptor{
			Name:      m.Name,
			TypeName:  strings.TrimSpace(m.Type),
			Dims:      m.Dims,
			Transient: m.Transient,
			Comment:   m.Comment,
		}
		size, align, err := b.classify(&md)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s: member %s", t.Name, m.Name)
		}
		if m.Size != 0 {
			size = m.Size
		}

		count := uintptr(1)
		for _, d := range m.Dims {
			if d < 1 {
				return nil, errors.Errorf("type %s: member %s has invalid extent %d", t.Name, m.Name, d)
			}
			count *= uintptr(d)
		}

		switch {
		case m.Offset != nil:
			md.Offset = *m.Offset
		case size == 0:
			return nil, errors.Errorf("type %s: cannot lay out member %s of type %q, give it an offset or a size",
				t.Name, m.Name, md.TypeName)
		default:
			md.Offset = alignUp(end, align)
		}
		md.UnitSize = size
		if e := md.Offset + size*count; e > end {
			end = e
		}
		if align > td.Align {
			td.Align = align
		}
		td.Members = append(td.Members, md)
	}

	if t.Align != 0 {
		td.Align = t.Align
	}
	td.Size = alignUp(end, td.Align)
	if t.Size != 0 {
		td.Size = t.Size
	}
	b.done[name] = td
	return td, nil
}

// classify sets the category of md from its type name and returns the size
// and alignment of one element, or a zero size if it cannot be known.
func (b *builder) classify(md *leafmap.MemberDescriptor) (size, align uintptr, err error) {
	if s, ok := leafmap.ParseScalarType(md.TypeName); ok {
		md.Category = leafmap.Scalar
		md.Scalar = s
		return s.Size(), s.Size(), nil
	}
	if _, found := b.decl[md.TypeName]; found {
		td, err := b.build(md.TypeName)
		if err != nil {
			return 0, 0, err
		}
		md.Category = leafmap.Composite
		return td.Size, td.Align, nil
	}
	if td, found := b.cat.Type(md.TypeName); found {
		md.Category = leafmap.Composite
		return td.Size, td.Align, nil
	}
	if s, found := b.cat.Containers.Lookup(md.TypeName); found {
		md.Category = leafmap.Container
		md.Scalar = s.Elem
		return s.Size, containerAlign, nil
	}
	if strings.Contains(md.TypeName, "<") || strings.HasPrefix(md.TypeName, "[]") {
		// an unsupported container; the mapper will skip it
		md.Category = leafmap.Container
		return 0, containerAlign, nil
	}
	// an unsupported basic type such as "long double"
	md.Category = leafmap.Scalar
	return 0, 1, nil
}
