// Command leafmap maps a memory image through a type manifest and prints
// the leaves it contains.
//
//	leafmap --manifest track.yaml --type Track --image track.bin --list
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	arg "github.com/alexflint/go-arg"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	leafmap "github.com/alexflint/go-leafmap"
	"github.com/alexflint/go-leafmap/gosource"
	"github.com/alexflint/go-leafmap/manifest"
)

type options struct {
	Manifest []string `arg:"-m,--manifest,separate" help:"YAML type manifest (repeatable)"`
	Package  []string `arg:"--package,separate" help:"Go package pattern to read struct types from (repeatable)"`
	Type     string   `arg:"-t,--type" help:"type of the object in the image"`
	Image    string   `arg:"-i,--image" help:"memory image holding the object, zero-filled if omitted"`
	Base     uint64   `arg:"--base" help:"offset of the object within the image"`
	Prefix   string   `arg:"--prefix" help:"prefix for leaf names"`
	List     bool     `arg:"-l,--list" help:"print every leaf with its value"`
	Get      []string `arg:"-g,--get,separate" help:"print the value of a leaf (repeatable)"`
	Complete string   `arg:"--complete" help:"print the leaf names that start with this prefix"`
	Snapshot bool     `arg:"--snapshot" help:"print every leaf as YAML"`
	Dump     bool     `arg:"--dump" help:"dump the type descriptors"`
	Export   string   `arg:"--export" help:"write a manifest for --type to this file"`
	Strict   bool     `arg:"--strict" help:"fail on the first member that cannot be mapped"`
	Verbose  bool     `arg:"-v,--verbose" help:"log debug messages"`
}

func (options) Description() string {
	return "Maps a memory image through a type manifest and prints its leaves."
}

func main() {
	var args options
	arg.MustParse(&args)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if args.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(&args, os.Stdout); err != nil {
		logrus.Fatal(err)
	}
}

func run(args *options, out io.Writer) error {
	cat := leafmap.NewCatalog()
	if err := leafmap.RegisterBufferContainers(cat.Containers); err != nil {
		return err
	}
	for _, path := range args.Manifest {
		names, err := manifest.LoadFile(path, cat)
		if err != nil {
			return err
		}
		logrus.WithField("manifest", path).Debugf("loaded %d types", len(names))
	}
	if len(args.Package) > 0 {
		names, err := gosource.Load(cat, args.Package...)
		if err != nil {
			return err
		}
		logrus.WithField("packages", args.Package).Debugf("loaded %d types", len(names))
	}

	if args.Type == "" {
		for _, name := range cat.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	td, found := cat.Type(args.Type)
	if !found {
		return &leafmap.UnknownTypeError{TypeName: args.Type}
	}
	if args.Dump {
		spew.Fdump(out, td)
	}
	if args.Export != "" {
		if err := export(args.Export, cat, args.Type); err != nil {
			return err
		}
	}

	buf, err := loadImage(args.Image, args.Base, td.Size)
	if err != nil {
		return err
	}

	m := leafmap.NewMapper(cat)
	m.Strict = args.Strict
	res, err := m.Map(buf, td, leafmap.Address(args.Base), args.Prefix)
	if err != nil {
		return errors.Wrapf(err, "map %s", args.Type)
	}
	tab, err := leafmap.NewTable(buf, nil, res)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"leaves":  tab.Len(),
		"skipped": len(tab.Skipped()),
	}).Debug("mapped")

	for _, name := range args.Get {
		v, found := tab.Get(name)
		if !found {
			return errors.Errorf("no leaf named %s", name)
		}
		fmt.Fprintln(out, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if args.Complete != "" {
		fmt.Fprintln(out, strings.Join(tab.Complete(args.Complete), "\n"))
	}
	if args.List {
		if _, err := tab.WriteTo(out); err != nil {
			return err
		}
	}
	if args.Snapshot {
		if err := writeSnapshot(out, tab); err != nil {
			return err
		}
	}
	return nil
}

// loadImage reads the image file, or creates a zero-filled image large
// enough to hold one object at base.
func loadImage(path string, base uint64, size uintptr) (*leafmap.Buffer, error) {
	if path == "" {
		return leafmap.NewBuffer(int(base) + int(size)), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	if base+uint64(size) > uint64(len(data)) {
		return nil, errors.Errorf("image %s has %d bytes, too few for an object of %d bytes at %d",
			path, len(data), size, base)
	}
	return leafmap.BufferFrom(data), nil
}

func export(path string, cat *leafmap.Catalog, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create manifest")
	}
	defer f.Close()
	if err := manifest.Dump(f, cat, name); err != nil {
		return err
	}
	return f.Close()
}

type sample struct {
	Name  string  `yaml:"name"`
	Type  string  `yaml:"type"`
	Value float64 `yaml:"value"`
}

func writeSnapshot(w io.Writer, tab *leafmap.Table) error {
	var samples []sample
	for _, s := range tab.Snapshot() {
		samples = append(samples, sample{Name: s.Name, Type: s.Type.String(), Value: s.Value})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(samples); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return enc.Close()
}
