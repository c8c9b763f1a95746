package leafmap

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
)

type entry struct {
	leaf Leaf
	mem  Memory
}

// Table is the lookup structure built from a mapping pass. A table is never
// updated: remapping builds a new one, and Readers obtained from an old table
// must be dropped once the objects they point into change shape.
type Table struct {
	readers *Readers
	entries []entry
	index   map[string]int
	skipped []error

	mu    sync.Mutex
	cache map[string]Reader
}

// NewTable builds a table from the results of mapping objects that live in
// mem. Leaf names must be unique across all results.
func NewTable(mem Memory, readers *Readers, results ...*Result) (*Table, error) {
	t := newTable(readers)
	for _, res := range results {
		if err := t.add(mem, res); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func newTable(readers *Readers) *Table {
	if readers == nil {
		readers = NewReaders()
	}
	return &Table{
		readers: readers,
		index:   make(map[string]int),
		cache:   make(map[string]Reader),
	}
}

func (t *Table) add(mem Memory, res *Result) error {
	for _, leaf := range res.Leaves {
		if _, dup := t.index[leaf.Name]; dup {
			return fmt.Errorf("duplicate leaf name %q", leaf.Name)
		}
		t.index[leaf.Name] = len(t.entries)
		t.entries = append(t.entries, entry{leaf: leaf, mem: mem})
	}
	t.skipped = append(t.skipped, res.Skipped...)
	return nil
}

// Len is the number of leaves in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup finds a leaf by its fully qualified name.
func (t *Table) Lookup(name string) (Leaf, bool) {
	i, found := t.index[name]
	if !found {
		return Leaf{}, false
	}
	return t.entries[i].leaf, true
}

// Reader returns a Reader for the named leaf. The reader is created on the
// first call and the same reader is returned afterwards.
func (t *Table) Reader(name string) (Reader, bool) {
	i, found := t.index[name]
	if !found {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if r, found := t.cache[name]; found {
		return r, true
	}
	e := &t.entries[i]
	r := t.readers.New(e.mem, e.leaf.Type, e.leaf.Addr)
	if r == nil {
		return nil, false
	}
	t.cache[name] = r
	return r, true
}

// Names lists every leaf name in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i := range t.entries {
		names[i] = t.entries[i].leaf.Name
	}
	return names
}

// Leaves lists every leaf in declaration order.
func (t *Table) Leaves() []Leaf {
	leaves := make([]Leaf, len(t.entries))
	for i := range t.entries {
		leaves[i] = t.entries[i].leaf
	}
	return leaves
}

// Complete lists, in declaration order, the names that start with prefix.
func (t *Table) Complete(prefix string) []string {
	var out []string
	for i := range t.entries {
		if strings.HasPrefix(t.entries[i].leaf.Name, prefix) {
			out = append(out, t.entries[i].leaf.Name)
		}
	}
	return out
}

// Skipped holds the errors for members left out of the mapping passes that
// built this table.
func (t *Table) Skipped() []error {
	return t.skipped
}

// Get reads the current value of the named leaf.
func (t *Table) Get(name string) (float64, bool) {
	r, found := t.Reader(name)
	if !found {
		return 0, false
	}
	return r.Read(), true
}

// Set stores v in the named leaf, narrowed to the leaf's type.
func (t *Table) Set(name string, v float64) error {
	r, found := t.Reader(name)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownLeaf, name)
	}
	return r.Set(v)
}

// A Sample is the value of one leaf at some moment.
type Sample struct {
	Name  string
	Type  ScalarType
	Value float64
}

// Snapshot reads every leaf, in declaration order.
func (t *Table) Snapshot() []Sample {
	out := make([]Sample, len(t.entries))
	for i := range t.entries {
		leaf := t.entries[i].leaf
		r, _ := t.Reader(leaf.Name)
		out[i] = Sample{Name: leaf.Name, Type: leaf.Type}
		if r != nil {
			out[i].Value = r.Read()
		}
	}
	return out
}

// WriteTo writes the name, current value and type of every leaf as an
// aligned listing.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 4, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tValue [type]")
	fmt.Fprintln(tw, "----\t------------")
	for _, s := range t.Snapshot() {
		fmt.Fprintf(tw, "%s\t%s [%v]\n", s.Name, strconv.FormatFloat(s.Value, 'g', -1, 64), s.Type)
	}
	err := tw.Flush()
	return int64(cw.offset), err
}

type countingWriter struct {
	w      io.Writer
	offset int
}

func (w *countingWriter) Write(buf []byte) (int, error) {
	n, err := w.w.Write(buf)
	w.offset += n
	return n, err
}
