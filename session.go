package leafmap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// root is an object attached to a session.
type root struct {
	name     string
	typeName string
	mem      Memory
	addr     Address
}

// Session keeps a set of named objects and rebuilds a single table covering
// all of them on demand. Leaves of an object are named "<object>.<member>".
//
// Session serializes Remap with Attach and Detach, but not with whoever
// writes to the objects: callers must stop structural changes to the objects
// (such as growing containers) for the duration of a Remap.
type Session struct {
	Mapper  *Mapper
	Readers *Readers
	Metrics *Metrics // optional

	mu    sync.Mutex
	roots []root
	table *Table
}

// NewSession creates a session that maps objects with m.
func NewSession(m *Mapper) *Session {
	return &Session{
		Mapper:  m,
		Readers: NewReaders(),
	}
}

// Attach adds an object of the named type located at addr in mem. Its leaves
// appear in tables built by subsequent calls to Remap.
func (s *Session) Attach(name, typeName string, mem Memory, addr Address) error {
	if name == "" {
		return fmt.Errorf("cannot attach an object without a name")
	}
	if _, found := s.Mapper.Provider.Type(typeName); !found {
		return &UnknownTypeError{Member: name, TypeName: typeName}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roots {
		if r.name == name {
			return fmt.Errorf("an object named %s is already attached", name)
		}
	}
	s.roots = append(s.roots, root{name: name, typeName: typeName, mem: mem, addr: addr})
	s.Mapper.log().WithFields(logrus.Fields{
		"name": name,
		"type": typeName,
	}).Debug("attached object")
	return nil
}

// AttachGo binds a live Go struct and attaches it under name.
func (s *Session) AttachGo(name string, cat *Catalog, ptr interface{}) error {
	b, err := Bind(cat, ptr)
	if err != nil {
		return err
	}
	return s.Attach(name, b.TypeName, b.Mem, b.Addr)
}

// Detach removes the named object and reports whether it was attached.
func (s *Session) Detach(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.roots {
		if r.name == name {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return true
		}
	}
	return false
}

// Names lists the attached objects in the order they were attached.
func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.roots))
	for i, r := range s.roots {
		names[i] = r.name
	}
	return names
}

// Table returns the table built by the last Remap, or nil.
func (s *Session) Table() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Remap maps every attached object and builds a fresh table from the
// results, in attach order. Objects are mapped concurrently.
func (s *Session) Remap(ctx context.Context) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	results := make([]*Result, len(s.roots))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range s.roots {
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Mapper.MapType(r.mem, r.typeName, r.addr, r.name)
			if err != nil {
				return fmt.Errorf("mapping %s: %w", r.name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := newTable(s.Readers)
	for i, r := range s.roots {
		if err := t.add(r.mem, results[i]); err != nil {
			return nil, err
		}
	}
	s.table = t
	s.Metrics.observe(t, start)
	s.Mapper.log().WithFields(logrus.Fields{
		"objects": len(s.roots),
		"leaves":  t.Len(),
		"skipped": len(t.Skipped()),
	}).Debug("remapped")
	return t, nil
}
