package main

import (
	"fmt"
	"testing"

	leafmap "github.com/alexflint/go-leafmap"
)

func requireNoError(b *testing.B, err error) {
	if err != nil {
		b.Error(err)
		b.FailNow()
	}
}

const depth = 4

var widths = []int{10, 100, 1000}

func BenchmarkMap(b *testing.B) {
	for _, width := range widths {
		cat, buf, td := newFixture(depth, width)
		m := quietMapper(cat)
		b.Run(fmt.Sprintf("width=%d", width), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, err := m.Map(buf, td, 0, "")
				requireNoError(b, err)
			}
		})
	}
}

func BenchmarkFlatten(b *testing.B) {
	for _, extents := range [][]int{{1000}, {10, 100}, {10, 10, 10}, {4, 5, 5, 10}} {
		b.Run(fmt.Sprint(extents), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, err := leafmap.Flatten(extents)
				requireNoError(b, err)
			}
		})
	}
}

func BenchmarkRead(b *testing.B) {
	cat, buf, td := newFixture(depth, 100)
	res, err := quietMapper(cat).Map(buf, td, 0, "")
	requireNoError(b, err)
	tab, err := leafmap.NewTable(buf, nil, res)
	requireNoError(b, err)

	r, found := tab.Reader("next.next.values[50]")
	if !found {
		b.Fatal("leaf not found")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Read()
	}
}

func BenchmarkSnapshot(b *testing.B) {
	cat, buf, td := newFixture(depth, 100)
	res, err := quietMapper(cat).Map(buf, td, 0, "")
	requireNoError(b, err)
	tab, err := leafmap.NewTable(buf, nil, res)
	requireNoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.Snapshot()
	}
}

func BenchmarkResolve(b *testing.B) {
	cat, buf, td := newFixture(depth, 100)
	m := quietMapper(cat)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := m.Resolve(buf, td, 0, "next.next.next.values[99]")
		requireNoError(b, err)
	}
}
