// Command bench measures how long it takes to map, snapshot and read
// objects of a synthetic type as its arrays grow.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	leafmap "github.com/alexflint/go-leafmap"
)

// newFixture registers a chain of depth composite types, each holding a
// counter, a float64 array of the given width and the next type in the
// chain, and returns the catalog with a zero-filled object of the outermost
// type.
func newFixture(depth, width int) (*leafmap.Catalog, *leafmap.Buffer, *leafmap.TypeDescriptor) {
	cat := leafmap.NewCatalog()
	var size uintptr
	var inner string
	for d := depth - 1; d >= 0; d-- {
		name := "Level" + strconv.Itoa(d)
		td := leafmap.TypeDescriptor{
			Name:  name,
			Align: 8,
			Members: []leafmap.MemberDescriptor{
				{Name: "count", Category: leafmap.Scalar, Scalar: leafmap.Int64, Offset: 0},
				{Name: "values", Category: leafmap.Scalar, Scalar: leafmap.Float64, Offset: 8, Dims: []int{width}},
			},
		}
		next := 8 + 8*uintptr(width)
		if inner != "" {
			td.Members = append(td.Members, leafmap.MemberDescriptor{
				Name:     "next",
				Category: leafmap.Composite,
				TypeName: inner,
				Offset:   next,
			})
			next += size
		}
		td.Size = next
		if err := cat.Register(td); err != nil {
			panic(err)
		}
		size, inner = next, name
	}

	td, _ := cat.Type(inner)
	buf := leafmap.NewBuffer(int(td.Size))
	return cat, buf, td
}

func quietMapper(cat *leafmap.Catalog) *leafmap.Mapper {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	m := leafmap.NewMapper(cat)
	m.Log = log
	return m
}

func main() {
	var args struct {
		Repeat int
		Depth  int
		Width  []int
	}
	args.Repeat = 20
	args.Depth = 4
	args.Width = []int{10, 100, 1000}
	arg.MustParse(&args)

	for _, width := range args.Width {
		cat, buf, td := newFixture(args.Depth, width)
		m := quietMapper(cat)

		var tab *leafmap.Table
		begin := time.Now()
		for i := 0; i < args.Repeat; i++ {
			res, err := m.Map(buf, td, 0, "")
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			tab, err = leafmap.NewTable(buf, nil, res)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
		mapTime := time.Since(begin).Seconds() / float64(args.Repeat)

		begin = time.Now()
		for i := 0; i < args.Repeat; i++ {
			tab.Snapshot()
		}
		snapTime := time.Since(begin).Seconds() / float64(args.Repeat)

		leaves := float64(tab.Len())
		fmt.Printf("width=%-6d %8d leaves   map %8.2f Mleaf/s   snapshot %8.2f Mleaf/s\n",
			width, tab.Len(), leaves/mapTime/1e6, leaves/snapTime/1e6)
	}
}
