package main

import (
	"context"
	"fmt"
	"os"

	leafmap "github.com/alexflint/go-leafmap"
)

type Hit struct {
	Energy  float64
	Channel uint16
}

type T struct {
	X    int32
	Hits [2]Hit
	Grid [2][2]int8
	Tags []uint8
	Y    string
}

func check(tab *leafmap.Table, name string, want float64) {
	got, found := tab.Get(name)
	if !found {
		fmt.Printf("no leaf named %s\n", name)
		os.Exit(1)
	}
	if got != want {
		fmt.Printf("%s was %v, expected %v\n", name, got, want)
		os.Exit(1)
	}
}

func main() {
	in := &T{X: 123, Y: "xyz", Tags: []uint8{7}}
	in.Hits[1].Energy = 2.5
	in.Grid[1][0] = -3

	cat := leafmap.NewCatalog()
	s := leafmap.NewSession(leafmap.NewMapper(cat))
	if err := s.AttachGo("t", cat, in); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	tab, err := s.Remap(context.Background())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	check(tab, "t.X", 123)
	check(tab, "t.Hits[1].Energy", 2.5)
	check(tab, "t.Grid[1][0]", -3)
	check(tab, "t.Tags[0]", 7)

	in.X = 456
	check(tab, "t.X", 456)

	if err := tab.Set("t.Hits[0].Channel", 9); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if in.Hits[0].Channel != 9 {
		fmt.Printf("channel was %d after set, expected 9\n", in.Hits[0].Channel)
		os.Exit(1)
	}

	in.Tags = append(in.Tags, 8, 9)
	tab, err = s.Remap(context.Background())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	check(tab, "t.Tags[2]", 9)

	if n := len(tab.Skipped()); n != 1 {
		fmt.Printf("%d members were skipped, expected 1\n", n)
		os.Exit(1)
	}
}
