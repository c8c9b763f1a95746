package leafmap

import (
	"strconv"
	"strings"
)

// Flatten enumerates every element of an array with the given extents and
// returns the bracketed index suffix of each one, e.g. "[1][0]". The last
// index varies fastest, so the position of a suffix in the result is the
// element's position in memory.
func Flatten(extents []int) ([]string, error) {
	if len(extents) > MaxDims {
		return nil, &DimensionalityError{Dims: len(extents)}
	}
	n, err := arrayLen(extents)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, n)
	index := make([]int, len(extents))
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.Reset()
		for _, x := range index {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(x))
			sb.WriteByte(']')
		}
		out = append(out, sb.String())

		// advance the odometer
		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < extents[d] {
				break
			}
			index[d] = 0
		}
	}
	return out, nil
}

// FlatIndex gets the position in memory of the element at the given
// indices of an array with the given extents.
func FlatIndex(extents, indices []int) (int, error) {
	if len(indices) != len(extents) {
		return 0, &DimensionalityError{Dims: len(indices)}
	}
	if _, err := arrayLen(extents); err != nil {
		return 0, err
	}
	var pos int
	for d, x := range indices {
		if x < 0 || x >= extents[d] {
			return 0, &IndexError{Index: x, Len: extents[d]}
		}
		pos = pos*extents[d] + x
	}
	return pos, nil
}

// arrayLen is the number of elements in an array with the given extents.
func arrayLen(extents []int) (int, error) {
	if len(extents) == 0 {
		return 0, ErrInvalidExtent
	}
	n := 1
	for _, e := range extents {
		if e < 1 {
			return 0, ErrInvalidExtent
		}
		n *= e
	}
	return n, nil
}
