package leafmap

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one dot-separated component of a leaf path, such as
// "hits[2]" or "grid[1][0]".
type segment struct {
	Name    string
	Indices []int
}

// parsePath splits a leaf path like "hits[2].energy" into segments.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}

	var segs []segment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", path)
		}

		name := part
		var indices []int
		if open := strings.IndexByte(part, '['); open >= 0 {
			name = part[:open]
			rest := part[open:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("invalid path %q: unexpected %q", path, rest)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, fmt.Errorf("invalid path %q: unterminated index", path)
				}
				x, err := strconv.Atoi(rest[1:end])
				if err != nil || x < 0 {
					return nil, fmt.Errorf("invalid path %q: bad index %q", path, rest[1:end])
				}
				indices = append(indices, x)
				rest = rest[end+1:]
			}
		}
		if name == "" {
			return nil, fmt.Errorf("invalid path %q: index without member name", path)
		}

		segs = append(segs, segment{Name: name, Indices: indices})
	}
	return segs, nil
}
