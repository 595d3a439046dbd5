package pcodes

import "fmt"

// stringInterner maps repeated strings (country codes) to small integer
// indexes so each admin unit stores two bytes instead of a string header.
// Index 0 is reserved for the empty string. An interner is filled during
// setup and only read afterwards, so it needs no locking.
type stringInterner[T ~uint8 | ~uint16] struct {
	lookup []string     // index -> string
	index  map[string]T // string -> index
}

func newStringInterner[T ~uint8 | ~uint16](capacity int) *stringInterner[T] {
	si := &stringInterner[T]{
		lookup: make([]string, 1, capacity),
		index:  make(map[string]T, capacity),
	}
	si.index[""] = 0
	return si
}

// intern returns the index for s, adding it if needed. It fails once the
// index type is exhausted rather than wrapping around.
func (si *stringInterner[T]) intern(s string) (T, error) {
	if idx, ok := si.index[s]; ok {
		return idx, nil
	}
	maxVal := int(^T(0))
	if len(si.lookup) > maxVal {
		return 0, fmt.Errorf("string interner capacity exceeded: %d entries (max %d)", len(si.lookup), maxVal)
	}
	idx := T(len(si.lookup))
	si.lookup = append(si.lookup, s)
	si.index[s] = idx
	return idx, nil
}

// get returns the string for an index, or "" if out of range.
func (si *stringInterner[T]) get(idx T) string {
	if int(idx) < len(si.lookup) {
		return si.lookup[idx]
	}
	return ""
}

func (si *stringInterner[T]) count() int {
	return len(si.lookup) - 1
}
