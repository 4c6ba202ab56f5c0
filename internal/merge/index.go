package merge

// nameIndex is an insertion-ordered map from display name to entry. A fresh
// index is built for every merge.
type nameIndex[T any] struct {
	names  []string
	byName map[string]T
}

func newNameIndex[T any](capacity int) *nameIndex[T] {
	return &nameIndex[T]{
		names:  make([]string, 0, capacity),
		byName: make(map[string]T, capacity),
	}
}

func (x *nameIndex[T]) get(name string) (T, bool) {
	v, ok := x.byName[name]
	return v, ok
}

// put stores v under name. An existing name keeps its position.
func (x *nameIndex[T]) put(name string, v T) {
	if _, ok := x.byName[name]; !ok {
		x.names = append(x.names, name)
	}
	x.byName[name] = v
}

func (x *nameIndex[T]) values() []T {
	out := make([]T, 0, len(x.names))
	for _, n := range x.names {
		out = append(out, x.byName[n])
	}
	return out
}

// idSet is a set of entity ids.
type idSet map[string]struct{}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) add(id string) {
	s[id] = struct{}{}
}
