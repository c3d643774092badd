package hostconfig

// Map is an immutable in-memory host.
type Map struct {
	values map[string]any
}

// NewMap copies values into a new Map.
func NewMap(values map[string]any) *Map {
	m := &Map{values: make(map[string]any, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *Map) Lookup(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}
