package cockpit

// OrderedMap is a string-keyed map that preserves insertion order of its keys.
//
// The compiled configuration relies on deterministic iteration: the schema
// document must list queries, commands and aggregates in the exact order the
// upstream compiler produced them, which a plain Go map cannot guarantee.
// Setting an existing key replaces its value but keeps the key's original
// position (last write wins, first position wins).
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{
		values: make(map[string]V),
	}
}

// Set inserts or replaces the value for the given key.
func (m *OrderedMap[V]) Set(key string, value V) *OrderedMap[V] {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value

	return m
}

// Get returns the value for the given key and whether it exists.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	value, exists := m.values[key]
	return value, exists
}

// Has reports whether the given key exists.
func (m *OrderedMap[V]) Has(key string) bool {
	_, exists := m.values[key]
	return exists
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
// The returned slice is shared; callers must not modify it.
func (m *OrderedMap[V]) Keys() []string {
	return m.keys
}

// MapEntries projects every entry of an OrderedMap into a slice, preserving
// the map's insertion order. The projection function receives the key and
// its value.
func MapEntries[V any, R any](m *OrderedMap[V], project func(key string, value V) R) []R {
	result := make([]R, 0, m.Len())

	for _, key := range m.keys {
		result = append(result, project(key, m.values[key]))
	}

	return result
}
