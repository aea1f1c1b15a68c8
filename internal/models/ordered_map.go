package models

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// mapTypeTag marks a serialized OrderedMap: {"_type":"Map","_value":[[key,value],...]}.
const mapTypeTag = "Map"

// OrderedMap is a string-keyed map that remembers insertion order.
// Overwriting an existing key keeps its position.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{
		keys:   make([]string, 0),
		values: make(map[string]V),
	}
}

func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
		m.keys = make([]string, 0)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Clear removes every entry.
func (m *OrderedMap[V]) Clear() {
	m.keys = make([]string, 0)
	m.values = make(map[string]V)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns the values in insertion order.
func (m *OrderedMap[V]) Values() []V {
	if m == nil {
		return []V{}
	}
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap[V]) Range(fn func(key string, value V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// CloneFunc copies the map, passing every value through clone.
func (m *OrderedMap[V]) CloneFunc(clone func(V) V) *OrderedMap[V] {
	out := NewOrderedMap[V]()
	m.Range(func(k string, v V) bool {
		out.Set(k, clone(v))
		return true
	})
	return out
}

type taggedMap struct {
	Type  string            `json:"_type"`
	Value []json.RawMessage `json:"_value"`
}

func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	pairs := make([]json.RawMessage, 0, m.Len())
	var err error
	m.Range(func(k string, v V) bool {
		var pair []byte
		pair, err = json.Marshal([2]any{k, v})
		if err != nil {
			err = fmt.Errorf("ordered map key %q: %w", k, err)
			return false
		}
		pairs = append(pairs, pair)
		return true
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedMap{Type: mapTypeTag, Value: pairs})
}

func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	var tagged taggedMap
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if tagged.Type != mapTypeTag {
		return fmt.Errorf("ordered map: unexpected type tag %q", tagged.Type)
	}

	m.Clear()
	for i, raw := range tagged.Value {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil {
			return fmt.Errorf("ordered map entry %d: %w", i, err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("ordered map entry %d: want [key, value], got %d elements", i, len(pair))
		}
		var key string
		if err := json.Unmarshal(pair[0], &key); err != nil {
			return fmt.Errorf("ordered map entry %d key: %w", i, err)
		}
		var value V
		if err := json.Unmarshal(pair[1], &value); err != nil {
			return fmt.Errorf("ordered map key %q: %w", key, err)
		}
		m.Set(key, value)
	}
	return nil
}
