package encoder

import (
	"iter"
	"math/big"
	"reflect"
	"slices"
	"time"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined marks a value that is explicitly not present. It is distinct from
// nil, which encodes as null. Its type has no other value, so every copy is
// the same marker.
var Undefined undefined

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Map is an insertion-ordered mapping with unique string keys.
// The zero value is an empty map ready to use.
type Map struct {
	keys    []string
	entries map[string]any
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: make(map[string]any)}
}

// Set stores value under key. A new key is appended to the iteration order,
// an existing key keeps its position.
func (m *Map) Set(key string, value any) *Map {
	if m.entries == nil {
		m.entries = make(map[string]any)
	}
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = value
	return m
}

func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if !m.Has(key) {
		return false
	}
	delete(m.entries, key)
	i := slices.Index(m.keys, key)
	m.keys = slices.Delete(m.keys, i, i+1)
	return true
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates over the entries in insertion order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.entries[k]) {
				return
			}
		}
	}
}

// Equal reports whether both maps hold the same entries, regardless of order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for k, v := range m.All() {
		ov, ok := o.Get(k)
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	return true
}

// Set is an insertion-ordered collection of unique values.
//
// Numbers of predeclared numeric types are stored as float64, so 1 and 1.0 are
// the same member. Big integers are members by numeric value and timestamps by
// instant. Members that are not comparable (slices, maps) are kept without
// de-duplication.
// The zero value is an empty set ready to use.
type Set struct {
	members []any
	index   map[any]struct{}
}

// NewSet returns a set holding members.
func NewSet(members ...any) *Set {
	s := &Set{index: make(map[any]struct{}, len(members))}
	for _, v := range members {
		s.Add(v)
	}
	return s
}

// Add inserts v unless it is already a member.
func (s *Set) Add(v any) *Set {
	v = normalizeNumber(v)
	if !isComparable(v) {
		s.members = append(s.members, v)
		return s
	}
	if s.index == nil {
		s.index = make(map[any]struct{})
	}
	k := memberKey(v)
	if _, ok := s.index[k]; ok {
		return s
	}
	s.index[k] = struct{}{}
	s.members = append(s.members, v)
	return s
}

func (s *Set) Has(v any) bool {
	if s == nil {
		return false
	}
	v = normalizeNumber(v)
	if isComparable(v) {
		_, ok := s.index[memberKey(v)]
		return ok
	}
	return slices.ContainsFunc(s.members, func(m any) bool { return valueEqual(m, v) })
}

// Delete removes v and reports whether it was a member.
func (s *Set) Delete(v any) bool {
	if !s.Has(v) {
		return false
	}
	v = normalizeNumber(v)
	if isComparable(v) {
		delete(s.index, memberKey(v))
	}
	i := slices.IndexFunc(s.members, func(m any) bool { return valueEqual(m, v) })
	s.members = slices.Delete(s.members, i, i+1)
	return true
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Values returns the members in insertion order.
func (s *Set) Values() []any {
	if s == nil {
		return nil
	}
	return slices.Clone(s.members)
}

// All iterates over the members in insertion order.
func (s *Set) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		if s == nil {
			return
		}
		for _, v := range s.members {
			if !yield(v) {
				return
			}
		}
	}
}

// Equal reports whether both sets hold the same members, regardless of order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for v := range s.All() {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

type (
	bigIntKey string
	instantKey struct {
		sec  int64
		nsec int
	}
)

// memberKey returns the index key of a comparable member. Values that compare
// equal by valueEqual share a key.
func memberKey(v any) any {
	switch m := v.(type) {
	case *big.Int:
		if m != nil {
			return bigIntKey(m.String())
		}
	case time.Time:
		return instantKey{sec: m.Unix(), nsec: m.Nanosecond()}
	}
	return v
}

func isComparable(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

// normalizeNumber converts numbers of predeclared numeric types to float64.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

// valueEqual is deep equality that treats numbers by value and compares
// timestamps by instant and big integers numerically.
func valueEqual(a, b any) bool {
	a, b = normalizeNumber(a), normalizeNumber(b)
	switch av := a.(type) {
	case *big.Int:
		bv, ok := b.(*big.Int)
		return ok && (av == bv || (av != nil && bv != nil && av.Cmp(bv) == 0))
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case *Set:
		bv, ok := b.(*Set)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		return ok && slices.EqualFunc(av, bv, valueEqual)
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if w, ok := bv[k]; !ok || !valueEqual(v, w) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
