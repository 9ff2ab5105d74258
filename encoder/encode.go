package encoder

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holmberd/go-typedcodec/registry"
)

var (
	undefinedType = reflect.TypeFor[undefined]()
	bigIntType    = reflect.TypeFor[big.Int]()
	timeType      = reflect.TypeFor[time.Time]()
	mapType       = reflect.TypeFor[Map]()
	setType       = reflect.TypeFor[Set]()
)

// toTree converts v into the tagged intermediate tree.
// The registry is not consulted; tags come from the runtime types.
func toTree(v any) (any, error) {
	return encodeValue(reflect.ValueOf(v))
}

// encodeValue applies the encoding rules in precedence order: sequences,
// Undefined, big integers, null and scalars, then composites.
func encodeValue(rv reflect.Value) (any, error) {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeSequence(rv)
	case reflect.Array:
		return encodeSequence(rv)
	}

	if rv.Type() == undefinedType {
		return tagged(TagUndefined, 0), nil
	}

	if b, ok := asBigInt(rv); ok {
		if b == nil {
			return nil, nil
		}
		o := tagged(TagBigInt, 1)
		o.add(PayloadKey, b.String())
		return o, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return json.Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		return encodeFloat(rv.Float(), rv.Type().Bits())
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeValue(rv.Elem())
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeRecord(rv)
	case reflect.Struct:
		return encodeComposite(rv)
	default:
		// Functions, channels, complex numbers and unsafe pointers have no
		// wire representation.
		return nil, nil
	}
}

// asBigInt reports whether rv holds a big.Int or *big.Int.
func asBigInt(rv reflect.Value) (*big.Int, bool) {
	switch {
	case rv.Type() == bigIntType:
		b := rv.Interface().(big.Int)
		return &b, true
	case rv.Kind() == reflect.Pointer && rv.Type().Elem() == bigIntType:
		return rv.Interface().(*big.Int), true
	}
	return nil, false
}

// encodeFloat formats f the way JavaScript prints numbers: plain decimal
// notation inside [1e-6, 1e21), exponent notation outside.
func encodeFloat(f float64, bits int) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Wrapf(ErrUnsupportedValue, "%v", f)
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return json.Number(strconv.FormatFloat(f, format, -1, bits)), nil
}

func encodeSequence(rv reflect.Value) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		v, err := encodeValue(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// encodeRecord encodes a Go map as an untagged record with sorted keys.
func encodeRecord(rv reflect.Value) (any, error) {
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: formatMapKey(iter.Key()), value: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })

	o := newObject(len(entries))
	for _, e := range entries {
		v, err := encodeValue(e.value)
		if err != nil {
			return nil, err
		}
		o.add(e.key, v)
	}
	return o, nil
}

func formatMapKey(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	default:
		return fmt.Sprint(k.Interface())
	}
}

// encodeComposite tags a struct with its declared name and encodes its fields
// as siblings of the tag. Built-in composites carry their state in the payload.
func encodeComposite(rv reflect.Value) (any, error) {
	switch rv.Type() {
	case timeType:
		o := tagged(TagDate, 1)
		o.add(PayloadKey, rv.Interface().(time.Time).Format(time.RFC3339Nano))
		return o, nil
	case mapType:
		m := rv.Interface().(Map)
		return encodeMap(&m)
	case setType:
		s := rv.Interface().(Set)
		return encodeSet(&s)
	}

	fields := typeFields(rv.Type())
	name := registry.NameOf(rv.Type())
	var o *object
	if name == "" {
		o = newObject(len(fields))
	} else {
		o = tagged(name, len(fields))
	}
	for _, f := range fields {
		v, err := encodeValue(rv.Field(f.index))
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", name, f.name)
		}
		o.add(f.name, v)
	}
	return o, nil
}

func encodeMap(m *Map) (any, error) {
	entries := newObject(m.Len())
	for k, v := range m.All() {
		ev, err := encodeValue(reflect.ValueOf(v))
		if err != nil {
			return nil, err
		}
		entries.add(k, ev)
	}
	o := tagged(TagMap, 1)
	o.add(PayloadKey, entries)
	return o, nil
}

func encodeSet(s *Set) (any, error) {
	members := make([]any, 0, s.Len())
	for v := range s.All() {
		ev, err := encodeValue(reflect.ValueOf(v))
		if err != nil {
			return nil, err
		}
		members = append(members, ev)
	}
	o := tagged(TagSet, 1)
	o.add(PayloadKey, members)
	return o, nil
}

// structField is an exported struct field and its wire name.
type structField struct {
	name  string
	index int
}

var fieldCache sync.Map // map[reflect.Type][]structField

// typeFields returns the exported fields of struct type t in declaration
// order. The json struct tag renames a field, "-" omits it.
func typeFields(t reflect.Type) []structField {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]structField)
	}
	fields := make([]structField, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		fields = append(fields, structField{name: name, index: i})
	}
	f, _ := fieldCache.LoadOrStore(t, fields)
	return f.([]structField)
}

// fieldIndex returns the index of the field of t with the given wire name.
func fieldIndex(t reflect.Type, name string) (int, bool) {
	for _, f := range typeFields(t) {
		if f.name == name {
			return f.index, true
		}
	}
	return 0, false
}
