package encoder

import (
	"math"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// assign stores the decoded dynamic value v into dst, converting it to dst's
// type where the shapes are compatible: numbers into any numeric kind,
// sequences into slices and arrays, records into maps and structs, and values
// into pointers and back.
func assign(dst reflect.Value, v any) error {
	if v == nil || (IsUndefined(v) && dst.Kind() != reflect.Interface) {
		dst.SetZero()
		return nil
	}
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if src.Kind() == reflect.Pointer && !src.IsNil() && src.Elem().Type().AssignableTo(dst.Type()) {
		dst.Set(src.Elem())
		return nil
	}

	switch v := v.(type) {
	case float64:
		return assignNumber(dst, v)
	case string:
		if dst.Kind() == reflect.String {
			dst.SetString(v)
			return nil
		}
	case bool:
		if dst.Kind() == reflect.Bool {
			dst.SetBool(v)
			return nil
		}
	case []any:
		return assignSequence(dst, v)
	case map[string]any:
		return assignRecord(dst, v)
	}
	return mismatch(dst, v)
}

func mismatch(dst reflect.Value, v any) error {
	return errors.Newf("cannot assign %T to %s", v, dst.Type())
}

func assignNumber(dst reflect.Value, f float64) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || dst.OverflowInt(int64(f)) {
			return errors.Newf("number %v overflows %s", f, dst.Type())
		}
		dst.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || dst.OverflowUint(uint64(f)) {
			return errors.Newf("number %v overflows %s", f, dst.Type())
		}
		dst.SetUint(uint64(f))
	case reflect.Float32, reflect.Float64:
		if dst.OverflowFloat(f) {
			return errors.Newf("number %v overflows %s", f, dst.Type())
		}
		dst.SetFloat(f)
	default:
		return mismatch(dst, f)
	}
	return nil
}

func assignSequence(dst reflect.Value, elems []any) error {
	switch dst.Kind() {
	case reflect.Slice:
		s := reflect.MakeSlice(dst.Type(), len(elems), len(elems))
		for i, e := range elems {
			if err := assign(s.Index(i), e); err != nil {
				return errors.Wrapf(err, "index %d", i)
			}
		}
		dst.Set(s)
	case reflect.Array:
		// Extra elements are dropped, missing ones left zero.
		dst.SetZero()
		for i := 0; i < len(elems) && i < dst.Len(); i++ {
			if err := assign(dst.Index(i), elems[i]); err != nil {
				return errors.Wrapf(err, "index %d", i)
			}
		}
	default:
		return mismatch(dst, elems)
	}
	return nil
}

func assignRecord(dst reflect.Value, rec map[string]any) error {
	switch dst.Kind() {
	case reflect.Map:
		t := dst.Type()
		m := reflect.MakeMapWithSize(t, len(rec))
		for k, v := range rec {
			key, err := parseMapKey(t.Key(), k)
			if err != nil {
				return err
			}
			elem := reflect.New(t.Elem()).Elem()
			if err := assign(elem, v); err != nil {
				return errors.Wrapf(err, "key %q", k)
			}
			m.SetMapIndex(key, elem)
		}
		dst.Set(m)
	case reflect.Struct:
		// A struct whose tag was not registered arrives as a record; the
		// destination type still knows how to hold it.
		return assignStruct(dst, rec)
	default:
		return mismatch(dst, rec)
	}
	return nil
}

// assignStruct replaces the struct dst with one built from rec by json field
// name. Fields missing from rec are left zero.
func assignStruct(dst reflect.Value, rec map[string]any) error {
	known := make(map[string]any, len(rec))
	for k, v := range rec {
		if _, ok := fieldIndex(dst.Type(), k); ok {
			known[k] = v
		}
	}
	out := reflect.New(dst.Type())
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out.Interface(),
		DecodeHook: mapstructure.DecodeHookFuncValue(assignHook),
		MatchName:  func(key, field string) bool { return key == field },
	})
	if err != nil {
		return errors.Wrap(err, "failed to build struct decoder")
	}
	if err := dec.Decode(known); err != nil {
		return errors.Wrapf(err, "cannot assign record to %s", dst.Type())
	}
	dst.Set(out.Elem())
	return nil
}

// assignHook converts each field value with assign, so sets, maps, big
// integers and timestamps reach the struct as they were decoded. Nested
// records bound for struct fields are left to mapstructure.
func assignHook(from, to reflect.Value) (any, error) {
	if from.Kind() == reflect.Map && to.Kind() == reflect.Struct {
		return from.Interface(), nil
	}
	out := reflect.New(to.Type()).Elem()
	if err := assign(out, from.Interface()); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

func parseMapKey(t reflect.Type, k string) (reflect.Value, error) {
	key := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		key.SetString(k)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(k, 10, t.Bits())
		if err != nil {
			return key, errors.Wrapf(err, "map key %q", k)
		}
		key.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(k, 10, t.Bits())
		if err != nil {
			return key, errors.Wrapf(err, "map key %q", k)
		}
		key.SetUint(n)
	default:
		return key, errors.Newf("unsupported map key type %s", t)
	}
	return key, nil
}
