package encoder

import (
	"encoding/json"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

// jsonAPI writes compact JSON without HTML escaping.
var jsonAPI = jsoniter.Config{EscapeHTML: false}.Froze()

// jsonFormat reads and writes the tree as JSON text. The streaming API keeps
// object fields in tree order in both directions.
type jsonFormat struct{}

func (jsonFormat) name() string { return "json" }

func (jsonFormat) marshal(tree any) ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	writeJSON(stream, tree)
	if stream.Error != nil {
		return nil, errors.Wrap(stream.Error, "encoder: failed to write json")
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func writeJSON(s *jsoniter.Stream, v any) {
	switch v := v.(type) {
	case nil:
		s.WriteNil()
	case bool:
		s.WriteBool(v)
	case string:
		s.WriteString(v)
	case json.Number:
		s.WriteRaw(string(v))
	case []any:
		s.WriteArrayStart()
		for i, e := range v {
			if i > 0 {
				s.WriteMore()
			}
			writeJSON(s, e)
		}
		s.WriteArrayEnd()
	case *object:
		s.WriteObjectStart()
		for i, f := range v.fields {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteObjectField(f.key)
			writeJSON(s, f.value)
		}
		s.WriteObjectEnd()
	default:
		s.Error = errors.Newf("unexpected tree node %T", v)
	}
}

func (f jsonFormat) unmarshal(data []byte) (any, error) {
	iter := jsonAPI.BorrowIterator(data)
	defer jsonAPI.ReturnIterator(iter)

	tree := readJSON(iter)
	if !iterOK(iter) {
		return nil, &ParseError{Format: f.name(), Err: iter.Error}
	}
	// Anything but whitespace after the value is an error. Reaching the end of
	// the input leaves io.EOF behind.
	iter.WhatIsNext()
	if iter.Error == nil {
		return nil, &ParseError{Format: f.name(), Err: errors.New("unexpected data after top-level value")}
	}
	return tree, nil
}

// iterOK reports whether the iterator has no error other than reaching the
// end of the input, which a trailing number leaves behind.
func iterOK(iter *jsoniter.Iterator) bool {
	return iter.Error == nil || iter.Error == io.EOF
}

// fail records a syntax error. It replaces the io.EOF left behind by a value
// that ends the input.
func fail(iter *jsoniter.Iterator, msg string) {
	if iterOK(iter) {
		iter.Error = errors.New(msg)
	}
}

func readJSON(iter *jsoniter.Iterator) any {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		s := iter.ReadString()
		if !utf8.ValidString(s) {
			fail(iter, "invalid UTF-8 in string "+strconv.Quote(s))
		}
		return s
	case jsoniter.NumberValue:
		// The iterator reads any run of number characters; json.Valid applies
		// the number grammar (no leading zeros, digits after the dot).
		n := iter.ReadNumber()
		if !json.Valid([]byte(n)) {
			fail(iter, "invalid number "+strconv.Quote(string(n)))
		}
		return n
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil
	case jsoniter.BoolValue:
		return iter.ReadBool()
	case jsoniter.ArrayValue:
		arr := []any{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr = append(arr, readJSON(it))
			return iterOK(it)
		})
		return arr
	case jsoniter.ObjectValue:
		obj := newObject(4)
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			if !utf8.ValidString(key) {
				fail(it, "invalid UTF-8 in field name "+strconv.Quote(key))
				return false
			}
			obj.add(key, readJSON(it))
			return iterOK(it)
		})
		return obj
	default:
		fail(iter, "expected a value")
		return nil
	}
}
