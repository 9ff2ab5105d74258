package encoder

// The wire formats all read and write the same intermediate tree, built from:
//
//	nil, bool, string, json.Number, []any, *object
//
// Numbers stay in their textual form until decoding so integer digits are
// never rounded on the way out.

// field is a named child of an object.
type field struct {
	key   string
	value any
}

// object is a record that keeps its fields in wire order.
type object struct {
	fields []field
}

func newObject(capacity int) *object {
	return &object{fields: make([]field, 0, capacity)}
}

// tagged returns an object whose first field is the type tag.
func tagged(tag string, capacity int) *object {
	o := newObject(capacity + 1)
	o.add(TagKey, tag)
	return o
}

func (o *object) add(key string, value any) {
	o.fields = append(o.fields, field{key: key, value: value})
}

// get returns the value of the first field named key.
func (o *object) get(key string) (any, bool) {
	for _, f := range o.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}
