// Package encoder provides a type-preserving codec for value graphs.
//
// A plain structural encoding collapses distinct runtime shapes: an absent
// value looks like a missing field, a big integer looks like a lossy number,
// an ordered map looks like a record, a set looks like an array and a
// timestamp looks like a string. The Serializer tags every such node on the
// way out and uses the tags to rebuild the original shapes on the way in.
//
// # Wire shape
//
// A tagged node is a record with the type tag under "__" and, for built-in
// types whose state is not a set of named fields, an auxiliary payload under
// "___":
//
//	{"__":"undefined"}
//	{"__":"bigint","___":"123456789012345678901234567890"}
//	{"__":"Date","___":"1984-06-16T00:00:00Z"}
//	{"__":"Map","___":{"a":1}}
//	{"__":"Set","___":[1,2,3]}
//	{"__":"Person","name":"Ada","born":{"__":"Date","___":"1815-12-10T00:00:00Z"}}
//
// Named structs are tagged with their declared name (see registry.NameOf) and
// keep their exported fields as siblings of the tag. Arrays, maps, anonymous
// structs and scalars are written untagged.
//
// # Decoding
//
// Tags found in the registry produce a blank instance from the registered
// factory and have the sibling fields assigned onto it, so the value regains
// its methods while its constructor never runs. Built-in tags are rebuilt by
// fixed rules. Any other tag decodes to a map[string]any of the sibling fields.
//
// Example:
//
//	reg := registry.New()
//	registry.Register[Person](reg)
//	s := encoder.New(reg)
//	data, _ := s.Encode(&Person{Name: "Ada"})
//	v, _ := s.Decode(data) // v is a *Person
package encoder
