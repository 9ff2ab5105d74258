package encoder

import (
	"fmt"

	"github.com/holmberd/go-typedcodec/registry"
)

// Reserved field names of a tagged node. Serializable types must not declare
// fields with these names.
const (
	TagKey     = "__"  // Type tag.
	PayloadKey = "___" // Auxiliary payload.
)

// Built-in type tags.
const (
	TagUndefined = "undefined"
	TagBigInt    = "bigint"
	TagDate      = "Date"
	TagMap       = "Map"
	TagSet       = "Set"
)

// Kind is the decoding arm selected by a node's tag.
type Kind int

const (
	KindPlain Kind = iota // No tag.
	KindUndefined
	KindBigInt
	KindDate
	KindMap
	KindSet
	KindRegistered // Tag found in the registry.
	KindUnknown    // Tag matched nothing; decodes to a plain record.
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "Plain"
	case KindUndefined:
		return "Undefined"
	case KindBigInt:
		return "BigInt"
	case KindDate:
		return "Date"
	case KindMap:
		return "Map"
	case KindSet:
		return "Set"
	case KindRegistered:
		return "Registered"
	case KindUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// classify resolves a wire tag. The registry is consulted before the built-in
// tags, so a registration can shadow a built-in name.
func classify(tag any, reg *registry.Registry) (Kind, registry.Factory) {
	name, ok := tag.(string)
	if !ok {
		return KindUnknown, nil
	}
	if f, ok := reg.Lookup(name); ok {
		return KindRegistered, f
	}
	switch name {
	case TagDate:
		return KindDate, nil
	case TagSet:
		return KindSet, nil
	case TagMap:
		return KindMap, nil
	case TagBigInt:
		return KindBigInt, nil
	case TagUndefined:
		return KindUndefined, nil
	default:
		return KindUnknown, nil
	}
}
