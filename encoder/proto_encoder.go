package encoder

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// protoFormat carries the tree as a binary google.protobuf.Value.
//
// Struct fields are a protobuf map, so field order is not kept: records decode
// with sorted keys. Numbers travel as doubles.
type protoFormat struct{}

func (protoFormat) name() string { return "proto" }

func (protoFormat) marshal(tree any) ([]byte, error) {
	v, err := toProtoValue(tree)
	if err != nil {
		return nil, err
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoder: failed to write proto")
	}
	return data, nil
}

func toProtoValue(v any) (*structpb.Value, error) {
	switch v := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(v), nil
	case string:
		return structpb.NewStringValue(v), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrUnsupportedValue, "number %s", v)
		}
		return structpb.NewNumberValue(f), nil
	case []any:
		list := &structpb.ListValue{Values: make([]*structpb.Value, len(v))}
		for i, e := range v {
			pv, err := toProtoValue(e)
			if err != nil {
				return nil, err
			}
			list.Values[i] = pv
		}
		return structpb.NewListValue(list), nil
	case *object:
		st := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(v.fields))}
		for _, f := range v.fields {
			pv, err := toProtoValue(f.value)
			if err != nil {
				return nil, err
			}
			st.Fields[f.key] = pv
		}
		return structpb.NewStructValue(st), nil
	default:
		return nil, errors.Newf("encoder: unexpected tree node %T", v)
	}
}

func (f protoFormat) unmarshal(data []byte) (any, error) {
	v := &structpb.Value{}
	if err := proto.Unmarshal(data, v); err != nil {
		return nil, &ParseError{Format: f.name(), Err: err}
	}
	return fromProtoValue(v), nil
}

func fromProtoValue(v *structpb.Value) any {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return json.Number(strconv.FormatFloat(k.NumberValue, 'g', -1, 64))
	case *structpb.Value_ListValue:
		values := k.ListValue.GetValues()
		out := make([]any, len(values))
		for i, e := range values {
			out[i] = fromProtoValue(e)
		}
		return out
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		keys := lo.Keys(fields)
		slices.Sort(keys)
		o := newObject(len(keys))
		for _, key := range keys {
			o.add(key, fromProtoValue(fields[key]))
		}
		return o
	default:
		// Null or unset.
		return nil
	}
}
