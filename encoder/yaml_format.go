package encoder

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-yaml"
)

// yamlFormat reads and writes the tree as YAML. Records map to yaml.MapSlice
// so field order survives.
type yamlFormat struct{}

func (yamlFormat) name() string { return "yaml" }

func (yamlFormat) marshal(tree any) ([]byte, error) {
	data, err := yaml.Marshal(toYAML(tree))
	if err != nil {
		return nil, errors.Wrap(err, "encoder: failed to write yaml")
	}
	return data, nil
}

func toYAML(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(string(v), 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = toYAML(e)
		}
		return out
	case *object:
		out := make(yaml.MapSlice, 0, len(v.fields))
		for _, f := range v.fields {
			out = append(out, yaml.MapItem{Key: f.key, Value: toYAML(f.value)})
		}
		return out
	default:
		return v
	}
}

func (f yamlFormat) unmarshal(data []byte) (any, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return nil, &ParseError{Format: f.name(), Err: err}
	}
	return fromYAML(v), nil
}

func fromYAML(v any) any {
	switch v := v.(type) {
	case yaml.MapSlice:
		o := newObject(len(v))
		for _, item := range v {
			key, ok := item.Key.(string)
			if !ok {
				key = fmt.Sprint(item.Key)
			}
			o.add(key, fromYAML(item.Value))
		}
		return o
	case map[string]any:
		// Only produced if ordering was not requested; keep it usable anyway.
		o := newObject(len(v))
		for k, e := range v {
			o.add(k, fromYAML(e))
		}
		return o
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = fromYAML(e)
		}
		return out
	case int:
		return json.Number(strconv.FormatInt(int64(v), 10))
	case int64:
		return json.Number(strconv.FormatInt(v, 10))
	case uint64:
		return json.Number(strconv.FormatUint(v, 10))
	case float64:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64))
	case time.Time:
		// Unquoted timestamps may be resolved by the parser.
		return v.Format(time.RFC3339Nano)
	default:
		return v
	}
}
