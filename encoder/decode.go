package encoder

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holmberd/go-typedcodec/registry"
	"go.uber.org/zap"
)

// decodeState rebuilds values from a parsed tree. Children are always
// reconstructed before their parent.
type decodeState struct {
	format   string
	registry *registry.Registry
	logger   *zap.Logger
}

func (d *decodeState) value(n any) (any, error) {
	switch n := n.(type) {
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			v, err := d.value(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *object:
		return d.object(n)
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, &ParseError{Format: d.format, Err: err}
		}
		return f, nil
	default:
		return n, nil
	}
}

func (d *decodeState) object(o *object) (any, error) {
	tag, isTagged := o.get(TagKey)
	if !isTagged {
		return d.record(o.fields)
	}

	// Split the reserved keys from the sibling fields. The payload is decoded
	// by the arm that owns it.
	var (
		payload    any
		hasPayload bool
		siblings   = make([]field, 0, len(o.fields))
	)
	for _, f := range o.fields {
		switch f.key {
		case TagKey:
		case PayloadKey:
			payload, hasPayload = f.value, true
		default:
			v, err := d.value(f.value)
			if err != nil {
				return nil, err
			}
			siblings = append(siblings, field{key: f.key, value: v})
		}
	}

	kind, factory := classify(tag, d.registry)
	switch kind {
	case KindRegistered:
		return d.instance(tag.(string), factory, siblings), nil
	case KindDate:
		return d.date(payload)
	case KindSet:
		return d.set(payload, hasPayload)
	case KindMap:
		return d.mapping(payload, hasPayload)
	case KindBigInt:
		return d.bigInt(payload)
	case KindUndefined:
		return Undefined, nil
	default:
		d.logger.Debug("encoder: unknown type tag, decoding as plain record",
			zap.Any("tag", tag),
			zap.Int("fields", len(siblings)),
		)
		return recordOf(siblings), nil
	}
}

// record decodes an untagged object into a map.
func (d *decodeState) record(fields []field) (any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := d.value(f.value)
		if err != nil {
			return nil, err
		}
		out[f.key] = v
	}
	return out, nil
}

func recordOf(fields []field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.key] = f.value
	}
	return out
}

// instance allocates a blank instance through the factory and copies the
// sibling fields onto it. The type's constructor is never called.
func (d *decodeState) instance(name string, factory registry.Factory, siblings []field) any {
	inst := factory()
	rv := reflect.ValueOf(inst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		d.logger.Warn("encoder: registered factory did not return a struct pointer, decoding as plain record",
			zap.String("type", name),
			zap.String("instance", fmt.Sprintf("%T", inst)),
		)
		return recordOf(siblings)
	}
	dst := rv.Elem()
	for _, f := range siblings {
		i, ok := fieldIndex(dst.Type(), f.key)
		if !ok {
			d.logger.Debug("encoder: dropping field unknown to registered type",
				zap.String("type", name),
				zap.String("field", f.key),
			)
			continue
		}
		if err := assign(dst.Field(i), f.value); err != nil {
			d.logger.Warn("encoder: skipping field that does not fit registered type",
				zap.String("type", name),
				zap.String("field", f.key),
				zap.Error(err),
			)
		}
	}
	return inst
}

func (d *decodeState) payloadError(tag string, err error) error {
	return &ParseError{Format: d.format, Tag: tag, Err: err}
}

// dateLayouts are tried in order. The date-only form accepts timestamps written
// without a time of day.
var dateLayouts = []string{time.RFC3339Nano, time.DateOnly}

func (d *decodeState) date(payload any) (any, error) {
	s, ok := payload.(string)
	if !ok {
		return nil, d.payloadError(TagDate, errors.Newf("expected string, got %T", payload))
	}
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, d.payloadError(TagDate, firstErr)
}

func (d *decodeState) set(payload any, present bool) (any, error) {
	if !present || payload == nil {
		return NewSet(), nil
	}
	members, ok := payload.([]any)
	if !ok {
		return nil, d.payloadError(TagSet, errors.Newf("expected sequence, got %T", payload))
	}
	s := NewSet()
	for _, m := range members {
		v, err := d.value(m)
		if err != nil {
			return nil, err
		}
		s.Add(v)
	}
	return s, nil
}

// mapping rebuilds a Map from its entries record. Entry keys are taken
// literally, reserved names included.
func (d *decodeState) mapping(payload any, present bool) (any, error) {
	if !present || payload == nil {
		return NewMap(), nil
	}
	entries, ok := payload.(*object)
	if !ok {
		return nil, d.payloadError(TagMap, errors.Newf("expected record, got %T", payload))
	}
	m := NewMap()
	for _, f := range entries.fields {
		v, err := d.value(f.value)
		if err != nil {
			return nil, err
		}
		m.Set(f.key, v)
	}
	return m, nil
}

func (d *decodeState) bigInt(payload any) (any, error) {
	var digits string
	switch p := payload.(type) {
	case string:
		digits = p
	case json.Number:
		digits = string(p)
	default:
		return nil, d.payloadError(TagBigInt, errors.Newf("expected decimal string, got %T", payload))
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, d.payloadError(TagBigInt, errors.Newf("invalid decimal integer %q", digits))
	}
	return b, nil
}
