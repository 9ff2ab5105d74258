package encoder

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/holmberd/go-typedcodec/registry"
	"go.uber.org/zap"
)

// Format selects the wire representation of the tagged tree.
type Format int

const (
	FormatJSON  Format = iota // JSON text, field order preserved.
	FormatYAML                // YAML text, field order preserved.
	FormatProto               // Binary google.protobuf.Value, sorted fields.
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatProto:
		return "proto"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

type wireFormat interface {
	name() string
	marshal(tree any) ([]byte, error)
	unmarshal(data []byte) (any, error)
}

func (f Format) wire() wireFormat {
	switch f {
	case FormatYAML:
		return yamlFormat{}
	case FormatProto:
		return protoFormat{}
	default:
		return jsonFormat{}
	}
}

type options struct {
	format Format
	logger *zap.Logger
}

type Option func(*options)

// WithFormat sets the wire format. Defaults to FormatJSON.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// WithLogger sets the logger used to report degraded decodes. Defaults to a
// no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Serializer encodes value graphs into tagged wire data and decodes them back,
// rebuilding registered types through the registry.
//
// Encode and Decode are safe for concurrent use as long as the registry is not
// written to concurrently, see registry.Registry.
type Serializer struct {
	registry *registry.Registry
	format   wireFormat
	logger   *zap.Logger
}

var _ Codec = (*Serializer)(nil)

// New creates a serializer that resolves type tags through reg.
// A nil registry behaves as an empty one.
func New(reg *registry.Registry, opts ...Option) *Serializer {
	o := options{format: FormatJSON, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = registry.New()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Serializer{
		registry: reg,
		format:   o.format.wire(),
		logger:   o.logger.With(zap.String("format", o.format.String())),
	}
}

// Encode returns the wire encoding of v.
func (s *Serializer) Encode(v any) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	return s.format.marshal(tree)
}

// Decode parses data and reconstructs the encoded value.
//
// Malformed data returns a *ParseError. Unknown type tags never fail: they
// decode to a map[string]any of the node's non-reserved fields.
func (s *Serializer) Decode(data []byte) (any, error) {
	tree, err := s.format.unmarshal(data)
	if err != nil {
		return nil, err
	}
	d := &decodeState{
		format:   s.format.name(),
		registry: s.registry,
		logger:   s.logger,
	}
	return d.value(tree)
}

// Marshal implements Codec.
func (s *Serializer) Marshal(v any) ([]byte, error) {
	return s.Encode(v)
}

// Unmarshal implements Codec. It decodes data and stores the result in the
// value pointed to by out, converting it to the target type.
func (s *Serializer) Unmarshal(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Wrapf(ErrInvalidTarget, "got %T", out)
	}
	v, err := s.Decode(data)
	if err != nil {
		return err
	}
	if err := assign(rv.Elem(), v); err != nil {
		return errors.Wrapf(err, "encoder: cannot unmarshal into %T", out)
	}
	return nil
}

// Name implements Codec.
func (s *Serializer) Name() string {
	return "tagged-" + s.format.name()
}
