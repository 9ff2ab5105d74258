// Package valuestore persists value graphs in Redis through a codec, so that
// registered types come back as instances with their methods.
package valuestore

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/holmberd/go-typedcodec/datastore"
	"github.com/holmberd/go-typedcodec/encoder"
	"github.com/holmberd/go-typedcodec/eventemitter"
	"go.uber.org/zap"
)

type Event int

const (
	ValuesPut Event = iota
	ValuesDeleted
	ValuesFlushed
)

func (e Event) String() string {
	switch e {
	case ValuesPut:
		return "ValuesPut"
	case ValuesDeleted:
		return "ValuesDeleted"
	case ValuesFlushed:
		return "ValuesFlushed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// EventTarget delivers the keys affected by a store operation.
type EventTarget = eventemitter.Target[[]string]

type options struct {
	codec  encoder.Codec
	logger *zap.Logger
}

type Option func(*options)

// WithCodec sets the codec used to encode stored values. Defaults to a
// JSON encoder.Serializer with an empty registry.
func WithCodec(c encoder.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the store logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store reads and writes encoded values through a datastore client.
// It is safe for concurrent use.
type Store struct {
	ds        *datastore.Client
	codec     encoder.Codec
	logger    *zap.Logger
	onPut     *EventTarget
	onDeleted *EventTarget
	onFlushed *EventTarget
}

func New(ds *datastore.Client, opts ...Option) (*Store, error) {
	if ds == nil {
		return nil, errors.New("valuestore: datastore client must not be nil")
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.codec == nil {
		o.codec = encoder.New(nil, encoder.WithLogger(o.logger))
	}
	return &Store{
		ds:        ds,
		codec:     o.codec,
		logger:    o.logger.With(zap.String("codec", o.codec.Name())),
		onPut:     eventemitter.NewTarget[[]string](ValuesPut.String()),
		onDeleted: eventemitter.NewTarget[[]string](ValuesDeleted.String()),
		onFlushed: eventemitter.NewTarget[[]string](ValuesFlushed.String()),
	}, nil
}

func (s *Store) Codec() encoder.Codec {
	return s.codec
}

func (s *Store) OnPut() *EventTarget {
	return s.onPut
}

func (s *Store) OnDeleted() *EventTarget {
	return s.onDeleted
}

func (s *Store) OnFlushed() *EventTarget {
	return s.onFlushed
}

// Put encodes v and stores it under key.
// If the key doesn't exist it's added, otherwise it's updated.
func (s *Store) Put(ctx context.Context, key string, v any, expiration time.Duration) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "valuestore: failed to encode value for key %q", key)
	}
	if err := s.ds.Put(ctx, key, data, expiration); err != nil {
		return err
	}
	s.onPut.Emit(ctx, []string{key})
	return nil
}

// PutMulti stores values[i] under keys[i] in a single batch.
func (s *Store) PutMulti(ctx context.Context, keys []string, values []any, expiration time.Duration) error {
	if len(keys) != len(values) {
		return errors.Newf("valuestore: got %d keys and %d values", len(keys), len(values))
	}
	if len(keys) == 0 {
		return nil // No-op for empty batch.
	}
	data := make([][]byte, len(values))
	for i, v := range values {
		d, err := s.codec.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "valuestore: failed to encode value for key %q", keys[i])
		}
		data[i] = d
	}
	if err := s.ds.PutMulti(ctx, keys, data, expiration); err != nil {
		return err
	}
	s.onPut.Emit(ctx, keys)
	return nil
}

// Get retrieves and decodes the value stored under key.
// datastore.ErrKeyNotFound is returned if the key is not found in the store.
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	var v any
	if err := s.GetInto(ctx, key, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetInto decodes the value stored under key into out, which must be a
// non-nil pointer.
func (s *Store) GetInto(ctx context.Context, key string, out any) error {
	data, err := s.ds.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := s.codec.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "valuestore: failed to decode value for key %q", key)
	}
	return nil
}

// GetMulti retrieves and decodes the values stored under keys.
// Keys not found in the store are not included in the result.
func (s *Store) GetMulti(ctx context.Context, keys []string) (map[string]any, error) {
	found, err := s.ds.GetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(found))
	for key, data := range found {
		var v any
		if err := s.codec.Unmarshal(data, &v); err != nil {
			return nil, errors.Wrapf(err, "valuestore: failed to decode value for key %q", key)
		}
		out[key] = v
	}
	return out, nil
}

// Delete removes the values stored under keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil // No-op for empty keys.
	}
	n, err := s.ds.Delete(ctx, keys...)
	if err != nil {
		return err
	}
	if n > 0 {
		s.onDeleted.Emit(ctx, keys)
	}
	return nil
}

// Exists checks whether a value is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.ds.Exists(ctx, key)
}

// Keys returns the stored keys matching the glob pattern.
//
// NOTE: This is a blocking operation.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.ds.Keys(ctx, pattern)
}

// Flush deletes every value in the store namespace.
// It triggers the ValuesFlushed event.
func (s *Store) Flush(ctx context.Context) error {
	n, err := s.ds.Flush(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("valuestore: flushed", zap.Int64("values", n))
	s.onFlushed.Emit(ctx, []string{})
	return nil
}

// Load retrieves the value stored under key as a T.
func Load[T any](ctx context.Context, s *Store, key string) (T, error) {
	var v T
	err := s.GetInto(ctx, key, &v)
	return v, err
}
