package registry

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string
}

type namedWidget struct{}

func (namedWidget) TypeName() string { return "acme.Widget" }

type ptrNamedWidget struct{}

func (*ptrNamedWidget) TypeName() string { return "acme.PtrWidget" }

func TestNameOf(t *testing.T) {
	t.Run("Go type name", func(t *testing.T) {
		assert.Equal(t, "widget", NameOf(reflect.TypeFor[widget]()))
	})

	t.Run("Pointer resolves to element", func(t *testing.T) {
		assert.Equal(t, "widget", NameOf(reflect.TypeFor[**widget]()))
	})

	t.Run("TypeNamer with value receiver", func(t *testing.T) {
		assert.Equal(t, "acme.Widget", NameOf(reflect.TypeFor[namedWidget]()))
		assert.Equal(t, "acme.Widget", NameOf(reflect.TypeFor[*namedWidget]()))
	})

	t.Run("TypeNamer with pointer receiver", func(t *testing.T) {
		assert.Equal(t, "acme.PtrWidget", NameOf(reflect.TypeFor[ptrNamedWidget]()))
	})

	t.Run("Unnamed types", func(t *testing.T) {
		assert.Empty(t, NameOf(reflect.TypeFor[struct{ A int }]()))
		assert.Empty(t, NameOf(reflect.TypeFor[[]int]()))
		assert.Empty(t, NameOf(nil))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Register and lookup", func(t *testing.T) {
		r := New()
		r.Register("widget", func() any { return &widget{} })

		f, ok := r.Lookup("widget")
		require.True(t, ok, "should find registered name")
		w, ok := f().(*widget)
		require.True(t, ok, "should produce a *widget")
		assert.Zero(t, *w, "should produce a blank instance")
	})

	t.Run("Lookup of missing name", func(t *testing.T) {
		r := New()
		f, ok := r.Lookup("missing")
		assert.False(t, ok)
		assert.Nil(t, f)
	})

	t.Run("Last registration wins", func(t *testing.T) {
		r := New()
		r.Register("x", func() any { return 1 })
		r.Register("x", func() any { return 2 })

		f, ok := r.Lookup("x")
		require.True(t, ok)
		assert.Equal(t, 2, f())
		assert.Equal(t, 1, r.Len())
	})

	t.Run("Generic registration", func(t *testing.T) {
		r := New()
		name := Register[widget](r)
		assert.Equal(t, "widget", name)

		RegisterAs[namedWidget](r, "alias")
		assert.Equal(t, []string{"alias", "widget"}, r.Names())

		f, ok := r.Lookup("widget")
		require.True(t, ok)
		assert.IsType(t, &widget{}, f())
		assert.NotSame(t, f(), f(), "should allocate a fresh instance per call")
	})

	t.Run("Concurrent lookups", func(t *testing.T) {
		r := New()
		Register[widget](r)
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok := r.Lookup("widget")
				assert.True(t, ok)
			}()
		}
		wg.Wait()
	})
}
