package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavily-mcp/internal/domain"
)

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(
		&stubTool{name: "simple_search"},
		&stubTool{name: "fetch"},
		&stubTool{name: "another"},
	)

	var names []string
	for _, tl := range r.List() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"simple_search", "fetch", "another"}, names)

	var schemaNames []string
	for _, s := range r.Schemas() {
		schemaNames = append(schemaNames, s.Name)
	}
	assert.Equal(t, names, schemaNames)
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&stubTool{name: "fetch"}))
	assert.Error(t, r.Register(&stubTool{name: "fetch"}))
	assert.Panics(t, func() { r.MustRegister(&stubTool{name: "fetch"}) })
	assert.Len(t, r.List(), 1)
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(&stubTool{name: "fetch"})

	got, err := r.Get("fetch")
	require.NoError(t, err)
	assert.Equal(t, "fetch", got.Name())

	_, err = r.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolNotFound))
	assert.Equal(t, domain.CodeToolNotFound, domain.ErrorCodeOf(err))
}

func TestRegistryWrapsWithSchemaValidation(t *testing.T) {
	r := NewRegistry(nopLogger())
	inner := &stubTool{name: "fetch", schema: nameSchema, result: &domain.ToolResult{Content: "ok"}}
	r.MustRegister(inner)

	got, err := r.Get("fetch")
	require.NoError(t, err)
	_, isWrapped := got.(*SchemaValidatingTool)
	assert.True(t, isWrapped)

	_, err = got.Execute(context.Background(), json.RawMessage(`{}`))
	assert.Equal(t, domain.CodeInvalidInput, domain.ErrorCodeOf(err))
	assert.Zero(t, inner.calls)
}

func TestRegistryKeepsToolWithBrokenSchema(t *testing.T) {
	r := NewRegistry(nopLogger())
	inner := &stubTool{name: "odd", schema: json.RawMessage(`{"type": 12}`)}
	r.MustRegister(inner)

	got, err := r.Get("odd")
	require.NoError(t, err)
	assert.Same(t, inner, got)
}
