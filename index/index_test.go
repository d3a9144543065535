package index_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/index"
	"github.com/dhamidi/arbor/query"
	"github.com/dhamidi/arbor/workspace"
)

const declarations = `((let_declaration name: (identifier) @definition) (#set! kind "variable"))
(call_expression function: (identifier) @call)`

func open(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func files(t *testing.T, sources map[string]string) []*workspace.File {
	t.Helper()
	ws := workspace.New(t.TempDir(), workspace.Options{
		Extensions: map[string]string{".calc": "calc"},
		Languages:  map[string]*grammar.Table{"calc": grammars.Calc()},
	})
	for path, src := range sources {
		_, err := ws.Update(context.Background(), path, []byte(src))
		require.NoError(t, err)
	}
	return ws.Files()
}

func queries(t *testing.T) map[string]*query.Query {
	t.Helper()
	q, err := query.New(grammars.Calc(), declarations)
	require.NoError(t, err)
	return map[string]*query.Query{"calc": q}
}

func TestRebuildAndSearch(t *testing.T) {
	ix := open(t)
	ctx := context.Background()
	fs := files(t, map[string]string{
		"a.calc":     "let x = 1;\nf(x);\n",
		"lib/b.calc": "let y = g(2);\nlet xs = 3;\n",
	})

	run, err := ix.Rebuild(ctx, fs, declarations, queries(t))
	require.NoError(t, err)
	assert.Equal(t, 2, run.Files)
	assert.Equal(t, 5, run.Captures)
	assert.False(t, run.Exceeded)

	defs, err := ix.Search(ctx, index.Filter{Name: "definition"})
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "a.calc", defs[0].Path)
	assert.Equal(t, "x", defs[0].Text)
	assert.Equal(t, uint32(4), defs[0].StartByte)
	assert.Equal(t, "identifier", defs[0].NodeType)
	assert.Equal(t, "y", defs[1].Text)
	assert.Equal(t, "xs", defs[2].Text)
	assert.Equal(t, uint32(1), defs[2].StartRow)

	var settings []query.Property
	require.NoError(t, json.Unmarshal(defs[0].Settings, &settings))
	assert.Equal(t, []query.Property{{Key: "kind", Value: "variable", HasValue: true, Positive: true}}, settings)

	calls, err := ix.Search(ctx, index.Filter{Name: "call", PathPrefix: "lib"})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "g", calls[0].Text)
	assert.Empty(t, calls[0].Settings)

	xs, err := ix.Search(ctx, index.Filter{Text: "x%"})
	require.NoError(t, err)
	assert.Len(t, xs, 2)

	exact, err := ix.Search(ctx, index.Filter{Text: "x", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	last, err := ix.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, declarations, last.Query)
}

func TestUpdateAndRemove(t *testing.T) {
	ix := open(t)
	ctx := context.Background()
	fs := files(t, map[string]string{"a.calc": "let x = 1;"})
	qs := queries(t)
	_, err := ix.Rebuild(ctx, fs, declarations, qs)
	require.NoError(t, err)

	updated := files(t, map[string]string{"a.calc": "let x = 1;\nlet z = 2;"})
	n, err := ix.Update(ctx, updated[0], qs["calc"])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := ix.Search(ctx, index.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, ix.Remove(ctx, "a.calc"))
	all, err = ix.Search(ctx, index.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRebuildWithoutQuery(t *testing.T) {
	ix := open(t)
	ctx := context.Background()
	fs := files(t, map[string]string{"a.calc": "let x = 1;"})
	_, err := ix.Rebuild(ctx, fs, declarations, queries(t))
	require.NoError(t, err)

	run, err := ix.Rebuild(ctx, fs, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Captures)
	all, err := ix.Search(ctx, index.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMatchLimit(t *testing.T) {
	ix := open(t)
	ix.MatchLimit = 1
	ctx := context.Background()
	q, err := query.New(grammars.Calc(), "(binary_expression) @b")
	require.NoError(t, err)
	fs := files(t, map[string]string{"a.calc": "1 + 2 + 3 + 4;"})
	run, err := ix.Rebuild(ctx, fs, q.Source(), map[string]*query.Query{"calc": q})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Captures)
	assert.True(t, run.Exceeded)

	got, err := ix.Search(ctx, index.Filter{Name: "b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1 + 2", got[0].Text)
}

func TestOpenFile(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "index.db")
	ix, err := index.Open(dsn, false)
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	assert.FileExists(t, dsn)
}
