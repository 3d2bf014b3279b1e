package loupe

import (
	"context"
	"testing"

	"github.com/jward/loupe/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadsEmbeddedCatalog(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)
	require.NotNil(t, eng.Catalog())
	assert.NotNil(t, eng.Catalog().Sandbox("helpers"))
}

func TestWithCatalogReplacesEmbedded(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)

	eng, err := New(WithCatalog(cat))
	require.NoError(t, err)
	assert.Same(t, cat, eng.Catalog())
}

func TestAnalyzeBuildsFullModel(t *testing.T) {
	eng := newTestEngine(t)
	res, err := eng.Analyze(context.Background(), Request{Text: "local x = 1\nprint(x)"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotNil(t, res.Doc)
	assert.NotNil(t, res.Chunk)
	assert.NotNil(t, res.Symbols)
}

func TestWithSuppressedCodesAccumulates(t *testing.T) {
	eng := newTestEngine(t,
		WithSuppressedCodes(CodeDisabledGlobal),
		WithSuppressedCodes(CodeLoopDepth))

	diags := diagnose(t, eng, Request{Text: "require(\"socket\")"})
	assert.Nil(t, firstWithCode(diags, CodeDisabledGlobal))
}
