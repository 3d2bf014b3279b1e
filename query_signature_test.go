package loupe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signatureAt requests signature help with the cursor just past needle.
func signatureAt(t *testing.T, eng *Engine, req Request, needle string) *SignatureHelp {
	t.Helper()
	i := strings.Index(req.Text, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q not in source", needle)
	h, err := eng.SignatureHelp(context.Background(), req, i+len(needle))
	require.NoError(t, err)
	return h
}

func TestSignatureHelpForHelper(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.log(\"hi\", \"debug\")"
	h := signatureAt(t, eng, Request{Text: src}, "\"hi\", ")
	require.NotNil(t, h)
	require.Len(t, h.Signatures, 1)

	sig := h.Signatures[0]
	assert.Equal(t, "helpers.log(message: string, level?: string)", sig.Label)
	require.Len(t, sig.Parameters, 2)
	assert.Equal(t, "message: string", sig.Parameters[0].Label)
	assert.Equal(t, "level?: string", sig.Parameters[1].Label)
	assert.Equal(t, 1, h.ActiveParameter)
	assert.NotEmpty(t, sig.Documentation)
}

func TestSignatureHelpFirstArgument(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.kv_set(\"k\", \"v\")"
	h := signatureAt(t, eng, Request{Text: src}, "kv_set(")
	require.NotNil(t, h)
	assert.Equal(t, 0, h.ActiveParameter)
}

func TestSignatureHelpGlobal(t *testing.T) {
	eng := newTestEngine(t)
	src := "tonumber(\"4\", 10)"
	h := signatureAt(t, eng, Request{Text: src}, "\"4\", ")
	require.NotNil(t, h)
	require.Len(t, h.Signatures, 1)
	assert.Contains(t, h.Signatures[0].Label, "tonumber(value: any, base?: integer)")
	assert.Equal(t, 1, h.ActiveParameter)
}

func TestSignatureHelpLocalFunction(t *testing.T) {
	eng := newTestEngine(t)
	src := "local function greet(name, punct)\n  return name .. punct\nend\ngreet(\"hi\", \"!\")"
	h := signatureAt(t, eng, Request{Text: src}, "greet(\"hi\", ")
	require.NotNil(t, h)
	require.Len(t, h.Signatures, 1)
	require.Len(t, h.Signatures[0].Parameters, 2)
	assert.Contains(t, h.Signatures[0].Parameters[0].Label, "name")
	assert.Equal(t, 1, h.ActiveParameter)
}

func TestSignatureHelpMethodCallSkipsReceiver(t *testing.T) {
	eng := newTestEngine(t)
	src := "local s = \"hi\"\nlocal r = s:sub(1)"
	h := signatureAt(t, eng, Request{Text: src}, "s:sub(")
	require.NotNil(t, h)
	// The receiver fills the first parameter, so the cursor starts on i.
	assert.Equal(t, 1, h.ActiveParameter)
	assert.Contains(t, h.Signatures[0].Label, "s: string")
}

func TestSignatureHelpNestedCall(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.log(tostring(1))"
	h := signatureAt(t, eng, Request{Text: src}, "tostring(")
	require.NotNil(t, h)
	assert.Contains(t, h.Signatures[0].Label, "tostring")
	assert.Equal(t, 0, h.ActiveParameter)
}

func TestSignatureHelpCommaInTableArgument(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.http_get(\"u\", { a = 1, b = 2 })"
	h := signatureAt(t, eng, Request{Text: src}, "b = 2 }")
	require.NotNil(t, h)
	assert.Contains(t, h.Signatures[0].Label, "http_get")
	assert.Equal(t, 1, h.ActiveParameter, "commas inside a table argument do not advance the parameter")
}

func TestSignatureHelpOnCalleeItselfSuppressed(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.log(\"hi\")"
	i := strings.Index(src, "log")
	h, err := eng.SignatureHelp(context.Background(), Request{Text: src}, i)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestSignatureHelpOutsideCall(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = 1"
	h, err := eng.SignatureHelp(context.Background(), Request{Text: src}, len(src))
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestSignatureHelpUnknownCallee(t *testing.T) {
	eng := newTestEngine(t)
	src := "mystery(1, 2)"
	h := signatureAt(t, eng, Request{Text: src}, "mystery(1, ")
	assert.Nil(t, h)
}
