package loupe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hoverAt requests hover with the cursor on the first byte of needle.
func hoverAt(t *testing.T, eng *Engine, req Request, needle string) *Hover {
	t.Helper()
	i := strings.Index(req.Text, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q not in source", needle)
	h, err := eng.Hover(context.Background(), req, i)
	require.NoError(t, err)
	return h
}

func TestHoverLocalVariable(t *testing.T) {
	eng := newTestEngine(t)
	src := "local count = 1\nprint(count)"
	h := hoverAt(t, eng, Request{Text: src}, "count)")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "local count: integer")
}

func TestHoverLocalFunction(t *testing.T) {
	eng := newTestEngine(t)
	src := "local function double(n)\n  return n * 2\nend\ndouble(2)"
	h := hoverAt(t, eng, Request{Text: src}, "double(2)")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "double(")
}

func TestHoverSandboxHelper(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.log(\"hi\")"
	h := hoverAt(t, eng, Request{Text: src}, "log")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "helpers.log")
	assert.Contains(t, h.Contents, "fun(message: string, level?: string)")
	assert.Contains(t, h.Contents, "structured line")
}

func TestHoverAsyncHelperMentionsAwait(t *testing.T) {
	eng := newTestEngine(t)
	src := "local r = await(helpers.http_get(\"u\"))"
	h := hoverAt(t, eng, Request{Text: src}, "http_get")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "await")
}

func TestHoverContextHookField(t *testing.T) {
	eng := newTestEngine(t)
	src := "print(context.task.id)"

	h := hoverAt(t, eng, Request{Text: src, Hook: "on_task_complete"}, "task")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "context.task")

	h = hoverAt(t, eng, Request{Text: src}, "task")
	assert.Nil(t, h, "hook fields have no hover without the hook")
}

func TestHoverGlobalFunction(t *testing.T) {
	eng := newTestEngine(t)
	src := "print(tostring(1))"
	h := hoverAt(t, eng, Request{Text: src}, "tostring")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "fun(value: any): string")
}

func TestHoverLibraryName(t *testing.T) {
	eng := newTestEngine(t)
	src := "local n = string.len(\"x\")"
	h := hoverAt(t, eng, Request{Text: src}, "string.len")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "string library")
}

func TestHoverLibraryMethod(t *testing.T) {
	eng := newTestEngine(t)
	src := "local n = string.len(\"x\")"
	h := hoverAt(t, eng, Request{Text: src}, "len")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "string.len")
	assert.Contains(t, h.Contents, "byte length")
}

func TestHoverStringMethodCall(t *testing.T) {
	eng := newTestEngine(t)
	src := "local s = \"hi\"\nlocal u = s:upper()"
	h := hoverAt(t, eng, Request{Text: src}, "upper")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "upper")
	assert.Contains(t, h.Contents, "uppercased")
}

func TestHoverKeyword(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = 1"
	h := hoverAt(t, eng, Request{Text: src}, "local")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "enclosing block")
}

func TestHoverDisabledGlobal(t *testing.T) {
	eng := newTestEngine(t)
	src := "os.time()"
	h := hoverAt(t, eng, Request{Text: src}, "os")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "disabled")
	assert.Contains(t, h.Contents, "helpers.now")
}

func TestHoverTableKey(t *testing.T) {
	eng := newTestEngine(t)
	src := "return { pass = true }"
	h := hoverAt(t, eng, Request{Text: src}, "pass")
	require.NotNil(t, h)
	assert.Contains(t, h.Contents, "pass:")
}

func TestHoverNowhere(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = 1 + 2"
	i := strings.Index(src, "+")
	h, err := eng.Hover(context.Background(), Request{Text: src}, i)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestHoverInsideCommentSuppressed(t *testing.T) {
	eng := newTestEngine(t)
	src := "-- print is disabled here\nlocal x = 1"
	h := hoverAt(t, eng, Request{Text: src}, "print")
	assert.Nil(t, h)
}

func TestHoverInsideStringSuppressed(t *testing.T) {
	eng := newTestEngine(t)
	src := "helpers.log(\"print me\")"
	h := hoverAt(t, eng, Request{Text: src}, "print me")
	assert.Nil(t, h)
}
