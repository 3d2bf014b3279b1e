package loupe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(opts...)
	require.NoError(t, err)
	return eng
}

// cursorAfter returns the offset just past the first occurrence of needle.
func cursorAfter(t *testing.T, src, needle string) int {
	t.Helper()
	i := strings.Index(src, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q not in source", needle)
	return i + len(needle)
}

func labels(items []CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func findItem(items []CompletionItem, label string) *CompletionItem {
	for i := range items {
		if items[i].Label == label {
			return &items[i]
		}
	}
	return nil
}

func TestCompletionAfterHelpersDot(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = helpers."
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	got := labels(items)
	assert.Contains(t, got, "log")
	assert.Contains(t, got, "http_get")
	assert.Contains(t, got, "uuid")
	assert.NotContains(t, got, "print", "environment names must not leak into member completion")

	log := findItem(items, "log")
	require.NotNil(t, log)
	assert.Equal(t, CompletionFunction, log.Kind)
	assert.NotEmpty(t, log.Documentation)
}

func TestCompletionMemberWithPartialWord(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = helpers.ht"
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	got := labels(items)
	assert.Contains(t, got, "http_get")
	assert.Contains(t, got, "http_post")
}

func TestCompletionContextHookFields(t *testing.T) {
	eng := newTestEngine(t)
	src := "local v = context."

	items, err := eng.Completion(context.Background(), Request{Text: src, Hook: "on_task_complete"}, len(src), false)
	require.NoError(t, err)
	assert.Contains(t, labels(items), "task")
	assert.Contains(t, labels(items), "run_id")

	items, err = eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)
	assert.NotContains(t, labels(items), "task", "hook fields need the hook set")
	assert.Contains(t, labels(items), "run_id")
}

func TestCompletionNestedMemberChain(t *testing.T) {
	eng := newTestEngine(t)
	src := "local v = context.pipeline."
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	got := labels(items)
	assert.Contains(t, got, "id")
	assert.Contains(t, got, "name")
}

func TestCompletionLocalTableFields(t *testing.T) {
	eng := newTestEngine(t)
	src := "local cfg = { retries = 3, verbose = true }\nlocal r = cfg."
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	got := labels(items)
	assert.Contains(t, got, "retries")
	assert.Contains(t, got, "verbose")
}

func TestCompletionStringMethods(t *testing.T) {
	eng := newTestEngine(t)
	src := "local s = \"hi\"\nlocal u = s:"
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	got := labels(items)
	assert.Contains(t, got, "upper")
	assert.Contains(t, got, "sub")
}

func TestCompletionBracketIndexQuotesInsertText(t *testing.T) {
	eng := newTestEngine(t)
	src := "local cfg = { retries = 3 }\nlocal r = cfg["
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	item := findItem(items, "retries")
	require.NotNil(t, item)
	assert.Equal(t, `"retries"`, item.InsertText)
}

func TestCompletionUnknownBaseYieldsNothing(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = mystery."
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), true)
	require.NoError(t, err)
	assert.Empty(t, items, "member trigger on an unresolved base must stay silent")
}

func TestCompletionEnvironment(t *testing.T) {
	eng := newTestEngine(t)
	src := "local count = 1\nlocal x = co"
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	got := labels(items)
	assert.Contains(t, got, "count")
	assert.Contains(t, got, "context")
	assert.Contains(t, got, "helpers")
	assert.Contains(t, got, "print")
	assert.Contains(t, got, "string")
	assert.Contains(t, got, "for", "keywords ride along with environment completion")
}

func TestCompletionImplicitEmptyWordSuppressed(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = 1\n"
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = eng.Completion(context.Background(), Request{Text: src}, len(src), true)
	require.NoError(t, err)
	assert.NotEmpty(t, items, "explicit invocation completes even with no word")
}

func TestCompletionInsideCommentSuppressed(t *testing.T) {
	eng := newTestEngine(t)
	src := "-- helpers.\nlocal x = 1"
	off := cursorAfter(t, src, "-- helpers")
	items, err := eng.Completion(context.Background(), Request{Text: src}, off, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCompletionDedupPrefersFirstProvider(t *testing.T) {
	eng := newTestEngine(t)
	src := "local print = 1\nlocal x = pr"
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), false)
	require.NoError(t, err)

	var count int
	for _, it := range items {
		if it.Label == "print" {
			count++
			assert.Equal(t, CompletionVariable, it.Kind, "the local shadows the global")
		}
	}
	assert.Equal(t, 1, count)
}

func TestCompletionRespectsItemCap(t *testing.T) {
	eng := newTestEngine(t, WithMaxCompletionItems(5))
	src := "local x = "
	items, err := eng.Completion(context.Background(), Request{Text: src}, len(src), true)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestCompletionSurvivesSyntaxError(t *testing.T) {
	eng := newTestEngine(t)
	src := "local x = helpers.\nif then end"
	off := cursorAfter(t, src, "helpers.")
	items, err := eng.Completion(context.Background(), Request{Text: src}, off, false)
	require.NoError(t, err)
	assert.Contains(t, labels(items), "log")
}
