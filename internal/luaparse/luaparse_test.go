package luaparse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotNil(t, res.Chunk)
	return res
}

func TestParseLocalStatement(t *testing.T) {
	res := parse(t, "local a, b = 1, \"two\"")
	require.Empty(t, res.Errors)
	require.Len(t, res.Chunk.Body, 1)

	st, ok := res.Chunk.Body[0].(*LocalStatement)
	require.True(t, ok)
	require.Len(t, st.Names, 2)
	assert.Equal(t, "a", st.Names[0].Name)
	assert.Equal(t, "b", st.Names[1].Name)
	require.Len(t, st.Init, 2)

	num, ok := st.Init[0].(*NumberLiteral)
	require.True(t, ok)
	assert.True(t, num.IsInt)
	str, ok := st.Init[1].(*StringLiteral)
	require.True(t, ok)
	assert.Equal(t, "two", str.Value)
}

func TestParseMemberAndCall(t *testing.T) {
	src := "helpers.log(\"hi\")"
	res := parse(t, src)
	require.Len(t, res.Chunk.Body, 1)

	cs, ok := res.Chunk.Body[0].(*CallStatement)
	require.True(t, ok)
	call, ok := cs.Call.(*CallExpr)
	require.True(t, ok)
	m, ok := call.Target.(*MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "log", m.Name)
	assert.Equal(t, ".", m.Indexer)

	// NameRange spans just the member name.
	assert.Equal(t, strings.Index(src, "log"), m.NameRange.Start)
	assert.Equal(t, strings.Index(src, "log")+len("log"), m.NameRange.End)
}

func TestParseMethodCallIndexer(t *testing.T) {
	res := parse(t, "s:sub(2, 3)")
	cs := res.Chunk.Body[0].(*CallStatement)
	call := cs.Call.(*CallExpr)
	m := call.Target.(*MemberExpr)
	assert.Equal(t, ":", m.Indexer)
	assert.Equal(t, "sub", m.Name)
	require.Len(t, call.Args, 2)
	_, ok := call.Args[0].(*NumberLiteral)
	assert.True(t, ok)
}

func TestParseMemberChainFromDeclaration(t *testing.T) {
	res := parse(t, "local name = context.pipeline.name")
	st := res.Chunk.Body[0].(*LocalStatement)
	require.Len(t, st.Names, 1)
	assert.Equal(t, "name", st.Names[0].Name)
	require.Len(t, st.Init, 1)

	outer, ok := st.Init[0].(*MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "name", outer.Name)
	inner, ok := outer.Base.(*MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "pipeline", inner.Name)
	root, ok := inner.Base.(*Identifier)
	require.True(t, ok)
	assert.Equal(t, "context", root.Name)
}

func TestParseIdentifierSpansExcludeLeadingWhitespace(t *testing.T) {
	src := "print(1)\nrequire(\"socket\")"
	res := parse(t, src)
	require.Len(t, res.Chunk.Body, 2)

	cs := res.Chunk.Body[1].(*CallStatement)
	id := cs.Call.(*CallExpr).Target.(*Identifier)
	assert.Equal(t, "require", id.Name)
	assert.Equal(t, strings.Index(src, "require"), id.Span().Start)
}

func TestParseNumericFor(t *testing.T) {
	res := parse(t, "for i = 1, 10, 2 do\n  helpers.log(i)\nend")
	st := res.Chunk.Body[0].(*NumericForStatement)
	require.NotNil(t, st.Var)
	assert.Equal(t, "i", st.Var.Name)
	require.NotNil(t, st.Start)
	require.NotNil(t, st.Limit)
	require.NotNil(t, st.Step)
	require.Len(t, st.Body, 1)
	_, ok := st.Body[0].(*CallStatement)
	assert.True(t, ok)
}

func TestParseGenericFor(t *testing.T) {
	res := parse(t, "for k, v in pairs(t) do\n  print(k, v)\nend")
	st := res.Chunk.Body[0].(*GenericForStatement)
	require.Len(t, st.Vars, 2)
	assert.Equal(t, "k", st.Vars[0].Name)
	assert.Equal(t, "v", st.Vars[1].Name)
	require.Len(t, st.Exprs, 1)
	_, ok := st.Exprs[0].(*CallExpr)
	assert.True(t, ok)
	require.Len(t, st.Body, 1)
}

func TestParseTopLevelReturn(t *testing.T) {
	res := parse(t, "return { output = 1 }")
	require.Len(t, res.Chunk.Body, 1)
	st := res.Chunk.Body[0].(*ReturnStatement)
	require.Len(t, st.Values, 1)
	tbl, ok := st.Values[0].(*TableExpr)
	require.True(t, ok)
	require.Len(t, tbl.Fields, 1)
	assert.Equal(t, FieldNamed, tbl.Fields[0].Kind)
	assert.Equal(t, "output", tbl.Fields[0].Name)
}

func TestParseIfClauses(t *testing.T) {
	res := parse(t, "if a then\n  x()\nelseif b then\n  y()\nelse\n  z()\nend")
	st := res.Chunk.Body[0].(*IfStatement)
	require.Len(t, st.Clauses, 3)

	cond, ok := st.Clauses[0].Cond.(*Identifier)
	require.True(t, ok)
	assert.Equal(t, "a", cond.Name)
	require.Len(t, st.Clauses[0].Body, 1)

	cond, ok = st.Clauses[1].Cond.(*Identifier)
	require.True(t, ok)
	assert.Equal(t, "b", cond.Name)

	// The else arm has no condition.
	assert.Nil(t, st.Clauses[2].Cond)
	require.Len(t, st.Clauses[2].Body, 1)
}

func TestParseTableConstructorFieldKinds(t *testing.T) {
	res := parse(t, "local t = { 1, name = 2, [k] = 3 }")
	st := res.Chunk.Body[0].(*LocalStatement)
	tbl := st.Init[0].(*TableExpr)
	require.Len(t, tbl.Fields, 3)
	assert.Equal(t, FieldValue, tbl.Fields[0].Kind)
	assert.Equal(t, FieldNamed, tbl.Fields[1].Kind)
	assert.Equal(t, "name", tbl.Fields[1].Name)
	assert.Equal(t, FieldKeyed, tbl.Fields[2].Kind)
}

func TestParseCollectsErrorsWithPartialTree(t *testing.T) {
	res := parse(t, "local a = (1\nprint(a)")
	assert.NotEmpty(t, res.Errors)
	assert.NotNil(t, res.Chunk)
}

func TestParseCollectsComments(t *testing.T) {
	src := "-- leading\nlocal a = 1 -- trailing"
	res := parse(t, src)
	require.Len(t, res.Comments, 2)
	assert.Equal(t, 0, res.Comments[0].Start)
}

func TestRangeContainsIsHalfOpen(t *testing.T) {
	r := Range{Start: 2, End: 5}
	assert.False(t, r.Contains(1))
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(5))
}

func TestDocumentPositionRoundTrip(t *testing.T) {
	doc := NewDocument("local a = 1\nlocal b = 2\n", nil)
	// The trailing newline closes line 1, it does not open line 2.
	assert.Equal(t, 2, doc.LineCount())
	assert.Equal(t, "local b = 2", doc.Line(1))

	p := doc.OffsetToPosition(18)
	assert.Equal(t, Position{Line: 1, Column: 6}, p)
	assert.Equal(t, 18, doc.PositionToOffset(p))
}

func TestDocumentLineCountTrailingNewline(t *testing.T) {
	assert.Equal(t, 2, NewDocument("local x = 1\nprint(x)\n", nil).LineCount())
	assert.Equal(t, 2, NewDocument("local x = 1\nprint(x)", nil).LineCount())
	assert.Equal(t, 1, NewDocument("", nil).LineCount())
}

func TestDocumentPositionClamping(t *testing.T) {
	doc := NewDocument("ab\ncd", nil)
	assert.Equal(t, Position{Line: 0, Column: 0}, doc.OffsetToPosition(-1))
	assert.Equal(t, Position{Line: 1, Column: 2}, doc.OffsetToPosition(99))
	assert.Equal(t, 0, doc.PositionToOffset(Position{Line: -1, Column: 5}))
	assert.Equal(t, 5, doc.PositionToOffset(Position{Line: 9, Column: 0}))
}

func TestDocumentWordAt(t *testing.T) {
	doc := NewDocument("helpers.log(msg)", nil)

	word, rng := doc.WordAt(2)
	assert.Equal(t, "helpers", word)
	assert.Equal(t, Range{Start: 0, End: 7}, rng)

	word, _ = doc.WordAt(7)
	assert.Equal(t, "helpers", word)

	word, _ = doc.WordAt(11)
	assert.Equal(t, "log", word)
}

func TestDocumentWordBefore(t *testing.T) {
	doc := NewDocument("context.pi", nil)
	assert.Equal(t, "pi", doc.WordBefore(10))
	assert.Equal(t, "", doc.WordBefore(8))
}

func TestDocumentInComment(t *testing.T) {
	src := "-- note\nlocal a = 1"
	res := parse(t, src)
	doc := NewDocument(src, res.Comments)
	assert.True(t, doc.InComment(3))
	assert.False(t, doc.InComment(10))
}

func TestPathAtInnermostLast(t *testing.T) {
	src := "helpers.log(msg)"
	res := parse(t, src)
	offset := strings.Index(src, "msg") + 1
	path := PathAt(res.Chunk, offset)
	require.NotEmpty(t, path)

	_, ok := path[len(path)-1].(*Identifier)
	assert.True(t, ok)
}
