package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/flow"
	"github.com/jward/loupe/internal/luatype"
)

func analyzeSrc(t *testing.T, src, hook string) *Result {
	t.Helper()
	res, err := Analyze(context.Background(), src, hook, catalog.MustLoad())
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

// off locates a needle's byte offset in the source under test.
func off(t *testing.T, src, needle string) int {
	t.Helper()
	i := strings.Index(src, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q not in source", needle)
	return i
}

// symbolType looks up name's symbol at the needle's offset. The needle
// must be a substring unique enough to land inside the right scope.
func symbolType(t *testing.T, res *Result, src, name, needle string) luatype.Type {
	t.Helper()
	sym := res.Symbols.Lookup(name, off(t, src, needle))
	require.NotNil(t, sym, "symbol %q", name)
	return sym.Type
}

func hasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestAnalyzeCleanScript(t *testing.T) {
	src := "local x = 1\nprint(x)\n"
	res := analyzeSrc(t, src, "")

	assert.True(t, res.Success)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, luatype.Integer, symbolType(t, res, src, "x", "x ="))
}

func TestSyntaxErrorStillAnalyzes(t *testing.T) {
	src := "local x = 1\nlocal = \nprint(x)\n"
	res := analyzeSrc(t, src, "")

	assert.False(t, res.Success)
	assert.True(t, hasCode(res.Diagnostics, CodeSyntaxError))
}

func TestDeclaredTypesWiden(t *testing.T) {
	src := "local n = 1\nlocal f = 1.5\nlocal s = \"hi\"\nlocal b = true\nlocal z = nil\nprint(n, f, s, b, z)\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.Integer, symbolType(t, res, src, "n", "n ="))
	assert.Equal(t, luatype.Number, symbolType(t, res, src, "f", "f ="))
	assert.Equal(t, luatype.String, symbolType(t, res, src, "s", "s ="))
	assert.Equal(t, luatype.Boolean, symbolType(t, res, src, "b", "b ="))
	assert.Equal(t, luatype.Nil, symbolType(t, res, src, "z", "z ="))
}

func TestOperatorTypes(t *testing.T) {
	src := "local cat = \"a\" .. \"b\"\nlocal quot = 1 / 2\nlocal eq = 1 == 2\nprint(cat, quot, eq)\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.String, symbolType(t, res, src, "cat", "cat ="))
	assert.Equal(t, luatype.Number, symbolType(t, res, src, "quot", "quot ="))
	assert.Equal(t, luatype.Boolean, symbolType(t, res, src, "eq", "eq ="))
}

func TestCallReturnRefinesUnknownLocal(t *testing.T) {
	src := "local str = tostring(42)\nprint(str)\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.String, symbolType(t, res, src, "str", "str ="))
}

func TestHelperCallReturnsDeclaredShape(t *testing.T) {
	src := "local resp = await(helpers.http_get(\"https://x\"))\nlocal code = resp.status\nprint(code)\n"
	res := analyzeSrc(t, src, "")

	rt := symbolType(t, res, src, "resp", "resp =")
	require.NotNil(t, rt)
	assert.Equal(t, luatype.KindTableType, rt.Kind())
	assert.Equal(t, luatype.Integer, symbolType(t, res, src, "code", "code ="))
}

func TestUnknownHelperMethodStaysSilent(t *testing.T) {
	src := "local v = helpers.not_a_thing(1, 2)\nprint(v)\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.Unknown, symbolType(t, res, src, "v", "v ="))
	assert.False(t, hasCode(res.Diagnostics, CodeArgumentCount))

	var found *MemberAccess
	for i := range res.Members {
		if res.Members[i].Name == "not_a_thing" {
			found = &res.Members[i]
		}
	}
	require.NotNil(t, found)
	assert.False(t, found.Resolved)
	assert.Equal(t, "helpers", found.BaseName)
}

func TestHookContextFields(t *testing.T) {
	src := "local id = context.task.id\nprint(id)\n"

	withHook := analyzeSrc(t, src, "on_task_complete")
	assert.Equal(t, luatype.String, symbolType(t, withHook, src, "id", "id ="))

	withoutHook := analyzeSrc(t, src, "")
	var unresolved bool
	for _, m := range withoutHook.Members {
		if m.Name == "task" && !m.Resolved {
			unresolved = true
		}
	}
	assert.True(t, unresolved, "context.task should not resolve without a hook")
}

func TestShadowedNameWarning(t *testing.T) {
	src := "local x = 1\nprint(x)\ndo\n  local x = 2\n  print(x)\nend\n"
	res := analyzeSrc(t, src, "")

	assert.True(t, hasCode(res.Diagnostics, CodeShadowedName))
}

func TestUnderscorePrefixSuppressesShadowWarning(t *testing.T) {
	src := "local x = 1\nprint(x)\ndo\n  local _x = 2\n  print(_x)\nend\n"
	res := analyzeSrc(t, src, "")

	assert.False(t, hasCode(res.Diagnostics, CodeShadowedName))
}

func TestUnusedLocalHint(t *testing.T) {
	src := "local unused = 1\n"
	res := analyzeSrc(t, src, "")

	require.True(t, hasCode(res.Diagnostics, CodeUnusedLocal))
	for _, d := range res.Diagnostics {
		if d.Code == CodeUnusedLocal {
			assert.Equal(t, SeverityHint, d.Severity)
		}
	}
}

func TestStatementAfterReturnIsUnreachable(t *testing.T) {
	src := "return 1\nlocal x = 2\n"
	res := analyzeSrc(t, src, "")

	id, ok := res.Graph.AtOffset(off(t, src, "local x"))
	require.True(t, ok)
	assert.False(t, res.Graph.Reachable(id))
}

func TestErrorCallTerminatesFlow(t *testing.T) {
	src := "error(\"boom\")\nlocal x = 1\n"
	res := analyzeSrc(t, src, "")

	id, ok := res.Graph.AtOffset(off(t, src, "local x"))
	require.True(t, ok)
	assert.False(t, res.Graph.Reachable(id))
}

func TestBranchBodyStaysReachable(t *testing.T) {
	src := "local x = 1\nif x then\n  print(x)\nend\nprint(x)\n"
	res := analyzeSrc(t, src, "")

	inBranch, ok := res.Graph.AtOffset(off(t, src, "print(x)"))
	require.True(t, ok)
	assert.True(t, res.Graph.Reachable(inBranch))

	after, ok := res.Graph.AtOffset(strings.LastIndex(src, "print(x)"))
	require.True(t, ok)
	assert.True(t, res.Graph.Reachable(after))
}

func TestNarrowingRoundTrip(t *testing.T) {
	src := "local x = tonumber(\"3\")\nif x then\n  local y = x\nend\nlocal z = x\n"
	res := analyzeSrc(t, src, "")

	condOffset := off(t, src, "if x") + len("if ")
	kind, ok := res.NarrowingAt(off(t, src, "local y"), condOffset)
	require.True(t, ok)
	assert.Equal(t, flow.TrueCondition, kind)

	_, ok = res.NarrowingAt(off(t, src, "local z"), condOffset)
	assert.False(t, ok, "narrowing must not leak past the branch")
}

func TestAssertNarrowsFlow(t *testing.T) {
	src := "local x = tonumber(\"3\")\nassert(x)\nlocal y = x\nprint(y)\n"
	res := analyzeSrc(t, src, "")

	condOffset := off(t, src, "assert(x)") + len("assert(")
	kind, ok := res.NarrowingAt(off(t, src, "local y"), condOffset)
	require.True(t, ok)
	assert.Equal(t, flow.TrueCondition, kind)
}

func TestBreakExitsLoop(t *testing.T) {
	src := "while true do\n  break\n  print(1)\nend\nprint(2)\n"
	res := analyzeSrc(t, src, "")

	dead, ok := res.Graph.AtOffset(off(t, src, "print(1)"))
	require.True(t, ok)
	assert.False(t, res.Graph.Reachable(dead))

	after, ok := res.Graph.AtOffset(off(t, src, "print(2)"))
	require.True(t, ok)
	assert.True(t, res.Graph.Reachable(after))
}

func TestLoopDepthRecorded(t *testing.T) {
	src := "for i = 1, 3 do\n  for j = 1, 3 do\n    print(i, j)\n  end\nend\n"
	res := analyzeSrc(t, src, "")

	var depths []int
	for _, l := range res.Loops {
		depths = append(depths, l.Depth)
	}
	assert.ElementsMatch(t, []int{1, 2}, depths)
}

func TestNumericForVarIsInteger(t *testing.T) {
	src := "for i = 1, 10 do\n  print(i)\nend\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.Integer, symbolType(t, res, src, "i", "print(i)"))
}

func TestGenericForOverIpairs(t *testing.T) {
	src := "local xs = { \"a\", \"b\" }\nfor i, v in ipairs(xs) do\n  print(i, v)\nend\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.Integer, symbolType(t, res, src, "i", "print(i, v)"))
	assert.Equal(t, luatype.String, symbolType(t, res, src, "v", "print(i, v)"))
}

func TestTopLevelReturnRecorded(t *testing.T) {
	src := "return { pass = true }\n"
	res := analyzeSrc(t, src, "")

	require.Len(t, res.Returns, 1)
	tbl, ok := res.Returns[0].Type.(*luatype.TableType)
	require.True(t, ok)
	require.NotNil(t, tbl.Field("pass"))
	assert.Equal(t, luatype.Boolean, tbl.Field("pass").Type)
}

func TestFunctionReturnNotRecordedAsScriptReturn(t *testing.T) {
	src := "local function f()\n  return 1\nend\nprint(f())\n"
	res := analyzeSrc(t, src, "")

	assert.Empty(t, res.Returns)
}

func TestCallsRecorded(t *testing.T) {
	src := "helpers.log(\"hi\")\n"
	res := analyzeSrc(t, src, "")

	require.NotEmpty(t, res.Calls)
	var logged bool
	for _, c := range res.Calls {
		if c.Name == "log" {
			logged = true
			assert.Equal(t, 1, c.ArgCount)
		}
	}
	assert.True(t, logged)
}

func TestAwaitYieldsArgumentType(t *testing.T) {
	src := "local uid = await(helpers.uuid())\nprint(uid)\n"
	res := analyzeSrc(t, src, "")

	assert.Equal(t, luatype.String, symbolType(t, res, src, "uid", "uid ="))
}

func TestOrStripsNilArm(t *testing.T) {
	src := "local num = tonumber(\"1\") or 0\nprint(num)\n"
	res := analyzeSrc(t, src, "")

	nt := symbolType(t, res, src, "num", "num =")
	require.NotNil(t, nt)
	u, ok := nt.(*luatype.Union)
	require.True(t, ok)
	for _, m := range u.Types {
		assert.NotEqual(t, luatype.KindNil, m.Kind())
	}
}
