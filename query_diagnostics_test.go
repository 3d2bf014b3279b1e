package loupe

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/loupe/internal/rulescript"
)

func diagnose(t *testing.T, eng *Engine, req Request) []Diagnostic {
	t.Helper()
	diags, err := eng.Diagnostics(context.Background(), req)
	require.NoError(t, err)
	return diags
}

func codesOf(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func firstWithCode(diags []Diagnostic, code string) *Diagnostic {
	for i := range diags {
		if diags[i].Code == code {
			return &diags[i]
		}
	}
	return nil
}

func TestDiagnosticsCleanScript(t *testing.T) {
	eng := newTestEngine(t)
	diags := diagnose(t, eng, Request{Text: "local x = 1\nhelpers.log(tostring(x))"})
	assert.Empty(t, diags)
}

func TestDiagnosticsSyntaxErrorFirst(t *testing.T) {
	eng := newTestEngine(t)
	diags := diagnose(t, eng, Request{Text: "if then end"})
	require.NotEmpty(t, diags)
	assert.Equal(t, CodeSyntaxError, diags[0].Code)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestDiagnosticsScriptTooLarge(t *testing.T) {
	eng := newTestEngine(t, WithMaxScriptBytes(32))
	src := "local padding = \"" + strings.Repeat("x", 64) + "\""
	diags := diagnose(t, eng, Request{Text: src})

	d := firstWithCode(diags, CodeScriptTooLarge)
	require.NotNil(t, d)
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, 0, d.Range.Start)
}

func TestDiagnosticsDisabledGlobal(t *testing.T) {
	eng := newTestEngine(t)
	diags := diagnose(t, eng, Request{Text: "local t = os.time()"})

	d := firstWithCode(diags, CodeDisabledGlobal)
	require.NotNil(t, d)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Contains(t, d.Message, `"os"`)
	assert.Contains(t, d.Message, "helpers.now")
}

func TestDiagnosticsDisabledGlobalShadowedByLocal(t *testing.T) {
	eng := newTestEngine(t)
	src := "local os = { time = helpers.now }\nlocal t = os.time()"
	diags := diagnose(t, eng, Request{Text: src})
	assert.Nil(t, firstWithCode(diags, CodeDisabledGlobal))
}

func TestDiagnosticsReturnShape(t *testing.T) {
	eng := newTestEngine(t)

	t.Run("missing return", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "local x = 1", Mode: "filter"})
		d := firstWithCode(diags, CodeReturnShape)
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "pass")
	})

	t.Run("missing field", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "return { verdict = true }", Mode: "filter"})
		d := firstWithCode(diags, CodeReturnShape)
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "pass")
	})

	t.Run("non-table return", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "return 42", Mode: "filter"})
		d := firstWithCode(diags, CodeReturnShape)
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "table")
	})

	t.Run("satisfied", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "return { pass = true }", Mode: "filter"})
		assert.Nil(t, firstWithCode(diags, CodeReturnShape))
	})

	t.Run("notify needs nothing", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "helpers.log(\"done\")", Mode: "notify"})
		assert.Nil(t, firstWithCode(diags, CodeReturnShape))
	})

	t.Run("no mode no check", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "local x = 1"})
		assert.Nil(t, firstWithCode(diags, CodeReturnShape))
	})
}

func TestDiagnosticsLoopDepth(t *testing.T) {
	eng := newTestEngine(t, WithMaxLoopDepth(2))
	src := `for i = 1, 3 do
  for j = 1, 3 do
    for k = 1, 3 do
      print(i, j, k)
    end
  end
end`
	diags := diagnose(t, eng, Request{Text: src})
	d := firstWithCode(diags, CodeLoopDepth)
	require.NotNil(t, d)
	assert.Equal(t, SeverityWarning, d.Severity)
}

func TestDiagnosticsUnknownField(t *testing.T) {
	eng := newTestEngine(t)
	diags := diagnose(t, eng, Request{Text: "helpers.lg(\"typo\")"})

	d := firstWithCode(diags, CodeUnknownField)
	require.NotNil(t, d)
	assert.Contains(t, d.Message, `"lg"`)
	assert.Contains(t, d.Message, "helpers")
}

func TestDiagnosticsUnknownFieldSilentOnUnknownBase(t *testing.T) {
	eng := newTestEngine(t)
	src := "local data = helpers.json_decode(\"{}\")\nprint(data.anything.at.all)"
	diags := diagnose(t, eng, Request{Text: src})
	assert.Nil(t, firstWithCode(diags, CodeUnknownField))
}

func TestDiagnosticsArgumentCount(t *testing.T) {
	eng := newTestEngine(t)

	t.Run("too few", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "helpers.kv_set(\"key\")"})
		d := firstWithCode(diags, CodeArgumentCount)
		require.NotNil(t, d)
	})

	t.Run("too many", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "helpers.uuid(1)"})
		require.NotNil(t, firstWithCode(diags, CodeArgumentCount))
	})

	t.Run("optional omitted", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "helpers.log(\"msg\")"})
		assert.Nil(t, firstWithCode(diags, CodeArgumentCount))
	})

	t.Run("vararg accepts extra", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "print(1, 2, 3, 4, 5)"})
		assert.Nil(t, firstWithCode(diags, CodeArgumentCount))
	})

	t.Run("unknown callee silent", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "local f = helpers.json_decode(\"{}\").fn\nf(1, 2, 3)"})
		assert.Nil(t, firstWithCode(diags, CodeArgumentCount))
	})

	t.Run("method call counts receiver", func(t *testing.T) {
		diags := diagnose(t, eng, Request{Text: "local s = \"hi\"\nlocal r = s:sub(1, 2)"})
		assert.Nil(t, firstWithCode(diags, CodeArgumentCount))
	})
}

func TestDiagnosticsSuppressedCodes(t *testing.T) {
	eng := newTestEngine(t, WithSuppressedCodes(CodeDisabledGlobal))
	diags := diagnose(t, eng, Request{Text: "local t = os.time()"})
	assert.Nil(t, firstWithCode(diags, CodeDisabledGlobal))
}

func TestDiagnosticsHintsDisabled(t *testing.T) {
	src := "local unused = 1\nprint(\"hi\")"

	eng := newTestEngine(t)
	diags := diagnose(t, eng, Request{Text: src})
	require.NotNil(t, firstWithCode(diags, CodeUnusedLocal))

	eng = newTestEngine(t, WithHints(false))
	diags = diagnose(t, eng, Request{Text: src})
	assert.Nil(t, firstWithCode(diags, CodeUnusedLocal))
}

func TestDiagnosticsPerCodeCap(t *testing.T) {
	eng := newTestEngine(t, WithMaxPerCode(2))
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("os.time()\n")
	}
	diags := diagnose(t, eng, Request{Text: b.String()})

	var disabled []Diagnostic
	for _, d := range diags {
		if d.Code == CodeDisabledGlobal {
			disabled = append(disabled, d)
		}
	}
	require.Len(t, disabled, 2)
	// Discovery order survives the cap: the kept two are the earliest.
	assert.Less(t, disabled[0].Range.Start, disabled[1].Range.Start)
	assert.Less(t, disabled[1].Range.Start, 30)
}

func TestDiagnosticsRuleScripts(t *testing.T) {
	fsys := fstest.MapFS{
		"no_print.risor": &fstest.MapFile{Data: []byte(`
src := source()
if src.contains("print(") {
	report({"message": "use helpers.log instead of print", "code": "NoPrint", "severity": "warning"})
}
`)},
	}
	set, err := rulescript.Load(".", rulescript.WithFS(fsys))
	require.NoError(t, err)

	eng := newTestEngine(t, WithRuleScripts(set))
	diags := diagnose(t, eng, Request{Text: "print(\"hi\")"})

	d := firstWithCode(diags, "NoPrint")
	require.NotNil(t, d)
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, "no_print.risor", d.Source)
	assert.Contains(t, d.Message, "helpers.log")
}

func TestDiagnosticsRuleScriptFailureIsolated(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.risor": &fstest.MapFile{Data: []byte(`error("boom")`)},
	}
	set, err := rulescript.Load(".", rulescript.WithFS(fsys))
	require.NoError(t, err)

	eng := newTestEngine(t, WithRuleScripts(set))
	diags := diagnose(t, eng, Request{Text: "local x = 1\nprint(x)"})

	d := firstWithCode(diags, CodeRuleScriptError)
	require.NotNil(t, d)
	assert.Equal(t, SeverityWarning, d.Severity)
}

func TestDiagnosticsProviderOrder(t *testing.T) {
	eng := newTestEngine(t, WithMaxScriptBytes(8))
	src := "os.time()"
	diags := diagnose(t, eng, Request{Text: src})

	codes := codesOf(diags)
	si := indexOf(codes, CodeScriptTooLarge)
	di := indexOf(codes, CodeDisabledGlobal)
	require.GreaterOrEqual(t, si, 0)
	require.GreaterOrEqual(t, di, 0)
	assert.Less(t, si, di, "size check runs before the disabled-global provider")
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return -1
}
