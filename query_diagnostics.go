package loupe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/loupe/internal/analysis"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
	"github.com/jward/loupe/internal/rulescript"
	"github.com/jward/loupe/internal/symtab"
)

// diagContext is the read-only view each provider receives.
type diagContext struct {
	ctx  context.Context
	eng  *Engine
	req  Request
	doc  *luaparse.Document
	res  *analysis.Result
}

// providerAction is a provider's verdict on whether later providers run.
type providerAction int

const (
	continueChain providerAction = iota
	stopChain
)

type diagProvider struct {
	name string
	run  func(*diagContext) ([]Diagnostic, providerAction)
}

// Diagnostics analyzes the script and runs the full diagnostic pipeline:
// the analyzer's own findings, then each provider in order, then the
// suppression filter, the hint filter, and the per-code cap.
func (e *Engine) Diagnostics(ctx context.Context, req Request) ([]Diagnostic, error) {
	res, err := e.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	dc := &diagContext{ctx: ctx, eng: e, req: req, doc: res.Doc, res: res}

	out := make([]Diagnostic, 0, len(res.Diagnostics))
	out = append(out, res.Diagnostics...)

	for _, p := range diagProviders {
		diags, action := runProvider(p, dc)
		out = append(out, diags...)
		if action == stopChain {
			break
		}
	}

	return e.filterDiagnostics(out), nil
}

// runProvider isolates a provider: a panic in one must not drop the
// others' output.
func runProvider(p diagProvider, dc *diagContext) (diags []Diagnostic, action providerAction) {
	defer func() {
		if r := recover(); r != nil {
			diags = nil
			action = continueChain
		}
	}()
	return p.run(dc)
}

var diagProviders = []diagProvider{
	{name: "script-size", run: scriptSizeProvider},
	{name: "disabled-globals", run: disabledGlobalProvider},
	{name: "return-shape", run: returnShapeProvider},
	{name: "loop-depth", run: loopDepthProvider},
	{name: "field-existence", run: fieldExistenceProvider},
	{name: "argument-count", run: argumentCountProvider},
	{name: "rule-scripts", run: ruleScriptProvider},
}

// filterDiagnostics applies the suppression set, the hint filter, and the
// per-code cap, preserving discovery order.
func (e *Engine) filterDiagnostics(diags []Diagnostic) []Diagnostic {
	perCode := make(map[string]int)
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if e.suppressed[d.Code] {
			continue
		}
		if !e.includeHints && d.Severity == SeverityHint {
			continue
		}
		if e.maxPerCode > 0 && perCode[d.Code] >= e.maxPerCode {
			continue
		}
		perCode[d.Code]++
		out = append(out, d)
	}
	return out
}

func scriptSizeProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	max := dc.eng.maxScriptBytes
	if max <= 0 || dc.doc.ByteLen() <= max {
		return nil, continueChain
	}
	return []Diagnostic{{
		Range:    luaparse.Range{Start: 0, End: 0},
		Severity: SeverityWarning,
		Code:     CodeScriptTooLarge,
		Source:   analysis.DiagnosticSource,
		Message:  fmt.Sprintf("script is %d bytes; the limit is %d", dc.doc.ByteLen(), max),
	}}, continueChain
}

// disabledGlobalProvider flags identifiers that name sandbox-disabled
// globals. Locals shadowing a disabled name are fine; only unresolved
// identifiers are checked.
func disabledGlobalProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	if dc.res.Chunk == nil {
		return nil, continueChain
	}
	var out []Diagnostic
	luaparse.Inspect(dc.res.Chunk, func(n luaparse.Node) bool {
		id, ok := n.(*luaparse.Identifier)
		if !ok {
			return true
		}
		if dc.res.Symbols.Lookup(id.Name, id.Span().Start) != nil {
			return true
		}
		if reason, disabled := dc.eng.cat.Disabled(id.Name); disabled {
			out = append(out, Diagnostic{
				Range:    id.Span(),
				Severity: SeverityError,
				Code:     CodeDisabledGlobal,
				Source:   analysis.DiagnosticSource,
				Message:  fmt.Sprintf("%q is not available in hook scripts: %s", id.Name, reason),
			})
		}
		return true
	})
	return out, continueChain
}

// returnShapeProvider checks every top-level return against the execution
// mode's required fields. Returns of unknown type stay silent.
func returnShapeProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	required := dc.eng.cat.RequiredReturnFields(dc.req.Mode)
	if len(required) == 0 {
		return nil, continueChain
	}

	if len(dc.res.Returns) == 0 {
		return []Diagnostic{{
			Range:    luaparse.Range{Start: 0, End: 0},
			Severity: SeverityWarning,
			Code:     CodeReturnShape,
			Source:   analysis.DiagnosticSource,
			Message: fmt.Sprintf("%s scripts must return a table with fields: %s",
				dc.req.Mode, strings.Join(required, ", ")),
		}}, continueChain
	}

	var out []Diagnostic
	for _, ret := range dc.res.Returns {
		t := ret.Type
		if t == nil || t.Kind() == luatype.KindUnknown || t.Kind() == luatype.KindAny {
			continue
		}
		tbl, ok := t.(*luatype.TableType)
		if !ok {
			out = append(out, Diagnostic{
				Range:    ret.Range,
				Severity: SeverityWarning,
				Code:     CodeReturnShape,
				Source:   analysis.DiagnosticSource,
				Message: fmt.Sprintf("%s scripts must return a table, not %s",
					dc.req.Mode, luatype.Format(t)),
			})
			continue
		}
		var missing []string
		for _, f := range required {
			if tbl.Field(f) == nil {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			out = append(out, Diagnostic{
				Range:    ret.Range,
				Severity: SeverityWarning,
				Code:     CodeReturnShape,
				Source:   analysis.DiagnosticSource,
				Message: fmt.Sprintf("return value is missing required %s field(s): %s",
					dc.req.Mode, strings.Join(missing, ", ")),
			})
		}
	}
	return out, continueChain
}

func loopDepthProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	max := dc.eng.maxLoopDepth
	if max <= 0 {
		return nil, continueChain
	}
	var out []Diagnostic
	for _, l := range dc.res.Loops {
		if l.Depth > max {
			out = append(out, Diagnostic{
				Range:    l.Range,
				Severity: SeverityWarning,
				Code:     CodeLoopDepth,
				Source:   analysis.DiagnosticSource,
				Message:  fmt.Sprintf("loop nesting depth %d exceeds the limit of %d", l.Depth, max),
			})
		}
	}
	return out, continueChain
}

func fieldExistenceProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	var out []Diagnostic
	for _, m := range dc.res.Members {
		if m.Resolved {
			continue
		}
		base := m.BaseName
		if base == "" {
			base = luatype.Format(m.Base)
		}
		out = append(out, Diagnostic{
			Range:    m.Range,
			Severity: SeverityWarning,
			Code:     CodeUnknownField,
			Source:   analysis.DiagnosticSource,
			Message:  fmt.Sprintf("%q is not a known field of %s", m.Name, base),
		})
	}
	return out, continueChain
}

// argumentCountProvider checks call arity against the callee's signature.
// A call is fine when it satisfies the arity of any overload; unresolved
// callees are never flagged.
func argumentCountProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	var out []Diagnostic
	for _, c := range dc.res.Calls {
		fn, ok := c.Callee.(*luatype.FunctionType)
		if !ok {
			continue
		}
		if arityMatches(fn, c.ArgCount) {
			continue
		}
		matched := false
		for _, ov := range fn.Overloads {
			if arityMatches(ov, c.ArgCount) {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		label := c.Name
		if label == "" {
			label = "function"
		}
		out = append(out, Diagnostic{
			Range:    c.Range,
			Severity: SeverityWarning,
			Code:     CodeArgumentCount,
			Source:   analysis.DiagnosticSource,
			Message: fmt.Sprintf("%s expects %s, got %d argument(s)",
				label, arityLabel(fn), c.ArgCount),
		})
	}
	return out, continueChain
}

// arityMatches reports whether n arguments satisfy a signature's required,
// optional, and vararg parameter counts.
func arityMatches(fn *luatype.FunctionType, n int) bool {
	required := 0
	variadic := false
	for _, p := range fn.Params {
		if p.Vararg {
			variadic = true
			continue
		}
		if !p.Optional {
			required++
		}
	}
	if n < required {
		return false
	}
	if variadic {
		return true
	}
	return n <= len(fn.Params)
}

func arityLabel(fn *luatype.FunctionType) string {
	required := 0
	variadic := false
	for _, p := range fn.Params {
		if p.Vararg {
			variadic = true
			continue
		}
		if !p.Optional {
			required++
		}
	}
	total := len(fn.Params)
	switch {
	case variadic:
		return fmt.Sprintf("at least %d argument(s)", required)
	case required == total:
		return fmt.Sprintf("%d argument(s)", required)
	default:
		return fmt.Sprintf("%d to %d arguments", required, total)
	}
}

// ruleScriptProvider runs the configured custom rule scripts. A failing
// script becomes one engine diagnostic; the rest of the pipeline is
// unaffected.
func ruleScriptProvider(dc *diagContext) ([]Diagnostic, providerAction) {
	if dc.eng.rules == nil {
		return nil, continueChain
	}

	in := rulescript.Input{
		Doc:     dc.doc,
		Hook:    dc.req.Hook,
		Mode:    dc.req.Mode,
		Symbols: ruleSymbols(dc.doc, dc.res.Symbols),
	}
	findings, errs := dc.eng.rules.Run(dc.ctx, in)

	var out []Diagnostic
	for _, f := range findings {
		out = append(out, Diagnostic{
			Range: luaparse.Range{
				Start: dc.doc.PositionToOffset(luaparse.Position{Line: f.Line, Column: f.Col}),
				End:   dc.doc.PositionToOffset(luaparse.Position{Line: f.EndLine, Column: f.EndCol}),
			},
			Severity: ruleSeverity(f.Severity),
			Code:     ruleCode(f.Code),
			Source:   f.Script,
			Message:  f.Message,
		})
	}
	for _, re := range errs {
		out = append(out, Diagnostic{
			Range:    luaparse.Range{Start: 0, End: 0},
			Severity: SeverityWarning,
			Code:     CodeRuleScriptError,
			Source:   analysis.DiagnosticSource,
			Message:  fmt.Sprintf("rule script %s failed: %v", re.Script, re.Err),
		})
	}
	return out, continueChain
}

// ruleSymbols flattens the symbol table into the summary rule scripts see.
func ruleSymbols(doc *luaparse.Document, table *symtab.Table) []rulescript.Symbol {
	var out []rulescript.Symbol
	for _, scope := range table.Scopes() {
		for _, sym := range scope.Symbols() {
			if sym.Kind == symtab.SymbolGlobal {
				continue
			}
			pos := doc.OffsetToPosition(sym.Offset)
			out = append(out, rulescript.Symbol{
				Name: sym.Name,
				Kind: sym.Kind.String(),
				Type: luatype.Format(sym.Type),
				Line: pos.Line,
				Col:  pos.Column,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Col < out[j].Col
	})
	return out
}

func ruleSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError
	case "info", "information":
		return SeverityInformation
	case "hint":
		return SeverityHint
	default:
		return SeverityWarning
	}
}

func ruleCode(code string) string {
	if code == "" {
		return CodeRuleScript
	}
	return code
}
