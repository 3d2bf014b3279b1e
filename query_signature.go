package loupe

import (
	"context"
	"strings"

	"github.com/jward/loupe/internal/analysis"
	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
)

// ParameterInformation is one parameter of a signature.
type ParameterInformation struct {
	Label         string
	Documentation string
}

// SignatureInformation is one callable signature.
type SignatureInformation struct {
	Label         string
	Parameters    []ParameterInformation
	Documentation string
}

// SignatureHelp is the response to a signature-help request.
type SignatureHelp struct {
	Signatures      []SignatureInformation
	ActiveSignature int
	ActiveParameter int
}

// SignatureHelp finds the call enclosing the offset and describes its
// callee. Returns nil with no error when the cursor is not inside a call
// or the callee has no known signature.
func (e *Engine) SignatureHelp(ctx context.Context, req Request, offset int) (*SignatureHelp, error) {
	res, err := e.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Chunk == nil {
		return nil, nil
	}

	call := enclosingCall(res.Chunk, offset)
	if call == nil {
		return nil, nil
	}

	ft, doc := e.calleeSignature(res, req.Hook, call.Target)
	if ft == nil {
		return nil, nil
	}

	label := exprText(call.Target)
	active := activeParameter(res.Doc.Text(), call, offset)
	if m, ok := call.Target.(*luaparse.MemberExpr); ok && m.Indexer == ":" {
		active++
	}

	help := &SignatureHelp{ActiveParameter: active}
	for _, sig := range append([]*luatype.FunctionType{ft}, ft.Overloads...) {
		help.Signatures = append(help.Signatures, signatureInfo(label, sig, doc))
	}

	// Prefer the overload whose arity admits the active parameter.
	for i, sig := range help.Signatures {
		if active < len(sig.Parameters) || hasVararg(ft, i) {
			help.ActiveSignature = i
			break
		}
	}
	return help, nil
}

// enclosingCall returns the innermost call whose argument list contains the
// offset. The offset must sit past the callee itself, otherwise the cursor
// is still on the target and help would be noise.
func enclosingCall(chunk *luaparse.Chunk, offset int) *luaparse.CallExpr {
	path := luaparse.PathAt(chunk, offset)
	for i := len(path) - 1; i >= 0; i-- {
		call, ok := path[i].(*luaparse.CallExpr)
		if !ok {
			continue
		}
		if offset > call.Target.Span().End {
			return call
		}
	}
	return nil
}

// calleeSignature resolves the callee to a function type plus catalog
// documentation when available. Resolution is structural: the inference memo
// keys on start offsets, which a call shares with its target, so it holds
// the call's return type rather than the callee.
func (e *Engine) calleeSignature(res *analysis.Result, hook string, target luaparse.Expr) (*luatype.FunctionType, string) {
	var def *catalog.Definition

	switch v := target.(type) {
	case *luaparse.Identifier:
		if sym := res.Symbols.Lookup(v.Name, v.Span().Start); sym != nil {
			if ft, ok := sym.Type.(*luatype.FunctionType); ok {
				return ft, sym.Doc
			}
		}
		if d := e.cat.Global(v.Name); d != nil {
			def = d
		} else if item := e.cat.Sandbox(v.Name); item != nil && item.Kind == catalog.DefFunction {
			if ft, ok := item.Type.(*luatype.FunctionType); ok {
				return ft, item.Doc
			}
		}
	case *luaparse.MemberExpr:
		baseT := e.typeOfExpr(res, hook, v.Base)
		if d := e.memberDefinition(hook, baseT, v.Name); d != nil {
			def = d
		} else if t := analysis.ResolveMember(e.cat, hook, baseT, v.Name); t != nil {
			if ft, ok := t.(*luatype.FunctionType); ok {
				return ft, ""
			}
		}
	}

	if def == nil {
		return nil, ""
	}
	ft, ok := def.Type.(*luatype.FunctionType)
	if !ok {
		return nil, ""
	}
	doc := def.Doc
	if def.Async {
		doc = strings.TrimSpace(doc + "\n\nAsync: call through `await` to get the result.")
	}
	return ft, doc
}

// activeParameter counts top-level commas between the opening parenthesis
// and the cursor. Nested parentheses, brackets, braces, and strings are
// skipped so argument expressions with their own commas do not advance it.
func activeParameter(text string, call *luaparse.CallExpr, offset int) int {
	start := call.Target.Span().End
	end := offset
	if end > call.Span().End {
		end = call.Span().End
	}
	if end > len(text) {
		end = len(text)
	}

	depth := 0
	count := 0
	var quote byte
	for i := start; i < end; i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 1 {
				count++
			}
		}
	}
	return count
}

func signatureInfo(label string, ft *luatype.FunctionType, doc string) SignatureInformation {
	params := make([]ParameterInformation, 0, len(ft.Params))
	parts := make([]string, 0, len(ft.Params))
	for _, p := range ft.Params {
		params = append(params, ParameterInformation{Label: paramLabel(p)})
		parts = append(parts, paramLabel(p))
	}

	var b strings.Builder
	if label != "" {
		b.WriteString(label)
	} else {
		b.WriteString("fun")
	}
	b.WriteString("(")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(")")
	if rets := returnLabel(ft); rets != "" {
		b.WriteString(": ")
		b.WriteString(rets)
	}

	return SignatureInformation{
		Label:         b.String(),
		Parameters:    params,
		Documentation: doc,
	}
}

func paramLabel(p luatype.Param) string {
	if p.Vararg {
		return "...: " + luatype.Format(p.Type)
	}
	name := p.Name
	if name == "" {
		name = "_"
	}
	if p.Optional {
		name += "?"
	}
	return name + ": " + luatype.Format(p.Type)
}

func returnLabel(ft *luatype.FunctionType) string {
	if len(ft.Returns) == 0 {
		return ""
	}
	parts := make([]string, len(ft.Returns))
	for i, r := range ft.Returns {
		parts[i] = luatype.Format(r)
	}
	return strings.Join(parts, ", ")
}

func hasVararg(ft *luatype.FunctionType, sigIndex int) bool {
	sig := ft
	if sigIndex > 0 && sigIndex-1 < len(ft.Overloads) {
		sig = ft.Overloads[sigIndex-1]
	}
	for _, p := range sig.Params {
		if p.Vararg {
			return true
		}
	}
	return false
}
