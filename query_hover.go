package loupe

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/loupe/internal/analysis"
	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
	"github.com/jward/loupe/internal/symtab"
)

// Hover is the documentation shown for the symbol under the cursor.
// Contents is markdown with a fenced code block for signatures.
type Hover struct {
	Contents string
	Range    luaparse.Range
}

// Hover answers a hover request at a byte offset. Returns nil with no
// error when there is nothing to show.
func (e *Engine) Hover(ctx context.Context, req Request, offset int) (*Hover, error) {
	res, err := e.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	doc := res.Doc
	if doc.InComment(offset) {
		return nil, nil
	}

	word, wordRng := doc.WordAt(offset)
	if word == "" {
		return nil, nil
	}
	if catalog.IsKeyword(word) {
		kdoc, _ := catalog.KeywordDoc(word)
		return &Hover{Contents: hoverMarkdown(word, kdoc), Range: wordRng}, nil
	}

	if res.Chunk == nil {
		return nil, nil
	}
	path := luaparse.PathAt(res.Chunk, offset)
	for i := len(path) - 1; i >= 0; i-- {
		switch v := path[i].(type) {
		case *luaparse.StringLiteral:
			return nil, nil
		case *luaparse.MemberExpr:
			if v.NameRange.Contains(offset) {
				return e.hoverMember(res, req.Hook, v), nil
			}
		case *luaparse.Identifier:
			return e.hoverIdentifier(res, req.Hook, v), nil
		}
	}

	// Table-constructor keys sit outside the expression tree proper.
	if h := e.hoverTableKey(res, path, offset); h != nil {
		return h, nil
	}
	return nil, nil
}

func (e *Engine) hoverMember(res *analysis.Result, hook string, m *luaparse.MemberExpr) *Hover {
	baseT := e.typeOfExpr(res, hook, m.Base)
	label := m.Name
	if name := exprText(m.Base); name != "" {
		label = name + "." + m.Name
	}

	if d := e.memberDefinition(hook, baseT, m.Name); d != nil {
		return &Hover{Contents: definitionMarkdown(label, d), Range: m.NameRange}
	}
	if t := analysis.ResolveMember(e.cat, hook, baseT, m.Name); t != nil && t.Kind() != luatype.KindUnknown {
		return &Hover{
			Contents: hoverMarkdown(fmt.Sprintf("%s: %s", label, luatype.Format(t)), ""),
			Range:    m.NameRange,
		}
	}
	return nil
}

func (e *Engine) hoverIdentifier(res *analysis.Result, hook string, id *luaparse.Identifier) *Hover {
	rng := id.Span()

	if sym := res.Symbols.Lookup(id.Name, id.Span().Start); sym != nil && sym.Kind != symtab.SymbolGlobal {
		header := fmt.Sprintf("%s %s: %s", sym.Kind, sym.Name, luatype.Format(sym.Type))
		if ft, ok := sym.Type.(*luatype.FunctionType); ok {
			header = fmt.Sprintf("%s %s%s", sym.Kind, sym.Name, strings.TrimPrefix(luatype.Format(ft), "fun"))
		}
		return &Hover{Contents: hoverMarkdown(header, sym.Doc), Range: rng}
	}
	if item := e.cat.Sandbox(id.Name); item != nil {
		label := id.Name
		if item.Signature != "" {
			label = id.Name + ": " + item.Signature
		}
		return &Hover{Contents: hoverMarkdown(label, item.Doc), Range: rng}
	}
	if d := e.cat.Global(id.Name); d != nil {
		return &Hover{Contents: definitionMarkdown(id.Name, d), Range: rng}
	}
	if lib := e.cat.Library(id.Name); lib != nil {
		return &Hover{Contents: hoverMarkdown(id.Name+" library", lib.Doc), Range: rng}
	}
	if msg, ok := e.cat.Disabled(id.Name); ok {
		return &Hover{Contents: fmt.Sprintf("**%s is disabled.** %s", id.Name, msg), Range: rng}
	}
	return nil
}

// hoverTableKey handles named keys inside table constructors, which are not
// expressions and so never appear on the node path themselves.
func (e *Engine) hoverTableKey(res *analysis.Result, path []luaparse.Node, offset int) *Hover {
	for i := len(path) - 1; i >= 0; i-- {
		tbl, ok := path[i].(*luaparse.TableExpr)
		if !ok {
			continue
		}
		for _, f := range tbl.Fields {
			if f.Kind != luaparse.FieldNamed || !f.NameRange.Contains(offset) {
				continue
			}
			t, _ := res.TypeAt(f.Value.Span().Start)
			return &Hover{
				Contents: hoverMarkdown(fmt.Sprintf("%s: %s", f.Name, luatype.Format(t)), ""),
				Range:    f.NameRange,
			}
		}
	}
	return nil
}

// typeOfExpr resolves an expression's type structurally. The analysis memo
// keys on start offsets, which a member expression shares with its base, so
// reading the memo for a base expression would return the outer type.
func (e *Engine) typeOfExpr(res *analysis.Result, hook string, expr luaparse.Expr) luatype.Type {
	switch v := expr.(type) {
	case *luaparse.Identifier:
		return e.resolveName(res, hook, v.Name, v.Span().Start)
	case *luaparse.MemberExpr:
		baseT := e.typeOfExpr(res, hook, v.Base)
		if baseT == nil {
			return nil
		}
		return analysis.ResolveMember(e.cat, hook, baseT, v.Name)
	default:
		if t, ok := res.TypeAt(expr.Span().Start); ok {
			return t
		}
		return nil
	}
}

// memberDefinition finds the catalog entry backing a member access, which
// carries documentation the bare type does not.
func (e *Engine) memberDefinition(hook string, baseT luatype.Type, name string) *catalog.Definition {
	switch v := baseT.(type) {
	case nil:
		return nil
	case luatype.Ref:
		if lib := e.cat.Library(v.Name); lib != nil {
			return lib.Method(name)
		}
		return e.cat.SandboxField(v.Name, name, hook)
	case *luatype.Union:
		for _, m := range v.Types {
			if d := e.memberDefinition(hook, m, name); d != nil {
				return d
			}
		}
	default:
		if luatype.IsStringLike(baseT) {
			if lib := e.cat.Library("string"); lib != nil {
				return lib.Method(name)
			}
		}
	}
	return nil
}

func definitionMarkdown(label string, d *catalog.Definition) string {
	header := label
	if d.Signature != "" {
		header = label + ": " + d.Signature
	} else if d.Type != nil && d.Type.Kind() != luatype.KindUnknown {
		header = label + ": " + luatype.Format(d.Type)
	}
	doc := d.Doc
	if d.Async {
		doc = strings.TrimSpace(doc + "\n\nAsync: call through `await` to get the result.")
	}
	return hoverMarkdown(header, doc)
}

func hoverMarkdown(header, doc string) string {
	var b strings.Builder
	b.WriteString("```lua\n")
	b.WriteString(header)
	b.WriteString("\n```")
	if doc != "" {
		b.WriteString("\n\n")
		b.WriteString(doc)
	}
	return b.String()
}

// exprText renders a dotted identifier chain, or "" for anything else.
func exprText(expr luaparse.Expr) string {
	switch v := expr.(type) {
	case *luaparse.Identifier:
		return v.Name
	case *luaparse.MemberExpr:
		base := exprText(v.Base)
		if base == "" {
			return ""
		}
		return base + "." + v.Name
	}
	return ""
}
