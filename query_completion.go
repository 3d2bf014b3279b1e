package loupe

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jward/loupe/internal/analysis"
	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
	"github.com/jward/loupe/internal/symtab"
)

// CompletionKind classifies a completion item for editor rendering.
type CompletionKind int

const (
	CompletionKeyword CompletionKind = iota + 1
	CompletionVariable
	CompletionField
	CompletionFunction
	CompletionModule
	CompletionValue
)

func (k CompletionKind) String() string {
	switch k {
	case CompletionKeyword:
		return "keyword"
	case CompletionVariable:
		return "variable"
	case CompletionField:
		return "field"
	case CompletionFunction:
		return "function"
	case CompletionModule:
		return "module"
	case CompletionValue:
		return "value"
	}
	return "unknown"
}

// CompletionItem is one completion result.
type CompletionItem struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string
	InsertText    string
	SortText      string
}

// triggerKind classifies what the cursor sits after.
type triggerKind int

const (
	triggerGeneral triggerKind = iota
	triggerMember              // base.
	triggerMethod              // base:
	triggerIndex               // base[
)

// completionSet accumulates items with first-write-wins label dedup.
type completionSet struct {
	items []CompletionItem
	seen  map[string]bool
}

func newCompletionSet() *completionSet {
	return &completionSet{seen: map[string]bool{}}
}

func (s *completionSet) add(item CompletionItem) {
	if s.seen[item.Label] {
		return
	}
	s.seen[item.Label] = true
	s.items = append(s.items, item)
}

// dottedChain matches an identifier chain ending in a trigger character,
// used when the parser produced no usable node at the cursor (common right
// after typing the trigger).
var dottedChain = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)[.:[]\s*[A-Za-z_0-9]*$`)

// Completion answers a completion request at a byte offset. explicit marks
// a user-invoked request; implicit (as-you-type) requests suppress the
// environment and keyword providers when there is no current word, to
// avoid noisy pop-ups while merely moving the cursor.
func (e *Engine) Completion(ctx context.Context, req Request, offset int, explicit bool) ([]CompletionItem, error) {
	res, err := e.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	doc := res.Doc
	if doc.InComment(offset) {
		return nil, nil
	}

	word := doc.WordBefore(offset)
	trigger, baseT := e.classifyTrigger(res, req.Hook, doc, offset, word)

	set := newCompletionSet()

	stop := e.memberProvider(set, req.Hook, trigger, baseT)
	if !stop {
		if word != "" || explicit {
			e.environmentProvider(set, res, offset)
			keywordProvider(set)
		}
	}

	items := set.items
	if e.maxCompletionItems > 0 && len(items) > e.maxCompletionItems {
		items = items[:e.maxCompletionItems]
	}
	return items, nil
}

// classifyTrigger inspects the character before the current word and
// resolves the member base when the cursor follows '.', ':', or '['.
func (e *Engine) classifyTrigger(res *analysis.Result, hook string, doc *luaparse.Document, offset int, word string) (triggerKind, luatype.Type) {
	wordStart := offset - len(word)
	if wordStart <= 0 {
		return triggerGeneral, nil
	}

	var trigger triggerKind
	switch doc.Text()[wordStart-1] {
	case '.':
		trigger = triggerMember
	case ':':
		trigger = triggerMethod
	case '[':
		trigger = triggerIndex
	default:
		return triggerGeneral, nil
	}

	// Prefer the parsed tree: the node ending right before the trigger
	// character is the member base.
	if res.Chunk != nil {
		if t := e.baseTypeFromTree(res, hook, wordStart-1); t != nil {
			return trigger, t
		}
	}

	// Fallback: regex over the line text up to the cursor, resolving the
	// dotted chain one segment at a time.
	pos := doc.OffsetToPosition(offset)
	lineStart := doc.PositionToOffset(luaparse.Position{Line: pos.Line, Column: 0})
	prefix := doc.Text()[lineStart:offset]
	m := dottedChain.FindStringSubmatch(prefix)
	if m == nil {
		return trigger, nil
	}
	return trigger, e.resolveChain(res, hook, strings.Split(m[1], "."), offset)
}

// baseTypeFromTree finds the expression ending at the trigger character
// and returns its resolved type.
func (e *Engine) baseTypeFromTree(res *analysis.Result, hook string, baseEnd int) luatype.Type {
	path := luaparse.PathAt(res.Chunk, baseEnd-1)
	for i := len(path) - 1; i >= 0; i-- {
		expr, ok := path[i].(luaparse.Expr)
		if !ok {
			continue
		}
		if expr.Span().End != baseEnd {
			continue
		}
		switch v := expr.(type) {
		case *luaparse.Identifier:
			return e.resolveName(res, hook, v.Name, v.Span().Start)
		case *luaparse.MemberExpr, *luaparse.IndexExpr, *luaparse.CallExpr:
			if t, ok := res.TypeAt(expr.Span().Start); ok {
				return t
			}
		}
	}
	return nil
}

// resolveChain resolves a dotted identifier chain segment by segment.
func (e *Engine) resolveChain(res *analysis.Result, hook string, segs []string, offset int) luatype.Type {
	if len(segs) == 0 {
		return nil
	}
	t := e.resolveName(res, hook, segs[0], offset)
	for _, seg := range segs[1:] {
		if t == nil {
			return nil
		}
		t = analysis.ResolveMember(e.cat, hook, t, seg)
	}
	return t
}

// resolveName resolves a bare name via the symbol table, then the catalog.
func (e *Engine) resolveName(res *analysis.Result, hook, name string, offset int) luatype.Type {
	if sym := res.Symbols.Lookup(name, offset); sym != nil {
		return sym.Type
	}
	if d := e.cat.Global(name); d != nil {
		return d.Type
	}
	if e.cat.Library(name) != nil {
		return luatype.Ref{Name: name}
	}
	if item := e.cat.Sandbox(name); item != nil {
		if item.Kind == catalog.DefFunction {
			return item.Type
		}
		return luatype.Ref{Name: name}
	}
	return nil
}

// memberProvider populates fields of the resolved base type. It owns every
// member-style trigger: once the cursor follows '.', ':' or '[', later
// providers stay silent even when the base did not resolve.
func (e *Engine) memberProvider(set *completionSet, hook string, trigger triggerKind, baseT luatype.Type) (stop bool) {
	if trigger == triggerGeneral {
		return false
	}
	e.addMembers(set, hook, trigger, baseT)
	return true
}

func (e *Engine) addMembers(set *completionSet, hook string, trigger triggerKind, baseT luatype.Type) {
	switch v := baseT.(type) {
	case nil:
		return
	case luatype.Ref:
		if lib := e.cat.Library(v.Name); lib != nil {
			for _, name := range lib.MethodNames() {
				d := lib.Method(name)
				set.add(defItem(name, d, trigger))
			}
			return
		}
		for _, d := range e.cat.SandboxFields(v.Name, hook) {
			if trigger == triggerMethod && d.Kind != catalog.DefFunction {
				continue
			}
			set.add(defItem(d.Name, d, trigger))
		}
	case *luatype.TableType:
		for _, f := range v.Fields {
			if trigger == triggerMethod && !luatype.IsFunctionLike(f.Type) {
				continue
			}
			item := CompletionItem{
				Label:  f.Name,
				Kind:   CompletionField,
				Detail: luatype.Format(f.Type),
			}
			if luatype.IsFunctionLike(f.Type) {
				item.Kind = CompletionFunction
			}
			if trigger == triggerIndex {
				item.InsertText = fmt.Sprintf("%q", f.Name)
			}
			set.add(item)
		}
	case *luatype.Union:
		for _, m := range v.Types {
			if m.Kind() == luatype.KindNil {
				continue
			}
			e.addMembers(set, hook, trigger, m)
		}
	default:
		// String values complete against the string library.
		if luatype.IsStringLike(baseT) {
			if lib := e.cat.Library("string"); lib != nil {
				for _, name := range lib.MethodNames() {
					set.add(defItem(name, lib.Method(name), trigger))
				}
			}
		}
	}
}

func defItem(name string, d *catalog.Definition, trigger triggerKind) CompletionItem {
	item := CompletionItem{
		Label:         name,
		Kind:          CompletionField,
		Documentation: d.Doc,
	}
	if d.Kind == catalog.DefFunction {
		item.Kind = CompletionFunction
	}
	if d.Signature != "" {
		item.Detail = d.Signature
	} else {
		item.Detail = luatype.Format(d.Type)
	}
	if trigger == triggerIndex {
		item.InsertText = fmt.Sprintf("%q", name)
	}
	return item
}

// environmentProvider adds every symbol visible at the offset plus the
// catalog's sandbox items, globals, and library names. Seeded globals are
// skipped from the symbol pass so the catalog entries, which carry docs,
// win for those names.
func (e *Engine) environmentProvider(set *completionSet, res *analysis.Result, offset int) {
	for _, sym := range res.Symbols.VisibleAt(offset) {
		if sym.Kind == symtab.SymbolGlobal {
			continue
		}
		kind := CompletionVariable
		if luatype.IsFunctionLike(sym.Type) {
			kind = CompletionFunction
		}
		set.add(CompletionItem{
			Label:  sym.Name,
			Kind:   kind,
			Detail: luatype.Format(sym.Type),
		})
	}
	for _, name := range e.cat.SandboxNames() {
		item := e.cat.Sandbox(name)
		kind := CompletionModule
		detail := name
		if item.Kind == catalog.DefFunction {
			kind = CompletionFunction
			detail = item.Signature
		}
		set.add(CompletionItem{
			Label:         name,
			Kind:          kind,
			Detail:        detail,
			Documentation: item.Doc,
		})
	}
	for _, name := range e.cat.GlobalNames() {
		d := e.cat.Global(name)
		set.add(defItem(name, d, triggerGeneral))
	}
	for _, name := range e.cat.LibraryNames() {
		lib := e.cat.Library(name)
		set.add(CompletionItem{
			Label:         name,
			Kind:          CompletionModule,
			Detail:        name + " library",
			Documentation: lib.Doc,
		})
	}
}

func keywordProvider(set *completionSet) {
	for _, kw := range catalog.Keywords {
		doc, _ := catalog.KeywordDoc(kw)
		set.add(CompletionItem{
			Label:         kw,
			Kind:          CompletionKeyword,
			Documentation: doc,
		})
	}
}
