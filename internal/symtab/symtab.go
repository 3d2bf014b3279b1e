// Package symtab is the scoped symbol table built during analysis. Scopes
// form a tree rooted at the document scope; the whole structure is rebuilt
// from scratch on every analysis run and never mutated afterwards.
package symtab

import (
	"sort"
	"strings"

	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
)

// SymbolKind classifies a declared name.
type SymbolKind int

const (
	SymbolLocal SymbolKind = iota
	SymbolParameter
	SymbolGlobal
	SymbolUpValue
	SymbolFunction
	SymbolLoopVariable
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolLocal:
		return "local"
	case SymbolParameter:
		return "parameter"
	case SymbolGlobal:
		return "global"
	case SymbolUpValue:
		return "upvalue"
	case SymbolFunction:
		return "function"
	case SymbolLoopVariable:
		return "loop variable"
	}
	return "symbol"
}

// ScopeKind classifies a scope.
type ScopeKind int

const (
	ScopeDocument ScopeKind = iota
	ScopeBlock
	ScopeFunction
	ScopeMethod
	ScopeFor
	ScopeForIn
	ScopeRepeat
	ScopeIf
	ScopeWhile
)

// Symbol is a declared name. Owned by exactly one Scope.
type Symbol struct {
	ID     int
	Name   string
	Kind   SymbolKind
	Type   luatype.Type
	Range  luaparse.Range
	Offset int
	Doc    string
}

// Scope is one node of the scope tree.
type Scope struct {
	ID      int
	Kind    ScopeKind
	Range   luaparse.Range
	Start   int
	End     int
	Parent  *Scope
	symbols map[string]*Symbol
	// order preserves declaration order for deterministic listings.
	order []*Symbol
}

// Symbols returns the scope's own symbols in declaration order.
func (s *Scope) Symbols() []*Symbol {
	return s.order
}

// Contains reports whether the offset falls inside the scope span.
func (s *Scope) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// ShadowedName describes an inner declaration hiding an outer one.
type ShadowedName struct {
	Symbol *Symbol
	Outer  *Symbol
}

// Table is the symbol table for one analysis run.
type Table struct {
	root    *Scope
	stack   []*Scope
	scopes  []*Scope
	symbols []*Symbol
	// refs maps symbol IDs to the offsets referencing them. The table
	// references symbols, it never owns them.
	refs     map[int][]int
	shadowed []ShadowedName
	globals  map[string]*Symbol
	nextSym  int
}

// New creates a Table rooted at a document scope spanning the given range.
func New(docRange luaparse.Range) *Table {
	root := &Scope{
		ID:      0,
		Kind:    ScopeDocument,
		Range:   docRange,
		Start:   docRange.Start,
		End:     docRange.End,
		symbols: map[string]*Symbol{},
	}
	return &Table{
		root:    root,
		stack:   []*Scope{root},
		scopes:  []*Scope{root},
		refs:    map[int][]int{},
		globals: map[string]*Symbol{},
	}
}

// Root returns the document scope.
func (t *Table) Root() *Scope { return t.root }

// Current returns the scope on top of the stack.
func (t *Table) Current() *Scope { return t.stack[len(t.stack)-1] }

// EnterScope pushes a new child scope. Calls must be balanced with
// ExitScope by the caller.
func (t *Table) EnterScope(kind ScopeKind, rng luaparse.Range, start, end int) *Scope {
	s := &Scope{
		ID:      len(t.scopes),
		Kind:    kind,
		Range:   rng,
		Start:   start,
		End:     end,
		Parent:  t.Current(),
		symbols: map[string]*Symbol{},
	}
	t.scopes = append(t.scopes, s)
	t.stack = append(t.stack, s)
	return s
}

// ExitScope pops the current scope. The document scope is never popped.
func (t *Table) ExitScope() {
	if len(t.stack) > 1 {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

// Declare adds a symbol to the current scope and returns it. When the new
// symbol hides a non-global declaration visible from an enclosing scope,
// the pair is recorded for the shadowing diagnostic unless the name starts
// with an underscore.
func (t *Table) Declare(name string, kind SymbolKind, typ luatype.Type, rng luaparse.Range, offset int) *Symbol {
	if !strings.HasPrefix(name, "_") {
		if outer := t.lookupFrom(t.Current(), name); outer != nil && outer.Kind != SymbolGlobal {
			sym := t.declare(name, kind, typ, rng, offset)
			t.shadowed = append(t.shadowed, ShadowedName{Symbol: sym, Outer: outer})
			return sym
		}
	}
	return t.declare(name, kind, typ, rng, offset)
}

func (t *Table) declare(name string, kind SymbolKind, typ luatype.Type, rng luaparse.Range, offset int) *Symbol {
	sym := &Symbol{
		ID:     t.nextSym,
		Name:   name,
		Kind:   kind,
		Type:   typ,
		Range:  rng,
		Offset: offset,
	}
	t.nextSym++
	scope := t.Current()
	scope.symbols[name] = sym
	scope.order = append(scope.order, sym)
	t.symbols = append(t.symbols, sym)
	if kind == SymbolGlobal {
		t.globals[name] = sym
	}
	return sym
}

// DeclareGlobalAt declares a script-created global into the document scope
// at a source position. Callers check for an existing symbol first:
// re-assignment to a known name must not re-declare.
func (t *Table) DeclareGlobalAt(name string, typ luatype.Type, rng luaparse.Range, offset int) *Symbol {
	sym := &Symbol{
		ID:     t.nextSym,
		Name:   name,
		Kind:   SymbolGlobal,
		Type:   typ,
		Range:  rng,
		Offset: offset,
	}
	t.nextSym++
	t.root.symbols[name] = sym
	t.root.order = append(t.root.order, sym)
	t.symbols = append(t.symbols, sym)
	t.globals[name] = sym
	return sym
}

// AddGlobal seeds a sandbox-provided global into the document scope.
// Seeded globals are never reported as unused.
func (t *Table) AddGlobal(name string, typ luatype.Type, doc string) *Symbol {
	sym := &Symbol{
		ID:   t.nextSym,
		Name: name,
		Kind: SymbolGlobal,
		Type: typ,
		Doc:  doc,
	}
	t.nextSym++
	t.root.symbols[name] = sym
	t.root.order = append(t.root.order, sym)
	t.symbols = append(t.symbols, sym)
	t.globals[name] = sym
	return sym
}

// Global returns a previously declared or seeded global, or nil.
func (t *Table) Global(name string) *Symbol {
	return t.globals[name]
}

// Lookup walks from the innermost scope enclosing offset outward to the
// root, returning the first symbol with the given name. Inner declarations
// hide outer ones. With a negative offset the search starts from the most
// recently entered scope instead.
func (t *Table) Lookup(name string, offset int) *Symbol {
	start := t.Current()
	if offset >= 0 {
		start = t.innermostAt(offset)
	}
	return t.lookupFrom(start, name)
}

func (t *Table) lookupFrom(scope *Scope, name string) *Symbol {
	for s := scope; s != nil; s = s.Parent {
		if sym, ok := s.symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// innermostAt returns the deepest scope whose span contains the offset.
func (t *Table) innermostAt(offset int) *Scope {
	best := t.root
	for _, s := range t.scopes {
		if s.Contains(offset) && s.Start >= best.Start && s.End <= best.End {
			best = s
		}
	}
	return best
}

// AddReference records that the symbol is used at the given offset.
func (t *Table) AddReference(symbolID int, offset int) {
	t.refs[symbolID] = append(t.refs[symbolID], offset)
}

// References returns the reference offsets recorded for a symbol.
func (t *Table) References(symbolID int) []int {
	return t.refs[symbolID]
}

// IsReferenced reports whether the symbol has at least one recorded use.
func (t *Table) IsReferenced(symbolID int) bool {
	return len(t.refs[symbolID]) > 0
}

// VisibleAt returns every symbol visible at the offset, innermost scopes
// first. When an inner declaration shadows an outer one only the inner
// symbol appears. Within one scope, declaration order is kept.
func (t *Table) VisibleAt(offset int) []*Symbol {
	var out []*Symbol
	seen := map[string]bool{}
	for s := t.innermostAt(offset); s != nil; s = s.Parent {
		for _, sym := range s.order {
			if seen[sym.Name] {
				continue
			}
			// A symbol is not visible before its own declaration,
			// except for seeded globals which have no position.
			if sym.Kind != SymbolGlobal && sym.Offset > offset {
				continue
			}
			seen[sym.Name] = true
			out = append(out, sym)
		}
	}
	return out
}

// Shadowed returns the recorded shadowing pairs in declaration order.
func (t *Table) Shadowed() []ShadowedName {
	return t.shadowed
}

// Unreferenced returns locals, parameters, loop variables, and local
// functions that were never referenced, in declaration offset order. Names
// starting with an underscore and globals are exempt.
func (t *Table) Unreferenced() []*Symbol {
	var out []*Symbol
	for _, sym := range t.symbols {
		if sym.Kind == SymbolGlobal || sym.Kind == SymbolUpValue {
			continue
		}
		if strings.HasPrefix(sym.Name, "_") {
			continue
		}
		if !t.IsReferenced(sym.ID) {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Scopes returns every scope created during the run.
func (t *Table) Scopes() []*Scope {
	return t.scopes
}
