package analysis

import (
	"context"
	"fmt"

	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/flow"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
	"github.com/jward/loupe/internal/symtab"
)

// Analyzer holds the mutable state of one analysis run. The current flow
// cursor and break targets live here and are threaded through the statement
// walk, never in package-level state, so concurrent runs stay independent.
type Analyzer struct {
	doc   *luaparse.Document
	chunk *luaparse.Chunk
	cat   *catalog.Catalog
	hook  string

	symbols *symtab.Table
	graph   *flow.Graph
	types   map[int]luatype.Type
	returns []Return
	loops   []LoopInfo
	calls   []CallInfo
	members []MemberAccess
	diags   []Diagnostic

	// cur is the flow node in effect at the statement being walked.
	cur flow.NodeID
	// breakTargets stacks the merge label each break statement feeds.
	breakTargets []flow.NodeID
	loopDepth    int
	// functionDepth is nonzero while walking a nested function body.
	functionDepth int
}

// Analyze parses and analyzes a hook script. hook selects the per-hook
// context fields from the catalog; it may be empty. Parse failures are
// non-fatal: syntax diagnostics are emitted and analysis proceeds on the
// partial tree.
func Analyze(ctx context.Context, text, hook string, cat *catalog.Catalog) (*Result, error) {
	parsed, err := luaparse.Parse(ctx, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	doc := luaparse.NewDocument(text, parsed.Comments)

	a := &Analyzer{
		doc:     doc,
		chunk:   parsed.Chunk,
		cat:     cat,
		hook:    hook,
		symbols: symtab.New(luaparse.Range{Start: 0, End: len(text)}),
		graph:   flow.NewGraph(),
		types:   map[int]luatype.Type{},
		cur:     flow.StartID,
	}

	for _, pe := range parsed.Errors {
		a.diags = append(a.diags, Diagnostic{
			Range:    pe.Rng,
			Severity: SeverityError,
			Code:     CodeSyntaxError,
			Source:   DiagnosticSource,
			Message:  pe.Message,
		})
	}

	a.seedGlobals()
	if a.chunk != nil {
		a.declareStmts(a.chunk.Body)
		a.analyzeStmts(a.chunk.Body)
		a.finish()
	}

	return &Result{
		Doc:         doc,
		Chunk:       a.chunk,
		Symbols:     a.symbols,
		Graph:       a.graph,
		Diagnostics: a.diags,
		Types:       a.types,
		Returns:     a.returns,
		Loops:       a.loops,
		Calls:       a.calls,
		Members:     a.members,
		Success:     len(parsed.Errors) == 0,
	}, nil
}

// seedGlobals loads the sandbox surface into the document scope: catalog
// globals, standard-library namespaces as nominal refs, and the sandbox
// pseudo-globals. Seeded names are never flagged unused.
func (a *Analyzer) seedGlobals() {
	if a.cat == nil {
		return
	}
	for _, name := range a.cat.GlobalNames() {
		d := a.cat.Global(name)
		a.symbols.AddGlobal(name, d.Type, d.Doc)
	}
	for _, name := range a.cat.LibraryNames() {
		lib := a.cat.Library(name)
		a.symbols.AddGlobal(name, luatype.Ref{Name: name}, lib.Doc)
	}
	for _, name := range a.cat.SandboxNames() {
		item := a.cat.Sandbox(name)
		if item.Kind == catalog.DefFunction {
			a.symbols.AddGlobal(name, item.Type, item.Doc)
			continue
		}
		a.symbols.AddGlobal(name, luatype.Ref{Name: name}, item.Doc)
	}
}

// finish runs the post-pass diagnostics: shadowed names from pass one and
// unused locals from the reference index.
func (a *Analyzer) finish() {
	for _, sh := range a.symbols.Shadowed() {
		a.diags = append(a.diags, Diagnostic{
			Range:    sh.Symbol.Range,
			Severity: SeverityWarning,
			Code:     CodeShadowedName,
			Source:   DiagnosticSource,
			Message:  fmt.Sprintf("%q shadows an earlier declaration; rename it or prefix with _ to keep both", sh.Symbol.Name),
		})
	}
	for _, sym := range a.symbols.Unreferenced() {
		a.diags = append(a.diags, Diagnostic{
			Range:    sym.Range,
			Severity: SeverityHint,
			Code:     CodeUnusedLocal,
			Source:   DiagnosticSource,
			Message:  fmt.Sprintf("%s %q is never used", sym.Kind, sym.Name),
		})
	}
}

func (a *Analyzer) diag(rng luaparse.Range, sev Severity, code, msg string) {
	a.diags = append(a.diags, Diagnostic{
		Range:    rng,
		Severity: sev,
		Code:     code,
		Source:   DiagnosticSource,
		Message:  msg,
	})
}

// bodyRange spans a statement list, falling back to the enclosing range
// when the body is empty.
func bodyRange(body []luaparse.Stmt, fallback luaparse.Range) luaparse.Range {
	if len(body) == 0 {
		return fallback
	}
	return luaparse.Range{
		Start: body[0].Span().Start,
		End:   body[len(body)-1].Span().End,
	}
}
