package analysis

import (
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
	"github.com/jward/loupe/internal/symtab"
)

// Pass one: walk the full tree declaring bindings into the symbol table,
// entering and exiting the scope for every block. Types assigned here are
// initial snapshots from initializer expressions; pass two refines
// Unknowns but never rewrites a resolved declaration.

func (a *Analyzer) declareStmts(body []luaparse.Stmt) {
	for _, s := range body {
		a.declareStmt(s)
	}
}

func (a *Analyzer) declareStmt(s luaparse.Stmt) {
	switch st := s.(type) {
	case *luaparse.LocalStatement:
		for i, name := range st.Names {
			var init luaparse.Expr
			if i < len(st.Init) {
				init = st.Init[i]
			}
			a.symbols.Declare(name.Name, symtab.SymbolLocal, a.initialType(init), name.Span(), name.Span().Start)
		}
		for _, e := range st.Init {
			a.declareExpr(e)
		}

	case *luaparse.AssignmentStatement:
		for i, target := range st.Targets {
			id, ok := target.(*luaparse.Identifier)
			if !ok {
				continue
			}
			if a.symbols.Lookup(id.Name, -1) != nil {
				continue // re-assignment, not a declaration
			}
			var init luaparse.Expr
			if i < len(st.Values) {
				init = st.Values[i]
			}
			a.symbols.DeclareGlobalAt(id.Name, a.initialType(init), id.Span(), id.Span().Start)
		}
		for _, e := range st.Values {
			a.declareExpr(e)
		}

	case *luaparse.FunctionStatement:
		if st.Fn == nil {
			return
		}
		fnType := a.functionType(st.Fn)
		if id, ok := st.Name.(*luaparse.Identifier); ok {
			if st.IsLocal {
				a.symbols.Declare(id.Name, symtab.SymbolFunction, fnType, id.Span(), id.Span().Start)
			} else if a.symbols.Lookup(id.Name, -1) == nil {
				a.symbols.DeclareGlobalAt(id.Name, fnType, id.Span(), id.Span().Start)
			}
		}
		a.declareFunctionBody(st.Fn)

	case *luaparse.CallStatement:
		a.declareExpr(st.Call)

	case *luaparse.ReturnStatement:
		for _, e := range st.Values {
			a.declareExpr(e)
		}

	case *luaparse.IfStatement:
		for _, cl := range st.Clauses {
			a.declareExpr(cl.Cond)
			a.symbols.EnterScope(symtab.ScopeIf, cl.Rng, cl.Rng.Start, cl.Rng.End)
			a.declareStmts(cl.Body)
			a.symbols.ExitScope()
		}

	case *luaparse.WhileStatement:
		a.declareExpr(st.Cond)
		rng := st.Span()
		a.symbols.EnterScope(symtab.ScopeWhile, rng, rng.Start, rng.End)
		a.declareStmts(st.Body)
		a.symbols.ExitScope()

	case *luaparse.RepeatStatement:
		// The until condition sees the body's locals.
		rng := st.Span()
		a.symbols.EnterScope(symtab.ScopeRepeat, rng, rng.Start, rng.End)
		a.declareStmts(st.Body)
		a.declareExpr(st.Cond)
		a.symbols.ExitScope()

	case *luaparse.NumericForStatement:
		a.declareExpr(st.Start)
		a.declareExpr(st.Limit)
		a.declareExpr(st.Step)
		rng := st.Span()
		a.symbols.EnterScope(symtab.ScopeFor, rng, rng.Start, rng.End)
		if st.Var != nil {
			a.symbols.Declare(st.Var.Name, symtab.SymbolLoopVariable, a.numericForVarType(st), st.Var.Span(), st.Var.Span().Start)
		}
		a.declareStmts(st.Body)
		a.symbols.ExitScope()

	case *luaparse.GenericForStatement:
		for _, e := range st.Exprs {
			a.declareExpr(e)
		}
		rng := st.Span()
		a.symbols.EnterScope(symtab.ScopeForIn, rng, rng.Start, rng.End)
		for _, v := range st.Vars {
			a.symbols.Declare(v.Name, symtab.SymbolLoopVariable, luatype.Unknown, v.Span(), v.Span().Start)
		}
		a.declareStmts(st.Body)
		a.symbols.ExitScope()

	case *luaparse.DoStatement:
		rng := st.Span()
		a.symbols.EnterScope(symtab.ScopeBlock, rng, rng.Start, rng.End)
		a.declareStmts(st.Body)
		a.symbols.ExitScope()
	}
}

// declareExpr descends into expressions looking for function literals,
// whose parameters and bodies introduce scopes of their own.
func (a *Analyzer) declareExpr(e luaparse.Expr) {
	if e == nil {
		return
	}
	if fn, ok := e.(*luaparse.FunctionExpr); ok {
		a.declareFunctionBody(fn)
		return
	}
	luaparse.Inspect(e, func(n luaparse.Node) bool {
		if fn, ok := n.(*luaparse.FunctionExpr); ok && n != e {
			a.declareFunctionBody(fn)
			return false
		}
		return true
	})
}

// declareFunctionBody enters the function's scope, declares its parameters,
// and recurses into the body.
func (a *Analyzer) declareFunctionBody(fn *luaparse.FunctionExpr) {
	kind := symtab.ScopeFunction
	if fn.IsMethod {
		kind = symtab.ScopeMethod
	}
	rng := fn.Span()
	a.symbols.EnterScope(kind, rng, rng.Start, rng.End)
	if fn.IsMethod {
		a.symbols.Declare("self", symtab.SymbolParameter, luatype.Table, rng, rng.Start)
	}
	for _, p := range fn.Params {
		if p.Vararg {
			continue
		}
		a.symbols.Declare(p.Name, symtab.SymbolParameter, luatype.Unknown, p.Rng, p.Rng.Start)
	}
	a.declareStmts(fn.Body)
	a.symbols.ExitScope()
}

// functionType builds a FunctionType skeleton for a function literal. The
// body is not analyzed here, so parameter and return types stay Unknown.
func (a *Analyzer) functionType(fn *luaparse.FunctionExpr) *luatype.FunctionType {
	ft := &luatype.FunctionType{}
	for _, p := range fn.Params {
		ft.Params = append(ft.Params, luatype.Param{
			Name:   p.Name,
			Type:   luatype.Unknown,
			Vararg: p.Vararg,
		})
	}
	return ft
}

// numericForVarType picks integer when the bounds and step are integral.
func (a *Analyzer) numericForVarType(st *luaparse.NumericForStatement) luatype.Type {
	intExpr := func(e luaparse.Expr) bool {
		if e == nil {
			return true
		}
		n, ok := e.(*luaparse.NumberLiteral)
		return ok && n.IsInt
	}
	if intExpr(st.Start) && intExpr(st.Limit) && intExpr(st.Step) && st.Start != nil {
		return luatype.Integer
	}
	return luatype.Number
}

// initialType computes the declaration-time type snapshot for an
// initializer. Literals widen to their base kind; everything the shallow
// walk cannot see becomes Unknown for pass two to refine.
func (a *Analyzer) initialType(e luaparse.Expr) luatype.Type {
	switch v := e.(type) {
	case nil:
		return luatype.Unknown
	case *luaparse.NilLiteral:
		return luatype.Nil
	case *luaparse.BooleanLiteral:
		return luatype.Boolean
	case *luaparse.NumberLiteral:
		if v.IsInt {
			return luatype.Integer
		}
		return luatype.Number
	case *luaparse.StringLiteral:
		return luatype.String
	case *luaparse.FunctionExpr:
		return a.functionType(v)
	case *luaparse.TableExpr:
		return a.initialTableType(v)
	case *luaparse.UnaryExpr:
		return unaryResult(v.Op)
	case *luaparse.BinaryExpr:
		if v.Op == "and" || v.Op == "or" {
			left := a.initialType(v.Left)
			right := a.initialType(v.Right)
			if left.Kind() == luatype.KindUnknown || right.Kind() == luatype.KindUnknown {
				return luatype.Unknown
			}
			return luatype.NewUnion(left, right)
		}
		return binaryResult(v.Op)
	}
	return luatype.Unknown
}

func (a *Analyzer) initialTableType(t *luaparse.TableExpr) luatype.Type {
	allPositional := len(t.Fields) > 0
	for _, f := range t.Fields {
		if f.Kind != luaparse.FieldValue {
			allPositional = false
			break
		}
	}
	if allPositional {
		var elems []luatype.Type
		for _, f := range t.Fields {
			elems = append(elems, a.initialType(f.Value))
		}
		return &luatype.Array{Elem: luatype.NewUnion(elems...)}
	}
	tbl := &luatype.TableType{}
	a.fillTableFields(tbl, t, a.initialType)
	return tbl
}
