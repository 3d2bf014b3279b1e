package analysis

import (
	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
)

// inferExpr computes and memoizes the type of an expression. Offsets key
// the memo table; when nested expressions share a start offset the
// outermost write wins, which is what position queries want.
func (a *Analyzer) inferExpr(e luaparse.Expr) luatype.Type {
	if e == nil {
		return luatype.Unknown
	}
	t := a.inferExprUncached(e)
	if t == nil {
		t = luatype.Unknown
	}
	a.types[e.Span().Start] = t
	return t
}

func (a *Analyzer) inferExprUncached(e luaparse.Expr) luatype.Type {
	switch v := e.(type) {
	case *luaparse.NilLiteral:
		return luatype.Nil
	case *luaparse.BooleanLiteral:
		return luatype.BooleanLiteral{Value: v.Value}
	case *luaparse.NumberLiteral:
		return luatype.NumberLiteral{Value: v.Value}
	case *luaparse.StringLiteral:
		return luatype.StringLiteral{Value: v.Value}
	case *luaparse.VarargLiteral:
		return luatype.Unknown
	case *luaparse.Identifier:
		return a.inferIdentifier(v)
	case *luaparse.MemberExpr:
		return a.inferMember(v)
	case *luaparse.IndexExpr:
		return a.inferIndex(v)
	case *luaparse.CallExpr:
		return a.inferCall(v)
	case *luaparse.FunctionExpr:
		a.analyzeFunctionBody(v)
		return a.functionType(v)
	case *luaparse.TableExpr:
		return a.inferTable(v)
	case *luaparse.BinaryExpr:
		return a.inferBinary(v)
	case *luaparse.UnaryExpr:
		opT := a.inferExpr(v.Operand)
		if v.Op == "-" && isIntegral(opT) {
			return luatype.Integer
		}
		return unaryResult(v.Op)
	}
	return luatype.Unknown
}

func (a *Analyzer) inferIdentifier(id *luaparse.Identifier) luatype.Type {
	offset := id.Span().Start
	if sym := a.symbols.Lookup(id.Name, offset); sym != nil {
		a.symbols.AddReference(sym.ID, offset)
		if sym.Type == nil {
			return luatype.Unknown
		}
		return sym.Type
	}
	// Disabled names fall through to Unknown here; the diagnostics
	// pipeline reports them.
	return luatype.Unknown
}

func (a *Analyzer) inferMember(m *luaparse.MemberExpr) luatype.Type {
	baseT := a.inferExpr(m.Base)
	t := a.memberType(baseT, m.Name)

	// Record only accesses whose base shape is known: Unknown and Any bases
	// can hold anything, so a miss there is not evidence of a typo.
	if knownShape(baseT) {
		a.members = append(a.members, MemberAccess{
			Range:    m.NameRange,
			Base:     baseT,
			BaseName: exprName(m.Base),
			Name:     m.Name,
			Resolved: t != nil,
		})
	}
	if t == nil {
		return luatype.Unknown
	}
	return t
}

func (a *Analyzer) memberType(baseT luatype.Type, name string) luatype.Type {
	return ResolveMember(a.cat, a.hook, baseT, name)
}

// ResolveMember resolves a field access against a type, routing nominal
// refs through the catalog and everything structural through
// luatype.Member. This is the single member-resolution path shared by the
// analyzer, completion, and hover.
func ResolveMember(cat *catalog.Catalog, hook string, baseT luatype.Type, name string) luatype.Type {
	switch v := baseT.(type) {
	case nil:
		return nil
	case luatype.Ref:
		if cat == nil {
			return nil
		}
		if lib := cat.Library(v.Name); lib != nil {
			if d := lib.Method(name); d != nil {
				return d.Type
			}
			return nil
		}
		if d := cat.SandboxField(v.Name, name, hook); d != nil {
			return d.Type
		}
		return nil
	case *luatype.Union:
		for _, m := range v.Types {
			if m.Kind() == luatype.KindNil {
				continue
			}
			if r := ResolveMember(cat, hook, m, name); r != nil {
				return r
			}
		}
		return nil
	}
	// String values carry the string library's methods.
	if baseT.Kind() == luatype.KindString || baseT.Kind() == luatype.KindStringLiteral {
		if cat != nil {
			if d := cat.LibraryMethod("string", name); d != nil {
				return d.Type
			}
		}
		return nil
	}
	return luatype.Member(baseT, name)
}

func (a *Analyzer) inferIndex(ix *luaparse.IndexExpr) luatype.Type {
	baseT := a.inferExpr(ix.Base)
	keyT := a.inferExpr(ix.Index)

	if s, ok := keyT.(luatype.StringLiteral); ok {
		if t := a.memberType(baseT, s.Value); t != nil {
			return t
		}
		return luatype.Unknown
	}
	switch v := baseT.(type) {
	case *luatype.Array:
		return v.Elem
	case *luatype.Tuple:
		if n, ok := keyT.(luatype.NumberLiteral); ok {
			i := int(n.Value)
			if i >= 1 && i <= len(v.Elems) {
				return v.Elems[i-1]
			}
			return luatype.Nil
		}
		return luatype.NewUnion(v.Elems...)
	case *luatype.TableType:
		if v.ValueType != nil {
			return v.ValueType
		}
	}
	return luatype.Unknown
}

func (a *Analyzer) inferCall(c *luaparse.CallExpr) luatype.Type {
	// await(x) resumes an async call and yields its value.
	if id, ok := c.Target.(*luaparse.Identifier); ok && id.Name == "await" {
		a.inferIdentifier(id)
		if len(c.Args) == 1 {
			return a.inferExpr(c.Args[0])
		}
		for _, arg := range c.Args {
			a.inferExpr(arg)
		}
		return luatype.Unknown
	}

	calleeT := a.inferExpr(c.Target)
	for _, arg := range c.Args {
		a.inferExpr(arg)
	}

	fn, _ := calleeT.(*luatype.FunctionType)
	if fn == nil {
		// A known method name salvages the return type even when the base
		// could not be resolved structurally.
		if name := calleeName(c.Target); name != "" && a.cat != nil {
			if d := a.cat.FindMethod(name); d != nil {
				if dfn, ok := d.Type.(*luatype.FunctionType); ok {
					fn = dfn
				}
			}
		}
	}

	a.calls = append(a.calls, CallInfo{
		Range:    c.Span(),
		Callee:   calleeT,
		Name:     calleeName(c.Target),
		ArgCount: callArgCount(c),
	})

	if fn == nil {
		return luatype.Unknown
	}
	return returnType(fn)
}

// callArgCount counts call arguments, with the implicit self of a method
// call included so arity checks line up with declared signatures.
func callArgCount(c *luaparse.CallExpr) int {
	n := len(c.Args)
	if m, ok := c.Target.(*luaparse.MemberExpr); ok && m.Indexer == ":" {
		n++
	}
	return n
}

func returnType(fn *luatype.FunctionType) luatype.Type {
	switch len(fn.Returns) {
	case 0:
		return luatype.Void
	case 1:
		return fn.Returns[0]
	default:
		return &luatype.Tuple{Elems: fn.Returns}
	}
}

func (a *Analyzer) inferTable(t *luaparse.TableExpr) luatype.Type {
	allPositional := len(t.Fields) > 0
	for _, f := range t.Fields {
		if f.Kind != luaparse.FieldValue {
			allPositional = false
		}
	}
	if allPositional {
		var elems []luatype.Type
		for _, f := range t.Fields {
			elems = append(elems, widen(a.inferExpr(f.Value)))
		}
		return &luatype.Array{Elem: luatype.NewUnion(elems...)}
	}
	tbl := &luatype.TableType{}
	a.fillTableFields(tbl, t, a.inferExpr)
	if len(tbl.Fields) == 0 && tbl.ValueType == nil {
		return luatype.Table
	}
	return tbl
}

// fillTableFields populates a TableType from a constructor's entries using
// the supplied per-expression typer. Named and string-keyed entries become
// fields; everything else folds into the ValueType catch-all.
func (a *Analyzer) fillTableFields(tbl *luatype.TableType, t *luaparse.TableExpr, typer func(luaparse.Expr) luatype.Type) {
	var catchAll []luatype.Type
	for _, f := range t.Fields {
		switch f.Kind {
		case luaparse.FieldNamed:
			tbl.Fields = append(tbl.Fields, luatype.Field{
				Name: f.Name,
				Type: widen(typer(f.Value)),
			})
		case luaparse.FieldKeyed:
			if s, ok := f.Key.(*luaparse.StringLiteral); ok {
				tbl.Fields = append(tbl.Fields, luatype.Field{
					Name: s.Value,
					Type: widen(typer(f.Value)),
				})
				continue
			}
			typer(f.Key)
			catchAll = append(catchAll, widen(typer(f.Value)))
		case luaparse.FieldValue:
			catchAll = append(catchAll, widen(typer(f.Value)))
		}
	}
	if len(catchAll) > 0 {
		tbl.ValueType = luatype.NewUnion(catchAll...)
	}
}

func (a *Analyzer) inferBinary(b *luaparse.BinaryExpr) luatype.Type {
	left := a.inferExpr(b.Left)
	right := a.inferExpr(b.Right)

	switch b.Op {
	case "and":
		// `a and b` yields b whenever a is truthy, a's falsy value otherwise.
		if luatype.IsAlwaysTruthy(left) {
			return right
		}
		if luatype.IsAlwaysFalsy(left) {
			return left
		}
		return luatype.NewUnion(left, right)
	case "or":
		if luatype.IsAlwaysTruthy(left) {
			return left
		}
		if luatype.IsAlwaysFalsy(left) {
			return right
		}
		return luatype.NewUnion(luatype.Unwrap(left), right)
	case "+", "-", "*", "%", "^":
		if isIntegral(left) && isIntegral(right) && b.Op != "^" {
			return luatype.Integer
		}
		return luatype.Number
	}
	return binaryResult(b.Op)
}

func binaryResult(op string) luatype.Type {
	switch op {
	case "==", "~=", "<", "<=", ">", ">=":
		return luatype.Boolean
	case "..":
		return luatype.String
	case "//", "&", "|", "~", "<<", ">>":
		return luatype.Integer
	case "/":
		return luatype.Number
	case "+", "-", "*", "%", "^":
		return luatype.Number
	}
	return luatype.Unknown
}

func unaryResult(op string) luatype.Type {
	switch op {
	case "not":
		return luatype.Boolean
	case "#", "~":
		return luatype.Integer
	case "-":
		return luatype.Number
	}
	return luatype.Unknown
}

// widen lifts a literal type to its base primitive. Declared variables
// carry the widened type so later assignments of other values of the same
// kind stay consistent.
func widen(t luatype.Type) luatype.Type {
	switch v := t.(type) {
	case nil:
		return luatype.Unknown
	case luatype.BooleanLiteral:
		return luatype.Boolean
	case luatype.NumberLiteral:
		if v.Value == float64(int64(v.Value)) {
			return luatype.Integer
		}
		return luatype.Number
	case luatype.StringLiteral:
		return luatype.String
	}
	return t
}

func isIntegral(t luatype.Type) bool {
	switch v := t.(type) {
	case luatype.Primitive:
		return v.Kind() == luatype.KindInteger
	case luatype.NumberLiteral:
		return v.Value == float64(int64(v.Value))
	}
	return false
}

// knownShape reports whether a type is concrete enough that a failed
// member lookup on it means something. A bare `table` carries no field
// information, so misses on it stay silent.
func knownShape(t luatype.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case luatype.KindUnknown, luatype.KindAny, luatype.KindNil, luatype.KindTable:
		return false
	}
	return true
}

// exprName renders a dotted path for identifier and member chains, used in
// diagnostic messages. Non-path expressions yield "".
func exprName(e luaparse.Expr) string {
	switch v := e.(type) {
	case *luaparse.Identifier:
		return v.Name
	case *luaparse.MemberExpr:
		base := exprName(v.Base)
		if base == "" {
			return ""
		}
		return base + v.Indexer + v.Name
	}
	return ""
}

func calleeName(e luaparse.Expr) string {
	switch v := e.(type) {
	case *luaparse.Identifier:
		return v.Name
	case *luaparse.MemberExpr:
		return v.Name
	}
	return ""
}
