// Package luaparse adapts tree-sitter's Lua grammar into a closed set of
// typed AST nodes suitable for semantic analysis. The concrete syntax tree is
// discarded after conversion; every node retains only its byte range.
package luaparse

// Range is a half-open [Start, End) span of byte offsets into the source.
type Range struct {
	Start int
	End   int
}

// Contains reports whether the offset falls inside the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Node is implemented by every AST node.
type Node interface {
	Span() Range
}

type base struct {
	Rng Range
}

func (b base) Span() Range { return b.Rng }

// Stmt is the statement marker interface.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the expression marker interface.
type Expr interface {
	Node
	exprNode()
}

/* ------------------------------ statements ------------------------------ */

// Chunk is the root of a parsed script.
type Chunk struct {
	base
	Body []Stmt
}

// LocalStatement is `local a, b = x, y`.
type LocalStatement struct {
	base
	Names []*Identifier
	Init  []Expr
}

// AssignmentStatement is `a.b, c = x, y` at statement level.
type AssignmentStatement struct {
	base
	Targets []Expr
	Values  []Expr
}

// FunctionStatement covers `function f() end`, `function t.f() end`,
// `function t:m() end`, and `local function f() end`. Name is an Identifier,
// MemberExpr, or nil when the declaration itself is malformed.
type FunctionStatement struct {
	base
	Name    Expr
	IsLocal bool
	Fn      *FunctionExpr
}

// ReturnStatement is `return e1, e2`.
type ReturnStatement struct {
	base
	Values []Expr
}

// IfClause is one arm of an if statement. Cond is nil for the else arm.
type IfClause struct {
	Rng  Range
	Cond Expr
	Body []Stmt
}

// IfStatement is `if c then A elseif c2 then B else C end`.
type IfStatement struct {
	base
	Clauses []IfClause
}

// WhileStatement is `while c do ... end`.
type WhileStatement struct {
	base
	Cond Expr
	Body []Stmt
}

// RepeatStatement is `repeat ... until c`. The condition can see locals
// declared in the body.
type RepeatStatement struct {
	base
	Body []Stmt
	Cond Expr
}

// NumericForStatement is `for i = start, limit[, step] do ... end`.
type NumericForStatement struct {
	base
	Var   *Identifier
	Start Expr
	Limit Expr
	Step  Expr
	Body  []Stmt
}

// GenericForStatement is `for k, v in expr do ... end`.
type GenericForStatement struct {
	base
	Vars  []*Identifier
	Exprs []Expr
	Body  []Stmt
}

// DoStatement is a bare `do ... end` block.
type DoStatement struct {
	base
	Body []Stmt
}

// BreakStatement is `break`.
type BreakStatement struct {
	base
}

// CallStatement is an expression-statement whose expression is a call.
type CallStatement struct {
	base
	Call Expr
}

// BadStatement wraps source the parser could not form a statement from.
type BadStatement struct {
	base
}

func (*Chunk) stmtNode()               {}
func (*LocalStatement) stmtNode()      {}
func (*AssignmentStatement) stmtNode() {}
func (*FunctionStatement) stmtNode()   {}
func (*ReturnStatement) stmtNode()     {}
func (*IfStatement) stmtNode()         {}
func (*WhileStatement) stmtNode()      {}
func (*RepeatStatement) stmtNode()     {}
func (*NumericForStatement) stmtNode() {}
func (*GenericForStatement) stmtNode() {}
func (*DoStatement) stmtNode()         {}
func (*BreakStatement) stmtNode()      {}
func (*CallStatement) stmtNode()       {}
func (*BadStatement) stmtNode()        {}

/* ----------------------------- expressions ------------------------------ */

// Identifier is a bare name.
type Identifier struct {
	base
	Name string
}

// NilLiteral is `nil`.
type NilLiteral struct {
	base
}

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	base
	Value bool
}

// NumberLiteral is a numeric literal. IsInt is true when the literal has no
// fractional or exponent part (Lua integer subtype).
type NumberLiteral struct {
	base
	Value float64
	IsInt bool
}

// StringLiteral is a quoted or long-bracket string with quotes stripped.
type StringLiteral struct {
	base
	Value string
}

// VarargLiteral is `...`.
type VarargLiteral struct {
	base
}

// MemberExpr is `base.name` or `base:name`. Indexer is "." or ":".
type MemberExpr struct {
	base
	Base    Expr
	Name    string
	Indexer string
	// NameRange spans just the member name, for hover and diagnostics.
	NameRange Range
}

// IndexExpr is `base[index]`.
type IndexExpr struct {
	base
	Base  Expr
	Index Expr
}

// CallExpr is `target(args)`. Method calls are represented as a CallExpr
// whose Target is a MemberExpr with Indexer ":".
type CallExpr struct {
	base
	Target Expr
	Args   []Expr
}

// Param is a function parameter. Vararg parameters have Name "...".
type Param struct {
	Rng    Range
	Name   string
	Vararg bool
}

// FunctionExpr is a function literal: `function(p1, p2) ... end`.
type FunctionExpr struct {
	base
	Params []Param
	Body   []Stmt
	// IsMethod is set for `function t:m()` declarations, which carry an
	// implicit self parameter.
	IsMethod bool
}

// TableFieldKind distinguishes the three table-constructor field forms.
type TableFieldKind int

const (
	// FieldValue is a positional entry: `{ v1, v2 }`.
	FieldValue TableFieldKind = iota
	// FieldNamed is a string-keyed entry: `{ name = v }`.
	FieldNamed
	// FieldKeyed is a computed-key entry: `{ [k] = v }`.
	FieldKeyed
)

// TableField is one entry of a table constructor.
type TableField struct {
	Rng   Range
	Kind  TableFieldKind
	Name  string // FieldNamed only
	Key   Expr   // FieldKeyed only
	Value Expr
	// NameRange spans the key identifier for FieldNamed entries.
	NameRange Range
}

// TableExpr is a table constructor `{ ... }`.
type TableExpr struct {
	base
	Fields []TableField
}

// BinaryExpr covers arithmetic, comparison, concatenation, bitwise, and the
// logical `and`/`or` operators.
type BinaryExpr struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

// UnaryExpr is `not x`, `-x`, `#x`, or `~x`.
type UnaryExpr struct {
	base
	Op      string
	Operand Expr
}

// BadExpr wraps source the parser could not form an expression from.
type BadExpr struct {
	base
}

func (*Identifier) exprNode()     {}
func (*NilLiteral) exprNode()     {}
func (*BooleanLiteral) exprNode() {}
func (*NumberLiteral) exprNode()  {}
func (*StringLiteral) exprNode()  {}
func (*VarargLiteral) exprNode()  {}
func (*MemberExpr) exprNode()     {}
func (*IndexExpr) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*FunctionExpr) exprNode()   {}
func (*TableExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*BadExpr) exprNode()        {}

// ParseError describes a syntax error reported alongside the partial tree.
type ParseError struct {
	Rng     Range
	Message string
}
