package luaparse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/lua"
)

// Result is the outcome of parsing a script: a best-effort AST plus any
// syntax errors and comment spans. Chunk is non-nil even for badly broken
// input unless the parser itself failed.
type Result struct {
	Chunk    *Chunk
	Errors   []ParseError
	Comments []Range
}

// Parse runs the tree-sitter Lua grammar over src and converts the concrete
// syntax tree into the typed AST. Syntax errors are collected, not fatal.
func Parse(ctx context.Context, src []byte) (*Result, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lua.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("luaparse: tree-sitter parse: %w", err)
	}
	defer tree.Close()

	c := &converter{src: src}
	root := tree.RootNode()
	chunk := &Chunk{base: base{c.rng(root)}}
	chunk.Body = c.stmts(c.children(root))
	c.collectMeta(root)

	return &Result{Chunk: chunk, Errors: c.errs, Comments: c.comments}, nil
}

type converter struct {
	src      []byte
	errs     []ParseError
	comments []Range
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// rng converts a node span to a byte range. The grammar folds the whitespace
// preceding a token into its extent, so an identifier on a fresh line would
// otherwise carry the newline in both its range and its name; trim it.
func (c *converter) rng(n *sitter.Node) Range {
	s, e := int(n.StartByte()), int(n.EndByte())
	if s < 0 {
		s = 0
	}
	if e > len(c.src) {
		e = len(c.src)
	}
	if s > e {
		s = e
	}
	for s < e && isSpaceByte(c.src[s]) {
		s++
	}
	return Range{Start: s, End: e}
}

// text returns the node's source text with the leading whitespace trimmed,
// matching rng.
func (c *converter) text(n *sitter.Node) string {
	r := c.rng(n)
	return string(c.src[r.Start:r.End])
}

// raw returns the node's source text exactly as spanned. Used for string
// content, where leading whitespace is part of the value.
func (c *converter) raw(n *sitter.Node) string {
	s, e := int(n.StartByte()), int(n.EndByte())
	if s < 0 || e > len(c.src) || s > e {
		return ""
	}
	return string(c.src[s:e])
}

func (c *converter) children(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func (c *converter) ident(n *sitter.Node) *Identifier {
	return &Identifier{base: base{c.rng(n)}, Name: c.text(n)}
}

// collectMeta walks the whole tree once, recording comment spans and syntax
// errors (ERROR and MISSING nodes).
func (c *converter) collectMeta(n *sitter.Node) {
	switch n.Type() {
	case "comment", "emmy_documentation":
		c.comments = append(c.comments, c.rng(n))
		return
	}
	if n.IsError() || n.IsMissing() {
		msg := "syntax error"
		if t := strings.TrimSpace(c.text(n)); t != "" {
			if len(t) > 24 {
				t = t[:24]
			}
			msg = fmt.Sprintf("syntax error near %q", t)
		}
		c.errs = append(c.errs, ParseError{Rng: c.rng(n), Message: msg})
		// Do not descend into error subtrees looking for more errors;
		// one diagnostic per broken region is enough.
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c.collectMeta(n.Child(i))
	}
}

func (c *converter) stmts(nodes []*sitter.Node) []Stmt {
	var out []Stmt
	for _, n := range nodes {
		if s, ok := c.stmt(n); ok && s != nil {
			out = append(out, s)
		}
	}
	return out
}

// stmt converts one CST node into a statement. The second return is false
// when the node is not a statement (comments, keyword tokens, loop headers).
//
// Node type names follow the tree-sitter-lua vocabulary: keywords arrive as
// renamed tokens (if_start, while_do, repeat_until) and statement bodies are
// flat sibling runs segmented by those tokens rather than nested blocks.
func (c *converter) stmt(n *sitter.Node) (Stmt, bool) {
	switch n.Type() {
	case "variable_declaration":
		return c.declStmt(n), true
	case "function_statement":
		return c.functionStmt(n), true
	case "function_call":
		return &CallStatement{base: base{c.rng(n)}, Call: c.callExpr(n)}, true

	case "if_statement":
		return c.ifStmt(n), true
	case "while_statement":
		return c.whileStmt(n), true
	case "repeat_statement":
		return c.repeatStmt(n), true
	case "for_statement":
		return c.forStmt(n), true
	case "do_statement":
		return &DoStatement{base: base{c.rng(n)}, Body: c.stmts(c.children(n))}, true

	case "return_statement", "module_return_statement":
		// The grammar renames a top-of-chunk return, which is exactly the
		// form a hook script's result table takes.
		return &ReturnStatement{base: base{c.rng(n)}, Values: c.commaGroups(c.children(n))}, true
	case "break_statement":
		return &BreakStatement{base: base{c.rng(n)}}, true

	case "comment", "shebang", "emmy_documentation":
		return nil, false

	case "do_start", "do_end", "if_start", "if_then", "if_elseif", "if_else", "if_end",
		"while_start", "while_do", "while_end", "repeat_start", "repeat_until",
		"for_start", "for_do", "for_end", "for_in", "for_numeric", "for_generic",
		"function_start", "function_body", "function_body_paren", "function_end",
		"function_call_paren", "left_paren", "right_paren",
		"field_left_bracket", "field_right_bracket", "local":
		return nil, false

	case "ERROR":
		// Best effort: salvage whatever statements parsed inside.
		if body := c.stmts(c.children(n)); len(body) > 0 {
			return &DoStatement{base: base{c.rng(n)}, Body: body}, true
		}
		return &BadStatement{base: base{c.rng(n)}}, true
	}

	if !n.IsNamed() || strings.HasPrefix(n.Type(), "emmy_") ||
		strings.HasPrefix(n.Type(), "documentation") {
		return nil, false
	}

	// A bare expression at statement level (partial input while typing).
	if e := c.expr(n); e != nil {
		if _, bad := e.(*BadExpr); !bad {
			return &CallStatement{base: base{c.rng(n)}, Call: e}, true
		}
	}
	return nil, false
}

// declStmt handles variable_declaration, which covers both the local and the
// global assignment form; a named `local` child disambiguates.
func (c *converter) declStmt(n *sitter.Node) Stmt {
	isLocal := false
	seenEq := false
	var declarators []*sitter.Node
	var valueNodes []*sitter.Node
	for _, k := range c.children(n) {
		switch {
		case k.Type() == "comment":
		case k.Type() == "local":
			isLocal = true
		case !seenEq && !k.IsNamed() && c.text(k) == "=":
			seenEq = true
		case seenEq:
			valueNodes = append(valueNodes, k)
		case k.Type() == "variable_declarator" || k.Type() == "identifier":
			declarators = append(declarators, k)
		}
	}
	values := c.commaGroups(valueNodes)

	if isLocal {
		st := &LocalStatement{base: base{c.rng(n)}, Init: values}
		for _, d := range declarators {
			switch e := c.declaratorExpr(d).(type) {
			case *Identifier:
				st.Names = append(st.Names, e)
			}
		}
		return st
	}
	st := &AssignmentStatement{base: base{c.rng(n)}, Values: values}
	for _, d := range declarators {
		st.Targets = append(st.Targets, c.declaratorExpr(d))
	}
	return st
}

// declaratorExpr folds a variable_declarator (or bare identifier) into the
// target expression: an identifier, a dotted chain, or a bracketed index.
func (c *converter) declaratorExpr(n *sitter.Node) Expr {
	if n.Type() == "identifier" {
		return c.ident(n)
	}
	if e := c.exprFromNodes(c.children(n)); e != nil {
		return e
	}
	return &BadExpr{base: base{c.rng(n)}}
}

func (c *converter) functionStmt(n *sitter.Node) *FunctionStatement {
	st := &FunctionStatement{base: base{c.rng(n)}}
	fn := &FunctionExpr{base: base{c.rng(n)}}
	sawBody := false
	var rest []*sitter.Node
	for _, k := range c.children(n) {
		switch k.Type() {
		case "local":
			st.IsLocal = true
		case "function_name":
			st.Name = c.functionName(k)
		case "identifier":
			if st.Name == nil {
				st.Name = c.ident(k)
			}
		case "function_body":
			fn.Params, fn.Body = c.functionBody(k)
			sawBody = true
		case "parameter_list":
			fn.Params = c.params(k)
		case "function_start", "function_end", "comment", "emmy_documentation":
		default:
			rest = append(rest, k)
		}
	}
	if !sawBody {
		fn.Body = c.stmts(rest)
	}
	if m, ok := st.Name.(*MemberExpr); ok && m.Indexer == ":" {
		fn.IsMethod = true
	}
	st.Fn = fn
	return st
}

// functionName converts `a.b.c` or `a.b:c` declaration names into an
// expression chain.
func (c *converter) functionName(n *sitter.Node) Expr {
	var out Expr
	sep := "."
	for _, k := range c.children(n) {
		switch k.Type() {
		case "identifier":
			if out == nil {
				out = c.ident(k)
				continue
			}
			r := c.rng(k)
			out = &MemberExpr{
				base:      base{Range{Start: out.Span().Start, End: r.End}},
				Base:      out,
				Name:      c.text(k),
				Indexer:   sep,
				NameRange: r,
			}
			sep = "."
		case "table_dot":
			sep = "."
		case "table_colon":
			sep = ":"
		default:
			if !k.IsNamed() {
				if t := c.text(k); t == "." || t == ":" {
					sep = t
				}
			}
		}
	}
	return out
}

// functionBody splits a function_body node into its parameter list and body
// statements.
func (c *converter) functionBody(n *sitter.Node) ([]Param, []Stmt) {
	var params []Param
	var body []*sitter.Node
	for _, k := range c.children(n) {
		switch k.Type() {
		case "parameter_list":
			params = c.params(k)
		case "function_body_paren", "function_end", "comment":
		default:
			body = append(body, k)
		}
	}
	return params, c.stmts(body)
}

func (c *converter) params(n *sitter.Node) []Param {
	var out []Param
	for _, k := range c.children(n) {
		switch k.Type() {
		case "identifier":
			out = append(out, Param{Rng: c.rng(k), Name: c.text(k)})
		case "ellipsis":
			out = append(out, Param{Rng: c.rng(k), Name: "...", Vararg: true})
		case "self":
			out = append(out, Param{Rng: c.rng(k), Name: "self"})
		}
	}
	return out
}

// ifStmt segments the flat child run of an if_statement into clauses. The
// grammar emits no clause nodes: the condition sits bare between if_start
// and if_then, and elseif/else arms are marked only by their tokens.
func (c *converter) ifStmt(n *sitter.Node) *IfStatement {
	st := &IfStatement{base: base{c.rng(n)}}
	var cond, body []*sitter.Node
	inCond := false
	hasCond := false
	open := false
	clauseStart := c.rng(n).Start

	flush := func(end int) {
		if !open {
			return
		}
		cl := IfClause{Rng: Range{Start: clauseStart, End: end}}
		if hasCond {
			cl.Cond = c.exprFromNodes(cond)
		}
		cl.Body = c.stmts(body)
		st.Clauses = append(st.Clauses, cl)
		cond, body = nil, nil
	}

	for _, k := range c.children(n) {
		switch k.Type() {
		case "if_start":
			open, inCond, hasCond = true, true, true
			clauseStart = c.rng(k).Start
		case "if_elseif":
			flush(c.rng(k).Start)
			open, inCond, hasCond = true, true, true
			clauseStart = c.rng(k).Start
		case "if_else":
			flush(c.rng(k).Start)
			open, inCond, hasCond = true, false, false
			clauseStart = c.rng(k).Start
		case "if_then":
			inCond = false
		case "if_end":
			flush(c.rng(k).End)
			open = false
		case "comment":
		default:
			if inCond {
				cond = append(cond, k)
			} else {
				body = append(body, k)
			}
		}
	}
	flush(c.rng(n).End)
	return st
}

func (c *converter) whileStmt(n *sitter.Node) *WhileStatement {
	st := &WhileStatement{base: base{c.rng(n)}}
	var cond, body []*sitter.Node
	inCond := false
	for _, k := range c.children(n) {
		switch k.Type() {
		case "while_start":
			inCond = true
		case "while_do":
			inCond = false
		case "while_end", "comment":
		default:
			if inCond {
				cond = append(cond, k)
			} else {
				body = append(body, k)
			}
		}
	}
	st.Cond = c.exprFromNodes(cond)
	st.Body = c.stmts(body)
	return st
}

func (c *converter) repeatStmt(n *sitter.Node) *RepeatStatement {
	st := &RepeatStatement{base: base{c.rng(n)}}
	var body, cond []*sitter.Node
	inCond := false
	for _, k := range c.children(n) {
		switch k.Type() {
		case "repeat_start":
		case "repeat_until":
			inCond = true
		case "comment":
		default:
			if inCond {
				cond = append(cond, k)
			} else {
				body = append(body, k)
			}
		}
	}
	st.Body = c.stmts(body)
	st.Cond = c.exprFromNodes(cond)
	return st
}

// forStmt dispatches on the loop header node. The body statements are
// siblings of the header inside for_statement, so both loop forms collect
// them from the statement node itself.
func (c *converter) forStmt(n *sitter.Node) Stmt {
	for _, k := range c.children(n) {
		switch k.Type() {
		case "for_numeric":
			return c.numericFor(n, k)
		case "for_generic":
			return c.genericFor(n, k)
		}
	}
	return &BadStatement{base: base{c.rng(n)}}
}

// numericFor reads `i = start, finish[, step]` out of the for_numeric header
// and the body out of the enclosing statement.
func (c *converter) numericFor(stmt, header *sitter.Node) *NumericForStatement {
	st := &NumericForStatement{base: base{c.rng(stmt)}}
	seenEq := false
	var after []*sitter.Node
	for _, k := range c.children(header) {
		switch {
		case k.Type() == "comment":
		case !seenEq && !k.IsNamed() && c.text(k) == "=":
			seenEq = true
		case seenEq:
			after = append(after, k)
		case k.Type() == "identifier" && st.Var == nil:
			st.Var = c.ident(k)
		}
	}
	bounds := c.commaGroups(after)
	if len(bounds) > 0 {
		st.Start = bounds[0]
	}
	if len(bounds) > 1 {
		st.Limit = bounds[1]
	}
	if len(bounds) > 2 {
		st.Step = bounds[2]
	}
	st.Body = c.stmts(c.children(stmt))
	return st
}

func (c *converter) genericFor(stmt, header *sitter.Node) *GenericForStatement {
	st := &GenericForStatement{base: base{c.rng(stmt)}}
	seenIn := false
	var exprNodes []*sitter.Node
	for _, k := range c.children(header) {
		switch k.Type() {
		case "identifier_list":
			for _, id := range c.children(k) {
				if id.Type() == "identifier" {
					st.Vars = append(st.Vars, c.ident(id))
				}
			}
		case "for_in":
			seenIn = true
		case "comment":
		case "identifier":
			if seenIn {
				exprNodes = append(exprNodes, k)
			} else {
				st.Vars = append(st.Vars, c.ident(k))
			}
		default:
			if seenIn {
				exprNodes = append(exprNodes, k)
			}
		}
	}
	st.Exprs = c.commaGroups(exprNodes)
	st.Body = c.stmts(c.children(stmt))
	return st
}

// commaGroups splits a flat expression run on its top-level commas and folds
// each group into one expression. Keyword and separator tokens are ignored,
// so a return_statement's children can be passed in whole.
func (c *converter) commaGroups(nodes []*sitter.Node) []Expr {
	var out []Expr
	var cur []*sitter.Node
	flush := func() {
		if e := c.exprFromNodes(cur); e != nil {
			out = append(out, e)
		}
		cur = nil
	}
	depth := 0
	for _, k := range nodes {
		switch {
		case c.isBracketOpen(k) || c.isParenOpen(k):
			depth++
			cur = append(cur, k)
		case c.isBracketClose(k) || c.isParenClose(k):
			depth--
			cur = append(cur, k)
		case depth == 0 && !k.IsNamed() && c.text(k) == ",":
			flush()
		default:
			cur = append(cur, k)
		}
	}
	flush()
	return out
}

// dotSep reports whether n is a member-access separator and which indexer it
// spells.
func (c *converter) dotSep(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "table_dot":
		return ".", true
	case "table_colon", "self_call_colon":
		return ":", true
	}
	if !n.IsNamed() {
		switch c.text(n) {
		case ".":
			return ".", true
		case ":":
			return ":", true
		}
	}
	return "", false
}

func (c *converter) isBracketOpen(n *sitter.Node) bool {
	return n.Type() == "field_left_bracket" || (!n.IsNamed() && c.text(n) == "[")
}

func (c *converter) isBracketClose(n *sitter.Node) bool {
	return n.Type() == "field_right_bracket" || (!n.IsNamed() && c.text(n) == "]")
}

func (c *converter) isParenOpen(n *sitter.Node) bool {
	return n.Type() == "left_paren" || (!n.IsNamed() && c.text(n) == "(")
}

func (c *converter) isParenClose(n *sitter.Node) bool {
	return n.Type() == "right_paren" || (!n.IsNamed() && c.text(n) == ")")
}

// matchClose returns the index of the close token matching the open at
// start, or len(nodes) when unbalanced.
func matchClose(nodes []*sitter.Node, start int, open, close func(*sitter.Node) bool) int {
	depth := 0
	for j := start; j < len(nodes); j++ {
		switch {
		case open(nodes[j]):
			depth++
		case close(nodes[j]):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(nodes)
}

// exprFromNodes folds a run of sibling nodes into one expression. The
// grammar splices prefix chains inline instead of nesting index nodes, so
// `a.b[k]` arrives as the six siblings a . b [ k ] and a parenthesized
// expression as left_paren, inner, right_paren.
func (c *converter) exprFromNodes(nodes []*sitter.Node) Expr {
	var cur Expr
	for i := 0; i < len(nodes); {
		k := nodes[i]
		if k.Type() == "comment" {
			i++
			continue
		}
		if sep, ok := c.dotSep(k); ok {
			if cur != nil && i+1 < len(nodes) && nodes[i+1].Type() == "identifier" {
				id := nodes[i+1]
				r := c.rng(id)
				cur = &MemberExpr{
					base:      base{Range{Start: cur.Span().Start, End: r.End}},
					Base:      cur,
					Name:      c.text(id),
					Indexer:   sep,
					NameRange: r,
				}
				i += 2
				continue
			}
			i++
			continue
		}
		if c.isBracketOpen(k) {
			j := matchClose(nodes, i, c.isBracketOpen, c.isBracketClose)
			inner := c.exprFromNodes(nodes[i+1 : minInt(j, len(nodes))])
			if inner == nil {
				inner = &BadExpr{base: base{c.rng(k)}}
			}
			end := c.rng(k).End
			if j < len(nodes) {
				end = c.rng(nodes[j]).End
			}
			if cur != nil {
				cur = &IndexExpr{
					base:  base{Range{Start: cur.Span().Start, End: end}},
					Base:  cur,
					Index: inner,
				}
			} else {
				cur = inner
			}
			i = j + 1
			continue
		}
		if c.isParenOpen(k) {
			j := matchClose(nodes, i, c.isParenOpen, c.isParenClose)
			if inner := c.exprFromNodes(nodes[i+1 : minInt(j, len(nodes))]); cur == nil && inner != nil {
				cur = inner
			}
			i = j + 1
			continue
		}
		if k.IsNamed() || k.IsError() {
			if e := c.expr(k); e != nil && cur == nil {
				cur = e
			}
		}
		i++
	}
	return cur
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// expr converts one CST node into an expression. Unresolvable nodes
// become BadExpr so inference degrades to Unknown instead of failing.
func (c *converter) expr(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "self":
		return c.ident(n)
	case "nil":
		return &NilLiteral{base: base{c.rng(n)}}
	case "boolean":
		return &BooleanLiteral{base: base{c.rng(n)}, Value: c.text(n) == "true"}
	case "true":
		return &BooleanLiteral{base: base{c.rng(n)}, Value: true}
	case "false":
		return &BooleanLiteral{base: base{c.rng(n)}}
	case "number":
		return c.number(n)
	case "string", "string_argument":
		return c.stringLit(n)
	case "ellipsis":
		return &VarargLiteral{base: base{c.rng(n)}}

	case "function":
		return c.functionExpr(n)
	case "function_call":
		return c.callExpr(n)
	case "tableconstructor", "table_argument":
		return c.tableExpr(n)
	case "binary_operation":
		return c.binaryExpr(n)
	case "unary_operation":
		return c.unaryExpr(n)

	case "ERROR", "MISSING":
		return &BadExpr{base: base{c.rng(n)}}
	}

	// Unknown wrappers: unwrap a single child, otherwise fold the children
	// as a spliced chain. Keeps the converter tolerant of node renames.
	if n.ChildCount() == 1 && n.NamedChildCount() == 1 {
		return c.expr(n.NamedChild(0))
	}
	if e := c.exprFromNodes(c.children(n)); e != nil {
		return e
	}
	return &BadExpr{base: base{c.rng(n)}}
}

func (c *converter) number(n *sitter.Node) *NumberLiteral {
	raw := c.text(n)
	lit := &NumberLiteral{base: base{c.rng(n)}}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "0x") {
		if v, err := strconv.ParseUint(lower[2:], 16, 64); err == nil {
			lit.Value = float64(v)
			lit.IsInt = true
			return lit
		}
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		lit.Value = v
	}
	lit.IsInt = !strings.ContainsAny(lower, ".e")
	return lit
}

// stringLit reads the literal's value from its string_content child when one
// exists (empty strings have none), falling back to unquoting the whole
// token.
func (c *converter) stringLit(n *sitter.Node) *StringLiteral {
	lit := &StringLiteral{base: base{c.rng(n)}}
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); ch.Type() == "string_content" {
			lit.Value = c.raw(ch)
			return lit
		}
	}
	lit.Value = unquote(c.text(n))
	return lit
}

// unquote strips the surrounding quotes of a Lua string literal, handling
// single quotes, double quotes, and long-bracket forms.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "[") {
		// [[...]] or [=[...]=]
		level := 0
		for level+1 < len(s) && s[level+1] == '=' {
			level++
		}
		bracket := level + 2
		if len(s) >= 2*bracket && s[bracket-1] == '[' {
			return s[bracket : len(s)-bracket]
		}
	}
	return s
}

func (c *converter) functionExpr(n *sitter.Node) *FunctionExpr {
	fn := &FunctionExpr{base: base{c.rng(n)}}
	for _, k := range c.children(n) {
		if k.Type() == "function_body" {
			fn.Params, fn.Body = c.functionBody(k)
			return fn
		}
	}
	// No body wrapper: parameters and statements are direct children.
	fn.Params, fn.Body = c.functionBody(n)
	return fn
}

// callExpr converts a function_call. The callee chain is spliced inline
// before the argument tokens, with self_call_colon marking a method call.
func (c *converter) callExpr(n *sitter.Node) Expr {
	call := &CallExpr{base: base{c.rng(n)}}
	kids := c.children(n)

	i := 0
	var targetNodes []*sitter.Node
	for ; i < len(kids); i++ {
		t := kids[i].Type()
		if t == "function_call_paren" || t == "function_arguments" ||
			t == "string_argument" || t == "table_argument" ||
			(!kids[i].IsNamed() && c.text(kids[i]) == "(") {
			break
		}
		targetNodes = append(targetNodes, kids[i])
	}
	target := c.exprFromNodes(targetNodes)
	if target == nil {
		return &BadExpr{base: base{c.rng(n)}}
	}
	call.Target = target

	for ; i < len(kids); i++ {
		switch kids[i].Type() {
		case "function_arguments":
			call.Args = append(call.Args, c.commaGroups(c.children(kids[i]))...)
		case "string_argument", "table_argument":
			// f"s" and f{t} call sugar.
			call.Args = append(call.Args, c.expr(kids[i]))
		}
	}
	return call
}

func (c *converter) tableExpr(n *sitter.Node) *TableExpr {
	t := &TableExpr{base: base{c.rng(n)}}
	var addFields func(*sitter.Node)
	addFields = func(list *sitter.Node) {
		for _, f := range c.children(list) {
			switch f.Type() {
			case "field":
				t.Fields = append(t.Fields, c.tableField(f))
			case "fieldlist":
				addFields(f)
			}
		}
	}
	addFields(n)
	return t
}

// tableField segments a field's children at the top-level `=` token. A
// bracketed key makes it FieldKeyed, a bare identifier key FieldNamed, and
// no `=` at all FieldValue.
func (c *converter) tableField(n *sitter.Node) TableField {
	f := TableField{Rng: c.rng(n)}
	seenEq := false
	bracketKey := false
	var before, after []*sitter.Node
	for _, k := range c.children(n) {
		switch {
		case k.Type() == "comment":
		case seenEq:
			after = append(after, k)
		case !k.IsNamed() && c.text(k) == "=":
			seenEq = true
		case c.isBracketOpen(k):
			bracketKey = true
		case c.isBracketClose(k):
		default:
			before = append(before, k)
		}
	}

	switch {
	case !seenEq:
		f.Kind = FieldValue
		f.Value = c.exprFromNodes(before)
	case bracketKey:
		f.Kind = FieldKeyed
		f.Key = c.exprFromNodes(before)
		f.Value = c.exprFromNodes(after)
	default:
		f.Kind = FieldNamed
		if len(before) > 0 && before[0].Type() == "identifier" {
			f.Name = c.text(before[0])
			f.NameRange = c.rng(before[0])
		}
		f.Value = c.exprFromNodes(after)
	}
	return f
}

var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true, "^": true,
	"..": true, "==": true, "~=": true, "<": true, ">": true, "<=": true, ">=": true,
	"and": true, "or": true, "&": true, "|": true, "~": true, "<<": true, ">>": true,
}

// binaryExpr finds the one operator token at chain-top level; everything to
// its left and right folds into the operands.
func (c *converter) binaryExpr(n *sitter.Node) Expr {
	kids := c.children(n)
	opIdx := -1
	depth := 0
	for i, k := range kids {
		switch {
		case c.isBracketOpen(k) || c.isParenOpen(k):
			depth++
		case c.isBracketClose(k) || c.isParenClose(k):
			depth--
		case depth == 0 && !k.IsNamed() && binaryOps[c.text(k)]:
			opIdx = i
		}
		if opIdx >= 0 {
			break
		}
	}
	if opIdx < 0 {
		if e := c.exprFromNodes(kids); e != nil {
			return e
		}
		return &BadExpr{base: base{c.rng(n)}}
	}
	return &BinaryExpr{
		base:  base{c.rng(n)},
		Op:    c.text(kids[opIdx]),
		Left:  c.exprFromNodes(kids[:opIdx]),
		Right: c.exprFromNodes(kids[opIdx+1:]),
	}
}

func (c *converter) unaryExpr(n *sitter.Node) Expr {
	kids := c.children(n)
	opIdx := -1
	for i, k := range kids {
		if !k.IsNamed() {
			switch c.text(k) {
			case "not", "-", "#", "~":
				opIdx = i
			}
		}
		if opIdx >= 0 {
			break
		}
	}
	if opIdx < 0 {
		if e := c.exprFromNodes(kids); e != nil {
			return e
		}
		return &BadExpr{base: base{c.rng(n)}}
	}
	operand := c.exprFromNodes(kids[opIdx+1:])
	if operand == nil {
		operand = &BadExpr{base: base{c.rng(n)}}
	}
	return &UnaryExpr{base: base{c.rng(n)}, Op: c.text(kids[opIdx]), Operand: operand}
}
