package luaparse

// Inspect traverses the AST rooted at n in depth-first order. The callback
// runs for every non-nil node; returning false skips the node's children.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range children(n) {
		Inspect(child, fn)
	}
}

// children returns the direct child nodes of n in source order.
func children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		switch v := c.(type) {
		case nil:
			return
		case *Identifier:
			if v == nil {
				return
			}
		}
		out = append(out, c)
	}
	addExprs := func(es []Expr) {
		for _, e := range es {
			if e != nil {
				add(e)
			}
		}
	}
	addStmts := func(ss []Stmt) {
		for _, s := range ss {
			if s != nil {
				add(s)
			}
		}
	}

	switch v := n.(type) {
	case *Chunk:
		addStmts(v.Body)
	case *LocalStatement:
		for _, id := range v.Names {
			add(id)
		}
		addExprs(v.Init)
	case *AssignmentStatement:
		addExprs(v.Targets)
		addExprs(v.Values)
	case *FunctionStatement:
		if v.Name != nil {
			add(v.Name)
		}
		if v.Fn != nil {
			add(v.Fn)
		}
	case *ReturnStatement:
		addExprs(v.Values)
	case *IfStatement:
		for _, cl := range v.Clauses {
			if cl.Cond != nil {
				add(cl.Cond)
			}
			addStmts(cl.Body)
		}
	case *WhileStatement:
		if v.Cond != nil {
			add(v.Cond)
		}
		addStmts(v.Body)
	case *RepeatStatement:
		addStmts(v.Body)
		if v.Cond != nil {
			add(v.Cond)
		}
	case *NumericForStatement:
		if v.Var != nil {
			add(v.Var)
		}
		for _, e := range []Expr{v.Start, v.Limit, v.Step} {
			if e != nil {
				add(e)
			}
		}
		addStmts(v.Body)
	case *GenericForStatement:
		for _, id := range v.Vars {
			add(id)
		}
		addExprs(v.Exprs)
		addStmts(v.Body)
	case *DoStatement:
		addStmts(v.Body)
	case *CallStatement:
		if v.Call != nil {
			add(v.Call)
		}
	case *MemberExpr:
		if v.Base != nil {
			add(v.Base)
		}
	case *IndexExpr:
		if v.Base != nil {
			add(v.Base)
		}
		if v.Index != nil {
			add(v.Index)
		}
	case *CallExpr:
		if v.Target != nil {
			add(v.Target)
		}
		addExprs(v.Args)
	case *FunctionExpr:
		addStmts(v.Body)
	case *TableExpr:
		for _, f := range v.Fields {
			if f.Key != nil {
				add(f.Key)
			}
			if f.Value != nil {
				add(f.Value)
			}
		}
	case *BinaryExpr:
		if v.Left != nil {
			add(v.Left)
		}
		if v.Right != nil {
			add(v.Right)
		}
	case *UnaryExpr:
		if v.Operand != nil {
			add(v.Operand)
		}
	}
	return out
}

// PathAt returns the chain of nodes from the chunk down to the innermost
// node whose span contains the offset. Empty when the offset is outside
// every node.
func PathAt(chunk *Chunk, offset int) []Node {
	if chunk == nil {
		return nil
	}
	var path []Node
	node := Node(chunk)
	for node != nil {
		path = append(path, node)
		var next Node
		for _, child := range children(node) {
			span := child.Span()
			// Inclusive end so a cursor sitting just past a token still
			// resolves to it.
			if offset >= span.Start && offset <= span.End {
				next = child
				break
			}
		}
		node = next
	}
	return path
}
