package analysis

import (
	"github.com/jward/loupe/internal/flow"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
)

// Pass two: infer expression types and thread the flow cursor through
// compound statements. Each statement's start offset is bound to the flow
// node in effect when execution reaches it.

func (a *Analyzer) analyzeStmts(body []luaparse.Stmt) {
	for _, s := range body {
		a.graph.BindOffset(s.Span().Start, a.cur)
		a.analyzeStmt(s)
	}
}

func (a *Analyzer) analyzeStmt(s luaparse.Stmt) {
	switch st := s.(type) {
	case *luaparse.LocalStatement:
		a.analyzeLocal(st)

	case *luaparse.AssignmentStatement:
		a.analyzeAssignment(st)

	case *luaparse.FunctionStatement:
		if st.Fn != nil {
			a.analyzeFunctionBody(st.Fn)
		}
		a.advance(flow.DeclPosition, s.Span().Start)

	case *luaparse.CallStatement:
		a.analyzeCallStmt(st)

	case *luaparse.ReturnStatement:
		a.analyzeReturn(st)

	case *luaparse.BreakStatement:
		if n := len(a.breakTargets); n > 0 {
			a.graph.AddAntecedent(a.breakTargets[n-1], a.cur)
		}
		node := a.graph.NewNode(flow.Break, s.Span().Start)
		a.graph.AddAntecedent(node, a.cur)
		a.cur = flow.UnreachableID

	case *luaparse.IfStatement:
		a.analyzeIf(st)

	case *luaparse.WhileStatement:
		a.analyzeWhile(st)

	case *luaparse.RepeatStatement:
		a.analyzeRepeat(st)

	case *luaparse.NumericForStatement:
		a.analyzeNumericFor(st)

	case *luaparse.GenericForStatement:
		a.analyzeGenericFor(st)

	case *luaparse.DoStatement:
		a.analyzeStmts(st.Body)
	}
}

// advance allocates a straight-line flow node after the current one and
// makes it current. When the current flow is unreachable the new node stays
// disconnected, keeping dead code dead.
func (a *Analyzer) advance(kind flow.NodeKind, offset int) flow.NodeID {
	node := a.graph.NewNode(kind, offset)
	a.graph.AddAntecedent(node, a.cur)
	if a.cur != flow.UnreachableID {
		a.cur = node
	}
	return node
}

func (a *Analyzer) analyzeLocal(st *luaparse.LocalStatement) {
	var inferred []luatype.Type
	for _, e := range st.Init {
		inferred = append(inferred, a.inferExpr(e))
	}

	// One call initializing several names spreads its tuple result.
	if len(st.Names) > 1 && len(inferred) == 1 {
		if tup, ok := inferred[0].(*luatype.Tuple); ok {
			inferred = tup.Elems
		}
	}

	for i, name := range st.Names {
		sym := a.symbols.Lookup(name.Name, name.Span().Start)
		if sym == nil {
			continue
		}
		if sym.Type == nil || sym.Type.Kind() == luatype.KindUnknown {
			if i < len(inferred) {
				sym.Type = widen(inferred[i])
			}
		}
	}
	a.advance(flow.DeclPosition, st.Span().Start)
}

func (a *Analyzer) analyzeAssignment(st *luaparse.AssignmentStatement) {
	var inferred []luatype.Type
	for _, e := range st.Values {
		inferred = append(inferred, a.inferExpr(e))
	}
	for i, target := range st.Targets {
		switch tv := target.(type) {
		case *luaparse.Identifier:
			if sym := a.symbols.Lookup(tv.Name, tv.Span().Start); sym != nil {
				a.symbols.AddReference(sym.ID, tv.Span().Start)
				if (sym.Type == nil || sym.Type.Kind() == luatype.KindUnknown) && i < len(inferred) {
					sym.Type = widen(inferred[i])
				}
			}
		default:
			a.inferExpr(target)
		}
	}
	a.advance(flow.Assignment, st.Span().Start)
}

func (a *Analyzer) analyzeCallStmt(st *luaparse.CallStatement) {
	callT := a.inferExpr(st.Call)

	call, ok := st.Call.(*luaparse.CallExpr)
	if !ok {
		a.advance(flow.Assignment, st.Span().Start)
		return
	}

	if id, ok := call.Target.(*luaparse.Identifier); ok {
		switch id.Name {
		case "assert":
			// assert(x) narrows flow to x being truthy.
			if len(call.Args) > 0 && call.Args[0] != nil {
				node := a.graph.NewNode(flow.TrueCondition, call.Args[0].Span().Start)
				a.graph.AddAntecedent(node, a.cur)
				if a.cur != flow.UnreachableID {
					a.cur = node
				}
				return
			}
		case "error":
			a.advance(flow.Assignment, st.Span().Start)
			a.cur = flow.UnreachableID
			return
		}
	}

	// A callee declared to return never (helpers.fail) terminates flow.
	if callT != nil && callT.Kind() == luatype.KindNever {
		a.advance(flow.Assignment, st.Span().Start)
		a.cur = flow.UnreachableID
		return
	}
	a.advance(flow.Assignment, st.Span().Start)
}

func (a *Analyzer) analyzeReturn(st *luaparse.ReturnStatement) {
	var types []luatype.Type
	for _, e := range st.Values {
		types = append(types, a.inferExpr(e))
	}
	if a.functionDepth == 0 {
		var t luatype.Type
		switch len(types) {
		case 0:
			t = luatype.Void
		case 1:
			t = types[0]
		default:
			t = &luatype.Tuple{Elems: types}
		}
		a.returns = append(a.returns, Return{Range: st.Span(), Type: t})
	}
	node := a.graph.NewNode(flow.Return, st.Span().Start)
	a.graph.AddAntecedent(node, a.cur)
	a.cur = flow.UnreachableID
}

func (a *Analyzer) analyzeIf(st *luaparse.IfStatement) {
	merge := a.graph.NewNode(flow.BranchLabel, -1)

	for _, cl := range st.Clauses {
		if cl.Cond == nil {
			// else arm: consumes the remaining false path.
			a.analyzeStmts(cl.Body)
			a.graph.AddAntecedent(merge, a.cur)
			a.cur = flow.UnreachableID
			continue
		}
		a.inferExpr(cl.Cond)
		condOffset := cl.Cond.Span().Start

		trueNode := a.graph.NewNode(flow.TrueCondition, condOffset)
		a.graph.AddAntecedent(trueNode, a.cur)
		falseNode := a.graph.NewNode(flow.FalseCondition, condOffset)
		a.graph.AddAntecedent(falseNode, a.cur)

		entering := a.cur
		a.cur = trueNode
		if entering == flow.UnreachableID {
			a.cur = flow.UnreachableID
		}
		a.analyzeStmts(cl.Body)
		a.graph.AddAntecedent(merge, a.cur)

		a.cur = falseNode
		if entering == flow.UnreachableID {
			a.cur = flow.UnreachableID
		}
	}

	// Whatever false path remains falls through to the merge point.
	a.graph.AddAntecedent(merge, a.cur)
	if len(a.graph.Antecedents(merge)) == 0 {
		a.cur = flow.UnreachableID
		return
	}
	a.cur = merge
}

func (a *Analyzer) analyzeWhile(st *luaparse.WhileStatement) {
	loop := a.graph.NewNode(flow.LoopLabel, st.Span().Start)
	a.graph.AddAntecedent(loop, a.cur)
	a.cur = loop

	var condOffset = -1
	if st.Cond != nil {
		a.inferExpr(st.Cond)
		condOffset = st.Cond.Span().Start
	}
	trueNode := a.graph.NewNode(flow.TrueCondition, condOffset)
	a.graph.AddAntecedent(trueNode, a.cur)
	falseNode := a.graph.NewNode(flow.FalseCondition, condOffset)
	a.graph.AddAntecedent(falseNode, a.cur)

	after := a.graph.NewNode(flow.BranchLabel, -1)
	a.pushLoop(st.Span(), after)
	a.cur = trueNode
	a.analyzeStmts(st.Body)
	a.graph.AddAntecedent(loop, a.cur) // back edge
	a.popLoop()

	a.graph.AddAntecedent(after, falseNode)
	a.cur = after
}

func (a *Analyzer) analyzeRepeat(st *luaparse.RepeatStatement) {
	loop := a.graph.NewNode(flow.LoopLabel, st.Span().Start)
	a.graph.AddAntecedent(loop, a.cur)
	a.cur = loop

	after := a.graph.NewNode(flow.BranchLabel, -1)
	a.pushLoop(st.Span(), after)
	a.analyzeStmts(st.Body)
	a.popLoop()

	condOffset := -1
	if st.Cond != nil {
		a.inferExpr(st.Cond)
		condOffset = st.Cond.Span().Start
	}
	trueNode := a.graph.NewNode(flow.TrueCondition, condOffset)
	a.graph.AddAntecedent(trueNode, a.cur)
	falseNode := a.graph.NewNode(flow.FalseCondition, condOffset)
	a.graph.AddAntecedent(falseNode, a.cur)

	// The loop repeats while the condition is false.
	a.graph.AddAntecedent(loop, falseNode)
	a.graph.AddAntecedent(after, trueNode)
	a.cur = after
}

func (a *Analyzer) analyzeNumericFor(st *luaparse.NumericForStatement) {
	a.inferExpr(st.Start)
	a.inferExpr(st.Limit)
	a.inferExpr(st.Step)

	header := a.advance(flow.ForIStat, st.Span().Start)
	loop := a.graph.NewNode(flow.LoopLabel, st.Span().Start)
	a.graph.AddAntecedent(loop, header)
	a.cur = loop

	after := a.graph.NewNode(flow.BranchLabel, -1)
	// The loop may run zero times.
	a.graph.AddAntecedent(after, header)

	a.pushLoop(st.Span(), after)
	a.analyzeStmts(st.Body)
	a.graph.AddAntecedent(loop, a.cur)
	a.popLoop()

	a.graph.AddAntecedent(after, a.cur)
	a.cur = after
}

func (a *Analyzer) analyzeGenericFor(st *luaparse.GenericForStatement) {
	for _, e := range st.Exprs {
		a.inferExpr(e)
	}
	a.refineGenericForVars(st)

	header := a.advance(flow.ForIStat, st.Span().Start)
	loop := a.graph.NewNode(flow.LoopLabel, st.Span().Start)
	a.graph.AddAntecedent(loop, header)
	a.cur = loop

	after := a.graph.NewNode(flow.BranchLabel, -1)
	a.graph.AddAntecedent(after, header)

	a.pushLoop(st.Span(), after)
	a.analyzeStmts(st.Body)
	a.graph.AddAntecedent(loop, a.cur)
	a.popLoop()

	a.graph.AddAntecedent(after, a.cur)
	a.cur = after
}

// refineGenericForVars types `for i, v in ipairs(xs)` and the pairs
// equivalent when the iterated value's element type is known.
func (a *Analyzer) refineGenericForVars(st *luaparse.GenericForStatement) {
	if len(st.Exprs) != 1 || len(st.Vars) == 0 {
		return
	}
	call, ok := st.Exprs[0].(*luaparse.CallExpr)
	if !ok || len(call.Args) == 0 {
		return
	}
	id, ok := call.Target.(*luaparse.Identifier)
	if !ok {
		return
	}
	// The iterand was inferred just above; read the memo rather than
	// walking it a second time, which would double-record calls.
	argT := a.types[call.Args[0].Span().Start]
	arr, isArray := argT.(*luatype.Array)

	setVar := func(i int, t luatype.Type) {
		if i >= len(st.Vars) {
			return
		}
		if sym := a.symbols.Lookup(st.Vars[i].Name, st.Vars[i].Span().Start); sym != nil {
			if sym.Type == nil || sym.Type.Kind() == luatype.KindUnknown {
				sym.Type = t
			}
		}
	}
	switch id.Name {
	case "ipairs":
		setVar(0, luatype.Integer)
		if isArray {
			setVar(1, arr.Elem)
		}
	case "pairs":
		if isArray {
			setVar(0, luatype.Integer)
			setVar(1, arr.Elem)
		} else if tbl, ok := argT.(*luatype.TableType); ok && tbl.ValueType != nil {
			setVar(1, tbl.ValueType)
		}
	}
}

func (a *Analyzer) pushLoop(rng luaparse.Range, breakTarget flow.NodeID) {
	a.loopDepth++
	a.loops = append(a.loops, LoopInfo{Range: rng, Depth: a.loopDepth})
	a.breakTargets = append(a.breakTargets, breakTarget)
}

func (a *Analyzer) popLoop() {
	a.loopDepth--
	a.breakTargets = a.breakTargets[:len(a.breakTargets)-1]
}

// analyzeFunctionBody analyzes a function literal's statements in an
// isolated flow domain: the surrounding statement flow is saved and
// restored, and returns inside the body do not count as script returns.
func (a *Analyzer) analyzeFunctionBody(fn *luaparse.FunctionExpr) {
	savedCur := a.cur
	savedBreaks := a.breakTargets
	savedDepth := a.loopDepth

	a.cur = flow.StartID
	a.breakTargets = nil
	a.loopDepth = 0
	a.functionDepth++

	a.analyzeStmts(fn.Body)

	a.functionDepth--
	a.cur = savedCur
	a.breakTargets = savedBreaks
	a.loopDepth = savedDepth
}
