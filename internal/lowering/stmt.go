package lowering

import (
	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

func (c *Context) lowerBlock(n cst.Node) (*ir.Block, error) {
	blk := &ir.Block{}
	for _, child := range n.NamedChildren() {
		s, err := c.lowerStmt(child)
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, s)
	}
	return blk, nil
}

func (c *Context) lowerStmt(n cst.Node) (ir.Stmt, error) {
	span := n.Span()
	switch n.Kind() {
	case cst.KindAssign:
		return c.lowerAssignStmt(n)

	case cst.KindAddAssign:
		rhs, err := c.lastChildExpr(n)
		if err != nil {
			return nil, err
		}
		return &ir.AddAssignStmt{Name: n.Text(), Op: firstOpText(n), Value: rhs, StmtBase: baseStmtOf(span)}, nil

	case cst.KindIf:
		return c.lowerIf(n)

	case cst.KindWhile:
		children := n.NamedChildren()
		if len(children) < 2 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		cond, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		body, err := c.lowerBlock(children[1])
		if err != nil {
			return nil, err
		}
		return &ir.WhileStmt{Cond: cond, Body: body, StmtBase: baseStmtOf(span)}, nil

	case cst.KindFor:
		return c.lowerFor(n)

	case cst.KindForEach:
		iterNode, bodyNode := n.NamedChildren()[0], n.NamedChildren()[1]
		iter, err := c.lowerExpr(iterNode)
		if err != nil {
			return nil, err
		}
		body, err := c.lowerBlock(bodyNode)
		if err != nil {
			return nil, err
		}
		return &ir.ForEachStmt{Var: n.Text(), Iterable: iter, Body: body, StmtBase: baseStmtOf(span)}, nil

	case cst.KindForEachTuple:
		children := n.NamedChildren()
		var vars []string
		for _, v := range children[:len(children)-2] {
			vars = append(vars, v.Text())
		}
		iter, err := c.lowerExpr(children[len(children)-2])
		if err != nil {
			return nil, err
		}
		body, err := c.lowerBlock(children[len(children)-1])
		if err != nil {
			return nil, err
		}
		return &ir.ForEachTupleStmt{Vars: vars, Iterable: iter, Body: body, StmtBase: baseStmtOf(span)}, nil

	case cst.KindReturn:
		children := n.NamedChildren()
		if len(children) == 0 {
			return &ir.ReturnStmt{StmtBase: baseStmtOf(span)}, nil
		}
		val, err := c.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
		return &ir.ReturnStmt{Value: val, StmtBase: baseStmtOf(span)}, nil

	case cst.KindBreak:
		return &ir.BreakStmt{StmtBase: baseStmtOf(span)}, nil

	case cst.KindContinue:
		return &ir.ContinueStmt{StmtBase: baseStmtOf(span)}, nil

	case cst.KindTry:
		return c.lowerTry(n)

	case cst.KindTimed:
		body, err := c.lastChildBlock(n)
		if err != nil {
			return nil, err
		}
		return &ir.TimedStmt{Body: body, StmtBase: baseStmtOf(span)}, nil

	case cst.KindTest:
		cond, err := c.lastChildExpr(n)
		if err != nil {
			return nil, err
		}
		return &ir.TestStmt{Cond: cond, StmtBase: baseStmtOf(span)}, nil

	case cst.KindTestSet:
		body, err := c.lastChildBlock(n)
		if err != nil {
			return nil, err
		}
		return &ir.TestSetStmt{Name: n.Text(), Body: body, StmtBase: baseStmtOf(span)}, nil

	case cst.KindTestThrows:
		children := n.NamedChildren()
		if len(children) < 2 {
			return nil, &UnsupportedFeature{Kind: n.Kind(), Span: span}
		}
		excTy, err := c.lowerTypeExpr(children[0])
		if err != nil {
			return nil, err
		}
		x, err := c.lowerExpr(children[1])
		if err != nil {
			return nil, err
		}
		return &ir.TestThrowsStmt{ExcType: excTy, X: x, StmtBase: baseStmtOf(span)}, nil

	case cst.KindFunctionDef, cst.KindCallableStruct, cst.KindGeneratedDef:
		fn, err := c.lowerFunctionDef(n)
		if err != nil {
			return nil, err
		}
		return &ir.FunctionDefStmt{Fn: fn, StmtBase: baseStmtOf(span)}, nil

	case cst.KindLabel:
		return &ir.LabelStmt{Name: n.Text(), StmtBase: baseStmtOf(span)}, nil

	case cst.KindGoto:
		return &ir.GotoStmt{Label: n.Text(), StmtBase: baseStmtOf(span)}, nil

	case cst.KindUsing:
		u := lowerUsingClause(n)
		return &ir.UsingStmt{Module: u.Module, Names: u.Names, StmtBase: baseStmtOf(span)}, nil

	case cst.KindExport:
		var names []string
		for _, child := range n.NamedChildren() {
			names = append(names, child.Text())
		}
		return &ir.ExportStmt{Names: names, StmtBase: baseStmtOf(span)}, nil

	default:
		x, err := c.lowerExpr(n)
		if err != nil {
			return nil, err
		}
		return &ir.ExprStmt{X: x, StmtBase: baseStmtOf(span)}, nil
	}
}

func (c *Context) lowerAssignStmt(n cst.Node) (ir.Stmt, error) {
	children := n.NamedChildren()
	span := n.Span()

	switch {
	case n.Text() == "" && len(children) >= 2 && children[0].Kind() == cst.KindIndex:
		target, err := c.lowerExpr(children[0].NamedChildren()[0])
		if err != nil {
			return nil, err
		}
		var indices []ir.Expr
		for _, idxNode := range children[0].NamedChildren()[1:] {
			idx, err := c.lowerExpr(idxNode)
			if err != nil {
				return nil, err
			}
			indices = append(indices, idx)
		}
		val, err := c.lowerExpr(children[len(children)-1])
		if err != nil {
			return nil, err
		}
		return &ir.IndexAssignStmt{Target: target, Indices: indices, Value: val, StmtBase: baseStmtOf(span)}, nil

	case n.Text() == "" && len(children) >= 2 && children[0].Kind() == cst.KindFieldAccess:
		target, err := c.lowerExpr(children[0].NamedChildren()[0])
		if err != nil {
			return nil, err
		}
		val, err := c.lowerExpr(children[len(children)-1])
		if err != nil {
			return nil, err
		}
		return &ir.FieldAssignStmt{Target: target, Field: children[0].Text(), Value: val, StmtBase: baseStmtOf(span)}, nil

	case n.Text() == "" && len(children) >= 2 && children[0].Kind() == cst.KindTupleLiteral:
		var names []string
		restIdx := -1
		for i, nameNode := range children[0].NamedChildren() {
			names = append(names, nameNode.Text())
			if restIdx == -1 && hasRestSuffix(nameNode.Text()) {
				restIdx = i
			}
		}
		val, err := c.lowerExpr(children[len(children)-1])
		if err != nil {
			return nil, err
		}
		return &ir.DestructuringAssignStmt{Names: names, RestIndex: restIdx, Value: val, StmtBase: baseStmtOf(span)}, nil

	default:
		val, err := c.lastChildExpr(n)
		if err != nil {
			return nil, err
		}
		return &ir.AssignStmt{Name: n.Text(), Value: val, StmtBase: baseStmtOf(span)}, nil
	}
}

func hasRestSuffix(name string) bool {
	return len(name) >= 3 && name[len(name)-3:] == "..."
}

func (c *Context) lowerIf(n cst.Node) (ir.Stmt, error) {
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	cond, err := c.lowerExpr(children[0])
	if err != nil {
		return nil, err
	}
	then, err := c.lowerBlock(children[1])
	if err != nil {
		return nil, err
	}
	stmt := &ir.IfStmt{Cond: cond, Then: then, StmtBase: baseStmtOf(n.Span())}
	if len(children) > 2 {
		elseBlk, err := c.lowerBlock(children[2])
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBlk
	}
	return stmt, nil
}

func (c *Context) lowerFor(n cst.Node) (ir.Stmt, error) {
	children := n.NamedChildren()
	if len(children) < 2 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	rangeNode := children[0]
	bodyNode := children[len(children)-1]

	if rangeNode.Kind() != cst.KindRange {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	rangeChildren := rangeNode.NamedChildren()
	start, err := c.lowerExpr(rangeChildren[0])
	if err != nil {
		return nil, err
	}
	var step ir.Expr
	stop := rangeChildren[len(rangeChildren)-1]
	if len(rangeChildren) == 3 {
		step, err = c.lowerExpr(rangeChildren[1])
		if err != nil {
			return nil, err
		}
	}
	end, err := c.lowerExpr(stop)
	if err != nil {
		return nil, err
	}
	body, err := c.lowerBlock(bodyNode)
	if err != nil {
		return nil, err
	}
	return &ir.ForStmt{Var: n.Text(), Start: start, Step: step, End: end, Body: body, StmtBase: baseStmtOf(n.Span())}, nil
}

func (c *Context) lowerTry(n cst.Node) (ir.Stmt, error) {
	stmt := &ir.TryStmt{StmtBase: baseStmtOf(n.Span())}
	for _, child := range n.NamedChildren() {
		switch child.Kind() {
		case cst.KindBlock:
			if stmt.Try == nil {
				blk, err := c.lowerBlock(child)
				if err != nil {
					return nil, err
				}
				stmt.Try = blk
			} else if stmt.Catch == nil && stmt.CatchVar == "" {
				stmt.CatchVar = child.Text()
				blk, err := c.lowerBlock(child)
				if err != nil {
					return nil, err
				}
				stmt.Catch = blk
			} else if stmt.Finally == nil {
				blk, err := c.lowerBlock(child)
				if err != nil {
					return nil, err
				}
				stmt.Finally = blk
			}
		}
	}
	if stmt.Try == nil {
		stmt.Try = &ir.Block{}
	}
	return stmt, nil
}

func (c *Context) lastChildExpr(n cst.Node) (ir.Expr, error) {
	children := n.NamedChildren()
	if len(children) == 0 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	return c.lowerExpr(children[len(children)-1])
}

func (c *Context) lastChildBlock(n cst.Node) (*ir.Block, error) {
	children := n.NamedChildren()
	if len(children) == 0 {
		return &ir.Block{}, nil
	}
	last := children[len(children)-1]
	if last.Kind() == cst.KindBlock {
		return c.lowerBlock(last)
	}
	return &ir.Block{}, nil
}

func firstOpText(n cst.Node) string {
	return n.Text()
}
