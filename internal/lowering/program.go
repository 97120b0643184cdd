package lowering

import (
	"github.com/corelang/corevm/internal/cst"
	"github.com/corelang/corevm/internal/ir"
)

// lowerTopLevel dispatches one top-level CST node into the appropriate
// Program slice. A bare executable statement at program scope is collected
// into Program.Main, matching Base's top-level-script semantics.
func (c *Context) lowerTopLevel(n cst.Node, prog *ir.Program) error {
	switch n.Kind() {
	case cst.KindFunctionDef, cst.KindCallableStruct, cst.KindGeneratedDef:
		fn, err := c.lowerFunctionDef(n)
		if err != nil {
			return err
		}
		prog.Functions = append(prog.Functions, fn)
		return nil

	case cst.KindStructDef:
		sd, err := c.lowerStructDef(n)
		if err != nil {
			return err
		}
		prog.Structs = append(prog.Structs, sd)
		return nil

	case cst.KindAbstractTypeDef:
		prog.AbstractTypes = append(prog.AbstractTypes, &ir.AbstractTypeDef{
			Name:   n.Text(),
			Parent: parentOf(n),
			Span:   n.Span(),
		})
		return nil

	case cst.KindTypeAliasDef:
		alias, err := c.lowerTypeAliasDef(n)
		if err != nil {
			return err
		}
		prog.TypeAliases = append(prog.TypeAliases, alias)
		return nil

	case cst.KindModuleDef:
		mod, err := c.lowerModuleDef(n)
		if err != nil {
			return err
		}
		prog.Modules = append(prog.Modules, mod)
		return nil

	case cst.KindUsing:
		prog.UsingClauses = append(prog.UsingClauses, lowerUsingClause(n))
		return nil

	case cst.KindMacroCall:
		// A macro *definition* arrives as a call to the builtin `macro`
		// form; tryLowerMacroDef recognises and registers it.
		if def, ok := c.tryLowerMacroDef(n); ok {
			prog.Macros = append(prog.Macros, def)
			return nil
		}

	case cst.KindEnumDef:
		prog.Enums = append(prog.Enums, lowerEnumDef(n))
		return nil
	}

	// Anything else is a top-level executable statement.
	stmt, err := c.lowerStmt(n)
	if err != nil {
		return err
	}
	if prog.Main == nil {
		prog.Main = &ir.Block{}
	}
	prog.Main.Stmts = append(prog.Main.Stmts, stmt)
	return nil
}

func parentOf(n cst.Node) string {
	if child, ok := n.FindChild(cst.KindIdentifier); ok {
		return child.Text()
	}
	return ""
}

func (c *Context) lowerStructDef(n cst.Node) (*ir.StructDef, error) {
	sd := &ir.StructDef{Name: n.Text(), Span: n.Span()}
	for _, child := range n.NamedChildren() {
		switch child.Kind() {
		case cst.KindParameter:
			ty, err := c.lowerTypeExpr(fieldTypeNode(child))
			if err != nil {
				return nil, err
			}
			sd.Fields = append(sd.Fields, ir.StructField{Name: child.Text(), Type: ty})
		}
	}
	return sd, nil
}

func fieldTypeNode(n cst.Node) cst.Node {
	children := n.NamedChildren()
	if len(children) == 0 {
		return n
	}
	return children[len(children)-1]
}

func (c *Context) lowerTypeAliasDef(n cst.Node) (*ir.TypeAliasDef, error) {
	children := n.NamedChildren()
	if len(children) == 0 {
		return nil, &UnsupportedFeature{Kind: n.Kind(), Span: n.Span()}
	}
	underlying, err := c.lowerTypeExpr(children[len(children)-1])
	if err != nil {
		return nil, err
	}
	return &ir.TypeAliasDef{Name: n.Text(), Underlying: underlying, Span: n.Span()}, nil
}

func (c *Context) lowerModuleDef(n cst.Node) (*ir.Module, error) {
	mod := &ir.Module{Name: n.Text(), Span: n.Span()}
	for _, child := range n.NamedChildren() {
		switch child.Kind() {
		case cst.KindFunctionDef, cst.KindCallableStruct, cst.KindGeneratedDef:
			fn, err := c.lowerFunctionDef(child)
			if err != nil {
				return nil, err
			}
			mod.Functions = append(mod.Functions, fn)
		case cst.KindModuleDef:
			sub, err := c.lowerModuleDef(child)
			if err != nil {
				return nil, err
			}
			mod.Submodules = append(mod.Submodules, sub)
		}
	}
	return mod, nil
}

func lowerUsingClause(n cst.Node) *ir.UsingClause {
	u := &ir.UsingClause{Module: n.Text(), Span: n.Span()}
	for _, child := range n.NamedChildren() {
		if child.Kind() == cst.KindIdentifier {
			u.Names = append(u.Names, child.Text())
		}
	}
	return u
}

func lowerEnumDef(n cst.Node) *ir.EnumDef {
	e := &ir.EnumDef{Name: n.Text(), Span: n.Span()}
	for _, child := range n.NamedChildren() {
		if child.Kind() == cst.KindIdentifier {
			e.Variants = append(e.Variants, child.Text())
		}
	}
	return e
}
