package access

import (
	"github.com/tsfans/sql-access/ast"
)

// 按语句类型确定各部分的访问类型
func ClassifyStatement(stmt *ast.Statement, m *Map) {
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StatementQuery:
		if stmt.Query != nil {
			walkQuery(stmt.Query, Read, m)
		}
	case ast.StatementInsert:
		if stmt.Insert != nil {
			classifyInsert(stmt.Insert, m)
		}
	case ast.StatementUpdate:
		if stmt.Update != nil {
			classifyUpdate(stmt.Update, m)
		}
	case ast.StatementDelete:
		if stmt.Delete != nil {
			classifyDelete(stmt.Delete, m)
		}
	case ast.StatementOther:
	}
}

func classifyInsert(insert *ast.Insert, m *Map) {
	switch insert.Table.Kind {
	case ast.TableObjectName:
		m.Record(insert.Table.Name, Write)
	case ast.TableObjectFunction:
		// 非普通表的写入目标不计入
	}
	if insert.Source != nil {
		walkQuery(insert.Source, Read, m)
	}
}

func classifyUpdate(update *ast.Update, m *Map) {
	walkTableWithJoins(&update.Table, Write, m)
	// 赋值表达式中可能包含子查询
	for idx := range update.Assignments {
		walkExpr(&update.Assignments[idx].Value, Read, m)
	}
	if update.Selection != nil {
		walkExpr(update.Selection, Read, m)
	}
}

func classifyDelete(del *ast.Delete, m *Map) {
	switch del.From.Kind {
	case ast.FromWithKeyword:
		for idx := range del.From.Tables {
			walkTableWithJoins(&del.From.Tables[idx], Write, m)
		}
	case ast.FromWithoutKeyword:
		for _, name := range del.From.Names {
			m.Record(name, Write)
		}
	}
	if del.Selection != nil {
		walkExpr(del.Selection, Read, m)
	}
}

// CTE沿用调用方的访问类型
func walkQuery(query *ast.Query, access AccessType, m *Map) {
	if query.With != nil {
		for idx := range query.With.Ctes {
			walkQuery(&query.With.Ctes[idx].Query, access, m)
		}
	}
	walkSetExpr(&query.Body, access, m)
}

func walkSetExpr(body *ast.SetExpr, access AccessType, m *Map) {
	switch body.Kind {
	case ast.SetExprSelect:
		if body.Select != nil {
			walkSelect(body.Select, access, m)
		}
	case ast.SetExprSetOperation:
		// 不区分UNION/EXCEPT/INTERSECT
		if body.Left != nil {
			walkSetExpr(body.Left, access, m)
		}
		if body.Right != nil {
			walkSetExpr(body.Right, access, m)
		}
	case ast.SetExprValues, ast.SetExprQuery:
	}
}

func walkSelect(sel *ast.Select, access AccessType, m *Map) {
	for idx := range sel.Projection {
		item := &sel.Projection[idx]
		switch item.Kind {
		case ast.UnnamedExpr, ast.ExprWithAlias:
			if item.Expr != nil {
				walkExpr(item.Expr, access, m)
			}
		case ast.QualifiedWildcard, ast.Wildcard:
		}
	}
	for idx := range sel.From {
		walkTableWithJoins(&sel.From[idx], access, m)
	}
	if sel.Selection != nil {
		walkExpr(sel.Selection, access, m)
	}
	if sel.Having != nil {
		walkExpr(sel.Having, access, m)
	}
}

func walkTableWithJoins(twj *ast.TableWithJoins, access AccessType, m *Map) {
	walkTableFactor(&twj.Relation, access, m)
	for idx := range twj.Joins {
		join := &twj.Joins[idx]
		walkTableFactor(&join.Relation, access, m)
		switch join.Operator.Kind {
		case ast.JoinInner, ast.JoinLeftOuter, ast.JoinRightOuter, ast.JoinFullOuter:
			walkJoinConstraint(&join.Operator.Constraint, access, m)
		case ast.JoinCross, ast.JoinStraight:
		}
	}
}

func walkJoinConstraint(constraint *ast.JoinConstraint, access AccessType, m *Map) {
	switch constraint.Kind {
	case ast.ConstraintOn:
		if constraint.On != nil {
			walkExpr(constraint.On, access, m)
		}
	case ast.ConstraintUsing, ast.ConstraintNatural, ast.ConstraintNone:
	}
}

// 派生表的别名不记录，只记录其中的基础表
func walkTableFactor(factor *ast.TableFactor, access AccessType, m *Map) {
	switch factor.Kind {
	case ast.TableFactorTable:
		m.Record(factor.Name, access)
	case ast.TableFactorDerived:
		if factor.Subquery != nil {
			walkQuery(factor.Subquery, access, m)
		}
	case ast.TableFactorFunction:
		if factor.Function != nil {
			walkExpr(factor.Function, access, m)
		}
	case ast.TableFactorNestedJoin:
		// 括号内的连接不展开
	}
}

// 函数参数、CASE分支和括号表达式中的表引用不提取
func walkExpr(expr *ast.Expr, access AccessType, m *Map) {
	switch expr.Kind {
	case ast.ExprSubquery, ast.ExprExists:
		if expr.Query != nil {
			walkQuery(expr.Query, access, m)
		}
	case ast.ExprInSubquery:
		if expr.Subquery != nil {
			walkSetExpr(expr.Subquery, access, m)
		}
	case ast.ExprBinaryOp:
		if expr.Left != nil {
			walkExpr(expr.Left, access, m)
		}
		if expr.Right != nil {
			walkExpr(expr.Right, access, m)
		}
	case ast.ExprUnaryOp, ast.ExprCast:
		if expr.Inner != nil {
			walkExpr(expr.Inner, access, m)
		}
	case ast.ExprNested, ast.ExprColumn, ast.ExprLiteral, ast.ExprFunction, ast.ExprCase, ast.ExprOther:
	}
}
