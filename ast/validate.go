package ast

import (
	"errors"
	"fmt"
)

// Validate checks that every node carries a known kind and the fields that kind
// requires. Trees decoded from JSON may be missing either.
func Validate(stmts []*Statement) error {
	for idx, stmt := range stmts {
		if err := validateStatement(stmt); err != nil {
			return fmt.Errorf("statement %d: %w", idx, err)
		}
	}
	return nil
}

func missing(kind fmt.Stringer, field string) error {
	return fmt.Errorf("%s without %s", kind, field)
}

func validateStatement(stmt *Statement) error {
	if stmt == nil {
		return errors.New("null statement")
	}
	switch stmt.Kind {
	case StatementQuery:
		if stmt.Query == nil {
			return missing(stmt.Kind, "query")
		}
		return validateQuery(stmt.Query)
	case StatementInsert:
		if stmt.Insert == nil {
			return missing(stmt.Kind, "insert")
		}
		return validateInsert(stmt.Insert)
	case StatementUpdate:
		if stmt.Update == nil {
			return missing(stmt.Kind, "update")
		}
		return validateUpdate(stmt.Update)
	case StatementDelete:
		if stmt.Delete == nil {
			return missing(stmt.Kind, "delete")
		}
		return validateDelete(stmt.Delete)
	case StatementOther:
		return nil
	}
	return errors.New("statement without kind")
}

func validateInsert(insert *Insert) error {
	switch insert.Table.Kind {
	case TableObjectName:
		if insert.Table.Name == "" {
			return missing(insert.Table.Kind, "name")
		}
	case TableObjectFunction:
		// 无法还原的写入目标可以没有函数表达式
		if insert.Table.Function != nil {
			if err := validateExpr(insert.Table.Function); err != nil {
				return err
			}
		}
	default:
		return errors.New("insert target without kind")
	}
	if insert.Source != nil {
		return validateQuery(insert.Source)
	}
	return nil
}

func validateUpdate(update *Update) error {
	if err := validateTableWithJoins(&update.Table); err != nil {
		return err
	}
	for idx := range update.Assignments {
		if err := validateExpr(&update.Assignments[idx].Value); err != nil {
			return err
		}
	}
	return validateOptionalExpr(update.Selection)
}

func validateDelete(del *Delete) error {
	switch del.From.Kind {
	case FromWithKeyword:
		for idx := range del.From.Tables {
			if err := validateTableWithJoins(&del.From.Tables[idx]); err != nil {
				return err
			}
		}
	case FromWithoutKeyword:
	default:
		return errors.New("delete from clause without kind")
	}
	return validateOptionalExpr(del.Selection)
}

func validateQuery(query *Query) error {
	if query.With != nil {
		for idx := range query.With.Ctes {
			if err := validateQuery(&query.With.Ctes[idx].Query); err != nil {
				return fmt.Errorf("cte %s: %w", query.With.Ctes[idx].Name, err)
			}
		}
	}
	if err := validateSetExpr(&query.Body); err != nil {
		return err
	}
	for idx := range query.OrderBy {
		if err := validateExpr(&query.OrderBy[idx].Expr); err != nil {
			return err
		}
	}
	if query.Limit != nil {
		if err := validateExpr(&query.Limit.Count); err != nil {
			return fmt.Errorf("limit: %w", err)
		}
		return validateOptionalExpr(query.Limit.Offset)
	}
	return nil
}

func validateSetExpr(body *SetExpr) error {
	switch body.Kind {
	case SetExprSelect:
		if body.Select == nil {
			return missing(body.Kind, "select")
		}
		return validateSelect(body.Select)
	case SetExprSetOperation:
		if body.Op == 0 {
			return missing(body.Kind, "op")
		}
		if body.Left == nil || body.Right == nil {
			return missing(body.Kind, "left and right")
		}
		if err := validateSetExpr(body.Left); err != nil {
			return err
		}
		return validateSetExpr(body.Right)
	case SetExprValues:
		for _, row := range body.Values {
			for idx := range row {
				if err := validateExpr(&row[idx]); err != nil {
					return err
				}
			}
		}
		return nil
	case SetExprQuery:
		if body.Query == nil {
			return missing(body.Kind, "query")
		}
		return validateQuery(body.Query)
	}
	return errors.New("query body without kind")
}

func validateSelect(sel *Select) error {
	for idx := range sel.Projection {
		item := &sel.Projection[idx]
		switch item.Kind {
		case UnnamedExpr, ExprWithAlias:
			if item.Expr == nil {
				return missing(item.Kind, "expr")
			}
			if err := validateExpr(item.Expr); err != nil {
				return err
			}
		case QualifiedWildcard, Wildcard:
		default:
			return errors.New("select item without kind")
		}
	}
	for idx := range sel.From {
		if err := validateTableWithJoins(&sel.From[idx]); err != nil {
			return err
		}
	}
	for idx := range sel.GroupBy {
		if err := validateExpr(&sel.GroupBy[idx]); err != nil {
			return err
		}
	}
	if err := validateOptionalExpr(sel.Selection); err != nil {
		return err
	}
	return validateOptionalExpr(sel.Having)
}

func validateTableWithJoins(twj *TableWithJoins) error {
	if err := validateTableFactor(&twj.Relation); err != nil {
		return err
	}
	for idx := range twj.Joins {
		join := &twj.Joins[idx]
		if err := validateTableFactor(&join.Relation); err != nil {
			return err
		}
		if join.Operator.Kind == 0 {
			return errors.New("join without kind")
		}
		switch join.Operator.Constraint.Kind {
		case ConstraintOn:
			if join.Operator.Constraint.On == nil {
				return missing(join.Operator.Constraint.Kind, "expr")
			}
			if err := validateExpr(join.Operator.Constraint.On); err != nil {
				return err
			}
		case ConstraintUsing, ConstraintNatural, ConstraintNone:
		default:
			return errors.New("join constraint without kind")
		}
	}
	return nil
}

func validateTableFactor(factor *TableFactor) error {
	switch factor.Kind {
	case TableFactorTable:
		if factor.Name == "" {
			return missing(factor.Kind, "name")
		}
	case TableFactorDerived:
		if factor.Subquery == nil {
			return missing(factor.Kind, "subquery")
		}
		return validateQuery(factor.Subquery)
	case TableFactorFunction:
		if factor.Function == nil {
			return missing(factor.Kind, "function")
		}
		return validateExpr(factor.Function)
	case TableFactorNestedJoin:
		if factor.Nested == nil {
			return missing(factor.Kind, "nested")
		}
		return validateTableWithJoins(factor.Nested)
	default:
		return errors.New("table factor without kind")
	}
	return nil
}

func validateOptionalExpr(expr *Expr) error {
	if expr == nil {
		return nil
	}
	return validateExpr(expr)
}

func validateExpr(expr *Expr) error {
	switch expr.Kind {
	case ExprSubquery, ExprExists:
		if expr.Query == nil {
			return missing(expr.Kind, "query")
		}
		return validateQuery(expr.Query)
	case ExprInSubquery:
		if expr.Left == nil || expr.Subquery == nil {
			return missing(expr.Kind, "expr and subquery")
		}
		if err := validateExpr(expr.Left); err != nil {
			return err
		}
		return validateSetExpr(expr.Subquery)
	case ExprBinaryOp:
		if expr.Left == nil || expr.Right == nil {
			return missing(expr.Kind, "left and right")
		}
		if err := validateExpr(expr.Left); err != nil {
			return err
		}
		return validateExpr(expr.Right)
	case ExprCast:
		if expr.DataType == "" {
			return missing(expr.Kind, "data type")
		}
		fallthrough
	case ExprUnaryOp, ExprNested:
		if expr.Inner == nil {
			return missing(expr.Kind, "expr")
		}
		return validateExpr(expr.Inner)
	case ExprColumn, ExprLiteral, ExprFunction, ExprCase, ExprOther:
		return nil
	}
	return errors.New("expression without kind")
}
