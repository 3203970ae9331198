package ast

import (
	"fmt"
	"regexp"
	"strings"
)

var plainIdent = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9$]*$`)

// Format renders statements back to SQL, separated by "; ".
func Format(stmts []*Statement) string {
	parts := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, "; ")
}

// QuoteName quotes each dot-separated part of name that is not a plain identifier.
func QuoteName(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if !plainIdent.MatchString(part) {
			parts[i] = "`" + strings.ReplaceAll(part, "`", "``") + "`"
		}
	}
	return strings.Join(parts, ".")
}

func (s *Statement) String() string {
	switch s.Kind {
	case StatementQuery:
		if s.Query != nil {
			return s.Query.String()
		}
	case StatementInsert:
		if s.Insert != nil {
			return s.Insert.String()
		}
	case StatementUpdate:
		if s.Update != nil {
			return s.Update.String()
		}
	case StatementDelete:
		if s.Delete != nil {
			return s.Delete.String()
		}
	case StatementOther:
		return s.SQL
	}
	return s.SQL
}

func (i *Insert) String() string {
	var sb strings.Builder
	if i.Replace {
		sb.WriteString("REPLACE INTO ")
	} else {
		sb.WriteString("INSERT INTO ")
	}
	switch i.Table.Kind {
	case TableObjectName:
		sb.WriteString(QuoteName(i.Table.Name))
	case TableObjectFunction:
		sb.WriteString("FUNCTION ")
		if i.Table.Function != nil {
			sb.WriteString(i.Table.Function.String())
		}
	}
	if len(i.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(joinNames(i.Columns))
		sb.WriteString(")")
	}
	if i.Source != nil {
		sb.WriteString(" ")
		sb.WriteString(i.Source.String())
	} else {
		sb.WriteString(" VALUES ()")
	}
	return sb.String()
}

func (u *Update) String() string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(u.Table.String())
	sb.WriteString(" SET ")
	for idx, a := range u.Assignments {
		if idx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(QuoteName(a.Column))
		sb.WriteString(" = ")
		sb.WriteString(a.Value.String())
	}
	writeWhere(&sb, u.Selection)
	return sb.String()
}

func (d *Delete) String() string {
	var sb strings.Builder
	sb.WriteString("DELETE ")
	if len(d.Tables) > 0 {
		sb.WriteString(joinNames(d.Tables))
		sb.WriteString(" ")
	}
	switch d.From.Kind {
	case FromWithKeyword:
		sb.WriteString("FROM ")
		sb.WriteString(joinTables(d.From.Tables))
	case FromWithoutKeyword:
		sb.WriteString(joinNames(d.From.Names))
	}
	writeWhere(&sb, d.Selection)
	return sb.String()
}

func (q *Query) String() string {
	var sb strings.Builder
	if q.With != nil && len(q.With.Ctes) > 0 {
		sb.WriteString("WITH ")
		if q.With.Recursive {
			sb.WriteString("RECURSIVE ")
		}
		for idx, cte := range q.With.Ctes {
			if idx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(QuoteName(cte.Name))
			if len(cte.Columns) > 0 {
				sb.WriteString(" (")
				sb.WriteString(joinNames(cte.Columns))
				sb.WriteString(")")
			}
			sb.WriteString(" AS (")
			sb.WriteString(cte.Query.String())
			sb.WriteString(")")
		}
		sb.WriteString(" ")
	}
	sb.WriteString(q.Body.String())
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for idx, item := range q.OrderBy {
			if idx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(item.Expr.String())
			if item.Desc {
				sb.WriteString(" DESC")
			}
		}
	}
	if q.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(q.Limit.Count.String())
		if q.Limit.Offset != nil {
			sb.WriteString(" OFFSET ")
			sb.WriteString(q.Limit.Offset.String())
		}
	}
	return sb.String()
}

func (s *SetExpr) String() string {
	switch s.Kind {
	case SetExprSelect:
		if s.Select != nil {
			return s.Select.String()
		}
	case SetExprSetOperation:
		if s.Left == nil || s.Right == nil {
			return ""
		}
		op := strings.ToUpper(s.Op.String())
		if s.All {
			op += " ALL"
		}
		return fmt.Sprintf("%s %s %s", s.Left.String(), op, s.Right.String())
	case SetExprValues:
		rows := make([]string, 0, len(s.Values))
		for _, row := range s.Values {
			rows = append(rows, "("+joinExprs(row)+")")
		}
		return "VALUES " + strings.Join(rows, ", ")
	case SetExprQuery:
		if s.Query != nil {
			return "(" + s.Query.String() + ")"
		}
	}
	return ""
}

func (s *Select) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	items := make([]string, 0, len(s.Projection))
	for _, item := range s.Projection {
		items = append(items, item.String())
	}
	sb.WriteString(strings.Join(items, ", "))
	if len(s.From) > 0 {
		sb.WriteString(" FROM ")
		sb.WriteString(joinTables(s.From))
	}
	writeWhere(&sb, s.Selection)
	if len(s.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(joinExprs(s.GroupBy))
	}
	if s.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(s.Having.String())
	}
	return sb.String()
}

func (i *SelectItem) String() string {
	switch i.Kind {
	case UnnamedExpr:
		if i.Expr != nil {
			return i.Expr.String()
		}
	case ExprWithAlias:
		if i.Expr != nil {
			return i.Expr.String() + " AS " + QuoteName(i.Alias)
		}
	case QualifiedWildcard:
		return QuoteName(i.Qualifier) + ".*"
	case Wildcard:
		return "*"
	}
	return ""
}

func (t *TableWithJoins) String() string {
	var sb strings.Builder
	sb.WriteString(t.Relation.String())
	for _, join := range t.Joins {
		sb.WriteString(join.String())
	}
	return sb.String()
}

func (j *Join) String() string {
	c := j.Operator.Constraint
	var keyword string
	switch j.Operator.Kind {
	case JoinInner:
		keyword = "JOIN"
	case JoinLeftOuter:
		keyword = "LEFT JOIN"
	case JoinRightOuter:
		keyword = "RIGHT JOIN"
	case JoinFullOuter:
		keyword = "FULL JOIN"
	case JoinCross:
		keyword = "CROSS JOIN"
	case JoinStraight:
		keyword = "STRAIGHT_JOIN"
	}
	if c.Kind == ConstraintNatural {
		keyword = "NATURAL " + keyword
	}
	out := " " + keyword + " " + j.Relation.String()
	switch c.Kind {
	case ConstraintOn:
		if c.On != nil {
			out += " ON " + c.On.String()
		}
	case ConstraintUsing:
		out += " USING (" + joinNames(c.Columns) + ")"
	case ConstraintNatural, ConstraintNone:
	}
	return out
}

func (f *TableFactor) String() string {
	var out string
	switch f.Kind {
	case TableFactorTable:
		out = QuoteName(f.Name)
	case TableFactorDerived:
		if f.Subquery != nil {
			out = "(" + f.Subquery.String() + ")"
		}
	case TableFactorFunction:
		if f.Function != nil {
			out = f.Function.String()
		}
	case TableFactorNestedJoin:
		if f.Nested != nil {
			return "(" + f.Nested.String() + ")"
		}
	}
	if f.Alias != "" {
		out += " AS " + QuoteName(f.Alias)
	}
	return out
}

func (e *Expr) String() string {
	switch e.Kind {
	case ExprSubquery:
		if e.Query != nil {
			return "(" + e.Query.String() + ")"
		}
	case ExprExists:
		if e.Query != nil {
			prefix := "EXISTS ("
			if e.Negated {
				prefix = "NOT EXISTS ("
			}
			return prefix + e.Query.String() + ")"
		}
	case ExprInSubquery:
		if e.Left != nil && e.Subquery != nil {
			op := " IN ("
			if e.Negated {
				op = " NOT IN ("
			}
			return e.Left.String() + op + e.Subquery.String() + ")"
		}
	case ExprBinaryOp:
		if e.Left != nil && e.Right != nil {
			return e.Left.String() + " " + e.Op + " " + e.Right.String()
		}
	case ExprUnaryOp:
		if e.Inner != nil {
			return e.Op + " (" + e.Inner.String() + ")"
		}
	case ExprCast:
		if e.Inner != nil {
			return "CAST(" + e.Inner.String() + " AS " + e.DataType + ")"
		}
	case ExprNested:
		if e.Inner != nil {
			return "(" + e.Inner.String() + ")"
		}
	case ExprColumn, ExprLiteral, ExprFunction, ExprCase, ExprOther:
		return e.SQL
	}
	return e.SQL
}

func writeWhere(sb *strings.Builder, selection *Expr) {
	if selection == nil {
		return
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(selection.String())
}

func joinNames(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, QuoteName(name))
	}
	return strings.Join(quoted, ", ")
}

func joinExprs(exprs []Expr) string {
	out := make([]string, 0, len(exprs))
	for idx := range exprs {
		out = append(out, exprs[idx].String())
	}
	return strings.Join(out, ", ")
}

func joinTables(tables []TableWithJoins) string {
	out := make([]string, 0, len(tables))
	for idx := range tables {
		out = append(out, tables[idx].String())
	}
	return strings.Join(out, ", ")
}
