package parser

import (
	"fmt"
	"strings"
	"sync"

	tiParser "github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/opcode"
	parserDriver "github.com/pingcap/tidb/types/parser_driver"
	log "github.com/sirupsen/logrus"

	tree "github.com/tsfans/sql-access/ast"
)

// MySQL方言解析器，基于TiDB parser
//
// TiDB的Parser实例不能并发使用，这里用sync.Pool复用
type MySQLParser struct {
	pool sync.Pool
}

func NewMySQLParser() *MySQLParser {
	return &MySQLParser{
		pool: sync.Pool{New: func() any { return tiParser.New() }},
	}
}

func (parser *MySQLParser) Parse(sql string) (stmts []*tree.Statement, err error) {
	log.Debugf("original sql is [%v]", sql)

	p := parser.pool.Get().(*tiParser.Parser)
	defer parser.pool.Put(p)

	var nodes []ast.StmtNode
	nodes, _, err = p.Parse(sql, "", "")
	if err != nil {
		err = fmt.Errorf("parse sql failed,err=[%w]", err)
		return
	}

	stmts = make([]*tree.Statement, 0, len(nodes))
	for _, node := range nodes {
		stmts = append(stmts, convertStmt(node))
	}

	return
}

func convertStmt(node ast.StmtNode) *tree.Statement {
	switch stmt := node.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		if query := convertQuery(stmt); query != nil {
			return &tree.Statement{Kind: tree.StatementQuery, Query: query}
		}
	case *ast.InsertStmt:
		if insert := convertInsert(stmt); insert != nil {
			return &tree.Statement{Kind: tree.StatementInsert, Insert: insert}
		}
	case *ast.UpdateStmt:
		if update := convertUpdate(stmt); update != nil {
			return &tree.Statement{Kind: tree.StatementUpdate, Update: update}
		}
	case *ast.DeleteStmt:
		if del := convertDelete(stmt); del != nil {
			return &tree.Statement{Kind: tree.StatementDelete, Delete: del}
		}
	}

	// 其余语句只保留原始文本
	return &tree.Statement{Kind: tree.StatementOther, SQL: statementText(node)}
}

func statementText(node ast.StmtNode) string {
	text := strings.TrimSpace(node.Text())
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	if text == "" {
		text = restore(node)
	}
	return text
}

func convertQuery(node ast.Node) *tree.Query {
	switch n := node.(type) {
	case *ast.SelectStmt:
		return &tree.Query{
			With:    convertWith(n.With),
			Body:    tree.SetExpr{Kind: tree.SetExprSelect, Select: convertSelect(n)},
			OrderBy: convertOrderBy(n.OrderBy),
			Limit:   convertLimit(n.Limit),
		}
	case *ast.SetOprStmt:
		if n.SelectList == nil {
			return nil
		}
		return &tree.Query{
			With:    convertWith(n.With),
			Body:    convertSetOprList(n.SelectList),
			OrderBy: convertOrderBy(n.OrderBy),
			Limit:   convertLimit(n.Limit),
		}
	case *ast.SubqueryExpr:
		return convertQuery(n.Query)
	default:
		log.Debugf("unknown query node type=%T", node)
	}
	return nil
}

// UNION/EXCEPT/INTERSECT列表转换为左深的集合运算树
func convertSetOprList(list *ast.SetOprSelectList) tree.SetExpr {
	var body *tree.SetExpr
	for _, sel := range list.Selects {
		var current tree.SetExpr
		var after *ast.SetOprType
		switch s := sel.(type) {
		case *ast.SelectStmt:
			after = s.AfterSetOperator
			if s.With != nil {
				current = tree.SetExpr{Kind: tree.SetExprQuery, Query: convertQuery(s)}
			} else {
				current = tree.SetExpr{Kind: tree.SetExprSelect, Select: convertSelect(s)}
			}
		case *ast.SetOprSelectList:
			after = s.AfterSetOperator
			current = convertSetOprList(s)
		default:
			log.Debugf("unknown set operation item type=%T", sel)
			continue
		}

		if body == nil {
			body = &current
			continue
		}
		op, all := convertSetOprType(after)
		body = &tree.SetExpr{
			Kind:  tree.SetExprSetOperation,
			Op:    op,
			All:   all,
			Left:  body,
			Right: &current,
		}
	}

	if body == nil {
		return tree.SetExpr{Kind: tree.SetExprValues}
	}
	return *body
}

func convertSetOprType(tp *ast.SetOprType) (op tree.SetOperator, all bool) {
	op = tree.Union
	if tp == nil {
		return
	}
	text := strings.ToUpper(tp.String())
	all = strings.HasSuffix(text, " ALL")
	switch {
	case strings.HasPrefix(text, "EXCEPT"):
		op = tree.Except
	case strings.HasPrefix(text, "INTERSECT"):
		op = tree.Intersect
	}
	return
}

func convertWith(with *ast.WithClause) *tree.With {
	if with == nil || len(with.CTEs) == 0 {
		return nil
	}
	result := &tree.With{Recursive: with.IsRecursive}
	for _, cte := range with.CTEs {
		if cte.Query == nil {
			continue
		}
		query := convertQuery(cte.Query)
		if query == nil {
			continue
		}
		var columns []string
		for _, col := range cte.ColNameList {
			columns = append(columns, col.O)
		}
		result.Ctes = append(result.Ctes, tree.Cte{Name: cte.Name.O, Columns: columns, Query: *query})
	}
	return result
}

func convertSelect(stmt *ast.SelectStmt) *tree.Select {
	sel := &tree.Select{
		Distinct:   stmt.Distinct,
		Projection: []tree.SelectItem{},
		From:       []tree.TableWithJoins{},
	}

	if stmt.Fields != nil {
		for _, field := range stmt.Fields.Fields {
			sel.Projection = append(sel.Projection, convertSelectField(field))
		}
	}

	if stmt.From != nil {
		if from, ok := convertTableRefs(stmt.From.TableRefs); ok {
			sel.From = append(sel.From, from)
		}
	}

	sel.Selection = convertOptionalExpr(stmt.Where)

	if stmt.GroupBy != nil {
		for _, item := range stmt.GroupBy.Items {
			sel.GroupBy = append(sel.GroupBy, convertExpr(item.Expr))
		}
	}

	if stmt.Having != nil {
		sel.Having = convertOptionalExpr(stmt.Having.Expr)
	}

	return sel
}

func convertSelectField(field *ast.SelectField) tree.SelectItem {
	// 通配符查询
	if field.WildCard != nil {
		if field.WildCard.Table.O == "" {
			return tree.SelectItem{Kind: tree.Wildcard}
		}
		qualifier := field.WildCard.Table.O
		if field.WildCard.Schema.O != "" {
			qualifier = field.WildCard.Schema.O + "." + qualifier
		}
		return tree.SelectItem{Kind: tree.QualifiedWildcard, Qualifier: qualifier}
	}

	expr := convertExpr(field.Expr)
	// 字段别名
	if field.AsName.O != "" {
		return tree.SelectItem{Kind: tree.ExprWithAlias, Expr: &expr, Alias: field.AsName.O}
	}
	return tree.SelectItem{Kind: tree.UnnamedExpr, Expr: &expr}
}

func convertOrderBy(orderBy *ast.OrderByClause) []tree.OrderByItem {
	if orderBy == nil {
		return nil
	}
	items := make([]tree.OrderByItem, 0, len(orderBy.Items))
	for _, item := range orderBy.Items {
		items = append(items, tree.OrderByItem{Expr: convertExpr(item.Expr), Desc: item.Desc})
	}
	return items
}

func convertLimit(limit *ast.Limit) *tree.Limit {
	if limit == nil || limit.Count == nil {
		return nil
	}
	return &tree.Limit{Count: convertExpr(limit.Count), Offset: convertOptionalExpr(limit.Offset)}
}

// 整个FROM子句带括号时与内层括号连接一致，作为NestedJoin
func convertTableRefs(join *ast.Join) (twj tree.TableWithJoins, ok bool) {
	if join == nil || !join.ExplicitParens {
		return convertJoin(join)
	}
	nested, ok := convertJoin(join)
	if !ok {
		return
	}
	twj.Relation = tree.TableFactor{Kind: tree.TableFactorNestedJoin, Nested: &nested}
	return
}

// TiDB的FROM子句是一棵左深的Join树：
// a JOIN b ON x JOIN c ON y => Join{Left: Join{a, b, x}, Right: c, On: y}
// 展开为主表加顺序连接列表，带括号的子连接保留为NestedJoin
func convertJoin(join *ast.Join) (twj tree.TableWithJoins, ok bool) {
	if join == nil || join.Left == nil {
		return
	}

	if left, isJoin := join.Left.(*ast.Join); isJoin && !left.ExplicitParens {
		twj, ok = convertJoin(left)
	} else {
		twj.Relation, ok = convertTableFactor(join.Left)
	}
	if !ok || join.Right == nil {
		return
	}

	relation, rightOk := convertTableFactor(join.Right)
	if !rightOk {
		return
	}
	twj.Joins = append(twj.Joins, tree.Join{Relation: relation, Operator: convertJoinOperator(join)})

	return
}

func convertJoinOperator(join *ast.Join) tree.JoinOperator {
	constraint := tree.JoinConstraint{Kind: tree.ConstraintNone}
	switch {
	case join.NaturalJoin:
		constraint.Kind = tree.ConstraintNatural
	case join.On != nil && join.On.Expr != nil:
		on := convertExpr(join.On.Expr)
		constraint = tree.JoinConstraint{Kind: tree.ConstraintOn, On: &on}
	case len(join.Using) > 0:
		constraint.Kind = tree.ConstraintUsing
		for _, col := range join.Using {
			constraint.Columns = append(constraint.Columns, col.Name.O)
		}
	}

	kind := tree.JoinCross
	switch {
	case join.StraightJoin:
		kind = tree.JoinStraight
	case join.Tp == ast.LeftJoin:
		kind = tree.JoinLeftOuter
	case join.Tp == ast.RightJoin:
		kind = tree.JoinRightOuter
	case constraint.Kind != tree.ConstraintNone:
		kind = tree.JoinInner
	}

	return tree.JoinOperator{Kind: kind, Constraint: constraint}
}

func convertTableFactor(node ast.ResultSetNode) (factor tree.TableFactor, ok bool) {
	switch n := node.(type) {
	case *ast.TableSource:
		alias := n.AsName.O
		switch source := n.Source.(type) {
		case *ast.TableName:
			return tree.TableFactor{Kind: tree.TableFactorTable, Name: tableName(source), Alias: alias}, true
		case *ast.SelectStmt, *ast.SetOprStmt:
			if query := convertQuery(source); query != nil {
				return tree.TableFactor{Kind: tree.TableFactorDerived, Subquery: query, Alias: alias}, true
			}
		case *ast.Join:
			if nested, nestedOk := convertJoin(source); nestedOk {
				return tree.TableFactor{Kind: tree.TableFactorNestedJoin, Nested: &nested, Alias: alias}, true
			}
		default:
			log.Debugf("unknown table source type=%T", n.Source)
		}
	case *ast.Join:
		if nested, nestedOk := convertJoin(n); nestedOk {
			return tree.TableFactor{Kind: tree.TableFactorNestedJoin, Nested: &nested}, true
		}
	default:
		log.Debugf("unknown ResultSetNode type=%T", node)
	}
	return
}

func tableName(name *ast.TableName) string {
	if name.Schema.O != "" {
		return name.Schema.O + "." + name.Name.O
	}
	return name.Name.O
}

func columnName(col *ast.ColumnName) string {
	var parts []string
	for _, part := range []string{col.Schema.O, col.Table.O, col.Name.O} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ".")
}

func convertInsert(stmt *ast.InsertStmt) *tree.Insert {
	insert := &tree.Insert{Replace: stmt.IsReplace, Table: insertTarget(stmt.Table)}
	for _, col := range stmt.Columns {
		insert.Columns = append(insert.Columns, col.Name.O)
	}

	switch {
	case stmt.Select != nil:
		insert.Source = convertQuery(stmt.Select)
	case len(stmt.Lists) > 0:
		rows := make([][]tree.Expr, 0, len(stmt.Lists))
		for _, list := range stmt.Lists {
			row := make([]tree.Expr, 0, len(list))
			for _, expr := range list {
				row = append(row, convertExpr(expr))
			}
			rows = append(rows, row)
		}
		insert.Source = valuesQuery(rows)
	case len(stmt.Setlist) > 0:
		// INSERT ... SET a = 1 等价于单行VALUES
		row := make([]tree.Expr, 0, len(stmt.Setlist))
		for _, assignment := range stmt.Setlist {
			insert.Columns = append(insert.Columns, columnName(assignment.Column))
			row = append(row, convertExpr(assignment.Expr))
		}
		insert.Source = valuesQuery([][]tree.Expr{row})
	}

	return insert
}

func valuesQuery(rows [][]tree.Expr) *tree.Query {
	return &tree.Query{Body: tree.SetExpr{Kind: tree.SetExprValues, Values: rows}}
}

func insertTarget(refs *ast.TableRefsClause) tree.TableObject {
	if refs != nil && refs.TableRefs != nil {
		if source, ok := refs.TableRefs.Left.(*ast.TableSource); ok {
			if name, ok := source.Source.(*ast.TableName); ok {
				return tree.TableObject{Kind: tree.TableObjectName, Name: tableName(name)}
			}
		}
	}
	log.Debugf("unknown insert target=%v", restoreOptional(refs))
	return tree.TableObject{Kind: tree.TableObjectFunction}
}

func convertUpdate(stmt *ast.UpdateStmt) *tree.Update {
	if stmt.TableRefs == nil {
		return nil
	}
	target, ok := convertTableRefs(stmt.TableRefs.TableRefs)
	if !ok {
		return nil
	}

	update := &tree.Update{Table: target, Assignments: []tree.Assignment{}}
	for _, assignment := range stmt.List {
		update.Assignments = append(update.Assignments, tree.Assignment{
			Column: columnName(assignment.Column),
			Value:  convertExpr(assignment.Expr),
		})
	}
	update.Selection = convertOptionalExpr(stmt.Where)

	return update
}

// DELETE在MySQL中总是带FROM关键字，多表删除的目标表记录在Tables中
func convertDelete(stmt *ast.DeleteStmt) *tree.Delete {
	del := &tree.Delete{From: tree.FromTable{Kind: tree.FromWithKeyword}}
	if stmt.IsMultiTable && stmt.Tables != nil {
		for _, name := range stmt.Tables.Tables {
			del.Tables = append(del.Tables, tableName(name))
		}
	}
	if stmt.TableRefs != nil {
		if from, ok := convertTableRefs(stmt.TableRefs.TableRefs); ok {
			del.From.Tables = append(del.From.Tables, from)
		}
	}
	del.Selection = convertOptionalExpr(stmt.Where)

	return del
}

func convertOptionalExpr(node ast.ExprNode) *tree.Expr {
	if node == nil {
		return nil
	}
	expr := convertExpr(node)
	return &expr
}

func convertExpr(node ast.ExprNode) tree.Expr {
	if node == nil {
		return tree.Leaf(tree.ExprOther, "")
	}

	switch n := node.(type) {
	// 子查询
	case *ast.SubqueryExpr:
		if query := convertQuery(n.Query); query != nil {
			return tree.Expr{Kind: tree.ExprSubquery, Query: query}
		}
	case *ast.ExistsSubqueryExpr:
		if sub, ok := n.Sel.(*ast.SubqueryExpr); ok {
			if query := convertQuery(sub.Query); query != nil {
				return tree.Expr{Kind: tree.ExprExists, Query: query, Negated: n.Not}
			}
		}
	case *ast.PatternInExpr:
		// IN (值列表) 作为叶子节点
		if sub, ok := n.Sel.(*ast.SubqueryExpr); ok {
			if query := convertQuery(sub.Query); query != nil {
				left := convertExpr(n.Expr)
				body := inSubqueryBody(query)
				return tree.Expr{Kind: tree.ExprInSubquery, Left: &left, Subquery: &body, Negated: n.Not}
			}
		}
	// 带计算符的字段
	case *ast.BinaryOperationExpr:
		left, right := convertExpr(n.L), convertExpr(n.R)
		return tree.Expr{Kind: tree.ExprBinaryOp, Left: &left, Op: restoreOp(n.Op), Right: &right}
	case *ast.CompareSubqueryExpr:
		left, right := convertExpr(n.L), convertExpr(n.R)
		op := restoreOp(n.Op) + " ANY"
		if n.All {
			op = restoreOp(n.Op) + " ALL"
		}
		return tree.Expr{Kind: tree.ExprBinaryOp, Left: &left, Op: op, Right: &right}
	case *ast.UnaryOperationExpr:
		inner := convertExpr(n.V)
		return tree.Expr{Kind: tree.ExprUnaryOp, Op: restoreOp(n.Op), Inner: &inner}
	case *ast.FuncCastExpr:
		if n.FunctionType == ast.CastFunction {
			if dataType := castType(n); dataType != "" {
				inner := convertExpr(n.Expr)
				return tree.Expr{Kind: tree.ExprCast, Inner: &inner, DataType: dataType}
			}
		}
		return tree.Leaf(tree.ExprFunction, restore(n))
	case *ast.ParenthesesExpr:
		inner := convertExpr(n.Expr)
		return tree.Expr{Kind: tree.ExprNested, Inner: &inner}
	// 普通字段
	case *ast.ColumnNameExpr:
		return tree.Leaf(tree.ExprColumn, restore(n))
	// 显式值
	case *parserDriver.ValueExpr:
		return tree.Leaf(tree.ExprLiteral, restore(n))
	// 函数
	case *ast.FuncCallExpr, *ast.AggregateFuncExpr, *ast.WindowFuncExpr:
		return tree.Leaf(tree.ExprFunction, restore(n))
	case *ast.CaseExpr:
		return tree.Leaf(tree.ExprCase, restore(n))
	default:
		log.Debugf("unknown exprNode type=%T", node)
	}

	return tree.Leaf(tree.ExprOther, restore(node))
}

// IN子查询只保留集合表达式；自带WITH/ORDER BY/LIMIT的子查询整体保留
func inSubqueryBody(query *tree.Query) tree.SetExpr {
	if query.With == nil && len(query.OrderBy) == 0 && query.Limit == nil {
		return query.Body
	}
	return tree.SetExpr{Kind: tree.SetExprQuery, Query: query}
}

// CAST(expr AS type) 还原后截取类型部分
func castType(expr *ast.FuncCastExpr) string {
	text := restore(expr)
	idx := strings.LastIndex(text, " AS ")
	if idx < 0 || !strings.HasSuffix(text, ")") {
		return ""
	}
	return text[idx+len(" AS ") : len(text)-1]
}

func restoreOp(op opcode.Op) string {
	var sb strings.Builder
	if err := op.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return strings.ToUpper(op.String())
	}
	return sb.String()
}

func restore(node ast.Node) string {
	var sb strings.Builder
	if err := node.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		log.Debugf("restore node failed,type=%T,err=%v", node, err)
		return ""
	}
	return sb.String()
}

func restoreOptional(refs *ast.TableRefsClause) string {
	if refs == nil {
		return ""
	}
	return restore(refs)
}
