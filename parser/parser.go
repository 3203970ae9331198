package parser

import (
	"errors"

	"github.com/tsfans/sql-access/ast"
)

// 文本中不包含任何语句
var ErrEmptySQL = errors.New("empty sql")

// SQL解析器：把SQL文本转换为语句树
type Parser interface {
	// 解析SQL，返回按出现顺序排列的语句
	Parse(sql string) ([]*ast.Statement, error)
}

// 解析SQL，至少需要一条语句
func MustParse(p Parser, sql string) ([]*ast.Statement, error) {
	stmts, err := p.Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, ErrEmptySQL
	}
	return stmts, nil
}
