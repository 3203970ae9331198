package access

import (
	"github.com/tsfans/sql-access/ast"
)

// 按顺序分类所有语句，汇总到同一个Map后排序输出
func Extract(stmts []*ast.Statement) TableAccessInfo {
	m := NewMap()
	for _, stmt := range stmts {
		ClassifyStatement(stmt, m)
	}
	return TableAccessInfo{Tables: m.Sorted()}
}

// 统计读、写表的数量
func (info TableAccessInfo) Count() (reads, writes int) {
	for _, table := range info.Tables {
		switch table.Access {
		case Read:
			reads++
		case Write:
			writes++
		}
	}
	return
}

func (info TableAccessInfo) Lookup(name string) (AccessType, bool) {
	for _, table := range info.Tables {
		if table.Name == name {
			return table.Access, true
		}
	}
	return 0, false
}
