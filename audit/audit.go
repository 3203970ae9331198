// Package audit 保存每次分析的表访问结果，便于按表追溯
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tsfans/sql-access/access"
)

// 一次SQL分析的结果
type Record struct {
	ID         string               `json:"id"`
	SQL        string               `json:"sql"`
	Statements int                  `json:"statements"`
	Tables     []access.TableAccess `json:"tables"`
	AnalyzedAt time.Time            `json:"analyzed_at"`
}

func NewRecord(sql string, statements int, tables []access.TableAccess) Record {
	return Record{
		ID:         uuid.NewString(),
		SQL:        sql,
		Statements: statements,
		Tables:     tables,
		AnalyzedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// 是否以指定方式访问了表，access为nil时不限访问类型
func (r Record) Touches(name string, accessType *access.AccessType) bool {
	for _, table := range r.Tables {
		if table.Name != name {
			continue
		}
		if accessType == nil || table.Access == *accessType {
			return true
		}
	}
	return false
}

// 单表的访问次数统计
type TableStat struct {
	Name   string            `json:"name"`
	Access access.AccessType `json:"access"`
	Count  int64             `json:"count"`
}

type Store interface {
	Save(ctx context.Context, record Record) error
	// 按保存时间升序返回访问过该表的记录
	FindByTable(ctx context.Context, name string, accessType *access.AccessType) ([]Record, error)
	// 按表名、访问类型汇总
	Stats(ctx context.Context) ([]TableStat, error)
}
