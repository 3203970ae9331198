// Package sqlaccess reports which tables a SQL text reads and which it writes,
// without executing it.
//
//	sqlaccess.Access("INSERT INTO a SELECT * FROM b")
//	// {"tables":[{"name":"a","access":"Write"},{"name":"b","access":"Read"}]}
package sqlaccess

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/tsfans/sql-access/access"
	"github.com/tsfans/sql-access/ast"
	"github.com/tsfans/sql-access/parser"
)

const version = "1.2.0"

var defaultParser = parser.NewMySQLParser()

// 解析结果，成功时JSON为序列化的语句树
type ParseResult struct {
	Success bool   `json:"success"`
	JSON    string `json:"ast,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count"`
}

func Parse(sql string) ParseResult {
	stmts, err := defaultParser.Parse(sql)
	if err != nil {
		return ParseResult{Error: err.Error()}
	}
	data, err := json.Marshal(stmts)
	if err != nil {
		return ParseResult{Error: err.Error()}
	}
	return ParseResult{Success: true, JSON: string(data), Count: len(stmts)}
}

// 把序列化的语句树还原为SQL，多条语句以"; "分隔；缺少必需字段的树视为非法
func Format(treeJSON string) string {
	var stmts []*ast.Statement
	if err := json.Unmarshal([]byte(treeJSON), &stmts); err != nil {
		return "Error parsing AST JSON: " + err.Error()
	}
	if err := ast.Validate(stmts); err != nil {
		return "Error parsing AST JSON: " + err.Error()
	}
	return ast.Format(stmts)
}

func FormatStatements(stmts []*ast.Statement) string {
	return ast.Format(stmts)
}

func Validate(sql string) bool {
	_, err := defaultParser.Parse(sql)
	return err == nil
}

// 返回语法错误信息，SQL合法时ok为false
func ErrorMessage(sql string) (message string, ok bool) {
	if _, err := defaultParser.Parse(sql); err != nil {
		return err.Error(), true
	}
	return "", false
}

func Version() string {
	return version
}

// 表访问结果的JSON，解析失败时为空列表
func Access(sql string) string {
	return AccessInfo(sql).JSON()
}

func AccessInfo(sql string) access.TableAccessInfo {
	stmts, err := defaultParser.Parse(sql)
	if err != nil {
		log.Debugf("access analysis skipped,err=[%v]", err)
		return access.TableAccessInfo{Tables: []access.TableAccess{}}
	}
	return access.Extract(stmts)
}
