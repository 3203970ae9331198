// Package access 统计SQL语句中每张表的读写访问类型
package access

import (
	"encoding/json"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

type AccessType int

const (
	Read AccessType = iota + 1
	Write
)

func (a AccessType) String() string {
	switch a {
	case Read:
		return "Read"
	case Write:
		return "Write"
	}
	return fmt.Sprintf("AccessType(%d)", int(a))
}

func (a AccessType) MarshalText() ([]byte, error) {
	switch a {
	case Read, Write:
		return []byte(a.String()), nil
	}
	return nil, fmt.Errorf("unknown access type,access=[%d]", int(a))
}

func (a *AccessType) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// 解析 "Read" / "Write"
func ParseAccessType(s string) (AccessType, error) {
	switch s {
	case "Read":
		return Read, nil
	case "Write":
		return Write, nil
	}
	return 0, fmt.Errorf("unknown access type,access=[%v]", s)
}

type TableAccess struct {
	Name   string     `json:"name"`
	Access AccessType `json:"access"`
}

type TableAccessInfo struct {
	Tables []TableAccess `json:"tables"`
}

const emptyJSON = `{"tables": []}`

// 序列化为 {"tables":[...]}，序列化失败时返回空列表
func (info TableAccessInfo) JSON() string {
	if info.Tables == nil {
		info.Tables = []TableAccess{}
	}
	data, err := json.Marshal(info)
	if err != nil {
		return emptyJSON
	}
	return string(data)
}

// 表名到访问类型的映射
//
// 同一表名再次记录时覆盖原值：结果是深度优先、从左到右遍历中最后一次看到的访问类型
type Map struct {
	tables map[string]AccessType
}

func NewMap() *Map {
	return &Map{tables: make(map[string]AccessType)}
}

// 记录访问类型，已存在时覆盖
func (m *Map) Record(name string, access AccessType) {
	m.tables[name] = access
}

func (m *Map) Get(name string) (AccessType, bool) {
	access, ok := m.tables[name]
	return access, ok
}

func (m *Map) Len() int {
	return len(m.tables)
}

// 按表名字节序升序输出
func (m *Map) Sorted() []TableAccess {
	names := maps.Keys(m.tables)
	slices.Sort(names)

	result := make([]TableAccess, 0, len(names))
	for _, name := range names {
		result = append(result, TableAccess{Name: name, Access: m.tables[name]})
	}
	return result
}
