// Package ast holds the statement tree consumed by the table-access engine.
//
// The tree is a closed set of tagged variants: each node carries a Kind and only the
// fields belonging to that kind are populated. Shapes the engine does not break down
// keep their SQL text so the tree can still be rendered back to SQL.
package ast

type StatementKind int

const (
	StatementQuery StatementKind = iota + 1
	StatementInsert
	StatementUpdate
	StatementDelete
	// StatementOther is any statement the tree does not model (DDL, SET, SHOW, ...).
	StatementOther
)

var statementKindNames = []string{"", "Query", "Insert", "Update", "Delete", "Other"}

func (k StatementKind) String() string { return kindName(k, statementKindNames) }

func (k StatementKind) MarshalText() ([]byte, error) { return marshalKind(k, statementKindNames) }

func (k *StatementKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, statementKindNames, k)
}

type Statement struct {
	Kind   StatementKind `json:"kind"`
	Query  *Query        `json:"query,omitempty"`
	Insert *Insert       `json:"insert,omitempty"`
	Update *Update       `json:"update,omitempty"`
	Delete *Delete       `json:"delete,omitempty"`
	// SQL is the original text of a StatementOther.
	SQL string `json:"sql,omitempty"`
}

func (s *Statement) IsQuery() bool  { return s.Kind == StatementQuery && s.Query != nil }
func (s *Statement) IsInsert() bool { return s.Kind == StatementInsert && s.Insert != nil }
func (s *Statement) IsUpdate() bool { return s.Kind == StatementUpdate && s.Update != nil }
func (s *Statement) IsDelete() bool { return s.Kind == StatementDelete && s.Delete != nil }

type TableObjectKind int

const (
	TableObjectName TableObjectKind = iota + 1
	TableObjectFunction
)

var tableObjectKindNames = []string{"", "TableName", "TableFunction"}

func (k TableObjectKind) String() string { return kindName(k, tableObjectKindNames) }

func (k TableObjectKind) MarshalText() ([]byte, error) {
	return marshalKind(k, tableObjectKindNames)
}

func (k *TableObjectKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, tableObjectKindNames, k)
}

// TableObject is the target of an INSERT.
type TableObject struct {
	Kind     TableObjectKind `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Function *Expr           `json:"function,omitempty"`
}

type Insert struct {
	Table   TableObject `json:"table"`
	Replace bool        `json:"replace,omitempty"`
	Columns []string    `json:"columns,omitempty"`
	// Source is nil for INSERT ... DEFAULT VALUES style statements.
	Source *Query `json:"source,omitempty"`
}

type Assignment struct {
	Column string `json:"column"`
	Value  Expr   `json:"value"`
}

type Update struct {
	Table       TableWithJoins `json:"table"`
	Assignments []Assignment   `json:"assignments"`
	Selection   *Expr          `json:"selection,omitempty"`
}

type FromTableKind int

const (
	// FromWithKeyword is DELETE FROM <table with joins>, ...
	FromWithKeyword FromTableKind = iota + 1
	// FromWithoutKeyword is DELETE <name>, ... with bare table names only.
	FromWithoutKeyword
)

var fromTableKindNames = []string{"", "WithFromKeyword", "WithoutKeyword"}

func (k FromTableKind) String() string { return kindName(k, fromTableKindNames) }

func (k FromTableKind) MarshalText() ([]byte, error) { return marshalKind(k, fromTableKindNames) }

func (k *FromTableKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, fromTableKindNames, k)
}

type FromTable struct {
	Kind   FromTableKind    `json:"kind"`
	Tables []TableWithJoins `json:"tables,omitempty"`
	Names  []string         `json:"names,omitempty"`
}

type Delete struct {
	// Tables lists the targets of a multi-table DELETE (DELETE t1, t2 FROM ...).
	Tables    []string  `json:"tables,omitempty"`
	From      FromTable `json:"from"`
	Selection *Expr     `json:"selection,omitempty"`
}
