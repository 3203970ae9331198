package ast

type Query struct {
	With *With   `json:"with,omitempty"`
	Body SetExpr `json:"body"`
	// OrderBy and Limit are kept for rendering; they never reference tables.
	OrderBy []OrderByItem `json:"order_by,omitempty"`
	Limit   *Limit        `json:"limit,omitempty"`
}

type With struct {
	Recursive bool  `json:"recursive,omitempty"`
	Ctes      []Cte `json:"cte_tables"`
}

type Cte struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns,omitempty"`
	Query   Query    `json:"query"`
}

type OrderByItem struct {
	Expr Expr `json:"expr"`
	Desc bool `json:"desc,omitempty"`
}

type Limit struct {
	Count  Expr  `json:"count"`
	Offset *Expr `json:"offset,omitempty"`
}

type SetExprKind int

const (
	SetExprSelect SetExprKind = iota + 1
	SetExprSetOperation
	SetExprValues
	// SetExprQuery is a parenthesized query carrying its own WITH clause.
	SetExprQuery
)

var setExprKindNames = []string{"", "Select", "SetOperation", "Values", "Query"}

func (k SetExprKind) String() string { return kindName(k, setExprKindNames) }

func (k SetExprKind) MarshalText() ([]byte, error) { return marshalKind(k, setExprKindNames) }

func (k *SetExprKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, setExprKindNames, k)
}

type SetOperator int

const (
	Union SetOperator = iota + 1
	Except
	Intersect
)

var setOperatorNames = []string{"", "Union", "Except", "Intersect"}

func (o SetOperator) String() string { return kindName(o, setOperatorNames) }

func (o SetOperator) MarshalText() ([]byte, error) { return marshalKind(o, setOperatorNames) }

func (o *SetOperator) UnmarshalText(text []byte) error {
	return unmarshalKind(text, setOperatorNames, o)
}

type SetExpr struct {
	Kind   SetExprKind `json:"kind"`
	Select *Select     `json:"select,omitempty"`

	Op    SetOperator `json:"op,omitempty"`
	All   bool        `json:"all,omitempty"`
	Left  *SetExpr    `json:"left,omitempty"`
	Right *SetExpr    `json:"right,omitempty"`

	Values [][]Expr `json:"values,omitempty"`
	Query  *Query   `json:"query,omitempty"`
}

type Select struct {
	Distinct   bool             `json:"distinct,omitempty"`
	Projection []SelectItem     `json:"projection"`
	From       []TableWithJoins `json:"from"`
	Selection  *Expr            `json:"selection,omitempty"`
	GroupBy    []Expr           `json:"group_by,omitempty"`
	Having     *Expr            `json:"having,omitempty"`
}

type SelectItemKind int

const (
	UnnamedExpr SelectItemKind = iota + 1
	ExprWithAlias
	QualifiedWildcard
	Wildcard
)

var selectItemKindNames = []string{"", "UnnamedExpr", "ExprWithAlias", "QualifiedWildcard", "Wildcard"}

func (k SelectItemKind) String() string { return kindName(k, selectItemKindNames) }

func (k SelectItemKind) MarshalText() ([]byte, error) {
	return marshalKind(k, selectItemKindNames)
}

func (k *SelectItemKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, selectItemKindNames, k)
}

type SelectItem struct {
	Kind      SelectItemKind `json:"kind"`
	Expr      *Expr          `json:"expr,omitempty"`
	Alias     string         `json:"alias,omitempty"`
	Qualifier string         `json:"qualifier,omitempty"`
}
