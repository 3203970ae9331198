package ast

type ExprKind int

const (
	ExprSubquery ExprKind = iota + 1
	ExprExists
	ExprInSubquery
	ExprBinaryOp
	ExprUnaryOp
	ExprCast
	ExprNested

	// Leaves: the text in Expr.SQL is all that is kept.
	ExprColumn
	ExprLiteral
	ExprFunction
	ExprCase
	ExprOther
)

var exprKindNames = []string{
	"", "Subquery", "Exists", "InSubquery", "BinaryOp", "UnaryOp", "Cast", "Nested",
	"Identifier", "Value", "Function", "Case", "Other",
}

func (k ExprKind) String() string { return kindName(k, exprKindNames) }

func (k ExprKind) MarshalText() ([]byte, error) { return marshalKind(k, exprKindNames) }

func (k *ExprKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, exprKindNames, k)
}

// IsLeaf reports whether the expression carries no sub-expressions in this tree.
func (k ExprKind) IsLeaf() bool { return k >= ExprColumn }

type Expr struct {
	Kind ExprKind `json:"kind"`

	// Subquery, Exists.
	Query *Query `json:"query,omitempty"`
	// InSubquery.
	Subquery *SetExpr `json:"subquery,omitempty"`
	Negated  bool     `json:"negated,omitempty"`

	// BinaryOp uses Left, Op and Right; InSubquery keeps its probe in Left.
	// UnaryOp, Cast and Nested keep their operand in Inner.
	Left     *Expr  `json:"left,omitempty"`
	Op       string `json:"op,omitempty"`
	Right    *Expr  `json:"right,omitempty"`
	Inner    *Expr  `json:"expr,omitempty"`
	DataType string `json:"data_type,omitempty"`

	SQL string `json:"sql,omitempty"`
}

// Leaf builds a leaf expression of the given kind.
func Leaf(kind ExprKind, sql string) Expr {
	return Expr{Kind: kind, SQL: sql}
}
