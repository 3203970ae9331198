package ast

type TableWithJoins struct {
	Relation TableFactor `json:"relation"`
	Joins    []Join      `json:"joins,omitempty"`
}

type Join struct {
	Relation TableFactor  `json:"relation"`
	Operator JoinOperator `json:"join_operator"`
}

type JoinKind int

const (
	JoinInner JoinKind = iota + 1
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
	JoinCross
	JoinStraight
)

var joinKindNames = []string{"", "Inner", "LeftOuter", "RightOuter", "FullOuter", "CrossJoin", "StraightJoin"}

func (k JoinKind) String() string { return kindName(k, joinKindNames) }

func (k JoinKind) MarshalText() ([]byte, error) { return marshalKind(k, joinKindNames) }

func (k *JoinKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, joinKindNames, k)
}

type JoinOperator struct {
	Kind       JoinKind       `json:"kind"`
	Constraint JoinConstraint `json:"constraint"`
}

type JoinConstraintKind int

const (
	ConstraintNone JoinConstraintKind = iota + 1
	ConstraintOn
	ConstraintUsing
	ConstraintNatural
)

var joinConstraintKindNames = []string{"", "None", "On", "Using", "Natural"}

func (k JoinConstraintKind) String() string { return kindName(k, joinConstraintKindNames) }

func (k JoinConstraintKind) MarshalText() ([]byte, error) {
	return marshalKind(k, joinConstraintKindNames)
}

func (k *JoinConstraintKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, joinConstraintKindNames, k)
}

type JoinConstraint struct {
	Kind    JoinConstraintKind `json:"kind"`
	On      *Expr              `json:"on,omitempty"`
	Columns []string           `json:"columns,omitempty"`
}

type TableFactorKind int

const (
	TableFactorTable TableFactorKind = iota + 1
	TableFactorDerived
	TableFactorFunction
	TableFactorNestedJoin
)

var tableFactorKindNames = []string{"", "Table", "Derived", "TableFunction", "NestedJoin"}

func (k TableFactorKind) String() string { return kindName(k, tableFactorKindNames) }

func (k TableFactorKind) MarshalText() ([]byte, error) {
	return marshalKind(k, tableFactorKindNames)
}

func (k *TableFactorKind) UnmarshalText(text []byte) error {
	return unmarshalKind(text, tableFactorKindNames, k)
}

type TableFactor struct {
	Kind     TableFactorKind `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Alias    string          `json:"alias,omitempty"`
	Subquery *Query          `json:"subquery,omitempty"`
	Function *Expr           `json:"function,omitempty"`
	Nested   *TableWithJoins `json:"nested,omitempty"`
}
