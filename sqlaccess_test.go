package sqlaccess

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsfans/sql-access/access"
)

func TestAccess(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want string
	}{
		{"select", "SELECT * FROM A",
			`{"tables":[{"name":"A","access":"Read"}]}`},
		{"insert values", "INSERT INTO A VALUES (1, 'x')",
			`{"tables":[{"name":"A","access":"Write"}]}`},
		{"insert select", "INSERT INTO A SELECT * FROM B",
			`{"tables":[{"name":"A","access":"Write"},{"name":"B","access":"Read"}]}`},
		{"update with subqueries", "UPDATE A SET x=(SELECT v FROM B) WHERE EXISTS(SELECT 1 FROM C)",
			`{"tables":[{"name":"A","access":"Write"},{"name":"B","access":"Read"},{"name":"C","access":"Read"}]}`},
		{"delete in subquery", "DELETE FROM A WHERE id IN (SELECT id FROM B)",
			`{"tables":[{"name":"A","access":"Write"},{"name":"B","access":"Read"}]}`},
		{"self reference", "UPDATE A SET x=(SELECT x FROM A)",
			`{"tables":[{"name":"A","access":"Read"}]}`},
		{"multi statement", "SELECT * FROM A; DELETE FROM B;",
			`{"tables":[{"name":"A","access":"Read"},{"name":"B","access":"Write"}]}`},
		{"sorted", "SELECT * FROM zoo JOIN apple ON zoo.id = apple.id, mango",
			`{"tables":[{"name":"apple","access":"Read"},{"name":"mango","access":"Read"},{"name":"zoo","access":"Read"}]}`},
		{"cte", "WITH c AS (SELECT * FROM base) SELECT * FROM c",
			`{"tables":[{"name":"base","access":"Read"},{"name":"c","access":"Read"}]}`},
		{"union", "SELECT a FROM t1 UNION SELECT b FROM t2",
			`{"tables":[{"name":"t1","access":"Read"},{"name":"t2","access":"Read"}]}`},
		{"derived alias", "SELECT * FROM (SELECT * FROM inner_t) AS d",
			`{"tables":[{"name":"inner_t","access":"Read"}]}`},
		{"join on subquery", "SELECT * FROM a JOIN b ON a.id IN (SELECT id FROM c)",
			`{"tables":[{"name":"a","access":"Read"},{"name":"b","access":"Read"},{"name":"c","access":"Read"}]}`},
		{"qualified", "SELECT * FROM shop.orders",
			`{"tables":[{"name":"shop.orders","access":"Read"}]}`},
		{"function args not walked", "SELECT COALESCE((SELECT 1 FROM hidden), 0) FROM t",
			`{"tables":[{"name":"t","access":"Read"}]}`},
		{"parenthesized where is a leaf", "DELETE FROM A WHERE (id IN (SELECT id FROM B))",
			`{"tables":[{"name":"A","access":"Write"}]}`},
		{"negated parentheses are a leaf", "SELECT * FROM A WHERE NOT (x = 1 OR y IN (SELECT y FROM B))",
			`{"tables":[{"name":"A","access":"Read"}]}`},
		{"parenthesized from is inert", "SELECT * FROM (a JOIN b ON a.id = b.id)", `{"tables":[]}`},
		{"ddl is inert", "CREATE TABLE t (id INT)", `{"tables":[]}`},
		{"unparsable", "INVALID SQL", `{"tables":[]}`},
		{"empty", "", `{"tables":[]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Access(c.sql))
		})
	}
}

func TestAccessIdempotent(t *testing.T) {
	sql := "UPDATE A SET x=(SELECT v FROM B) WHERE EXISTS(SELECT 1 FROM C); SELECT * FROM D"
	assert.Equal(t, Access(sql), Access(sql))
}

func TestAccessInfo(t *testing.T) {
	info := AccessInfo("INSERT INTO A SELECT * FROM B")
	accessType, ok := info.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, access.Write, accessType)

	assert.NotNil(t, AccessInfo("SELECT * FROM").Tables)
}

func TestParse(t *testing.T) {
	result := Parse("SELECT * FROM A; DELETE FROM B")
	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, result.Count)
	assert.True(t, json.Valid([]byte(result.JSON)))

	failed := Parse("SELECT * FROM")
	assert.False(t, failed.Success)
	assert.NotEmpty(t, failed.Error)
	assert.Empty(t, failed.JSON)
}

func TestFormat(t *testing.T) {
	sql := "SELECT a, b FROM t JOIN s ON t.id = s.id WHERE t.id IN (SELECT id FROM u) ORDER BY a LIMIT 10"
	result := Parse(sql)
	require.True(t, result.Success)

	formatted := Format(result.JSON)
	assert.True(t, Validate(formatted), formatted)
	assert.Equal(t, Access(sql), Access(formatted))

	multi := Parse("SELECT * FROM a; DELETE FROM b")
	require.True(t, multi.Success)
	assert.Regexp(t, `^SELECT \* FROM a; DELETE FROM b$`, Format(multi.JSON))
}

func TestFormatInvalidJSON(t *testing.T) {
	assert.Regexp(t, "^Error parsing AST JSON: ", Format("{not json"))
	assert.Regexp(t, "^Error parsing AST JSON: ", Format(`[{"kind":"Sideways"}]`))

	incomplete := []string{
		`[{"kind":"Query"}]`,
		`[{}]`,
		`[null]`,
		`[{"kind":"Query","query":{"body":{"kind":"Select"}}}]`,
		`[{"kind":"Query","query":{"body":{"kind":"Select","select":{"projection":[],"from":[]}},"limit":{}}}]`,
		`[{"kind":"Query","query":{"body":{"kind":"SetOperation","op":"Union","left":{"kind":"Values"}}}}]`,
		`[{"kind":"Query","query":{"body":{"kind":"Select","select":{"projection":[{"kind":"Wildcard"}],"from":[
			{"relation":{"kind":"Table","name":"a"},"joins":[{"relation":{"kind":"Table","name":"b"},
			"join_operator":{"kind":"Inner","constraint":{"kind":"On"}}}]}]}}}}]`,
		`[{"kind":"Query","query":{"body":{"kind":"Select","select":{"projection":[],"from":[],
			"selection":{"kind":"BinaryOp","op":"=","left":{"kind":"Identifier","sql":"x"}}}}}}]`,
		`[{"kind":"Delete","delete":{"from":{"kind":"WithFromKeyword"},"selection":{"kind":"Exists"}}}]`,
		`[{"kind":"Update","update":{"table":{"relation":{"kind":"Table","name":"a"}},"assignments":[
			{"column":"x","value":{"kind":"InSubquery","left":{"kind":"Identifier","sql":"x"}}}]}}]`,
		`[{"kind":"Query","query":{"body":{"kind":"Select","select":{"projection":[
			{"kind":"UnnamedExpr","expr":{"kind":"Cast","data_type":"CHAR"}}],"from":[]}}}}]`,
	}
	for _, tree := range incomplete {
		assert.Regexp(t, "^Error parsing AST JSON: ", Format(tree), tree)
	}
}

func TestValidateAndErrorMessage(t *testing.T) {
	assert.True(t, Validate("SELECT * FROM users WHERE id = 1"))
	assert.False(t, Validate("SELECT * FROM"))

	message, ok := ErrorMessage("SELECT * FROM")
	assert.True(t, ok)
	assert.NotEmpty(t, message)

	message, ok = ErrorMessage("SELECT 1")
	assert.False(t, ok)
	assert.Empty(t, message)
}

func TestVersion(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+$`), Version())
}
