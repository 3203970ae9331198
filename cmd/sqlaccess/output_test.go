package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlaccess "github.com/tsfans/sql-access"
	"github.com/tsfans/sql-access/access"
)

var reports = []sqlaccess.Report{
	{
		SQL:        "INSERT INTO a SELECT * FROM b",
		Statements: 1,
		Tables: []access.TableAccess{
			{Name: "a", Access: access.Write},
			{Name: "b", Access: access.Read},
		},
	},
	{SQL: "SELECT 1", Statements: 1, Tables: []access.TableAccess{}},
}

func TestFormatterYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter("yaml").Write(&buf, reports[:1]))
	out := buf.String()
	assert.Contains(t, out, "statements: 1")
	assert.Contains(t, out, "- name: a\n")
	assert.Contains(t, out, "access: Write\n")
	assert.Contains(t, out, "- name: b\n")
	assert.Contains(t, out, "access: Read\n")
	assert.NotContains(t, out, "error:")
}

func TestFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter("table").Write(&buf, reports))
	assert.Equal(t, `-- INSERT INTO a SELECT * FROM b
TABLE  ACCESS
a      Write
b      Read

-- SELECT 1
No tables
`, buf.String())
}

func TestFormatterJSONSingle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter("json").Write(&buf, reports[1:]))
	assert.Equal(t, "{\"tables\":[]}\n", buf.String())
}

func TestFormatterUnknown(t *testing.T) {
	assert.Error(t, NewFormatter("csv").Write(&bytes.Buffer{}, reports))
}
