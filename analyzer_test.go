package sqlaccess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsfans/sql-access/access"
	"github.com/tsfans/sql-access/ast"
	"github.com/tsfans/sql-access/audit"
	"github.com/tsfans/sql-access/metrics"
)

type failingStore struct {
	audit.Store
}

func (failingStore) Save(ctx context.Context, record audit.Record) error {
	return errors.New("store unavailable")
}

type stubParser struct {
	stmts []*ast.Statement
}

func (p stubParser) Parse(sql string) ([]*ast.Statement, error) {
	return p.stmts, nil
}

func TestAnalyze(t *testing.T) {
	collector := metrics.NewPrometheusCollector()
	store := audit.NewMemoryStore()
	analyzer := NewAnalyzer(WithMetrics(collector), WithStore(store))
	ctx := context.Background()

	report, err := analyzer.Analyze(ctx, "INSERT INTO A SELECT * FROM B; SELECT * FROM C")
	require.NoError(t, err)
	assert.Empty(t, report.Error)
	assert.Equal(t, 2, report.Statements)
	assert.Equal(t, []access.TableAccess{
		{Name: "A", Access: access.Write},
		{Name: "B", Access: access.Read},
		{Name: "C", Access: access.Read},
	}, report.Tables)
	assert.Equal(t, `{"tables":[{"name":"A","access":"Write"},{"name":"B","access":"Read"},{"name":"C","access":"Read"}]}`,
		report.Info().JSON())

	records, err := store.FindByTable(ctx, "A", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Statements)

	expected := `
# HELP sqlaccess_statements_total Counter for sqlaccess_statements_total
# TYPE sqlaccess_statements_total counter
sqlaccess_statements_total{kind="Insert"} 1
sqlaccess_statements_total{kind="Query"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Gatherer(), strings.NewReader(expected), metrics.StatementsTotal))

	count, err := testutil.GatherAndCount(collector.Gatherer(), metrics.AnalyzeSeconds)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAnalyzeMetrics(t *testing.T) {
	collector := metrics.NewPrometheusCollector()
	analyzer := NewAnalyzer(WithMetrics(collector))
	ctx := context.Background()

	_, err := analyzer.Analyze(ctx, "DELETE FROM A WHERE id IN (SELECT id FROM B)")
	require.NoError(t, err)
	_, err = analyzer.Analyze(ctx, "SELECT * FROM")
	require.NoError(t, err)

	expected := `
# HELP sqlaccess_tables_total Counter for sqlaccess_tables_total
# TYPE sqlaccess_tables_total counter
sqlaccess_tables_total{access="Read"} 1
sqlaccess_tables_total{access="Write"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Gatherer(), strings.NewReader(expected), metrics.TablesTotal))

	failures := `
# HELP sqlaccess_parse_failures_total Counter for sqlaccess_parse_failures_total
# TYPE sqlaccess_parse_failures_total counter
sqlaccess_parse_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Gatherer(), strings.NewReader(failures), metrics.ParseFailuresTotal))
}

func TestAnalyzeParseFailure(t *testing.T) {
	store := audit.NewMemoryStore()
	analyzer := NewAnalyzer(WithStore(store))

	report, err := analyzer.Analyze(context.Background(), "SELECT * FROM")
	require.NoError(t, err)
	assert.NotEmpty(t, report.Error)
	assert.NotNil(t, report.Tables)
	assert.Empty(t, report.Tables)
	assert.Equal(t, `{"tables":[]}`, report.Info().JSON())

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestAnalyzeStoreFailure(t *testing.T) {
	analyzer := NewAnalyzer(WithStore(failingStore{}))
	report, err := analyzer.Analyze(context.Background(), "SELECT * FROM A")
	assert.Error(t, err)
	assert.Len(t, report.Tables, 1)
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyzer().Analyze(ctx, "SELECT * FROM A")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeWithParser(t *testing.T) {
	stmt := &ast.Statement{Kind: ast.StatementDelete, Delete: &ast.Delete{
		From: ast.FromTable{Kind: ast.FromWithoutKeyword, Names: []string{"logs"}},
	}}
	analyzer := NewAnalyzer(WithParser(stubParser{stmts: []*ast.Statement{stmt}}))

	report, err := analyzer.Analyze(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []access.TableAccess{{Name: "logs", Access: access.Write}}, report.Tables)
}

func TestAnalyzeAll(t *testing.T) {
	sqls := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		sqls = append(sqls, fmt.Sprintf("SELECT * FROM t%02d", i))
	}
	sqls = append(sqls, "INVALID SQL")

	store := audit.NewMemoryStore()
	reports, err := NewAnalyzer(WithStore(store)).AnalyzeAll(context.Background(), sqls, 4)
	require.NoError(t, err)
	require.Len(t, reports, len(sqls))
	for i := 0; i < 40; i++ {
		assert.Equal(t, sqls[i], reports[i].SQL)
		assert.Equal(t, []access.TableAccess{{Name: fmt.Sprintf("t%02d", i), Access: access.Read}}, reports[i].Tables)
	}
	assert.NotEmpty(t, reports[40].Error)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats, 40)
}

func TestAnalyzeAllStopsOnStoreFailure(t *testing.T) {
	_, err := NewAnalyzer(WithStore(failingStore{})).AnalyzeAll(context.Background(), []string{"SELECT * FROM a", "SELECT * FROM b"}, 0)
	assert.Error(t, err)
}
