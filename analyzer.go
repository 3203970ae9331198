package sqlaccess

import (
	"context"
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tsfans/sql-access/access"
	"github.com/tsfans/sql-access/audit"
	"github.com/tsfans/sql-access/metrics"
	"github.com/tsfans/sql-access/parser"
)

// 单条SQL文本的分析结果，解析失败时Error非空且Tables为空
type Report struct {
	SQL        string               `json:"sql" yaml:"sql"`
	Statements int                  `json:"statements" yaml:"statements"`
	Tables     []access.TableAccess `json:"tables" yaml:"tables"`
	Error      string               `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r Report) Info() access.TableAccessInfo {
	return access.TableAccessInfo{Tables: r.Tables}
}

type Option func(*Analyzer)

func WithParser(p parser.Parser) Option {
	return func(a *Analyzer) { a.parser = p }
}

func WithMetrics(c metrics.Collector) Option {
	return func(a *Analyzer) { a.metrics = c }
}

// 每次成功解析后保存审计记录
func WithStore(s audit.Store) Option {
	return func(a *Analyzer) { a.store = s }
}

type Analyzer struct {
	parser  parser.Parser
	metrics metrics.Collector
	store   audit.Store
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:  defaultParser,
		metrics: metrics.NewNoOpCollector(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Store() audit.Store {
	return a.store
}

// 解析失败不返回错误，只记录在Report.Error中；error仅来自上下文取消或审计保存失败
func (a *Analyzer) Analyze(ctx context.Context, sql string) (report Report, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	timer := a.metrics.StartTimer(metrics.AnalyzeSeconds)
	defer timer.Stop()

	report = Report{SQL: sql, Tables: []access.TableAccess{}}
	stmts, parseErr := a.parser.Parse(sql)
	if parseErr != nil {
		a.metrics.IncrementCounter(metrics.ParseFailuresTotal)
		log.Debugf("analyze sql failed,err=[%v],sql=[%v]", parseErr, sql)
		report.Error = parseErr.Error()
		return
	}

	report.Statements = len(stmts)
	for _, stmt := range stmts {
		a.metrics.IncrementCounter(metrics.StatementsTotal, "kind", stmt.Kind.String())
	}

	report.Tables = access.Extract(stmts).Tables
	for _, table := range report.Tables {
		a.metrics.IncrementCounter(metrics.TablesTotal, "access", table.Access.String())
	}

	if a.store != nil {
		record := audit.NewRecord(sql, report.Statements, report.Tables)
		if err = a.store.Save(ctx, record); err != nil {
			err = fmt.Errorf("save audit record failed,err=[%w]", err)
		}
	}

	return
}

// 并发分析多条SQL文本，结果与输入顺序一致；workers<=0时使用GOMAXPROCS
func (a *Analyzer) AnalyzeAll(ctx context.Context, sqls []string, workers int) ([]Report, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	reports := make([]Report, len(sqls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, sql := range sqls {
		g.Go(func() error {
			report, err := a.Analyze(gctx, sql)
			if err != nil {
				return err
			}
			reports[idx] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
