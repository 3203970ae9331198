package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	sqlaccess "github.com/tsfans/sql-access"
	"github.com/tsfans/sql-access/access"
	"github.com/tsfans/sql-access/cmd/sqlaccess/config"
)

var (
	headerFmt = color.New(color.FgBlue, color.Bold).SprintFunc()
	sqlFmt    = color.New(color.FgCyan).SprintfFunc()
	readFmt   = color.New(color.FgGreen).SprintFunc()
	writeFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorFmt  = color.New(color.FgRed).SprintfFunc()
)

// Formatter writes analysis reports
type Formatter struct {
	Format string
}

func NewFormatter(format string) *Formatter {
	return &Formatter{Format: format}
}

func (f *Formatter) Write(w io.Writer, reports []sqlaccess.Report) error {
	switch f.Format {
	case config.OutputJSON:
		return f.writeJSON(w, reports)
	case config.OutputYAML:
		return f.writeYAML(w, reports)
	case config.OutputTable:
		return f.writeTable(w, reports)
	default:
		return fmt.Errorf("unsupported output format: %s", f.Format)
	}
}

// A single report prints exactly the access JSON document.
func (f *Formatter) writeJSON(w io.Writer, reports []sqlaccess.Report) error {
	if len(reports) == 1 && reports[0].Error == "" {
		_, err := fmt.Fprintln(w, reports[0].Info().JSON())
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reports)
}

func (f *Formatter) writeYAML(w io.Writer, reports []sqlaccess.Report) error {
	docs := make([]yaml.MapSlice, 0, len(reports))
	for _, report := range reports {
		tables := make([]yaml.MapSlice, 0, len(report.Tables))
		for _, table := range report.Tables {
			tables = append(tables, yaml.MapSlice{
				{Key: "name", Value: table.Name},
				{Key: "access", Value: table.Access.String()},
			})
		}
		doc := yaml.MapSlice{
			{Key: "sql", Value: report.SQL},
			{Key: "statements", Value: report.Statements},
			{Key: "tables", Value: tables},
		}
		if report.Error != "" {
			doc = append(doc, yaml.MapItem{Key: "error", Value: report.Error})
		}
		docs = append(docs, doc)
	}

	data, err := yaml.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal reports to YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func (f *Formatter) writeTable(w io.Writer, reports []sqlaccess.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, report := range reports {
		if len(reports) > 1 {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintln(tw, sqlFmt("-- %s", report.SQL))
		}
		if report.Error != "" {
			fmt.Fprintln(tw, errorFmt("error: %s", report.Error))
			continue
		}
		if len(report.Tables) == 0 {
			fmt.Fprintln(tw, "No tables")
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", headerFmt("TABLE"), headerFmt("ACCESS"))
		for _, table := range report.Tables {
			fmt.Fprintf(tw, "%s\t%s\n", table.Name, accessFmt(table.Access))
		}
	}
	return tw.Flush()
}

func accessFmt(t access.AccessType) string {
	if t == access.Write {
		return writeFmt(t.String())
	}
	return readFmt(t.String())
}

func writeJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
