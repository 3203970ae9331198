package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	sqlaccess "github.com/tsfans/sql-access"
	"github.com/tsfans/sql-access/audit"
	"github.com/tsfans/sql-access/cmd/sqlaccess/config"
	"github.com/tsfans/sql-access/metrics"
	"github.com/tsfans/sql-access/server"
)

// inlineSQLFlag is defined per command and read from the command's own flags.
const inlineSQLFlag = "sql"

func mustBind(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name == inlineSQLFlag {
			return
		}
		if err := v.BindPFlag(flag.Name, flag); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag.Name, err))
		}
	})
}

func (a *app) newAccessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access [files...]",
		Short: "Classify the tables read and written by SQL texts",
		Long: `Classify every table referenced by the given SQL texts as Read or Write.
Each file is one SQL text and may hold several statements. Without files
the text is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inline, _ := cmd.Flags().GetString(inlineSQLFlag)
			sqls, err := readInputs(cmd, args, inline)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), a.cfg.Audit)
			if err != nil {
				return err
			}
			defer closeStore()

			opts := []sqlaccess.Option{}
			if store != nil {
				opts = append(opts, sqlaccess.WithStore(store))
			}
			analyzer := sqlaccess.NewAnalyzer(opts...)

			reports, err := analyzer.AnalyzeAll(cmd.Context(), sqls, a.cfg.Workers)
			if err != nil {
				return err
			}
			return NewFormatter(a.cfg.Output).Write(cmd.OutOrStdout(), reports)
		},
	}

	cmd.Flags().StringP(inlineSQLFlag, "e", "", "SQL text to classify instead of files or stdin")
	cmd.Flags().StringP("output", "o", config.OutputJSON, "output format (json, yaml, table)")
	cmd.Flags().IntP("workers", "w", 0, "number of concurrent workers, 0 means one per CPU")
	return cmd
}

func (a *app) newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse SQL and print the serialized statement tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inline, _ := cmd.Flags().GetString(inlineSQLFlag)
			sqls, err := readInputs(cmd, args, inline)
			if err != nil {
				return err
			}
			result := sqlaccess.Parse(sqls[0])
			if err := writeJSONLine(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringP(inlineSQLFlag, "e", "", "SQL text to parse instead of a file or stdin")
	return cmd
}

func (a *app) newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format [file]",
		Short: "Render a serialized statement tree back to SQL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(cmd, args, "")
			if err != nil {
				return err
			}
			sql := sqlaccess.Format(inputs[0])
			if strings.HasPrefix(sql, "Error parsing AST JSON: ") {
				return errors.New(sql)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return err
		},
	}
}

func (a *app) newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check whether SQL parses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inline, _ := cmd.Flags().GetString(inlineSQLFlag)
			sqls, err := readInputs(cmd, args, inline)
			if err != nil {
				return err
			}
			message, ok := sqlaccess.ErrorMessage(sqls[0])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("valid"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.RedString("invalid: %s", message))
			return errors.New("sql is invalid")
		},
	}
	cmd.Flags().StringP(inlineSQLFlag, "e", "", "SQL text to validate instead of a file or stdin")
	return cmd
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sqlaccess version %s\n", sqlaccess.Version())
		},
	}
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP classification service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, a.cfg.Audit)
			if err != nil {
				return err
			}
			defer closeStore()

			var (
				analyzerOpts []sqlaccess.Option
				serverOpts   []server.Option
			)
			if store != nil {
				analyzerOpts = append(analyzerOpts, sqlaccess.WithStore(store))
			}
			if a.cfg.Server.Metrics {
				collector := metrics.NewPrometheusCollector()
				analyzerOpts = append(analyzerOpts, sqlaccess.WithMetrics(collector))
				serverOpts = append(serverOpts,
					server.WithCollector(collector),
					server.WithMetricsHandler(collector.Handler()))
			}

			srv := server.New(sqlaccess.NewAnalyzer(analyzerOpts...), serverOpts...)
			log.WithFields(log.Fields{
				"address": a.cfg.Server.Address,
				"audit":   a.cfg.Audit.Backend,
				"metrics": a.cfg.Server.Metrics,
			}).Info("starting sqlaccess server")
			return srv.ListenAndServe(ctx, a.cfg.Server.Address, a.cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().String("address", ":8080", "listen address")
	cmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	cmd.Flags().Bool("metrics", true, "expose Prometheus metrics on /metrics")
	return cmd
}

// openStore returns a nil store for the none backend.
func openStore(ctx context.Context, cfg config.AuditConfig) (audit.Store, func(), error) {
	switch cfg.Backend {
	case config.AuditMemory:
		return audit.NewMemoryStore(), func() {}, nil
	case config.AuditMongo:
		store, err := audit.ConnectMongoStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				log.WithError(err).Warn("failed to close audit store")
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}

// readInputs returns the inline text, the content of each file, or stdin.
func readInputs(cmd *cobra.Command, files []string, inline string) ([]string, error) {
	if inline != "" {
		return []string{inline}, nil
	}
	if len(files) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []string{string(data)}, nil
	}
	inputs := make([]string, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		inputs = append(inputs, string(data))
	}
	return inputs, nil
}
