// Package main provides the sqlaccess command line tool.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsfans/sql-access/cmd/sqlaccess/config"
)

type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "sqlaccess",
		Short: "Report which tables a SQL text reads and writes",
		Long: `sqlaccess parses MySQL statements and reports, per table, whether the
statements read it or write it. Nothing is executed.

Example:
  sqlaccess access -e "INSERT INTO a SELECT * FROM b"
  sqlaccess access --output table queries/*.sql
  sqlaccess serve --address :8080 --audit-backend memory`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return setupLogging(cfg, cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("audit-backend", config.AuditNone, "audit store backend (none, memory, mongo)")
	flags.String("mongo-uri", "", "MongoDB connection uri for the mongo audit backend")
	flags.String("mongo-database", "sqlaccess", "MongoDB database for audit records")
	flags.String("mongo-collection", "access_records", "MongoDB collection for audit records")

	rootCmd.AddCommand(
		a.newAccessCmd(),
		a.newParseCmd(),
		a.newFormatCmd(),
		a.newValidateCmd(),
		a.newVersionCmd(),
		a.newServeCmd(),
	)

	// Bind flags to viper
	mustBind(a.v, flags)
	for _, sub := range rootCmd.Commands() {
		mustBind(a.v, sub.Flags())
	}
	a.v.SetEnvPrefix("SQLACCESS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) loadConfig() (*config.Config, error) {
	// Load config file if specified
	if configFile := a.v.GetString("config"); configFile != "" {
		a.v.SetConfigFile(configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &config.Config{
		LogLevel:  a.v.GetString("log-level"),
		LogFormat: a.v.GetString("log-format"),
		Output:    a.v.GetString("output"),
		Workers:   a.v.GetInt("workers"),
		Server: config.ServerConfig{
			Address:         a.v.GetString("address"),
			ShutdownTimeout: a.v.GetDuration("shutdown-timeout"),
			Metrics:         a.v.GetBool("metrics"),
		},
		Audit: config.AuditConfig{
			Backend:    a.v.GetString("audit-backend"),
			MongoURI:   a.v.GetString("mongo-uri"),
			Database:   a.v.GetString("mongo-database"),
			Collection: a.v.GetString("mongo-collection"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, out io.Writer) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(out)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
