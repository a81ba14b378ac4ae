package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"zenbank/internal/backend"
	"zenbank/internal/cli"
	"zenbank/internal/config"
	"zenbank/internal/log"
)

// app is shared by every subcommand; it is filled in by the root
// PersistentPreRunE.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *log.Logger
	factory *backend.DefaultFactory

	backend *backend.BackendResult
}

// overridable lists the settings a config file or flag may set, keyed by
// their viper name. Environment variables use the upper-cased key.
func overridable(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"data_backend":          &cfg.DataBackend,
		"sqlite_db_path":        &cfg.SQLiteDBPath,
		"toml_accounts_path":    &cfg.TOMLAccountsPath,
		"redis_url":             &cfg.RedisURL,
		"suggest_provider":      &cfg.SuggestProvider,
		"suggest_model":         &cfg.SuggestModel,
		"gemini_api_key":        &cfg.GeminiAPIKey,
		"openai_api_key":        &cfg.OpenAIAPIKey,
		"openai_base_url":       &cfg.OpenAIBaseURL,
		"google_spreadsheet_id": &cfg.GoogleSpreadsheetID,
		"ledger_sheet_name":     &cfg.LedgerSheetName,
		"log_level":             &cfg.LogLevel,
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "zenbankctl",
		Short:         "Operate zenbank account stores",
		Long:          "zenbankctl lists and creates accounts, asks the suggestion engine for amounts, migrates the SQLite schema and manages the Sheets ledger mirror.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "optional config file (toml, yaml or json)")
	flags.String("backend", "", "account store: "+strings.Join(backend.GetBackendTypeStrings(), ", "))
	flags.String("db", "", "SQLite database path")
	flags.String("accounts-file", "", "TOML accounts file")
	flags.Bool("verbose", false, "log at the configured level instead of warnings only")
	_ = a.v.BindPFlag("config_file", flags.Lookup("config"))
	_ = a.v.BindPFlag("data_backend", flags.Lookup("backend"))
	_ = a.v.BindPFlag("sqlite_db_path", flags.Lookup("db"))
	_ = a.v.BindPFlag("toml_accounts_path", flags.Lookup("accounts-file"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		newAccountsCmd(a),
		newSuggestCmd(a),
		newMigrateCmd(a),
		newLedgerCmd(a),
	)
	return rootCmd
}

// load resolves configuration: flags win over environment, which wins over
// the config file, which wins over the built-in defaults.
func (a *app) load() error {
	cli.LoadEnvFile()
	if path := a.v.GetString("config_file"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := config.Load()
	for key, dst := range overridable(cfg) {
		if val := strings.TrimSpace(a.v.GetString(key)); val != "" {
			*dst = val
		}
	}
	cfg.SuggestProvider = strings.ToLower(cfg.SuggestProvider)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := log.ParseLevel("warn")
	if a.v.GetBool("verbose") {
		level = log.ParseLevel(cfg.LogLevel)
	}
	a.cfg = cfg
	a.logger = log.New(log.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	a.factory = backend.NewFactory(a.logger)
	return nil
}

// open connects the account store on first use. Commands never publish
// events, so AMQP stays off.
func (a *app) open(ctx context.Context) (backend.Backend, error) {
	if a.backend != nil {
		return a.backend.Backend, nil
	}
	backendCfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return backend.Backend{}, err
	}
	backendCfg.AMQPURL = ""

	result, err := a.factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return backend.Backend{}, err
	}
	a.backend = result
	return result.Backend, nil
}

func (a *app) close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	err := a.backend.Cleanup()
	a.backend = nil
	return err
}
