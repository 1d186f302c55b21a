package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/core"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
	"github.com/yekaditya11/Acma-Insights/pkg/postgres"
	pkgredis "github.com/yekaditya11/Acma-Insights/pkg/redis"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres postgres.Config
	Data     model.DataConfig
	Server   model.ServerConfig

	// LLM provider
	Provider      model.ProviderConfig
	IntentModel   model.IntentModelConfig
	ResponseModel model.ResponseModelConfig
	Retry         model.RetryConfig
	Timeouts      model.StageTimeouts

	// Agent configs
	Conversation model.ConversationConfig
	Workflow     model.WorkflowConfig
	Semantics    model.SemanticsConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg AppConfig

	root := &cobra.Command{
		Use:           "acma-insights",
		Short:         "Ask questions about supplier KPIs in plain language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfig(&cfg)
		},
	}
	root.AddCommand(
		newServeCmd(&cfg),
		newAskCmd(&cfg),
		newIntrospectCmd(&cfg),
	)
	return root
}

// loadConfig reads .env when present, then the environment.
func loadConfig(cfg *AppConfig) error {
	dotenvErr := godotenv.Load(".env")

	if err := envconfig.Process("", cfg); err != nil {
		logx.Init()
		logx.Error().Err(err).Msg("Failed to process environment config")
		return err
	}

	logx.Init(logx.LoggerOpts{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	if dotenvErr != nil {
		logx.Debug().Err(dotenvErr).Msg("Could not load .env file")
	}
	return nil
}
