package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ferralda/mailsift/internal/app"
	"github.com/ferralda/mailsift/internal/config"
	logging "github.com/ferralda/mailsift/internal/logger"
)

var (
	configDir string
	configID  string
	logLevel  string
	logFormat string
	runOnce   bool
	logger    *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mailsift",
	Short: "Mailbox attachment retrieval and triage",
	Long: `mailsift connects to a mailbox over IMAP or POP3, filters messages by
sender, subject and date, extracts their attachments (including inline
images and externally linked files) and stores them with a CSV audit
report of every message examined.`,
	RunE: execute,
}

func init() {
	// Setup default logger until we load config
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cobra.OnInitialize(initConfig)

	// Command line flags
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default is ./config)")
	rootCmd.PersistentFlags().StringVar(&configID, "config-id", "", "specific config ID to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (text, json, dev)")
	rootCmd.PersistentFlags().BoolVar(&runOnce, "once", false, "run a single retrieval pass and exit")

	// Bind flags to viper
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	dir := resolveConfigDir()

	// Flags are parsed by now, rebuild the process logger from them
	if logLevel != "" || logFormat != "" {
		logger = logging.New(logLevel, logFormat, false)
		slog.SetDefault(logger)
	}

	config.InitLogger(logger)
	if err := config.LoadConfigs(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configs: %v\n", err)
		os.Exit(1)
	}

	configs := config.ListConfigs()
	if len(configs) == 0 {
		fmt.Fprintf(os.Stderr, "No configurations found in %s\n", dir)
		os.Exit(1)
	}

	logger.Info("loaded configurations",
		"count", len(configs),
		"enabled", len(config.GetEnabledConfigs()),
	)

	for _, cfg := range configs {
		logger.Info("configuration loaded",
			"id", cfg.Meta.ID,
			"name", cfg.Meta.Name,
			"enabled", cfg.Meta.Enabled,
		)
	}
}

func resolveConfigDir() string {
	if configDir != "" {
		return configDir
	}
	return "./config"
}

func execute(cmd *cobra.Command, args []string) error {
	application, err := app.New(logger, resolveConfigDir(), configID)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	if runOnce {
		return application.RunOnce(context.Background())
	}

	if err := application.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down application")
	return nil
}
