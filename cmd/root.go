// Package cmd implements the echochat command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/client"
	"github.com/linanwx/echochat/config"
	"github.com/linanwx/echochat/logger"
)

var configDirFlag string

var rootCmd = &cobra.Command{
	Use:   "echochat",
	Short: "Chat with several LLM providers side by side",
	Long: `echochat sends one message to several providers at once through an
EchoChat backend and shows the replies next to each other.

Run without a subcommand to start the interactive client.

Examples:
  echochat                                   # Interactive client
  echochat ask -m "hello" --provider groq=llama-3.1-8b-instant
  echochat select                            # Choose providers and models
  echochat devserver                         # Local echo backend`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Config directory (default ~/.echochat)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup applies --config-dir and initializes logging.
func setup(_ *cobra.Command, _ []string) error {
	if configDirFlag != "" {
		config.SetConfigDir(configDirFlag)
	}
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	dir, _ := config.ConfigDir()
	if err := logger.Init(cfg.BuildLoggerConfig(), dir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'echochat onboard' to initialize", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*client.Client, error) {
	c, err := client.New(cfg.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}
