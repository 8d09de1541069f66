package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/channel"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive client",
	Long: `Start the interactive client. On a terminal this opens one column per
selected provider; otherwise each input line is sent as a message and the
replies are printed.

Type /help inside the client for commands.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ch, err := channel.NewCLIChannel(channel.Options{
		Transport: c,
		Config:    cfg,
		Selection: cfg.Selection(),
		Streaming: cfg.StreamEnabled(),
		Reasoning: cfg.Stream.Reasoning,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(baseContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return ch.Run(ctx)
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
