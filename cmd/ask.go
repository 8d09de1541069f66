package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/channel"
	"github.com/linanwx/echochat/dispatch"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/selection"
	"github.com/linanwx/echochat/termmd"
)

var (
	askMessage   string
	askProviders []string
	askStream    bool
	askReasoning bool
	askNoTokens  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Send one message and print the replies",
	Long: `Send a single message to the selected providers and print each reply.

--provider overrides the configured selection and may be repeated or comma
separated. --stream and --reasoning override the config for this call only.

Examples:
  echochat ask -m "hello"
  echochat ask -m "hello" --provider groq=llama-3.1-8b-instant,gemini=gemini-1.5-flash
  echochat ask -m "why is the sky blue" --stream --reasoning`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askMessage, "message", "m", "", "Message to send (required)")
	askCmd.Flags().StringArrayVarP(&askProviders, "provider", "p", nil, "provider=model, repeatable")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "Stream replies as they arrive")
	askCmd.Flags().BoolVar(&askReasoning, "reasoning", false, "Ask for the reasoning trace")
	askCmd.Flags().BoolVar(&askNoTokens, "no-tokens", false, "Hide per-reply token counts")
	_ = askCmd.MarkFlagRequired("message")
}

func runAsk(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(askMessage) == "" {
		return errors.New("message is empty")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	sel := cfg.Selection()
	if len(askProviders) > 0 {
		sel = selection.Resolve(selection.ParsePairs(askProviders))
	}
	if sel.Empty() {
		return errors.New("no providers selected; pass --provider or run 'echochat select'")
	}
	streaming := cfg.StreamEnabled()
	if cmd.Flags().Changed("stream") {
		streaming = askStream
	}
	reasoning := cfg.Stream.Reasoning
	if cmd.Flags().Changed("reasoning") {
		reasoning = askReasoning
	}

	printer := channel.NewPrinter(cmd.OutOrStdout(), termmd.DefaultStyles())
	printer.SetSelection(sel)
	printer.ShowTokens(!askNoTokens)
	panels := panel.NewReconciler(printer)
	ctrl := dispatch.NewController(c, panels, dispatch.Options{
		StreamIdleTimeout: cfg.StreamIdleTimeout(),
	})

	ctx, stop := signal.NotifyContext(baseContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = ctrl.Send(ctx, dispatch.Request{
		Message:   askMessage,
		Selection: sel,
		Streaming: streaming,
		Reasoning: reasoning,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	return nil
}
