package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/channel"
	"github.com/linanwx/echochat/dispatch"
	"github.com/linanwx/echochat/panel"
	"github.com/linanwx/echochat/termmd"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear backend history for the selected providers",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sel := cfg.Selection()
	if sel.Empty() {
		return errors.New("no providers selected; run 'echochat select'")
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	printer := channel.NewPrinter(cmd.OutOrStdout(), termmd.Plain())
	ctrl := dispatch.NewController(c, panel.NewReconciler(printer), dispatch.Options{})
	return ctrl.ClearHistory(baseContext(cmd), sel)
}
