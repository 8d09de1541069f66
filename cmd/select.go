package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/channel/tui"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Choose providers and models",
	Long: `Pick a model, or none, for every provider in the catalog. The choice
is saved to config.yaml and used by chat, ask and clear.`,
	RunE: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	form := tui.NewSelectionForm(cfg.Catalog, cfg.Selection())
	if err := form.Form.Run(); err != nil {
		return err
	}

	sel := form.Selection()
	cfg.SetSelection(sel)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	out := cmd.OutOrStdout()
	if sel.Empty() {
		fmt.Fprintln(out, "Selection cleared.")
		return nil
	}
	fmt.Fprintln(out, "Selection saved:", sel)
	return nil
}
