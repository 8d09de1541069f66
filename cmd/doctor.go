package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/linanwx/echochat/config"
	"github.com/linanwx/echochat/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report config and backend status",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	path, _ := config.ConfigPath()

	snap := health.Collect(health.Options{
		ConfigPath: path,
		BaseURL:    cfg.BaseURL(),
		Push:       cfg.Server.Push,
		Selection:  cfg.Selection().String(),
	})
	out, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
