package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/channel/tui"
	"github.com/linanwx/echochat/client"
	"github.com/linanwx/echochat/config"
)

var onboardYes bool

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize echochat configuration",
	Long:  `Create the echochat configuration directory and default config file.`,
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
	onboardCmd.Flags().BoolVarP(&onboardYes, "yes", "y", false, "Write the defaults without asking")
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if config.Exists() {
		fmt.Fprintln(out, "Config already exists at:", configPath)
		fmt.Fprintln(out, "To reconfigure, edit the file directly or delete it first.")
		return nil
	}

	cfg := config.DefaultConfig()

	if !onboardYes {
		// Step 1: backend
		baseURL := cfg.Server.BaseURL
		push := cfg.Server.Push
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("EchoChat backend URL").
					Description("The server that fans messages out to the providers.").
					Validate(func(s string) error {
						if _, err := client.New(client.Config{BaseURL: s}); err != nil {
							return fmt.Errorf("enter an http or https URL")
						}
						return nil
					}).
					Value(&baseURL),
				huh.NewSelect[string]().
					Title("Streaming push channel").
					Options(
						huh.NewOption("Server-sent events", string(client.PushSSE)),
						huh.NewOption("WebSocket", string(client.PushWebSocket)),
					).
					Value(&push),
			),
		).Run()
		if err != nil {
			return err
		}
		cfg.Server.BaseURL = strings.TrimSpace(baseURL)
		cfg.Server.Push = push

		// Step 2: providers
		form := tui.NewSelectionForm(cfg.Catalog, cfg.Selection())
		if err := form.Form.Run(); err != nil {
			return err
		}
		cfg.SetSelection(form.Selection())
	}

	configDir, _ := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "echochat initialized successfully!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Config:", configPath)
	fmt.Fprintln(out, "  Server:", cfg.Server.BaseURL)
	fmt.Fprintln(out, "  Selection:", cfg.Selection())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'echochat' to start.")
	return nil
}
