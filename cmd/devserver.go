package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linanwx/echochat/internal/echoserver"
)

var (
	devserverAddr       string
	devserverStructured bool
	devserverDelay      time.Duration
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local EchoChat backend that echoes messages",
	Long: `Run a local backend implementing /chat, /chat/ws and /clear_history.
Every provider replies with "<model> echoes: <message>", which is enough to
try the client without provider API keys.

Examples:
  echochat devserver
  echochat devserver --addr 127.0.0.1:8080 --delay 50ms
  echochat devserver --structured   # replies as {"model": ..., "content": ...}`,
	RunE: runDevserver,
}

func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", "127.0.0.1:5152", "Listen address")
	devserverCmd.Flags().BoolVar(&devserverStructured, "structured", false, "Send structured single-shot replies")
	devserverCmd.Flags().DurationVar(&devserverDelay, "delay", 30*time.Millisecond, "Delay between streamed chunks")
}

func runDevserver(cmd *cobra.Command, _ []string) error {
	srv := echoserver.New(echoserver.Options{
		Structured: devserverStructured,
		ChunkDelay: devserverDelay,
	})

	ctx, stop := signal.NotifyContext(baseContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "echo backend listening on http://%s\n", devserverAddr)
	return srv.ListenAndServe(ctx, devserverAddr)
}
