package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"persona/internal/config"
	"persona/internal/logging"
)

var (
	workspace string
	debug     bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "persona - a character agent that synthesizes its own tools",
	Long: `persona is a conversational character agent with a dynamic capability
registry. When a conversation needs a tool that does not exist yet, the
agent generates one, validates it, hot-loads it, and registers it for
every later turn. Deleted capabilities stay deleted: their names are
retired permanently and replacements get fresh names.

Run 'persona serve' to start the HTTP API, or 'persona chat' for an
interactive terminal session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(workspace)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Logging.DebugMode = cfg.Logging.DebugMode || debug
		if err := logging.Initialize(workspace, cfg.Logging.DebugMode); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory holding the .persona state")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(capabilitiesCmd)
}

// shutdownContext returns a context cancelled on SIGINT/SIGTERM.
func shutdownContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx, cancel
}

func gracePeriod() time.Duration { return 10 * time.Second }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
