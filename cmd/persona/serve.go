package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"persona/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the REST API exposing chat turns, capability inspection and
deletion, conversation history, and character listing. The server runs
until interrupted and drains in-flight requests on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := shutdownContext()
		defer cancel()

		rt, err := buildRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		srv := server.New(server.Config{
			Addr:          cfg.Server.Addr,
			Registry:      rt.registry,
			Pipeline:      rt.pipeline,
			Conversations: rt.conversations,
			Characters:    rt.characters,
			NewAgent:      rt.agentFor,
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod())
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}
