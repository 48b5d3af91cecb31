package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clarion/internal/logger"
	"clarion/internal/server"

	"github.com/spf13/cobra"
)

// newServeCmd creates the serve command for starting the HTTP server
func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP answer API",
		Long: `Start the clarion HTTP server.

The server provides:
  • GET  /api/search       first-pass search results
  • POST /api/answer       streamed, cited answers (server-sent events)
  • POST /api/events       interaction event intake
  • GET  /api/preferences  learned per-user preferences
  • Health check and status endpoints

Examples:
  # Start server on default port 3001
  clarion serve

  # Start on custom port
  clarion serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 3001)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(port int, host string) error {
	log := logger.Get()

	a, err := buildApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override server config from flags if provided
	serverCfg := a.cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	srv := server.New(a.pipeline, a.store, serverCfg, server.Info{
		SearchProvider: a.provider.GetName(),
		Model:          a.cfg.LLM.Model,
	})

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
