package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/assembler/internal/server"
)

// version reported by the health endpoint
const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for spritesheet assembly",
	Long: `Start an HTTP server that assembles uploaded tiles into spritesheets.

Tiles are posted as a multipart form with one "tiles" field per file. The
response body is the encoded spritesheet.

Examples:
  # Start server on default port 8080
  assembler serve

  # Start server on custom port
  assembler serve --port 3000

  # Assemble tiles with curl
  curl -F tiles=@a.png -F tiles=@b.png 'http://localhost:8080/api/v1/spritesheet?output=sheet.png' -o sheet.png`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().Int64("max-upload", server.DefaultMaxUpload, "largest accepted upload in bytes")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.max-upload", serveCmd.Flags().Lookup("max-upload"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	logger := loggerFromContext(cmd.Context())

	addr := fmt.Sprintf("%s:%d", bind, port)

	apiServer := server.NewServer(version, logger)
	apiServer.SetMaxUpload(viper.GetInt64("server.max-upload"))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "err", err)
		}
	}()

	logger.Info("starting spritesheet server", "addr", addr)
	logger.Infof("Health check: http://%s/api/v1/health", addr)
	logger.Infof("Spritesheet endpoint: http://%s/api/v1/spritesheet", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
