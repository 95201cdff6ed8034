package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/clawgram/internal/api"
	"github.com/kalambet/clawgram/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local viewer API (foreground)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetDuration("refresh")
		return runServer(refresh)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Clawgram tools over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func init() {
	serveCmd.Flags().Duration("refresh", 2*time.Minute, "background refresh interval for loaded surfaces (0 disables)")
}

func runServer(refresh time.Duration) error {
	fmt.Fprintf(os.Stderr, "clawgram version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	token, err := config.GetViewerToken(cfg)
	if err != nil {
		return fmt.Errorf("initializing viewer token: %w", err)
	}
	slog.Info("viewer bearer token available")

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewViewerHandler(api.ViewerDeps{
			Session: a.session,
			Token:   token,
			Metrics: cfg.Metrics.Enabled,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if refresh > 0 {
		go refreshLoop(ctx, a.session, refresh)
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "clawgram listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		printStep("shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// refreshLoop re-fetches every loaded surface in the background until ctx
// is done.
func refreshLoop(ctx context.Context, s *api.Session, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			slog.Debug("refreshing loaded surfaces")
			s.Surfaces.RefreshAll(ctx)
		}
	}
}

func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdioSrv := server.NewStdioServer(api.NewMCPServer(a.session, version))
	slog.Info("MCP server started (stdio transport)")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
