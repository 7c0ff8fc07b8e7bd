package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/kalambet/pdfqa/internal/api"
	"github.com/kalambet/pdfqa/internal/backend"
	"github.com/kalambet/pdfqa/internal/config"
	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (or the MCP stdio server with --mcp)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpMode, _ := cmd.Flags().GetBool("mcp")
		host, _ := cmd.Flags().GetString("host")
		return runServer(mcpMode, host)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "serve MCP tools on stdin/stdout instead of HTTP")
	serveCmd.Flags().String("host", "127.0.0.1", "interface to listen on")
}

func runServer(mcpMode bool, host string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if backendName != "" {
		cfg.Backend.Default = backendName
	}
	setupLogging(cfg.Log.Level)
	fmt.Fprintf(os.Stderr, "pdfqa version %s\n", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	if err := engine.EnsureReady(ctx, eng, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			printWarning("closing storage: %v", err)
		}
	}()

	backends, err := backend.NewRegistry(cfg, eng, store.DB(), slog.Default())
	if err != nil {
		return err
	}
	slog.Info("backends ready", "available", backends.Names(), "default", backends.Default())

	if mcpMode {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Backends:        backends,
			DefaultLanguage: cfg.Answer.DefaultLanguage,
			Version:         version,
		})
		slog.Info("MCP server started (stdio transport)")
		if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	}

	return serveHTTP(ctx, cfg, host, backends, store)
}

func serveHTTP(ctx context.Context, cfg config.Config, host string, backends *backend.Registry, store *storage.Store) error {
	uploadDir := filepath.Join(cfg.Storage.DataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o700); err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}

	handler := api.NewHandler(api.Deps{
		Backends:        backends,
		Feedback:        store,
		DefaultLanguage: cfg.Answer.DefaultLanguage,
		Token:           cfg.Server.Token,
		UploadDir:       uploadDir,
		Logger:          slog.Default(),
	})

	addr := net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		printSuccess("pdfqa listening on %s", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
