package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/api"
	"github.com/dgallion1/docnav/internal/library"
	"github.com/dgallion1/docnav/internal/mcpserver"
	"github.com/dgallion1/docnav/internal/pipeline"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.ValidateServer(); err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + a.cfg.Server.Port
			}
			return runServer(cmd.Context(), a, addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (default is :<server.port>)")
	return serve
}

func runServer(parent context.Context, a *app, addr string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.connect(ctx); err != nil {
		return err
	}

	lib := library.New(a.metrics, a.log)
	defer lib.Close()
	preload(ctx, a, lib)

	orch := pipeline.NewOrchestrator(a.cfg.Pipeline, lib, a.ingest, a.metrics, a.log)
	orch.Start(ctx)

	srv := api.NewServer(api.Deps{
		Library:      lib,
		Orchestrator: orch,
		Engine:       a.engine,
		LLM:          a.llm,
		Metrics:      a.metrics,
	}, a.log, a.cfg)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting docnav", "addr", addr, "documents", lib.Len(), "model", a.llm.Model())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		orch.Stop()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down...")
	orch.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func mcpCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [source...]",
		Short: "Serve the document tools over MCP on stdin/stdout",
		Long: "Serve list_documents, document_outline, search_sections and query_document " +
			"over the Model Context Protocol. Documents come from ingest.documents_dir " +
			"plus any files or URLs given as arguments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol.
			a, err := newApp(*cfgPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := a.connect(ctx); err != nil {
				return err
			}

			lib := library.New(a.metrics, a.log)
			defer lib.Close()
			preload(ctx, a, lib)
			for _, src := range args {
				if _, err := lib.Load(ctx, src, a.ingest); err != nil {
					return err
				}
			}

			server := mcpserver.NewServer(mcpserver.NewTools(lib, a.engine, a.log), version)
			a.log.Info("serving MCP over stdio", "documents", lib.Len())
			return mcpserver.Run(ctx, server)
		},
	}
}

// preload registers the configured documents directory. Files that fail to
// load are logged and skipped.
func preload(ctx context.Context, a *app, lib *library.Library) {
	dir := a.cfg.Ingest.DocumentsDir
	if dir == "" {
		return
	}
	n, err := lib.LoadDir(ctx, dir, a.ingest)
	if err != nil {
		a.log.Warn("some documents failed to load", "dir", dir, "error", err)
	}
	a.log.Info("documents loaded", "dir", dir, "count", n)
}
