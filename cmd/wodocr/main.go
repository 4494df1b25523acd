package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/wodocr/internal/catalog"
	"github.com/claude/wodocr/internal/config"
	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/matcher"
	"github.com/claude/wodocr/internal/mcp"
	"github.com/claude/wodocr/internal/ocr"
	"github.com/claude/wodocr/internal/server"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	syncOnly := flag.Bool("sync-only", false, "refresh the catalog cache and exit")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := cfg.Log.NewLogger(os.Stdout)
	log.Info("wodocr starting", "version", Version)

	ctx := context.Background()

	// Catalog: source, on-disk cache, in-memory store
	src, closeSrc, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		log.Error("failed to open catalog source", "source", cfg.Catalog.Source, "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	cache, err := catalog.OpenCache(cfg.Catalog.CacheDir)
	if err != nil {
		log.Error("failed to open catalog cache", "dir", cfg.Catalog.CacheDir, "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	store := catalog.NewStore(src, cache, log)
	if err := store.Restore(ctx); err != nil {
		log.Warn("catalog cache restore failed", "error", err)
	}
	if _, err := store.Refresh(ctx); err != nil {
		if *syncOnly || store.Len() == 0 {
			log.Error("catalog refresh failed", "error", err)
			os.Exit(1)
		}
		log.Warn("catalog refresh failed, serving cached catalog", "error", err, "movements", store.Len())
	}

	if *syncOnly {
		log.Info("sync-only: exiting", "movements", store.Len())
		return
	}

	refresher, err := catalog.NewRefresher(store, cfg.Catalog.Refresh, log)
	if err != nil {
		log.Error("invalid catalog refresh schedule", "error", err)
		os.Exit(1)
	}
	refresher.Start()
	defer refresher.Stop()

	// Matcher and pipeline
	aliases, err := matcher.LoadAliases(cfg.Matcher.AliasesFile)
	if err != nil {
		log.Error("failed to load aliases", "error", err)
		os.Exit(1)
	}
	m := matcher.New(aliases, cfg.Matcher.Threshold)

	var recognizer ingest.Recognizer
	if cfg.OCR.URL != "" {
		recognizer = ocr.NewClient(cfg.OCR.URL, cfg.OCR.APIKey, cfg.OCR.RateLimit, cfg.OCR.Timeout)
		log.Info("ocr enabled", "url", cfg.OCR.URL, "rate_limit", cfg.OCR.RateLimit)
	} else {
		log.Info("ocr disabled (no ocr.url)")
	}
	provider := ingest.NewProvider(store, m, recognizer, log)

	// Create server
	srv := server.New(provider, store, cfg.Auth.APIKey, log)
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcp.New(provider, store, Version, log)))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
