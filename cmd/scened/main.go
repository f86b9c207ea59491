package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/scenegraph/internal/api"
	"github.com/gyaneshwarpardhi/scenegraph/internal/config"
	"github.com/gyaneshwarpardhi/scenegraph/internal/engine"
	"github.com/gyaneshwarpardhi/scenegraph/internal/scene"
	"github.com/gyaneshwarpardhi/scenegraph/internal/sceneio"
)

func main() {
	cfgPath := flag.String("config", "configs/scene.yaml", "Path to scene config YAML")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	sceneFile := flag.String("scene", "", "Scene document to import at startup (overrides scene.file)")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	var level slog.LevelVar
	logger := slog.New(cfg.Log.NewHandler(os.Stdout, &level))
	slog.SetDefault(logger)

	// ── Scene ────────────────────────────────────────────────────────────────
	sc := scene.New(cfg.Scene.Undo, logger)
	if err := sc.Bootstrap(cfg.Scene); err != nil {
		slog.Error("scene bootstrap failed", "err", err)
		os.Exit(1)
	}
	file := cfg.Scene.File
	if *sceneFile != "" {
		file = *sceneFile
	}
	if file != "" {
		if err := importFile(sc, file); err != nil {
			slog.Error("startup import failed", "file", file, "err", err)
			os.Exit(1)
		}
	}

	// ── Engine ───────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, sc, cfg.Server, logger)

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		level.Set(newCfg.Log.SlogLevel())
		eng.SetTimeout(time.Duration(newCfg.Server.OpTimeoutMs) * time.Millisecond)
		_, err := eng.Do(context.Background(), "apply config", func(s *scene.Scene) (any, error) {
			s.ApplyUndoConfig(newCfg.Scene.Undo)
			return nil, nil
		})
		if err != nil {
			slog.Warn("hot-reload: undo settings not applied", "err", err)
			return
		}
		slog.Info("config hot-reloaded",
			"log_level", newCfg.Log.Level,
			"undo_disabled", newCfg.Scene.Undo.Disabled,
			"undo_max_depth", newCfg.Scene.Undo.MaxDepth)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	listen := cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      api.New(eng, loader, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", listen, "nodes", sc.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
}

func importFile(sc *scene.Scene, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	res, err := sc.Import(f, sceneio.NewCodec(sc.Registry()))
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	slog.Info("scene file loaded", "file", path, "added", res.Added, "renamed", res.Renamed)
	return nil
}
