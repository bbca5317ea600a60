// Command contact-server serves the contact form API: token issue,
// submission defense checks and mail dispatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/infra/buildinfo"
	"github.com/testwebinoue-debug/sept3/internal/infra/confloader"
	"github.com/testwebinoue-debug/sept3/internal/infra/shutdown"
	"github.com/testwebinoue-debug/sept3/internal/server/config"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
)

// shutdownTimeout bounds the drain of in-flight requests and the
// closing of the stores.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		envFile     = flag.String("env-file", ".env", "Path to a .env file read before the environment")
		addr        = flag.String("addr", "", "Listen address, overrides server.http.addr")
		logLevel    = flag.String("log-level", "", "Log level, overrides log.level")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	overrides := map[string]any{
		"server.http.addr": *addr,
		"log.level":        *logLevel,
	}

	if *showVersion {
		fmt.Println("contact-server " + buildinfo.String())
		return nil
	}

	cfg, err := config.LoadWithOverrides(*configFile, overrides, *envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting contact-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"storage", cfg.Storage.Backend)
	log.Debug("effective configuration", "config", config.Flatten(config.Sanitize(cfg)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}

	sh := shutdown.NewHandler(shutdownTimeout, log)

	// Hooks run in reverse: HTTP drains first, then the stores close.
	sh.OnShutdown("session store", func(context.Context) error { return app.store.Close() })
	sh.OnShutdown("log files", func(context.Context) error { return app.events.Close() })
	sh.OnShutdown("background tasks", func(context.Context) error {
		cancel()
		return nil
	})
	sh.OnShutdown("http server", app.server.Shutdown)

	reload := func() { reloadConfig(*configFile, *envFile, overrides, log) }
	sh.OnReload(reload)
	if *configFile != "" {
		if w, err := watchConfig(*configFile, reload, log); err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			sh.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
		}
	}

	go pruneLoop(ctx, cfg.Log, log)
	if app.certs != nil {
		go func() {
			if err := app.certs.Run(ctx); err != nil {
				log.Error("certificate watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", app.server.TLSEnabled())
		if err := app.server.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Trigger()
		}
	}()

	if err := sh.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// reloadConfig re-reads the configuration and applies the settings that
// can change at runtime. Only the log level is live; everything else
// needs a restart. Flag overrides keep winning.
func reloadConfig(path, envFile string, overrides map[string]any, log *slog.Logger) {
	cfg, err := config.LoadWithOverrides(path, overrides, envFile)
	if err == nil {
		err = config.Verify(cfg)
	}
	if err != nil {
		log.Error("config reload rejected", "error", err)
		return
	}

	prev := logger.GetLevel()
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Error("config reload rejected", "error", err)
		return
	}
	if prev != logger.GetLevel() {
		log.Info("log level changed", "from", prev, "to", logger.GetLevel())
	}
}

func watchConfig(path string, reload func(), log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(func(string) { reload() })
	w.StartAsync()
	return w, nil
}

// pruneLoop removes expired monthly log files at startup and then daily.
func pruneLoop(ctx context.Context, cfg config.LogSection, log *slog.Logger) {
	if cfg.RetentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if removed, err := pruneLogs(cfg, time.Now()); err != nil {
			log.Warn("log prune failed", "error", err)
		} else if len(removed) > 0 {
			log.Info("expired log files removed", "files", removed)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
