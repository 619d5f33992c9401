package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/app"
	"github.com/yndnr/sessbox-go/internal/config"
	"github.com/yndnr/sessbox-go/internal/infra/buildinfo"
	"github.com/yndnr/sessbox-go/internal/infra/confloader"
	"github.com/yndnr/sessbox-go/internal/infra/shutdown"
	"github.com/yndnr/sessbox-go/internal/server/httpserver"
	"github.com/yndnr/sessbox-go/internal/server/httpserver/handler"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

const program = "sessbox-agent"

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	err := newApp().RunContext(ctx, os.Args)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    program,
		Usage:   "Keep the local session store in sync with the server",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (default: " + config.DefaultConfigFile() + ")",
				EnvVars: []string{"SESSBOX_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "Remote server URL, overrides remote.base_url",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Local data directory, overrides storage.data_dir",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address, overrides agent.metrics_addr",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level, overrides log.level",
			},
		},
		Action: run,
	}
}

// overrides maps set flags to configuration keys.
func overrides(c *cli.Context) map[string]any {
	m := map[string]any{}
	for flag, key := range map[string]string{
		"remote":    "remote.base_url",
		"data-dir":  "storage.data_dir",
		"listen":    "agent.metrics_addr",
		"log-level": "log.level",
	} {
		if c.IsSet(flag) {
			m[key] = c.String(flag)
		}
	}
	return m
}

func run(c *cli.Context) error {
	configFile := c.String("config")
	flagOverrides := overrides(c)

	cfg, err := config.Load(configFile, flagOverrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting "+program,
		"version", buildinfo.Get().Version,
		"config", configFile,
		"remote", cfg.Remote.BaseURL,
		"storage", cfg.Storage.Engine)

	reg := metric.NewRegistry()
	a, err := app.New(c.Context, cfg,
		app.WithLogger(log),
		app.WithMetrics(reg),
		app.WithProgram(program))
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	// Hooks run in reverse order of registration.
	sh := shutdown.NewHandler(cfg.Agent.ShutdownTimeout, shutdown.WithLogger(log))
	sh.OnShutdown("store", func(context.Context) error {
		return a.Close()
	})

	workCtx, cancelWork := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if a.Prober != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Prober.Run(workCtx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Engine.Run(workCtx); err != nil {
			log.Error("sync engine stopped", "error", err)
		}
	}()
	sh.OnShutdown("sync", func(ctx context.Context) error {
		cancelWork()
		return waitGroup(ctx, &wg)
	})

	if addr := cfg.Agent.MetricsAddr; addr != "" {
		if err := serveHTTP(sh, a, reg, addr, log); err != nil {
			_ = sh.Shutdown()
			return err
		}
	}

	if path := watchedConfigFile(configFile); path != "" {
		if err := watchConfig(sh, path, configFile, flagOverrides, log); err != nil {
			log.Warn("config hot reload disabled", "path", path, "error", err)
		}
	}

	return sh.Wait(c.Context)
}

func serveHTTP(sh *shutdown.Handler, a *app.App, reg *metric.Registry, addr string, log logger.Logger) error {
	remote := ""
	if a.Client != nil {
		remote = a.Client.BaseURL()
	}
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler: handler.Config{
			Engine:   a.Engine,
			Remote:   remote,
			Sessions: a.Cache.Len,
		},
		Metrics: reg,
		Logger:  log,
	})

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := httpserver.New(l.Addr().String(), router)
	go func() {
		log.Info("HTTP server listening", "addr", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()
	sh.OnShutdown("http", srv.Shutdown)
	return nil
}

// watchedConfigFile returns the configuration file to watch, or "" when
// none exists.
func watchedConfigFile(configFile string) string {
	path := configFile
	if path == "" {
		path = config.DefaultConfigFile()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

// watchConfig applies log.level from the configuration file whenever it
// changes. Other settings need a restart.
func watchConfig(sh *shutdown.Handler, path, configFile string, flagOverrides map[string]any, log logger.Logger) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(configFile, flagOverrides)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	sh.OnShutdown("config-watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}

// waitGroup waits for wg or ctx, whichever is first.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
