package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/syntrixbase/viewcache/internal/config"
	"github.com/syntrixbase/viewcache/internal/events"
	evmemory "github.com/syntrixbase/viewcache/internal/events/memory"
	evnats "github.com/syntrixbase/viewcache/internal/events/nats"
	"github.com/syntrixbase/viewcache/internal/events/ws"
	"github.com/syntrixbase/viewcache/internal/logging"
	"github.com/syntrixbase/viewcache/internal/persist"
	pmemory "github.com/syntrixbase/viewcache/internal/persist/memory"
	pmongo "github.com/syntrixbase/viewcache/internal/persist/mongo"
	"github.com/syntrixbase/viewcache/internal/persist/natskv"
	"github.com/syntrixbase/viewcache/internal/source"
	"github.com/syntrixbase/viewcache/internal/viewport"
	"github.com/syntrixbase/viewcache/pkg/model"
)

func main() {
	cfg := config.LoadConfig()

	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logging.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(ctx, cancel, sigCh, cfg); err != nil {
		slog.Error("viewcache failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, sigCh chan os.Signal, cfg *config.Config) error {
	mirror, err := buildMirror(ctx, cfg.Persist)
	if err != nil {
		return fmt.Errorf("persist backend: %w", err)
	}
	defer mirror.Close()

	mode, err := viewport.ParseCacheMode(cfg.View.CacheMode)
	if err != nil {
		return err
	}

	var src source.Source
	if !cfg.View.LocalOnly {
		client := &http.Client{Timeout: time.Duration(cfg.Source.TimeoutSeconds) * time.Second}
		httpSrc := source.NewHTTP(cfg.Source.QueryURL, cfg.Source.CreateURL, client)
		if cfg.Source.ItemsAttr != "" {
			httpSrc.ItemsAttr = cfg.Source.ItemsAttr
		}
		src = httpSrc
	}

	view, err := viewport.New(viewport.Options{
		Source:        src,
		Mirror:        mirror,
		PageSize:      cfg.View.PageSize,
		Reverse:       cfg.View.Reverse,
		CacheMode:     mode,
		Bidirectional: cfg.View.Bidirectional,
		QueryArgs:     cfg.View.QueryArgs,
		InitialArgs:   cfg.View.InitialArgs,
		AutoSearch:    cfg.View.AutoSearch,
		NotifyUpdates: cfg.View.NotifyUpdates,
		LocalOnly:     cfg.View.LocalOnly,
		UpdateFilter:  cfg.View.UpdateFilter,
	})
	if err != nil {
		return err
	}

	if !cfg.View.LocalOnly {
		if err := view.LoadMore(ctx); err != nil {
			return fmt.Errorf("initial load: %w", err)
		}
		pg := view.Pagination()
		slog.Info("initial page loaded",
			"records", len(view.Viewport()),
			"total", pg.TotalResults,
			"has_more", pg.HasMore,
		)
	}

	provider, runIntake, err := buildProvider(ctx, cfg.Events)
	if err != nil {
		return fmt.Errorf("events provider: %w", err)
	}

	done := make(chan error, 1)
	if provider != nil {
		defer provider.Close()

		notify := func(recs []model.Record) {
			slog.Info("records to surface", "count", len(recs))
		}
		binder := events.NewBinder(provider, cfg.Events.Subjects, view, notify)
		go func() { done <- binder.Run(ctx) }()
		if runIntake != nil {
			go func() {
				if err := runIntake(ctx); err != nil && ctx.Err() == nil {
					slog.Error("event intake stopped", "error", err)
					cancel()
				}
			}()
		}
		slog.Info("push events bound",
			"provider", cfg.Events.Provider,
			"update", cfg.Events.Subjects.Update,
			"delete", cfg.Events.Subjects.Delete,
			"poll", cfg.Events.Subjects.Poll,
		)
	} else {
		slog.Info("running without push events")
	}

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
		cancel()
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("event binder: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}

// buildMirror constructs the configured persistence mirror. A nil mirror
// disables persistence.
func buildMirror(ctx context.Context, cfg config.PersistConfig) (*persist.Mirror, error) {
	var store persist.Store
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		store = pmemory.New()
	case "nats":
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		store, err = natskv.New(ctx, nc, cfg.NATS.Bucket)
		if err != nil {
			nc.Close()
			return nil, err
		}
	case "mongo":
		var err error
		store, err = pmongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown persist backend %q", cfg.Backend)
	}
	return persist.NewMirror(store, cfg.Key), nil
}

// buildProvider constructs the configured event transport. The websocket
// intake needs its read loop driven; that is the second return.
func buildProvider(ctx context.Context, cfg config.EventsConfig) (events.Provider, func(context.Context) error, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil, nil
	case "memory":
		return evmemory.New(), nil, nil
	case "nats":
		nc, err := nats.Connect(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return evnats.New(nc), nil, nil
	case "ws":
		intake, err := ws.Dial(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return intake, intake.Run, nil
	default:
		return nil, nil, fmt.Errorf("unknown events provider %q", cfg.Provider)
	}
}
