package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/taskhive/taskhive/internal"
	"github.com/taskhive/taskhive/internal/assignment"
	assignmentrepo "github.com/taskhive/taskhive/internal/assignment/repositoryimpl"
	"github.com/taskhive/taskhive/internal/assistant"
	assistantrepo "github.com/taskhive/taskhive/internal/assistant/repositoryimpl"
	"github.com/taskhive/taskhive/internal/client"
	clientrepo "github.com/taskhive/taskhive/internal/client/repositoryimpl"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/engine"
	"github.com/taskhive/taskhive/internal/entitlement"
	"github.com/taskhive/taskhive/internal/eventbus"
	"github.com/taskhive/taskhive/internal/marketplace"
	"github.com/taskhive/taskhive/internal/notification"
	"github.com/taskhive/taskhive/internal/pushsubscription"
	pushsubrepo "github.com/taskhive/taskhive/internal/pushsubscription/repositoryimpl"
	"github.com/taskhive/taskhive/internal/stats"
	"github.com/taskhive/taskhive/internal/task"
	taskrepo "github.com/taskhive/taskhive/internal/task/repositoryimpl"
	"github.com/taskhive/taskhive/pkg/clog"
	"github.com/taskhive/taskhive/pkg/panicerr"
	"github.com/taskhive/taskhive/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus and repositories
	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(store)
	assistantRepo := assistantrepo.NewYAMLRepository(store)
	clientRepo := clientrepo.NewYAMLRepository(store)
	assignmentRepo := assignmentrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Setup entitlement gate
	catalog, err := entitlement.LoadCatalog(env.PlanCatalogPath)
	if err != nil {
		slog.Error("failed to load plan catalog", "error", err)
		os.Exit(1)
	}
	gate := entitlement.NewGate(catalog)

	// Setup engine and heal derived counters before accepting writes
	eng := engine.New(taskRepo, assistantRepo, clientRepo, assignmentRepo, gate, bus)
	if err := eng.Rebuild(context.Background()); err != nil {
		slog.Error("failed to rebuild assistant aggregates", "error", err)
		os.Exit(1)
	}

	// Setup servers
	taskServer := task.NewServer(eng)
	marketplaceServer := marketplace.NewServer(marketplace.NewMatcher(taskRepo, assistantRepo))
	assistantServer := assistant.NewServer(assistantRepo, eng)
	clientServer := client.NewServer(clientRepo)
	assignmentServer := assignment.NewServer(eng, assignmentRepo)
	statsServer := stats.NewServer(taskRepo, assistantRepo, clientRepo)

	// Setup push notifications
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := notification.NewSender(vapidEnv, pushSubRepo)
	pushServer := pushsubscription.NewServer(vapidEnv, pushSubRepo)
	dispatcher := notification.NewDispatcher(bus, taskRepo, pushSender)

	srv := server.NewServer(
		env,
		taskServer,
		marketplaceServer,
		assistantServer,
		clientServer,
		assignmentServer,
		statsServer,
		pushServer,
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := panicerr.SafeContext(func(ctx context.Context) error {
			dispatcher.Start(ctx)
			return nil
		})(ctx); err != nil {
			slog.Error("notification dispatcher crashed", "error", err)
		}
	}()
	if env.PlanCatalogPath != "" {
		go func() {
			if err := panicerr.SafeContext(catalog.Watch)(ctx); err != nil && ctx.Err() == nil {
				slog.Error("plan catalog watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
