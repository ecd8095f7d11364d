package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/config"
	draftsqlite "github.com/postpilothq/postpilot/drafts/sqlite"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/observe"
	"github.com/postpilothq/postpilot/pipeline"
	"github.com/postpilothq/postpilot/predictor"
	"github.com/postpilothq/postpilot/providers/factory"
	"github.com/postpilothq/postpilot/publisher"
	"github.com/postpilothq/postpilot/state"
	redisstate "github.com/postpilothq/postpilot/state/redis"
	sqlitestate "github.com/postpilothq/postpilot/state/sqlite"
	vaultsqlite "github.com/postpilothq/postpilot/vault/sqlite"
)

// app bundles the wired collaborators behind one Close.
type app struct {
	cfg      config.Config
	executor *graph.Executor
	store    state.Store
	observer *observe.AsyncSink

	closers []func() error
}

func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	a.store, err = openStateStore(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	vaultStore, err := vaultsqlite.New(ensureDir(cfg.Vault.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open vault store: %w", err)
	}
	a.closers = append(a.closers, vaultStore.Close)

	draftStore, err := draftsqlite.New(ensureDir(cfg.Drafts.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open drafts store: %w", err)
	}
	a.closers = append(a.closers, draftStore.Close)

	var model predictor.Predictor
	if cfg.Predictor.URL != "" {
		model, err = predictor.NewHTTPClient(cfg.Predictor.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure predictor: %w", err)
		}
	} else {
		model = predictor.NewHeuristic()
	}

	var pub publisher.Publisher
	if cfg.Publisher.WebhookURL != "" {
		pub, err = publisher.NewWebhook(cfg.Publisher.WebhookURL,
			publisher.WithAuthToken(cfg.Publisher.AuthToken))
		if err != nil {
			return nil, fmt.Errorf("failed to configure publisher: %w", err)
		}
	} else {
		pub = publisher.NewSimulated()
	}

	selector, err := factory.FromEnv(ctx)
	if err != nil {
		return nil, err
	}
	runner, err := brain.New(selector)
	if err != nil {
		return nil, err
	}

	a.observer = observe.NewAsyncSink(observe.NewWriterSink(os.Stderr), 256)

	a.executor, err = pipeline.New(pipeline.Config{
		Brain:     runner,
		Vault:     vaultStore,
		Drafts:    draftStore,
		Predictor: model,
		Publisher: pub,
		Observer:  a.observer,
	}, graph.WithStore(a.store), graph.WithObserver(a.observer))
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *app) Close() error {
	if a.observer != nil {
		a.observer.Close()
	}
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openStateStore(cfg config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case "redis":
		store, err := redisstate.New(cfg.State.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis state store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlitestate.New(ensureDir(cfg.State.SQLitePath))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite state store: %w", err)
		}
		return store, nil
	}
}

// ensureDir creates the parent directory of a database path so first
// runs work out of the box.
func ensureDir(path string) string {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return path
}
