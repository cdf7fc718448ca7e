package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nhle/gh-notifier/internal/credential"
	"github.com/nhle/gh-notifier/internal/logging"
	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source/github"
	"github.com/nhle/gh-notifier/internal/status"
	"github.com/nhle/gh-notifier/internal/store"
	"github.com/nhle/gh-notifier/internal/sync"
)

// ErrNoToken is returned when no credential provider has a token.
var ErrNoToken = errors.New("no GitHub token configured; run `gh-notifier login` or set GITHUB_TOKEN")

// runtime holds the long-lived pieces shared by the commands.
type runtime struct {
	cfg    *model.AppConfig
	log    zerolog.Logger
	closer io.Closer
	store  *store.SQLiteStore
}

// newRuntime loads config and builds the logger. With tui set, logs go to
// a file so they do not corrupt the terminal.
func newRuntime(opts *GlobalOptions, stderr io.Writer, tui bool) (*runtime, error) {
	cfg, err := model.LoadConfig(opts.configPath())
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	if tui && logCfg.File == "" {
		logCfg.File = model.DefaultLogPath()
	}

	logger, closer, err := logging.New(logCfg, stderr)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	return &runtime{cfg: cfg, log: logger, closer: closer}, nil
}

// openStore opens the notification database when enabled. It returns nil
// without error when the store is disabled.
func (rt *runtime) openStore() (*store.SQLiteStore, error) {
	if !rt.cfg.Store.Enabled {
		return nil, nil
	}
	if rt.store != nil {
		return rt.store, nil
	}

	if err := os.MkdirAll(filepath.Dir(rt.cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	s, err := store.NewSQLiteStore(rt.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	rt.store = s
	return s, nil
}

// client resolves the token and builds the API client.
func (rt *runtime) client() (*github.Client, error) {
	tok, from, err := credential.DefaultChain(rt.cfg.GitHub.Account).Resolve()
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	rt.log.Debug().Str("provider", from).Msg("resolved API token")

	return github.NewClient(rt.cfg.GitHub.BaseURL, tok, rt.cfg.GitHub.RequestTimeout()), nil
}

// newPoller builds a poller from config. warmup false skips the initial
// delay.
func (rt *runtime) newPoller(src sync.Fetcher, sink sync.Sink, reporter sync.Reporter, warmup bool) (*sync.Poller, error) {
	policy, err := sync.ParseFailurePolicy(rt.cfg.Polling.FailurePolicy)
	if err != nil {
		return nil, err
	}

	opts := sync.Options{
		Account:            rt.cfg.GitHub.Account,
		BaseInterval:       rt.cfg.Polling.BaseInterval(),
		MaxInterval:        rt.cfg.Polling.MaxInterval(),
		FetchTimeout:       rt.cfg.GitHub.RequestTimeout(),
		RefreshMinInterval: rt.cfg.Polling.RefreshMinInterval(),
		FailurePolicy:      policy,
		Logger:             rt.log,
	}
	if warmup {
		opts.Warmup = rt.cfg.Polling.Warmup()
	}

	return sync.New(src, sink, reporter, opts), nil
}

// serveStatus runs the status server in the background when configured.
func (rt *runtime) serveStatus(ctx context.Context, p status.StatusProvider) {
	if rt.cfg.Status.Listen == "" {
		return
	}

	var unread status.UnreadCounter
	if rt.store != nil {
		unread = rt.store
	}

	srv := status.NewServer(rt.cfg.Status.Listen, p, unread, rt.log)
	go func() {
		if err := srv.Run(ctx); err != nil {
			rt.log.Error().Err(err).Msg("status server stopped")
		}
	}()
}

// Close releases the store and log file.
func (rt *runtime) Close() error {
	var errs []error
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	errs = append(errs, rt.closer.Close())
	return errors.Join(errs...)
}
