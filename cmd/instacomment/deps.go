package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/instacomment/internal/config"
	"github.com/jmylchreest/instacomment/internal/cookies"
	"github.com/jmylchreest/instacomment/internal/crypto"
	"github.com/jmylchreest/instacomment/internal/instagram"
	"github.com/jmylchreest/instacomment/internal/job"
	"github.com/jmylchreest/instacomment/internal/logging"
	"github.com/jmylchreest/instacomment/internal/session"
	"github.com/jmylchreest/instacomment/internal/store"
)

// deps is the wired object graph shared by the serve and run-once commands.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.SQLiteStore
	session *session.Holder
	client  *instagram.Client
	job     *job.CommentJob
}

// loadConfig reads the environment and installs the default logger. Only the server
// needs the full validation; one-shot commands do their own checks.
func loadConfig(validate bool) (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	logger := logging.SetDefault(cfg.LogLevel)
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, logger, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store.SQLiteStore, error) {
	key, err := crypto.ResolveKey(cfg.SessionEncryptionKey, cfg.KeyringEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	var enc *crypto.Encryptor
	if key != nil {
		if enc, err = crypto.NewEncryptor(key); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no SESSION_ENCRYPTION_KEY or keyring, rotated cookies will not survive a restart")
	}

	return store.NewSQLiteStore(cfg.SessionDBPath, enc, logger)
}

// initialCookies prefers the persisted session over the environment, since the
// persisted one carries every rotation seen so far.
func initialCookies(ctx context.Context, st *store.SQLiteStore, env string, logger *slog.Logger) string {
	if !st.CanPersistCookies() {
		return env
	}
	raw, updatedAt, err := st.LoadCookies(ctx)
	if err != nil {
		logger.Warn("failed to load persisted cookies, using INSTAGRAM_COOKIES", "error", err)
		return env
	}
	if raw == "" || !cookies.IsValid(raw) {
		return env
	}
	logger.Info("using persisted session cookies", "updated_at", updatedAt)
	return raw
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deps, error) {
	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	var persist session.Persister
	if st.CanPersistCookies() {
		persist = st
	}
	holder := session.NewHolder(initialCookies(ctx, st, cfg.InstagramCookies, logger), persist, logger)
	if missing := holder.Missing(); len(missing) > 0 {
		logger.Warn("session cookies incomplete, remote calls will be refused", "missing", missing)
	}

	client := instagram.NewClient(holder, logger,
		instagram.WithBaseURL(cfg.BaseURL),
		instagram.WithTimeout(cfg.RequestTimeout),
	)

	runner := job.NewRunner(client, client, job.RunnerConfig{
		TargetUserID: cfg.TargetUserID,
		CommentText:  cfg.CommentText,
		DelayMin:     cfg.CommentDelayMin,
		DelayMax:     cfg.CommentDelayMax,
		PageSize:     instagram.DefaultPageSize,
		MaxPages:     cfg.MaxPages,
	}, logger)

	return &deps{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		session: holder,
		client:  client,
		job:     job.NewCommentJob(runner, st, cfg.RunHistoryRetention, logger),
	}, nil
}

func (d *deps) Close() {
	if err := d.store.Close(); err != nil {
		d.logger.Error("failed to close store", "error", err)
	}
}
