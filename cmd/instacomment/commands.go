package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/jmylchreest/instacomment/internal/browser"
	"github.com/jmylchreest/instacomment/internal/cookies"
	"github.com/jmylchreest/instacomment/internal/http/mw"
	"github.com/jmylchreest/instacomment/internal/job"
)

var (
	exportSave     bool
	exportHeadless bool

	exportFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "save, s",
			Usage:       "store the exported cookies in the session database instead of printing them",
			Destination: &exportSave,
		},
		cli.BoolFlag{
			Name:        "headless",
			Usage:       "run Chrome without a window",
			Destination: &exportHeadless,
		},
	}

	tokenSubject string
	tokenScopes  string
	tokenTTL     time.Duration

	tokenFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "subject",
			Value:       "operator",
			Usage:       "token subject",
			Destination: &tokenSubject,
		},
		cli.StringFlag{
			Name:        "scopes",
			Value:       "*",
			Usage:       "comma separated scopes",
			Destination: &tokenScopes,
		},
		cli.DurationFlag{
			Name:        "ttl",
			Value:       24 * time.Hour,
			Usage:       "token lifetime",
			Destination: &tokenTTL,
		},
	}
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(_ *cli.Context) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	out := d.job.Run(ctx)
	fmt.Printf("status: %s (%s)\n", out.Status, out.Duration.Round(time.Second))
	if st := d.job.State(); st.Last != nil {
		fmt.Printf("items: %d, failed: %d\n", st.Last.ItemsTotal, st.Last.ItemsFailed)
	}
	if out.Status == job.StatusFailed {
		return out.Err
	}
	return nil
}

func checkCookies(_ *cli.Context) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	raw := cfg.InstagramCookies
	source := "INSTAGRAM_COOKIES"
	if st, err := openStore(cfg, logger); err == nil {
		if persisted := initialCookies(ctx, st, "", logger); persisted != "" {
			raw, source = persisted, "session database"
		}
		st.Close()
	}

	if raw == "" {
		return errors.New("no cookies configured")
	}
	names := make([]string, 0)
	for _, e := range cookies.Parse(cookies.Clean(raw)) {
		names = append(names, e.Name)
	}
	fmt.Printf("source: %s\n", source)
	fmt.Printf("cookies: %s\n", strings.Join(names, ", "))

	if missing := cookies.Missing(raw); len(missing) > 0 {
		fmt.Printf("missing: %s\n", strings.Join(missing, ", "))
		return &cookies.MissingCredentialsError{Names: missing}
	}
	fmt.Println("session cookies complete")
	return nil
}

func exportCookies(_ *cli.Context) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	entries, err := browser.Export(ctx, browser.Options{
		Bin:        cfg.ChromePath,
		ProfileDir: cfg.ChromeProfileDir,
		Headless:   exportHeadless,
		Timeout:    cfg.RequestTimeout * 2,
	}, logger)
	if err != nil {
		return err
	}

	raw := cookies.Clean(cookies.Format(entries))
	if missing := cookies.Missing(raw); len(missing) > 0 {
		return fmt.Errorf("profile is not logged in to Instagram: %w", &cookies.MissingCredentialsError{Names: missing})
	}

	if !exportSave {
		fmt.Println(raw)
		return nil
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SaveCookies(ctx, raw); err != nil {
		return err
	}
	fmt.Printf("saved %d cookies to %s\n", len(cookies.Parse(raw)), cfg.SessionDBPath)
	return nil
}

func issueToken(_ *cli.Context) error {
	cfg, _, err := loadConfig(false)
	if err != nil {
		return err
	}
	var scopes []string
	for _, s := range strings.Split(tokenScopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	tok, err := mw.IssueToken(cfg.APISecret, tokenSubject, scopes, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, tok)
	return nil
}

func prune(_ *cli.Context) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.RunHistoryRetention > 0 {
		n, err := st.CleanupRunsOlderThan(context.Background(), time.Now().Add(-cfg.RunHistoryRetention))
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d runs\n", n)
	}
	return st.Vacuum()
}
