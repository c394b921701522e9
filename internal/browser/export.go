// Package browser exports Instagram cookies from a logged-in Chrome profile.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/jmylchreest/instacomment/internal/cookies"
)

const instagramURL = "https://www.instagram.com/"

// ErrNoProfile is returned when no Chrome profile directory is configured.
var ErrNoProfile = errors.New("a Chrome profile directory is required (CHROME_PROFILE_DIR)")

// Options configures the browser used for export.
type Options struct {
	// Bin is the Chrome binary. Empty lets rod find or download one.
	Bin string
	// ProfileDir is the user data dir of a profile already logged in to Instagram.
	ProfileDir string
	Headless   bool
	Timeout    time.Duration
}

// Export opens the profile, loads Instagram so the session refreshes, and returns
// the Instagram cookies the browser holds.
func Export(ctx context.Context, opts Options, logger *slog.Logger) ([]cookies.Entry, error) {
	if opts.ProfileDir == "" {
		return nil, ErrNoProfile
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := launcher.New().
		UserDataDir(opts.ProfileDir).
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("lang", "en-US,en")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	defer l.Cleanup()

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer b.Close()

	page, err := b.Page(proto.TargetCreateTarget{URL: instagramURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open instagram: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("instagram did not load: %w", err)
	}

	raw, err := page.Cookies([]string{instagramURL})
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	entries := FromNetworkCookies(raw)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	logger.Info("exported browser cookies", "count", len(entries), "names", names)
	return entries, nil
}

// FromNetworkCookies converts CDP cookies to entries, keeping only Instagram domains.
func FromNetworkCookies(cs []*proto.NetworkCookie) []cookies.Entry {
	out := make([]cookies.Entry, 0, len(cs))
	for _, c := range cs {
		if c == nil || !cookies.IsInstagramDomain(c.Domain) {
			continue
		}
		e := cookies.Entry{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if !c.Session && c.Expires > 0 {
			exp := time.Unix(int64(c.Expires), 0).UTC()
			e.Expires = &exp
		}
		out = append(out, e)
	}
	return out
}
