// Package session owns the live Instagram cookie string.
//
// A Holder is the single choke-point for reading and rotating the session: every
// outbound request takes a Snapshot, and every Set-Cookie response is folded back
// with Apply. Writes are serialized so rotated cookies are never lost.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/instacomment/internal/cookies"
)

// Persister stores the raw cookie string across restarts.
type Persister interface {
	SaveCookies(ctx context.Context, raw string) error
}

// Snapshot is what an outbound request needs from the session.
type Snapshot struct {
	Header    string // Cleaned Cookie header
	CSRFToken string
	Valid     bool
}

// Holder guards the process-wide raw cookie string.
type Holder struct {
	mu        sync.RWMutex
	raw       string
	updatedAt time.Time
	persist   Persister
	logger    *slog.Logger
}

// NewHolder creates a holder seeded with raw. persist may be nil.
func NewHolder(raw string, persist Persister, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		raw:       raw,
		updatedAt: time.Now(),
		persist:   persist,
		logger:    logger.With("component", "session"),
	}
}

// Raw returns the current raw cookie string.
func (h *Holder) Raw() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.raw
}

// UpdatedAt returns when the cookie string last changed.
func (h *Holder) UpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.updatedAt
}

// Valid reports whether the current cookies carry every required credential.
func (h *Holder) Valid() bool {
	return cookies.IsValid(h.Raw())
}

// Missing returns the required cookie names the current session lacks.
func (h *Holder) Missing() []string {
	return cookies.Missing(h.Raw())
}

// Identity extracts the typed session identity.
func (h *Holder) Identity() (cookies.Identity, error) {
	return cookies.ExtractSession(h.Raw())
}

// Snapshot returns the outbound header and anti-forgery token in one consistent read.
func (h *Holder) Snapshot() Snapshot {
	raw := h.Raw()
	snap := Snapshot{Valid: cookies.IsValid(raw)}
	if !snap.Valid {
		return snap
	}
	snap.Header = cookies.Clean(raw)
	snap.CSRFToken, _ = cookies.CSRFToken(raw)
	return snap
}

// Apply merges server-issued cookie updates into the session and reports whether
// anything changed.
func (h *Holder) Apply(ctx context.Context, updates []cookies.Entry) bool {
	if len(updates) == 0 {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	merged := cookies.Merge(h.raw, updates)
	if merged == h.raw {
		return false
	}
	h.raw = merged
	h.updatedAt = time.Now()

	names := make([]string, 0, len(updates))
	for _, u := range updates {
		names = append(names, u.Name)
	}
	h.logger.Debug("session cookies rotated", "names", names)

	h.persistLocked(ctx)
	return true
}

// Replace swaps the whole cookie string. Strings missing required credentials are
// rejected with *cookies.MissingCredentialsError and leave the session untouched.
func (h *Holder) Replace(ctx context.Context, raw string) error {
	if _, err := cookies.ExtractSession(raw); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.raw = raw
	h.updatedAt = time.Now()
	h.logger.Info("session cookies replaced")

	h.persistLocked(ctx)
	return nil
}

func (h *Holder) persistLocked(ctx context.Context) {
	if h.persist == nil {
		return
	}
	if err := h.persist.SaveCookies(ctx, h.raw); err != nil {
		h.logger.Error("failed to persist session cookies", "error", err)
	}
}
