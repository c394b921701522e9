package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/instacomment/internal/instagram"
	"github.com/jmylchreest/instacomment/internal/logging"
)

// ErrMissingConfig is returned when the target user or comment text is not configured.
var ErrMissingConfig = errors.New("missing required configuration: INSTAGRAM_TARGET_USER_ID or INSTAGRAM_COMMENT_TEXT")

// PostLister fetches pages of a user's posts.
type PostLister interface {
	UserPosts(ctx context.Context, userID string, pageSize int, cursor string) (*instagram.PostsPage, error)
}

// Commenter posts a comment on a media item.
type Commenter interface {
	AddComment(ctx context.Context, mediaID, text string) (*instagram.Comment, error)
}

// RunnerConfig holds what a batch needs to know about its target.
type RunnerConfig struct {
	TargetUserID string
	CommentText  string
	DelayMin     time.Duration
	DelayMax     time.Duration
	PageSize     int
	// MaxPages bounds how many pages one run follows. Values below 1 mean 1.
	MaxPages int
}

// ItemResult is the outcome of commenting on one post.
type ItemResult struct {
	MediaID   string        `json:"media_id"`
	Delay     time.Duration `json:"delay"`
	CommentID string        `json:"comment_id,omitempty"`
	Err       error         `json:"-"`
}

// OK reports whether the comment was posted.
func (r ItemResult) OK() bool {
	return r.Err == nil
}

// Report is the per-item result list of one batch, in processing order.
type Report struct {
	Items []ItemResult
	Pages int
}

// Failed returns how many items failed.
func (r *Report) Failed() int {
	n := 0
	for _, it := range r.Items {
		if !it.OK() {
			n++
		}
	}
	return n
}

// Runner processes the target's posts one at a time with a random pause before each.
type Runner struct {
	posts    PostLister
	comments Commenter
	cfg      RunnerConfig
	logger   *slog.Logger

	delay func(min, max time.Duration) time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a batch runner.
func NewRunner(posts PostLister, comments Commenter, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Runner{
		posts:    posts,
		comments: comments,
		cfg:      cfg,
		logger:   logger.With("component", "runner"),
		delay:    RandomDelay,
		sleep:    sleepContext,
	}
}

// Run fetches the target's posts and comments on each in order. A failure to fetch
// fails the whole run before any item is touched; a failed item is recorded and the
// batch moves on. Cancelling ctx stops the batch and returns the partial report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.cfg.TargetUserID == "" || r.cfg.CommentText == "" {
		return nil, ErrMissingConfig
	}
	log := logging.FromContext(ctx, r.logger)

	report := &Report{}
	cursor := ""
	for report.Pages < r.cfg.MaxPages {
		page, err := r.posts.UserPosts(ctx, r.cfg.TargetUserID, r.cfg.PageSize, cursor)
		if err != nil {
			if report.Pages == 0 {
				return nil, fmt.Errorf("failed to fetch posts: %w", err)
			}
			log.Warn("failed to fetch next page, stopping", "page", report.Pages+1, "error", err)
			break
		}
		report.Pages++
		log.Info("fetched posts", "page", report.Pages, "count", len(page.Data))

		for _, post := range page.Data {
			res, err := r.processItem(ctx, log, post)
			report.Items = append(report.Items, res)
			if err != nil {
				return report, err
			}
		}

		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			break
		}
		cursor = page.PageInfo.EndCursor
	}

	log.Info("batch finished", "items", len(report.Items), "failed", report.Failed(), "pages", report.Pages)
	return report, nil
}

// processItem waits the paced delay then comments. The returned error is non-nil
// only when ctx ended during the wait.
func (r *Runner) processItem(ctx context.Context, log *slog.Logger, post instagram.Post) (ItemResult, error) {
	res := ItemResult{
		MediaID: post.ID,
		Delay:   r.delay(r.cfg.DelayMin, r.cfg.DelayMax),
	}

	log.Info("waiting before commenting", "media_id", post.ID, "delay", res.Delay.Round(time.Second))
	if err := r.sleep(ctx, res.Delay); err != nil {
		res.Err = err
		return res, err
	}

	comment, err := r.comment(ctx, post.ID)
	if err != nil {
		res.Err = err
		log.Error("failed to comment on post", "media_id", post.ID, "error", err)
		return res, nil
	}
	res.CommentID = comment.ID
	log.Info("commented on post", "media_id", post.ID, "comment_id", comment.ID)
	return res, nil
}

// errNoComment is recorded when the commenter reports success without a comment.
var errNoComment = errors.New("comment response was empty")

// comment posts one comment. A panic in the commenter is confined to this item.
func (r *Runner) comment(ctx context.Context, mediaID string) (c *instagram.Comment, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()

	c, err = r.comments.AddComment(ctx, mediaID, r.cfg.CommentText)
	if err == nil && c == nil {
		err = errNoComment
	}
	return c, err
}
