// Package instagram talks to Instagram's private web endpoints using the
// session held in a session.Holder.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmylchreest/instacomment/internal/cookies"
	"github.com/jmylchreest/instacomment/internal/session"
)

const (
	DefaultBaseURL = "https://www.instagram.com"

	DefaultPageSize  = 12
	MaxPageSize      = 100
	MaxCommentLength = 2200

	reelsDocID        = "8526372674115715"
	reelsFriendlyName = "PolarisProfileReelsTabContentQuery"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	appID     = "936619743392459"

	maxErrorBody = 64 << 10
)

// Client performs authenticated requests against Instagram.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Holder
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the remote origin.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client bound to the given session.
func NewClient(holder *session.Holder, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		session: holder,
		logger:  logger.With("component", "instagram"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserPosts fetches one page of the target user's reels. A pageSize outside
// 1..MaxPageSize falls back to DefaultPageSize; an empty cursor fetches the first page.
func (c *Client) UserPosts(ctx context.Context, userID string, pageSize int, cursor string) (*PostsPage, error) {
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	data := map[string]any{
		"include_feed_video": true,
		"page_size":          pageSize,
		"target_user_id":     userID,
	}
	if cursor != "" {
		data["after"] = cursor
	}
	variables, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode variables: %w", err)
	}

	form := url.Values{
		"doc_id":    {reelsDocID},
		"variables": {string(variables)},
	}
	header := http.Header{"X-Fb-Friendly-Name": {reelsFriendlyName}}

	body, err := c.post(ctx, "/graphql/query", form, header, "Failed to fetch user posts")
	if err != nil {
		return nil, err
	}

	var resp postsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RemoteError{Message: "Failed to fetch user posts", Err: fmt.Errorf("decode response: %w", err)}
	}
	conn := resp.Data.Connection
	if conn == nil {
		return nil, &RemoteError{Message: "Failed to fetch user posts", Err: fmt.Errorf("response has no reels connection")}
	}

	page := &PostsPage{
		Data: make([]Post, 0, len(conn.Edges)),
		PageInfo: PageInfo{
			HasNextPage: conn.PageInfo.HasNextPage,
		},
	}
	if conn.PageInfo.EndCursor != nil {
		page.PageInfo.EndCursor = *conn.PageInfo.EndCursor
	}
	for _, edge := range conn.Edges {
		page.Data = append(page.Data, edge.Node.Media)
	}

	c.logger.Debug("fetched user posts", "user_id", userID, "count", len(page.Data), "has_next_page", page.PageInfo.HasNextPage)
	return page, nil
}

// AddComment posts text as a comment on mediaID.
func (c *Client) AddComment(ctx context.Context, mediaID, text string) (*Comment, error) {
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxCommentLength {
		return nil, ErrInvalidCommentText
	}
	if mediaID == "" {
		return nil, &RemoteError{Status: http.StatusBadRequest, Message: "media id is required"}
	}

	form := url.Values{"comment_text": {text}}
	body, err := c.post(ctx, "/api/v1/web/comments/"+url.PathEscape(mediaID)+"/add/", form, nil, "Failed to add comment")
	if err != nil {
		return nil, err
	}

	var comment Comment
	if err := json.Unmarshal(body, &comment); err != nil {
		return nil, &RemoteError{Message: "Failed to add comment", Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Info("comment posted", "media_id", mediaID, "comment_id", comment.ID)
	return &comment, nil
}

// post sends an authenticated form POST and returns the body of a 2xx response.
// Set-Cookie rotations are folded back into the session whatever the status.
func (c *Client) post(ctx context.Context, path string, form url.Values, extra http.Header, failMsg string) ([]byte, error) {
	snap := c.session.Snapshot()
	if !snap.Valid {
		c.logger.Error("refusing request with invalid session", "path", path, "missing", c.session.Missing())
		return nil, ErrInvalidSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req, snap)
	for k, v := range extra {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Message: failMsg, Err: err}
	}
	defer resp.Body.Close()

	if rotated := cookies.FromHTTP(resp.Cookies()); len(rotated) > 0 {
		c.session.Apply(ctx, rotated)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := remoteMessage(io.LimitReader(resp.Body, maxErrorBody))
		if msg == "" {
			msg = failMsg
		}
		c.logger.Warn("remote request failed", "path", path, "status", resp.StatusCode)
		return nil, &RemoteError{Status: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: failMsg, Err: err}
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request, snap session.Snapshot) {
	h := req.Header
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("X-IG-App-ID", appID)
	h.Set("X-Requested-With", "XMLHttpRequest")
	h.Set("Origin", c.baseURL)
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Cookie", snap.Header)
	h.Set("X-Csrftoken", snap.CSRFToken)
}

// remoteMessage extracts the "message" field of a JSON error body, if any.
func remoteMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Message
}
