package handlers

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/instacomment/internal/instagram"
	"github.com/jmylchreest/instacomment/internal/logging"
)

// InstagramHandler proxies post listing and commenting.
type InstagramHandler struct {
	client InstagramClient
	logger *slog.Logger
}

// NewInstagramHandler creates a new Instagram handler.
func NewInstagramHandler(client InstagramClient, logger *slog.Logger) *InstagramHandler {
	return &InstagramHandler{client: client, logger: logger}
}

// ListPostsInput represents a post listing request.
type ListPostsInput struct {
	UserID   string `query:"userId" required:"true" minLength:"1" doc:"Instagram user ID"`
	PageSize int    `query:"pageSize" default:"12" minimum:"1" maximum:"100" doc:"Number of posts to fetch per page"`
	Cursor   string `query:"cursor" doc:"Pagination cursor for fetching the next page"`
}

// ListPostsOutput represents a page of posts.
type ListPostsOutput struct {
	Body instagram.PostsPage
}

// ListPosts handles GET /instagram/posts.
func (h *InstagramHandler) ListPosts(ctx context.Context, input *ListPostsInput) (*ListPostsOutput, error) {
	page, err := h.client.UserPosts(ctx, input.UserID, input.PageSize, input.Cursor)
	if err != nil {
		logging.FromContext(ctx, h.logger).Warn("list posts failed", "user_id", input.UserID, "error", err)
		return nil, remoteError(err, "Failed to fetch user posts")
	}
	return &ListPostsOutput{Body: *page}, nil
}

// AddCommentInput represents a comment request.
type AddCommentInput struct {
	Body struct {
		MediaID     string `json:"mediaId" minLength:"1" doc:"Media ID of the post to comment on"`
		CommentText string `json:"commentText" minLength:"1" maxLength:"2200" doc:"Comment text"`
	}
}

// AddCommentOutput represents the created comment.
type AddCommentOutput struct {
	Body instagram.Comment
}

// AddComment handles POST /instagram/comments.
func (h *InstagramHandler) AddComment(ctx context.Context, input *AddCommentInput) (*AddCommentOutput, error) {
	comment, err := h.client.AddComment(ctx, input.Body.MediaID, input.Body.CommentText)
	if err != nil {
		logging.FromContext(ctx, h.logger).Warn("add comment failed", "media_id", input.Body.MediaID, "error", err)
		return nil, remoteError(err, "Failed to add comment")
	}
	return &AddCommentOutput{Body: *comment}, nil
}
