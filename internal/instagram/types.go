package instagram

// Post is a media item from a user's reels tab.
type Post struct {
	PK            string         `json:"pk"`
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	MediaType     int            `json:"media_type"`
	PlayCount     *int64         `json:"play_count,omitempty"`
	ViewCount     *int64         `json:"view_count,omitempty"`
	LikeCount     int64          `json:"like_count"`
	CommentCount  int64          `json:"comment_count"`
	ImageVersions ImageVersions2 `json:"image_versions2"`
}

// ImageVersions2 lists the rendered thumbnails of a post.
type ImageVersions2 struct {
	Candidates []ImageCandidate `json:"candidates"`
}

// ImageCandidate is one thumbnail rendition.
type ImageCandidate struct {
	Height int    `json:"height"`
	Width  int    `json:"width"`
	URL    string `json:"url"`
}

// PageInfo is the cursor state of a paginated listing.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// PostsPage is one page of a user's posts.
type PostsPage struct {
	Data     []Post   `json:"data"`
	PageInfo PageInfo `json:"pageInfo"`
}

// Comment is the remote record of a created comment.
type Comment struct {
	ID          string        `json:"id"`
	From        CommentAuthor `json:"from"`
	Text        string        `json:"text"`
	CreatedTime int64         `json:"created_time"`
	Status      string        `json:"status"`
}

// CommentAuthor identifies who posted a comment.
type CommentAuthor struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
}

// Wire shapes of the GraphQL reels connection.
type postsResponse struct {
	Data struct {
		Connection *struct {
			Edges []struct {
				Node struct {
					Media Post `json:"media"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool    `json:"has_next_page"`
				EndCursor   *string `json:"end_cursor"`
			} `json:"page_info"`
		} `json:"xdt_api__v1__clips__user__connection_v2"`
	} `json:"data"`
}
