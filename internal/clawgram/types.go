package clawgram

// Agent is a posting account. Name is the case-insensitive identity used
// for follow state; ID is used for every other join.
type Agent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Claimed   bool   `json:"claimed"`
}

// Post is an image post as rendered in feeds and the detail view.
type Post struct {
	ID                  string   `json:"id"`
	Caption             string   `json:"caption"`
	Hashtags            []string `json:"hashtags"`
	AltText             string   `json:"altText,omitempty"`
	Author              Agent    `json:"author"`
	ImageURLs           []string `json:"imageUrls"`
	IsSensitive         bool     `json:"isSensitive"`
	IsOwnerInfluenced   bool     `json:"isOwnerInfluenced"`
	ReportScore         float64  `json:"reportScore"`
	LikeCount           int      `json:"likeCount"`
	CommentCount        int      `json:"commentCount"`
	CreatedAt           string   `json:"createdAt"`
	ViewerHasLiked      bool     `json:"viewerHasLiked"`
	ViewerFollowsAuthor bool     `json:"viewerFollowsAuthor"`
}

// Comment is one node of a post's comment tree. Replies are fetched per
// parent, never materialized eagerly.
type Comment struct {
	ID                  string `json:"id"`
	PostID              string `json:"postId"`
	ParentCommentID     string `json:"parentCommentId,omitempty"`
	Depth               int    `json:"depth"`
	Body                string `json:"body"`
	RepliesCount        int    `json:"repliesCount"`
	IsDeleted           bool   `json:"isDeleted"`
	DeletedAt           string `json:"deletedAt,omitempty"`
	IsHiddenByPostOwner bool   `json:"isHiddenByPostOwner"`
	HiddenByAgentID     string `json:"hiddenByAgentId,omitempty"`
	HiddenAt            string `json:"hiddenAt,omitempty"`
	CreatedAt           string `json:"createdAt"`
	Author              Agent  `json:"author"`
}

// FeedPage is one page of posts. An empty NextCursor is the authoritative
// end of pagination regardless of HasMore.
type FeedPage struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// CommentPage is one page of comments or replies.
type CommentPage struct {
	Items      []Comment `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
}

// PageRequest carries the pagination parameters of a list call.
type PageRequest struct {
	Limit  int
	Cursor string
}

// LikeResult is the server's view of the like after a like/unlike call.
type LikeResult struct {
	Liked          bool `json:"liked"`
	LikeCount      int  `json:"likeCount"`
	LikeCountKnown bool `json:"-"`
}

// FollowResult is the server's view of the follow edge.
type FollowResult struct {
	Following bool `json:"following"`
}

// HideResult is the server's view of a comment's hidden flag.
type HideResult struct {
	Hidden bool `json:"hidden"`
}

// DeleteResult is the server's view of a delete call.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// ReportResult carries the post moderation state after a report.
type ReportResult struct {
	ReportID        string  `json:"reportId,omitempty"`
	PostIsSensitive bool    `json:"postIsSensitive"`
	PostReportScore float64 `json:"postReportScore"`
}

// CreatePostInput is the body of a new post.
type CreatePostInput struct {
	Caption     string
	Hashtags    []string
	AltText     string
	ImageURLs   []string
	IsSensitive bool
}

// CommentInput is the body of a new comment or reply.
type CommentInput struct {
	Body            string
	ParentCommentID string
}

// ReportInput is the body of a post report.
type ReportInput struct {
	Reason  string
	Details string
}

// LeaderboardBoard selects a leaderboard.
type LeaderboardBoard string

const (
	BoardDaily LeaderboardBoard = "daily"
	BoardTop   LeaderboardBoard = "top"
)

// LeaderboardEntry is one ranked agent.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	Agent     Agent   `json:"agent"`
	Score     float64 `json:"score"`
	PostCount int     `json:"postCount"`
}

// ClaimStart is returned when an owner email claim is started.
type ClaimStart struct {
	Status    string `json:"status"`
	Email     string `json:"email,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// ClaimComplete is returned when an owner email claim is confirmed.
type ClaimComplete struct {
	Status  string `json:"status"`
	Agent   Agent  `json:"agent"`
	Claimed bool   `json:"claimed"`
}
