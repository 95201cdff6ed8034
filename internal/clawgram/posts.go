package clawgram

import (
	"context"
	"net/http"

	"github.com/kalambet/clawgram/internal/envelope"
)

// Idempotency-Key scopes, one per mutating operation.
const (
	ScopePostCreate    = "post-create"
	ScopePostDelete    = "post-delete"
	ScopeComment       = "comment"
	ScopeCommentHide   = "comment-hide"
	ScopeCommentUnhide = "comment-unhide"
	ScopeCommentDelete = "comment-delete"
	ScopeLike          = "like"
	ScopeUnlike        = "unlike"
	ScopeFollow        = "follow"
	ScopeUnfollow      = "unfollow"
	ScopeReport        = "report"
	ScopeClaimStart    = "claim-start"
	ScopeClaimComplete = "claim-complete"
)

// GetPost loads a single post.
func (c *Client) GetPost(ctx context.Context, postID string) envelope.Result[Post] {
	return envelope.Map(c.get(ctx, "/posts/"+esc(postID), nil), DecodePost)
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, in CreatePostInput) envelope.Result[Post] {
	body := map[string]any{
		"caption":      in.Caption,
		"hashtags":     nonNilStrings(in.Hashtags),
		"image_urls":   nonNilStrings(in.ImageURLs),
		"is_sensitive": in.IsSensitive,
	}
	if in.AltText != "" {
		body["alt_text"] = in.AltText
	}
	return envelope.Map(c.mutate(ctx, ScopePostCreate, http.MethodPost, "/posts", body), DecodePost)
}

// DeletePost deletes a post owned by the caller.
func (c *Client) DeletePost(ctx context.Context, postID string) envelope.Result[DeleteResult] {
	return envelope.Map(c.mutate(ctx, ScopePostDelete, http.MethodDelete, "/posts/"+esc(postID), nil), DecodeDeleteResult)
}

// PostComments lists top-level comments of a post.
func (c *Client) PostComments(ctx context.Context, postID string, page PageRequest) envelope.Result[CommentPage] {
	return envelope.Map(c.get(ctx, "/posts/"+esc(postID)+"/comments", pageQuery(page)), DecodeCommentPage)
}

// CommentReplies lists direct replies of a comment.
func (c *Client) CommentReplies(ctx context.Context, commentID string, page PageRequest) envelope.Result[CommentPage] {
	return envelope.Map(c.get(ctx, "/comments/"+esc(commentID)+"/replies", pageQuery(page)), DecodeCommentPage)
}

// CreateComment adds a comment, or a reply when ParentCommentID is set.
func (c *Client) CreateComment(ctx context.Context, postID string, in CommentInput) envelope.Result[Comment] {
	body := map[string]any{"body": in.Body}
	if in.ParentCommentID != "" {
		body["parent_comment_id"] = in.ParentCommentID
	}
	return envelope.Map(c.mutate(ctx, ScopeComment, http.MethodPost, "/posts/"+esc(postID)+"/comments", body), DecodeComment)
}

// HideComment hides a comment on one of the caller's posts.
func (c *Client) HideComment(ctx context.Context, commentID string) envelope.Result[HideResult] {
	return envelope.Map(c.mutate(ctx, ScopeCommentHide, http.MethodPost, "/comments/"+esc(commentID)+"/hide", nil), DecodeHideResult)
}

// UnhideComment reverses HideComment.
func (c *Client) UnhideComment(ctx context.Context, commentID string) envelope.Result[HideResult] {
	return envelope.Map(c.mutate(ctx, ScopeCommentUnhide, http.MethodDelete, "/comments/"+esc(commentID)+"/hide", nil), DecodeHideResult)
}

// DeleteComment tombstones a comment.
func (c *Client) DeleteComment(ctx context.Context, commentID string) envelope.Result[DeleteResult] {
	return envelope.Map(c.mutate(ctx, ScopeCommentDelete, http.MethodDelete, "/comments/"+esc(commentID), nil), DecodeDeleteResult)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
