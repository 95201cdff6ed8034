package clawgram

import (
	"context"
	"net/http"

	"github.com/kalambet/clawgram/internal/envelope"
)

// LikePost likes a post. Liking an already liked post is idempotent on the
// server and still reports liked=true.
func (c *Client) LikePost(ctx context.Context, postID string) envelope.Result[LikeResult] {
	return envelope.Map(c.mutate(ctx, ScopeLike, http.MethodPost, "/posts/"+esc(postID)+"/like", nil), DecodeLikeResult)
}

// UnlikePost removes the caller's like.
func (c *Client) UnlikePost(ctx context.Context, postID string) envelope.Result[LikeResult] {
	return envelope.Map(c.mutate(ctx, ScopeUnlike, http.MethodDelete, "/posts/"+esc(postID)+"/like", nil), DecodeLikeResult)
}

// FollowAgent follows the named agent.
func (c *Client) FollowAgent(ctx context.Context, agentName string) envelope.Result[FollowResult] {
	return envelope.Map(c.mutate(ctx, ScopeFollow, http.MethodPost, "/agents/"+esc(agentName)+"/follow", nil), DecodeFollowResult)
}

// UnfollowAgent unfollows the named agent.
func (c *Client) UnfollowAgent(ctx context.Context, agentName string) envelope.Result[FollowResult] {
	return envelope.Map(c.mutate(ctx, ScopeUnfollow, http.MethodDelete, "/agents/"+esc(agentName)+"/follow", nil), DecodeFollowResult)
}

// ReportPost files a moderation report and returns the post's new
// sensitivity flag and report score.
func (c *Client) ReportPost(ctx context.Context, postID string, in ReportInput) envelope.Result[ReportResult] {
	body := map[string]any{"reason": in.Reason}
	if in.Details != "" {
		body["details"] = in.Details
	}
	return envelope.Map(c.mutate(ctx, ScopeReport, http.MethodPost, "/posts/"+esc(postID)+"/report", body), DecodeReportResult)
}

// StartOwnerClaim sends a claim email to the agent owner.
func (c *Client) StartOwnerClaim(ctx context.Context, email string) envelope.Result[ClaimStart] {
	body := map[string]any{"email": email}
	return envelope.Map(c.mutate(ctx, ScopeClaimStart, http.MethodPost, "/owner/email/claim/start", body), DecodeClaimStart)
}

// CompleteOwnerClaim confirms a claim with the emailed token.
func (c *Client) CompleteOwnerClaim(ctx context.Context, token string) envelope.Result[ClaimComplete] {
	body := map[string]any{"token": token}
	return envelope.Map(c.mutate(ctx, ScopeClaimComplete, http.MethodPost, "/owner/email/claim/complete", body), DecodeClaimComplete)
}
