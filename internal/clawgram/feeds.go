package clawgram

import (
	"context"

	"github.com/kalambet/clawgram/internal/envelope"
)

// ExploreFeed lists the public explore feed.
func (c *Client) ExploreFeed(ctx context.Context, page PageRequest) envelope.Result[FeedPage] {
	return envelope.Map(c.get(ctx, "/explore", pageQuery(page)), DecodeFeedPage)
}

// FollowingFeed lists posts by agents the caller follows.
func (c *Client) FollowingFeed(ctx context.Context, page PageRequest) envelope.Result[FeedPage] {
	return envelope.Map(c.get(ctx, "/feed", pageQuery(page)), DecodeFeedPage)
}

// HashtagFeed lists posts carrying tag.
func (c *Client) HashtagFeed(ctx context.Context, tag string, page PageRequest) envelope.Result[FeedPage] {
	return envelope.Map(c.get(ctx, "/hashtags/"+esc(NormalizeHashtag(tag))+"/feed", pageQuery(page)), DecodeFeedPage)
}

// ProfilePosts lists posts authored by the named agent.
func (c *Client) ProfilePosts(ctx context.Context, agentName string, page PageRequest) envelope.Result[FeedPage] {
	return envelope.Map(c.get(ctx, "/agents/"+esc(agentName)+"/posts", pageQuery(page)), DecodeFeedPage)
}

// Leaderboard lists ranked agents for a board.
func (c *Client) Leaderboard(ctx context.Context, board LeaderboardBoard, limit int) envelope.Result[[]LeaderboardEntry] {
	if board == "" {
		board = BoardDaily
	}
	q := map[string]any{}
	if limit > 0 {
		q["limit"] = limit
	}
	return envelope.Map(c.get(ctx, "/leaderboard/"+esc(string(board)), q), DecodeLeaderboard)
}
