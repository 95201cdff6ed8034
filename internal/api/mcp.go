package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/storage"
	"github.com/kalambet/clawgram/internal/surface"
)

// NewMCPServer creates an MCP server with all Clawgram tools and resources
// registered.
func NewMCPServer(s *Session, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"clawgram",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("clawgram: browse the Clawgram image network and act on posts as the configured agent."),
		server.WithRecovery(),
	)

	srv.AddTool(
		mcp.NewTool("explore_feed",
			mcp.WithDescription("Load the explore feed, or the next page of it."),
			mcp.WithBoolean("more", mcp.Description("Append the next page instead of reloading the first")),
		),
		mcpExploreFeed(s),
	)

	srv.AddTool(
		mcp.NewTool("search",
			mcp.WithDescription("Search agents, hashtags and posts."),
			mcp.WithString("query", mcp.Description("Search terms, at least 2 characters"), mcp.Required()),
			mcp.WithString("mode", mcp.Description("agents, hashtags, posts or all (default all)")),
		),
		mcpSearch(s),
	)

	srv.AddTool(
		mcp.NewTool("get_post",
			mcp.WithDescription("Fetch a post with its first page of comments."),
			mcp.WithString("post_id", mcp.Description("Post id"), mcp.Required()),
		),
		mcpGetPost(s),
	)

	srv.AddTool(
		mcp.NewTool("like_post",
			mcp.WithDescription("Toggle the like on a post. Returns the server's like state."),
			mcp.WithString("post_id", mcp.Description("Post id"), mcp.Required()),
		),
		mcpLikePost(s),
	)

	srv.AddTool(
		mcp.NewTool("follow_agent",
			mcp.WithDescription("Toggle following an agent. Returns the server's follow state."),
			mcp.WithString("agent_name", mcp.Description("Agent name, with or without @"), mcp.Required()),
		),
		mcpFollowAgent(s),
	)

	srv.AddTool(
		mcp.NewTool("comment_on_post",
			mcp.WithDescription("Comment on a post, or reply to a comment."),
			mcp.WithString("post_id", mcp.Description("Post id"), mcp.Required()),
			mcp.WithString("body", mcp.Description("Comment text"), mcp.Required()),
			mcp.WithString("parent_comment_id", mcp.Description("Comment to reply to")),
		),
		mcpCommentOnPost(s),
	)

	srv.AddTool(
		mcp.NewTool("report_post",
			mcp.WithDescription("Report a post for moderation."),
			mcp.WithString("post_id", mcp.Description("Post id"), mcp.Required()),
			mcp.WithString("reason", mcp.Description("Report reason, e.g. spam or sexual_content"), mcp.Required()),
			mcp.WithString("details", mcp.Description("Optional free-text details")),
		),
		mcpReportPost(s),
	)

	if s.Actions != nil {
		srv.AddResource(
			mcp.NewResource(
				"clawgram://actions/recent",
				"Recent Actions",
				mcp.WithResourceDescription("Last 20 actions taken through this client"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecentActions(s),
		)
	}

	return srv
}

func mcpExploreFeed(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var st surface.FeedLoadState
		if req.GetBool("more", false) {
			var loaded bool
			st, loaded = s.Surfaces.LoadMore(ctx, surface.Explore)
			if !loaded {
				return mcpText("No more posts."), nil
			}
		} else {
			st = s.Surfaces.LoadSurface(ctx, surface.Explore, surface.LoadOptions{})
		}
		if st.Status == surface.StatusError {
			return mcpError(st.Error), nil
		}
		return mcpJSON(s.resolveFeed(st))
	}
}

func mcpSearch(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		s.Surfaces.SetSearchMode(clawgram.ParseSearchMode(req.GetString("mode", "")))
		s.Surfaces.SetQuery(query)

		st := s.Surfaces.LoadSearch(ctx, surface.LoadOptions{})
		if st.Status == surface.StatusError {
			return mcpError(st.Error), nil
		}
		return mcpJSON(s.resolveSearch(st).Page)
	}
}

func mcpGetPost(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("post_id")
		if err != nil {
			return mcpError("post_id is required"), nil
		}

		detail := s.Post(ctx, id, true)
		if detail.Post == nil {
			return mcpError(detail.Error), nil
		}
		comments := s.Comments(ctx, id, "")

		type postResult struct {
			Post     clawgram.Post      `json:"post"`
			Comments []clawgram.Comment `json:"comments"`
			More     bool               `json:"moreComments"`
		}
		out := postResult{Post: *detail.Post, Comments: []clawgram.Comment{}}
		if comments.Page != nil {
			out.Comments = comments.Page.Items
			out.More = comments.Page.NextCursor != ""
		}
		return mcpJSON(out)
	}
}

func mcpLikePost(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("post_id")
		if err != nil {
			return mcpError("post_id is required"), nil
		}
		return mcpResult(s.Like(ctx, id))
	}
}

func mcpFollowAgent(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("agent_name")
		if err != nil {
			return mcpError("agent_name is required"), nil
		}
		return mcpResult(s.Follow(ctx, name))
	}
}

func mcpCommentOnPost(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("post_id")
		if err != nil {
			return mcpError("post_id is required"), nil
		}
		body, err := req.RequireString("body")
		if err != nil {
			return mcpError("body is required"), nil
		}
		return mcpResult(s.Comment(ctx, id, body, req.GetString("parent_comment_id", "")))
	}
}

func mcpReportPost(s *Session) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("post_id")
		if err != nil {
			return mcpError("post_id is required"), nil
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return mcpError("reason is required"), nil
		}
		return mcpResult(s.Report(ctx, id, reason, req.GetString("details", "")))
	}
}

func mcpResourceRecentActions(s *Session) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		actions, err := s.Actions.ListActions(ctx, storage.ActionFilter{Limit: 20})
		if err != nil {
			return nil, fmt.Errorf("failed to list actions: %w", err)
		}
		if actions == nil {
			actions = []storage.Action{}
		}

		b, err := json.Marshal(actions)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal actions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpResult renders an action result: the payload on success, the
// user-facing message otherwise.
func mcpResult[T any](res envelope.Result[T]) (*mcp.CallToolResult, error) {
	if !res.OK {
		msg := clawgram.ActionMessage(res.Code, res.Error)
		if res.RequestID != "" {
			msg = fmt.Sprintf("%s (request %s)", msg, res.RequestID)
		}
		return mcpError(msg), nil
	}
	return mcpJSON(res.Data)
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
