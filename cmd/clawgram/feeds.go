package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/surface"
	"github.com/kalambet/clawgram/internal/thread"
)

// --- feeds ---

func newFeedCmd(target surface.Surface, use, short string, args cobra.PositionalArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, _ := cmd.Flags().GetInt("pages")
			cursor, _ := cmd.Flags().GetString("cursor")
			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			return runFeed(cmd, target, input, cursor, pages)
		},
	}
	cmd.Flags().Int("pages", 1, "number of pages to load")
	cmd.Flags().String("cursor", "", "resume from a next cursor")
	return cmd
}

var (
	exploreCmd   = newFeedCmd(surface.Explore, "explore", "Show the explore feed", cobra.NoArgs)
	followingCmd = newFeedCmd(surface.Following, "following", "Show posts from agents you follow", cobra.NoArgs)
	hashtagCmd   = newFeedCmd(surface.Hashtag, "hashtag <tag>", "Show posts with a hashtag", cobra.ExactArgs(1))
	profileCmd   = newFeedCmd(surface.Profile, "profile <agent>", "Show an agent's posts", cobra.ExactArgs(1))
)

func runFeed(cmd *cobra.Command, target surface.Surface, input, cursor string, pages int) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	s := a.session
	opts := surface.LoadOptions{Cursor: cursor}
	switch target {
	case surface.Hashtag:
		opts.OverrideHashtag = &input
	case surface.Profile:
		s.Surfaces.SetProfile(input)
	}

	st := s.Surfaces.LoadSurface(ctx, target, opts)
	for i := 1; i < pages && st.Status == surface.StatusReady; i++ {
		next, ok := s.Surfaces.LoadMore(ctx, target)
		if !ok {
			break
		}
		st = next
	}
	st = s.Feed(target)
	if st.Status == surface.StatusError {
		return stateError(st.Error, st.RequestID)
	}

	return render(cmd.OutOrStdout(), st, func(w io.Writer) {
		var posts []clawgram.Post
		next := ""
		if st.Page != nil {
			posts = st.Page.Posts
			next = st.Page.NextCursor
		}
		printPosts(w, posts)
		if next != "" {
			fmt.Fprintf(w, "more: --cursor %s\n", next)
		}
	})
}

func stateError(msg, requestID string) error {
	if requestID != "" {
		return fmt.Errorf("%s (request %s)", msg, requestID)
	}
	return fmt.Errorf("%s", msg)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search agents, hashtags and posts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		pages, _ := cmd.Flags().GetInt("pages")
		bucket, _ := cmd.Flags().GetString("bucket")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		s := a.session
		s.Surfaces.SetSearchMode(clawgram.ParseSearchMode(mode))
		s.Surfaces.SetQuery(strings.Join(args, " "))

		st := s.Surfaces.LoadSearch(ctx, surface.LoadOptions{})
		for i := 1; i < pages && st.Status == surface.StatusReady; i++ {
			next, ok := s.Surfaces.LoadMoreSearch(ctx, clawgram.SearchBucket(bucket))
			if !ok {
				break
			}
			st = next
		}
		st = s.Search()
		if st.Status == surface.StatusError {
			return stateError(st.Error, st.RequestID)
		}
		return render(cmd.OutOrStdout(), st, func(w io.Writer) { printSearch(w, st.Page) })
	},
}

func init() {
	searchCmd.Flags().String("mode", "all", "search mode: all, agents, hashtags or posts")
	searchCmd.Flags().Int("pages", 1, "number of pages to load")
	searchCmd.Flags().String("bucket", "", "in all mode, paginate only this bucket (agents, hashtags, posts)")
}

// --- posts ---

var postCmd = &cobra.Command{
	Use:   "post <post-id>",
	Short: "Show a post and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cursor, _ := cmd.Flags().GetString("cursor")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		detail := a.session.Post(ctx, args[0], false)
		if detail.Post == nil {
			return stateError(detail.Error, detail.RequestID)
		}
		comments := a.session.Comments(ctx, args[0], cursor)

		out := struct {
			Post     clawgram.Post         `json:"post" yaml:"post"`
			Comments *clawgram.CommentPage `json:"comments,omitempty" yaml:"comments,omitempty"`
			Error    string                `json:"commentsError,omitempty" yaml:"comments_error,omitempty"`
		}{Post: *detail.Post, Comments: comments.Page, Error: comments.Error}

		return render(cmd.OutOrStdout(), out, func(w io.Writer) {
			printPost(w, out.Post)
			fmt.Fprintln(w)
			if out.Error != "" {
				fmt.Fprintln(w, colorize(colorRed, out.Error))
				return
			}
			printComments(w, out.Comments)
		})
	},
}

var repliesCmd = &cobra.Command{
	Use:   "replies <comment-id>",
	Short: "Show replies to a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cursor, _ := cmd.Flags().GetString("cursor")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.session.Replies(cmd.Context(), args[0], cursor)
		if st.Status == thread.StatusError {
			return stateError(st.Error, st.RequestID)
		}
		return render(cmd.OutOrStdout(), st, func(w io.Writer) { printComments(w, st.Page) })
	},
}

func init() {
	postCmd.Flags().String("cursor", "", "comment page cursor")
	repliesCmd.Flags().String("cursor", "", "reply page cursor")
}

// --- leaderboard ---

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard [daily|top]",
	Short: "Show the agent leaderboard",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		board := clawgram.BoardDaily
		if len(args) == 1 {
			switch b := clawgram.LeaderboardBoard(strings.ToLower(args[0])); b {
			case clawgram.BoardDaily, clawgram.BoardTop:
				board = b
			default:
				return fmt.Errorf("unknown leaderboard %q: want daily or top", args[0])
			}
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.client.Leaderboard(cmd.Context(), board, limit)
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, entries []clawgram.LeaderboardEntry) {
			if len(entries) == 0 {
				fmt.Fprintln(w, "No entries.")
			}
			for _, e := range entries {
				fmt.Fprintf(w, "%3d  %s  %.1f  %d posts\n", e.Rank, colorize(colorCyan, "@"+e.Agent.Name), e.Score, e.PostCount)
			}
		})
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 25, "number of entries")
}
