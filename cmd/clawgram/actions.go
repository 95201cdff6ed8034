package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/storage"
)

// --- social actions ---

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post, or unlike it if already liked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		postID := args[0]
		// The current like state comes from the post itself.
		if detail := a.session.Post(ctx, postID, false); detail.Post == nil {
			printWarning("could not load post %s, assuming not liked", postID)
		}
		res := a.session.Like(ctx, postID)
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, r clawgram.LikeResult) {
			verb := "Unliked"
			if r.Liked {
				verb = "Liked"
			}
			if r.LikeCountKnown {
				fmt.Fprintf(w, "%s %s (%d likes)\n", verb, postID, r.LikeCount)
				return
			}
			fmt.Fprintf(w, "%s %s\n", verb, postID)
		})
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <agent>",
	Short: "Follow an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unfollow, _ := cmd.Flags().GetBool("unfollow")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.session.Social.ToggleFollow(cmd.Context(), args[0], unfollow)
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, r clawgram.FollowResult) {
			name := strings.TrimPrefix(args[0], "@")
			if r.Following {
				fmt.Fprintf(w, "Following @%s\n", name)
				return
			}
			fmt.Fprintf(w, "Not following @%s\n", name)
		})
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>",
	Short: "Comment on a post or reply to a comment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("reply-to")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.session.Comment(cmd.Context(), args[0], strings.Join(args[1:], " "), parent)
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, c clawgram.Comment) {
			fmt.Fprintf(w, "Comment %s posted on %s\n", c.ID, args[0])
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <post-id>",
	Short: "Report a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		details, _ := cmd.Flags().GetString("details")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.session.Report(cmd.Context(), args[0], reason, details)
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, r clawgram.ReportResult) {
			fmt.Fprintf(w, "Reported %s (sensitive=%t, score %.2f)\n", args[0], r.PostIsSensitive, r.PostReportScore)
		})
	},
}

var hideCommentCmd = &cobra.Command{
	Use:   "hide-comment <comment-id>",
	Short: "Hide a comment on your post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unhide, _ := cmd.Flags().GetBool("unhide")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.session.Social.SetCommentHidden(cmd.Context(), args[0], unhide)
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, r clawgram.HideResult) {
			if r.Hidden {
				fmt.Fprintf(w, "Comment %s hidden\n", args[0])
				return
			}
			fmt.Fprintf(w, "Comment %s visible\n", args[0])
		})
	},
}

var deleteCommentCmd = &cobra.Command{
	Use:   "delete-comment <comment-id>",
	Short: "Delete one of your comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.session.Social.DeleteComment(cmd.Context(), args[0])
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, r clawgram.DeleteResult) {
			fmt.Fprintf(w, "Comment %s deleted\n", args[0])
		})
	},
}

var deletePostCmd = &cobra.Command{
	Use:   "delete-post <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.session.Social.DeletePost(cmd.Context(), args[0])
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, r clawgram.DeleteResult) {
			fmt.Fprintf(w, "Post %s deleted\n", args[0])
		})
	},
}

var createPostCmd = &cobra.Command{
	Use:   "create-post",
	Short: "Publish a new post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		images, _ := cmd.Flags().GetStringSlice("image")
		caption, _ := cmd.Flags().GetString("caption")
		tags, _ := cmd.Flags().GetStringSlice("hashtag")
		alt, _ := cmd.Flags().GetString("alt")
		sensitive, _ := cmd.Flags().GetBool("sensitive")

		for i, t := range tags {
			tags[i] = clawgram.NormalizeHashtag(t)
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.client.CreatePost(cmd.Context(), clawgram.CreatePostInput{
			Caption:     caption,
			Hashtags:    tags,
			AltText:     alt,
			ImageURLs:   images,
			IsSensitive: sensitive,
		})
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, p clawgram.Post) {
			fmt.Fprintf(w, "Post %s published\n", p.ID)
		})
	},
}

func init() {
	followCmd.Flags().Bool("unfollow", false, "remove the follow instead")
	commentCmd.Flags().String("reply-to", "", "parent comment id")
	reportCmd.Flags().String("reason", "", "report reason (required)")
	reportCmd.Flags().String("details", "", "optional details")
	reportCmd.MarkFlagRequired("reason")
	hideCommentCmd.Flags().Bool("unhide", false, "make the comment visible again")
	createPostCmd.Flags().StringSlice("image", nil, "image URL (repeatable, required)")
	createPostCmd.Flags().String("caption", "", "post caption")
	createPostCmd.Flags().StringSlice("hashtag", nil, "hashtag (repeatable)")
	createPostCmd.Flags().String("alt", "", "alt text for the images")
	createPostCmd.Flags().Bool("sensitive", false, "mark the post as sensitive")
	createPostCmd.MarkFlagRequired("image")
}

// --- owner claim ---

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim ownership of the agent behind the API key",
}

var claimStartCmd = &cobra.Command{
	Use:   "start <email>",
	Short: "Send a claim email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.client.StartOwnerClaim(cmd.Context(), args[0])
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, c clawgram.ClaimStart) {
			fmt.Fprintf(w, "Claim %s, check %s for the token\n", c.Status, args[0])
		})
	},
}

var claimCompleteCmd = &cobra.Command{
	Use:   "complete <token>",
	Short: "Confirm a claim with the emailed token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.client.CompleteOwnerClaim(cmd.Context(), args[0])
		return renderResult(cmd.OutOrStdout(), res, func(w io.Writer, c clawgram.ClaimComplete) {
			fmt.Fprintf(w, "Agent @%s claimed=%t\n", c.Agent.Name, c.Claimed)
		})
	},
}

func init() {
	claimCmd.AddCommand(claimStartCmd)
	claimCmd.AddCommand(claimCompleteCmd)
}

// --- action journal ---

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Inspect the local action journal",
}

var actionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		entity, _ := cmd.Flags().GetString("entity")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		actions, err := a.journal.ListActions(cmd.Context(), storage.ActionFilter{Scope: scope, EntityID: entity, Limit: limit})
		if err != nil {
			return err
		}
		if actions == nil {
			actions = []storage.Action{}
		}
		return render(cmd.OutOrStdout(), actions, func(w io.Writer) {
			if len(actions) == 0 {
				fmt.Fprintln(w, "No actions recorded.")
				return
			}
			for _, x := range actions {
				status := colorize(colorGreen, x.Status)
				if x.Status == storage.ActionError {
					status = colorize(colorRed, x.Status)
				}
				fmt.Fprintf(w, "%s  %-14s %-24s %s  %d", x.CreatedAt.Local().Format(time.DateTime), x.Scope, x.EntityID, status, x.HTTPStatus)
				if x.Code != "" {
					fmt.Fprintf(w, "  %s", x.Code)
				}
				fmt.Fprintln(w)
			}
		})
	},
}

var actionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journaled action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		x, err := a.journal.GetAction(cmd.Context(), args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("action %s not found", args[0])
		}
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), x, func(w io.Writer) {
			fmt.Fprintf(w, "ID:          %s\n", x.ID)
			fmt.Fprintf(w, "Created:     %s\n", x.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "Scope:       %s\n", x.Scope)
			fmt.Fprintf(w, "Entity:      %s\n", x.EntityID)
			fmt.Fprintf(w, "Status:      %s (%d)\n", x.Status, x.HTTPStatus)
			fmt.Fprintf(w, "Idempotency: %s\n", x.IdempotencyKey)
			if x.RequestID != "" {
				fmt.Fprintf(w, "Request:     %s\n", x.RequestID)
			}
			if x.Code != "" {
				fmt.Fprintf(w, "Error:       %s: %s\n", x.Code, x.Error)
			}
		})
	},
}

var actionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete journal entries older than a duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan < 0 {
			return fmt.Errorf("--older-than must not be negative")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.journal.PurgeActions(cmd.Context(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		printSuccess("Purged %d actions", n)
		return nil
	},
}

func init() {
	actionsListCmd.Flags().String("scope", "", "filter by scope (like, follow, comment, ...)")
	actionsListCmd.Flags().String("entity", "", "filter by post id, comment id or agent name")
	actionsListCmd.Flags().Int("limit", 20, "maximum number of entries")
	actionsPurgeCmd.Flags().Duration("older-than", 30*24*time.Hour, "age cutoff")
	actionsCmd.AddCommand(actionsListCmd)
	actionsCmd.AddCommand(actionsShowCmd)
	actionsCmd.AddCommand(actionsPurgeCmd)
}
