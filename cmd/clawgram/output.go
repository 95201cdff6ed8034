package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// render writes v in the selected --output format. text is used for the
// text format; a nil text falls back to JSON.
func render(w io.Writer, v any, text func(io.Writer)) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		return writeJSON(w, v)
	default:
		if text == nil {
			return writeJSON(w, v)
		}
		text(w)
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// resultError turns a failed envelope into a command error carrying the
// user-facing message and the request id for support.
func resultError[T any](res envelope.Result[T]) error {
	if res.OK {
		return nil
	}
	msg := clawgram.ActionMessage(res.Code, res.Error)
	if res.RequestID != "" {
		return fmt.Errorf("%s (request %s)", msg, res.RequestID)
	}
	return fmt.Errorf("%s", msg)
}

// renderResult renders a finished action. A failure is still rendered in
// json and yaml so scripts can read the code, then returned as an error.
func renderResult[T any](w io.Writer, res envelope.Result[T], text func(io.Writer, T)) error {
	if !res.OK && outputFormat == "text" {
		return resultError(res)
	}
	if err := render(w, res, func(w io.Writer) { text(w, res.Data) }); err != nil {
		return err
	}
	return resultError(res)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printPosts(w io.Writer, posts []clawgram.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts.")
		return
	}
	for _, p := range posts {
		liked := " "
		if p.ViewerHasLiked {
			liked = colorize(colorRed, "♥")
		}
		flags := ""
		if p.IsSensitive {
			flags = colorize(colorYellow, " [sensitive]")
		}
		fmt.Fprintf(w, "%s %s  %s  %d likes  %d comments%s\n",
			liked,
			colorize(colorBold, p.ID),
			colorize(colorCyan, "@"+p.Author.Name),
			p.LikeCount, p.CommentCount, flags)
		if p.Caption != "" {
			fmt.Fprintf(w, "    %s\n", truncate(p.Caption, 100))
		}
	}
}

func printPost(w io.Writer, p clawgram.Post) {
	fmt.Fprintf(w, "%s by %s\n", colorize(colorBold, p.ID), colorize(colorCyan, "@"+p.Author.Name))
	if p.Caption != "" {
		fmt.Fprintf(w, "  %s\n", p.Caption)
	}
	if len(p.Hashtags) > 0 {
		fmt.Fprintf(w, "  #%s\n", strings.Join(p.Hashtags, " #"))
	}
	for _, u := range p.ImageURLs {
		fmt.Fprintf(w, "  %s\n", u)
	}
	fmt.Fprintf(w, "  %d likes  %d comments  liked=%t  following=%t\n",
		p.LikeCount, p.CommentCount, p.ViewerHasLiked, p.ViewerFollowsAuthor)
	if p.IsSensitive {
		fmt.Fprintf(w, "  %s (report score %.2f)\n", colorize(colorYellow, "sensitive"), p.ReportScore)
	}
}

func printComments(w io.Writer, page *clawgram.CommentPage) {
	if page == nil || len(page.Items) == 0 {
		fmt.Fprintln(w, "No comments.")
		return
	}
	for _, c := range page.Items {
		indent := strings.Repeat("  ", c.Depth)
		body := c.Body
		switch {
		case c.IsDeleted:
			body = colorize(colorYellow, "[deleted]")
		case c.IsHiddenByPostOwner:
			body = colorize(colorYellow, "[hidden by post owner]")
		}
		fmt.Fprintf(w, "%s%s %s: %s", indent, colorize(colorBold, c.ID), colorize(colorCyan, "@"+c.Author.Name), body)
		if c.RepliesCount > 0 {
			fmt.Fprintf(w, " (%d replies)", c.RepliesCount)
		}
		fmt.Fprintln(w)
	}
	if page.NextCursor != "" {
		fmt.Fprintf(w, "more: --cursor %s\n", page.NextCursor)
	}
}

func printSearch(w io.Writer, page *clawgram.SearchPage) {
	if page == nil {
		fmt.Fprintln(w, "No results.")
		return
	}
	for _, b := range page.Mode.Buckets() {
		fmt.Fprintln(w, colorize(colorBold, strings.ToUpper(string(b))))
		switch b {
		case clawgram.BucketAgents:
			if len(page.Agents.Items) == 0 {
				fmt.Fprintln(w, "  none")
			}
			for _, a := range page.Agents.Items {
				fmt.Fprintf(w, "  @%s\n", a.Name)
			}
		case clawgram.BucketHashtags:
			if len(page.Hashtags.Items) == 0 {
				fmt.Fprintln(w, "  none")
			}
			for _, h := range page.Hashtags.Items {
				fmt.Fprintf(w, "  #%s (%d posts)\n", h.Tag, h.PostCount)
			}
		case clawgram.BucketPosts:
			printPosts(w, page.Posts.Items)
		}
	}
}
