package surface

import (
	"slices"

	"github.com/kalambet/clawgram/internal/clawgram"
)

// MergeMode selects how an incoming page combines with the current one.
type MergeMode int

const (
	// MergeReplace discards the current page.
	MergeReplace MergeMode = iota
	// MergeAppend adds incoming items after the current ones, skipping ids
	// already present.
	MergeAppend
	// MergeBackground puts incoming items first, followed by current items
	// the incoming page does not contain.
	MergeBackground
)

func (m MergeMode) String() string {
	switch m {
	case MergeAppend:
		return "append"
	case MergeBackground:
		return "background"
	default:
		return "replace"
	}
}

func modeFor(opts LoadOptions) MergeMode {
	switch {
	case opts.Background:
		return MergeBackground
	case opts.Append:
		return MergeAppend
	default:
		return MergeReplace
	}
}

// appendUnique returns prev followed by the items of next whose id is not
// yet in the result. Items without an id are always kept.
func appendUnique[T any](prev, next []T, id func(T) string) []T {
	out := make([]T, 0, len(prev)+len(next))
	seen := make(map[string]bool, len(prev)+len(next))
	for _, list := range [][]T{prev, next} {
		for _, item := range list {
			k := id(item)
			if k != "" {
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			out = append(out, item)
		}
	}
	return out
}

// prependFresh returns next followed by the items of prev not in next.
func prependFresh[T any](prev, next []T, id func(T) string) []T {
	return appendUnique(next, prev, id)
}

func mergeItems[T any](prev, next []T, how MergeMode, id func(T) string) []T {
	switch how {
	case MergeAppend:
		return appendUnique(prev, next, id)
	case MergeBackground:
		return prependFresh(prev, next, id)
	default:
		return appendUnique(nil, next, id)
	}
}

func postID(p clawgram.Post) string { return p.ID }

func agentID(a clawgram.Agent) string {
	if a.ID != "" {
		return a.ID
	}
	return clawgram.NormalizeAgentName(a.Name)
}

func hashtagID(h clawgram.HashtagSummary) string { return h.Tag }

// MergeFeedPage combines prev with an incoming page. The incoming page's
// cursor and hasMore always win.
func MergeFeedPage(prev *clawgram.FeedPage, next clawgram.FeedPage, how MergeMode) clawgram.FeedPage {
	var prevPosts []clawgram.Post
	if prev != nil {
		prevPosts = prev.Posts
	}
	return clawgram.FeedPage{
		Posts:      mergeItems(prevPosts, next.Posts, how, postID),
		NextCursor: next.NextCursor,
		HasMore:    next.HasMore,
	}
}

func mergeBucket[T any](prev, next clawgram.Bucket[T], how MergeMode, id func(T) string) clawgram.Bucket[T] {
	return clawgram.Bucket[T]{
		Items:      mergeItems(prev.Items, next.Items, how, id),
		NextCursor: next.NextCursor,
		HasMore:    next.HasMore,
	}
}

// MergeSearchPage combines prev with an incoming search page. Only bucket
// is merged when set, otherwise every bucket of next.Mode; other buckets
// carry over from prev unchanged. An unscoped append only touches buckets
// that still had a cursor in prev. The cursor map is recomputed.
func MergeSearchPage(prev *clawgram.SearchPage, next clawgram.SearchPage, bucket clawgram.SearchBucket, how MergeMode) clawgram.SearchPage {
	var out clawgram.SearchPage
	if prev != nil {
		out = *prev
	} else {
		out = clawgram.EmptySearchPage(next.Mode, next.Query)
	}
	out.Mode = next.Mode
	out.Query = next.Query

	targets := next.Mode.Buckets()
	switch {
	case bucket != "":
		targets = []clawgram.SearchBucket{bucket}
	case how == MergeAppend && prev != nil:
		targets = slices.DeleteFunc(slices.Clone(targets), func(b clawgram.SearchBucket) bool {
			return prev.Cursors[b] == ""
		})
	}
	for _, b := range targets {
		switch b {
		case clawgram.BucketAgents:
			out.Agents = mergeBucket(out.Agents, next.Agents, how, agentID)
		case clawgram.BucketHashtags:
			out.Hashtags = mergeBucket(out.Hashtags, next.Hashtags, how, hashtagID)
		case clawgram.BucketPosts:
			out.Posts = mergeBucket(out.Posts, next.Posts, how, postID)
		}
	}
	out.Cursors = clawgram.CursorMap(out)
	return out
}
