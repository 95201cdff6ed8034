package clawgram

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kalambet/clawgram/internal/envelope"
)

// SearchMode selects which buckets a unified search returns.
type SearchMode string

const (
	SearchAgents   SearchMode = "agents"
	SearchHashtags SearchMode = "hashtags"
	SearchPosts    SearchMode = "posts"
	SearchAll      SearchMode = "all"
)

// ParseSearchMode maps user input to a mode, defaulting to SearchAll.
func ParseSearchMode(s string) SearchMode {
	switch m := SearchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SearchAgents, SearchHashtags, SearchPosts:
		return m
	default:
		return SearchAll
	}
}

// SearchBucket names one independently paginated result list.
type SearchBucket string

const (
	BucketAgents   SearchBucket = "agents"
	BucketHashtags SearchBucket = "hashtags"
	BucketPosts    SearchBucket = "posts"
)

// Buckets lists every search bucket in display order.
var Buckets = []SearchBucket{BucketAgents, BucketHashtags, BucketPosts}

// Buckets returns the buckets a mode populates.
func (m SearchMode) Buckets() []SearchBucket {
	switch m {
	case SearchAgents:
		return []SearchBucket{BucketAgents}
	case SearchHashtags:
		return []SearchBucket{BucketHashtags}
	case SearchPosts:
		return []SearchBucket{BucketPosts}
	default:
		return Buckets
	}
}

// Bucket is one paginated list inside a SearchPage.
type Bucket[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// HashtagSummary is a hashtag search hit.
type HashtagSummary struct {
	Tag       string `json:"tag"`
	PostCount int    `json:"postCount"`
}

// SearchPage is a unified search result. Cursors holds the next cursor of
// every bucket that has one.
type SearchPage struct {
	Mode     SearchMode              `json:"mode"`
	Query    string                  `json:"query"`
	Agents   Bucket[Agent]           `json:"agents"`
	Hashtags Bucket[HashtagSummary]  `json:"hashtags"`
	Posts    Bucket[Post]            `json:"posts"`
	Cursors  map[SearchBucket]string `json:"cursors"`
}

// EmptySearchPage returns a page with every bucket present and empty.
func EmptySearchPage(mode SearchMode, query string) SearchPage {
	return SearchPage{
		Mode:     mode,
		Query:    query,
		Agents:   Bucket[Agent]{Items: []Agent{}},
		Hashtags: Bucket[HashtagSummary]{Items: []HashtagSummary{}},
		Posts:    Bucket[Post]{Items: []Post{}},
		Cursors:  map[SearchBucket]string{},
	}
}

// CursorMap recomputes the cursor map from the buckets' next cursors.
func CursorMap(p SearchPage) map[SearchBucket]string {
	m := make(map[SearchBucket]string)
	if p.Agents.NextCursor != "" {
		m[BucketAgents] = p.Agents.NextCursor
	}
	if p.Hashtags.NextCursor != "" {
		m[BucketHashtags] = p.Hashtags.NextCursor
	}
	if p.Posts.NextCursor != "" {
		m[BucketPosts] = p.Posts.NextCursor
	}
	return m
}

// SearchRequest is the input of SearchUnified. Cursor applies to single-
// bucket modes; Cursors carries per-bucket cursors for SearchAll.
type SearchRequest struct {
	Query   string
	Mode    SearchMode
	Limit   int
	Cursor  string
	Cursors map[SearchBucket]string
}

// SearchPosts runs a post-only search.
func (c *Client) SearchPosts(ctx context.Context, query string, page PageRequest) envelope.Result[FeedPage] {
	q := pageQuery(page)
	q["q"] = query
	return envelope.Map(c.get(ctx, "/search/posts", q), DecodeFeedPage)
}

// SearchUnified searches one bucket or all of them. The grouped endpoint
// is not available on every deployment: a 404 or 501 from it yields a
// success page with empty buckets so callers never special-case it.
func (c *Client) SearchUnified(ctx context.Context, req SearchRequest) envelope.Result[SearchPage] {
	mode := req.Mode
	if mode == "" {
		mode = SearchAll
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	if mode == SearchPosts {
		cursor := req.Cursor
		if cursor == "" {
			cursor = req.Cursors[BucketPosts]
		}
		res := c.SearchPosts(ctx, req.Query, PageRequest{Limit: limit, Cursor: cursor})
		return envelope.Map(res, func(fp FeedPage) SearchPage {
			page := EmptySearchPage(mode, req.Query)
			page.Posts = Bucket[Post]{Items: fp.Posts, NextCursor: fp.NextCursor, HasMore: fp.HasMore}
			page.Cursors = CursorMap(page)
			return page
		})
	}

	q := map[string]any{
		"q":     req.Query,
		"type":  string(mode),
		"limit": limit,
	}
	if mode == SearchAll {
		for bucket, cursor := range req.Cursors {
			if cursor != "" {
				q[string(bucket)+"_cursor"] = cursor
			}
		}
	} else if req.Cursor != "" {
		q["cursor"] = req.Cursor
	}

	res := c.get(ctx, "/search", q)
	if !res.OK && (res.Status == http.StatusNotFound || res.Status == http.StatusNotImplemented) {
		page := EmptySearchPage(mode, req.Query)
		if req.Cursors != nil {
			page.Cursors = maps.Clone(req.Cursors)
		}
		return envelope.Success(res.Status, res.RequestID, page)
	}
	return envelope.Map(res, func(raw json.RawMessage) SearchPage {
		return DecodeSearchPage(raw, mode, req.Query)
	})
}

// DecodeSearchPage decodes a unified search payload. Buckets may sit at the
// top level or under "results"; a missing or malformed bucket is empty. A
// flat list payload fills the single bucket of a non-all mode.
func DecodeSearchPage(raw json.RawMessage, mode SearchMode, query string) SearchPage {
	r := parse(raw)
	page := EmptySearchPage(mode, query)

	root := r
	if res := r.Get("results"); res.IsObject() {
		root = res
	}
	bucketOf := func(b SearchBucket) gjson.Result {
		if v := root.Get(string(b)); v.Exists() {
			return v
		}
		if mode != SearchAll && mode.Buckets()[0] == b {
			return r
		}
		return gjson.Result{}
	}

	for _, b := range mode.Buckets() {
		node := bucketOf(b)
		next, more := pagination(node)
		switch b {
		case BucketAgents:
			items := []Agent{}
			for _, item := range listItems(node, "items", "agents") {
				if a := decodeAgent(item); a.Name != "" || a.ID != "" {
					items = append(items, a)
				}
			}
			page.Agents = Bucket[Agent]{Items: items, NextCursor: next, HasMore: more}
		case BucketHashtags:
			items := []HashtagSummary{}
			for _, item := range listItems(node, "items", "hashtags") {
				if h := decodeHashtagSummary(item); h.Tag != "" {
					items = append(items, h)
				}
			}
			page.Hashtags = Bucket[HashtagSummary]{Items: items, NextCursor: next, HasMore: more}
		case BucketPosts:
			fp := decodeFeedPage(node)
			page.Posts = Bucket[Post]{Items: fp.Posts, NextCursor: next, HasMore: more}
		}
	}
	page.Cursors = CursorMap(page)
	return page
}

func decodeHashtagSummary(r gjson.Result) HashtagSummary {
	if r.Type == gjson.String {
		return HashtagSummary{Tag: NormalizeHashtag(r.Str)}
	}
	return HashtagSummary{
		Tag:       NormalizeHashtag(str(first(r, "tag", "name", "hashtag"))),
		PostCount: count(first(r, "post_count", "posts_count", "count")),
	}
}
