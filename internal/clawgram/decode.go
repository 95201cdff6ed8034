package clawgram

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Decoders accept any JSON and return fully defaulted values. Every field
// is optional; wrong types decode as the zero value.

func parse(raw json.RawMessage) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

func str(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return ""
}

func boolean(r gjson.Result) bool {
	return r.Type == gjson.True
}

func number(r gjson.Result) float64 {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func nonNegative(r gjson.Result) float64 {
	return math.Max(0, number(r))
}

// maxCount caps decoded counts so the float to int conversion stays in range.
const maxCount = math.MaxInt32

func count(r gjson.Result) int {
	return int(math.Min(nonNegative(r), maxCount))
}

// first returns the first path that exists on obj.
func first(obj gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := obj.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// unwrap returns obj.key when it is an object, else obj itself. Used for
// payloads that arrive either bare or as {"post": {...}}.
func unwrap(obj gjson.Result, key string) gjson.Result {
	if inner := obj.Get(key); inner.IsObject() {
		return inner
	}
	return obj
}

// NormalizeAgentName is the case-insensitive key for an agent name.
func NormalizeAgentName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

// NormalizeHashtag strips the leading # and lower-cases the tag.
func NormalizeHashtag(tag string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
}

func decodeAgent(r gjson.Result) Agent {
	if r.Type == gjson.String {
		return Agent{ID: r.Str, Name: r.Str}
	}
	name := str(first(r, "name", "username"))
	id := str(r.Get("id"))
	if id == "" {
		id = name
	}
	return Agent{
		ID:        id,
		Name:      name,
		AvatarURL: str(first(r, "avatar_url", "avatar")),
		Claimed:   boolean(first(r, "claimed", "is_claimed")),
	}
}

// DecodeAgent decodes an agent object.
func DecodeAgent(raw json.RawMessage) Agent {
	return decodeAgent(parse(raw))
}

func decodeHashtags(r gjson.Result) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, v := range r.Array() {
		tag := strings.TrimPrefix(strings.TrimSpace(str(v)), "#")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

func decodeImageURLs(r gjson.Result) []string {
	urls := []string{}
	if images := r.Get("images"); images.IsArray() {
		for _, img := range images.Array() {
			u := str(img)
			if img.IsObject() {
				u = str(first(img, "url", "image_url"))
			}
			if u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	}
	for _, v := range r.Get("image_urls").Array() {
		if u := str(v); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		if u := str(r.Get("image_url")); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func decodePost(r gjson.Result) Post {
	return Post{
		ID:                  str(r.Get("id")),
		Caption:             str(r.Get("caption")),
		Hashtags:            decodeHashtags(r.Get("hashtags")),
		AltText:             str(r.Get("alt_text")),
		Author:              decodeAgent(first(r, "author", "agent")),
		ImageURLs:           decodeImageURLs(r),
		IsSensitive:         boolean(r.Get("is_sensitive")),
		IsOwnerInfluenced:   boolean(r.Get("is_owner_influenced")),
		ReportScore:         nonNegative(r.Get("report_score")),
		LikeCount:           count(r.Get("like_count")),
		CommentCount:        count(r.Get("comment_count")),
		CreatedAt:           str(r.Get("created_at")),
		ViewerHasLiked:      boolean(r.Get("viewer_has_liked")),
		ViewerFollowsAuthor: boolean(r.Get("viewer_follows_author")),
	}
}

// DecodePost decodes a post, accepting {"post": {...}} wrappers.
func DecodePost(raw json.RawMessage) Post {
	return decodePost(unwrap(parse(raw), "post"))
}

func decodeComment(r gjson.Result) Comment {
	depth := count(r.Get("depth"))
	if depth < 1 {
		depth = 1
	}
	return Comment{
		ID:                  str(r.Get("id")),
		PostID:              str(r.Get("post_id")),
		ParentCommentID:     str(r.Get("parent_comment_id")),
		Depth:               depth,
		Body:                str(first(r, "body", "content")),
		RepliesCount:        count(r.Get("replies_count")),
		IsDeleted:           boolean(r.Get("is_deleted")),
		DeletedAt:           str(r.Get("deleted_at")),
		IsHiddenByPostOwner: boolean(r.Get("is_hidden_by_post_owner")),
		HiddenByAgentID:     str(r.Get("hidden_by_agent_id")),
		HiddenAt:            str(r.Get("hidden_at")),
		CreatedAt:           str(r.Get("created_at")),
		Author:              decodeAgent(first(r, "author", "agent")),
	}
}

// DecodeComment decodes a comment, accepting {"comment": {...}} wrappers.
func DecodeComment(raw json.RawMessage) Comment {
	return decodeComment(unwrap(parse(raw), "comment"))
}

// listItems returns the item array of a list payload: the payload itself
// when it is an array, else the first array under the given keys.
func listItems(r gjson.Result, keys ...string) []gjson.Result {
	if r.IsArray() {
		return r.Array()
	}
	for _, k := range keys {
		if v := r.Get(k); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

func pagination(r gjson.Result) (string, bool) {
	if !r.IsObject() {
		return "", false
	}
	info := r
	if pi := r.Get("page_info"); pi.IsObject() {
		info = pi
	}
	return str(info.Get("next_cursor")), boolean(info.Get("has_more"))
}

func decodeFeedPage(r gjson.Result) FeedPage {
	posts := []Post{}
	seen := make(map[string]bool)
	for _, item := range listItems(r, "items", "posts") {
		p := decodePost(item)
		if p.ID != "" {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
		}
		posts = append(posts, p)
	}
	next, more := pagination(r)
	return FeedPage{Posts: posts, NextCursor: next, HasMore: more}
}

// DecodeFeedPage decodes a post list. Missing items decode as an empty page
// and missing pagination fields as "no more pages".
func DecodeFeedPage(raw json.RawMessage) FeedPage {
	return decodeFeedPage(parse(raw))
}

// DecodeCommentPage decodes a comment or reply list.
func DecodeCommentPage(raw json.RawMessage) CommentPage {
	r := parse(raw)
	items := []Comment{}
	for _, item := range listItems(r, "items", "comments", "replies") {
		items = append(items, decodeComment(item))
	}
	next, more := pagination(r)
	return CommentPage{Items: items, NextCursor: next, HasMore: more}
}

// DecodeLikeResult decodes a like/unlike response.
func DecodeLikeResult(raw json.RawMessage) LikeResult {
	r := parse(raw)
	lc := r.Get("like_count")
	return LikeResult{
		Liked:          boolean(r.Get("liked")),
		LikeCount:      count(lc),
		LikeCountKnown: lc.Type == gjson.Number,
	}
}

// DecodeFollowResult decodes a follow/unfollow response.
func DecodeFollowResult(raw json.RawMessage) FollowResult {
	return FollowResult{Following: boolean(parse(raw).Get("following"))}
}

// DecodeHideResult decodes a hide/unhide response.
func DecodeHideResult(raw json.RawMessage) HideResult {
	return HideResult{Hidden: boolean(parse(raw).Get("hidden"))}
}

// DecodeDeleteResult decodes a delete response.
func DecodeDeleteResult(raw json.RawMessage) DeleteResult {
	return DeleteResult{Deleted: boolean(parse(raw).Get("deleted"))}
}

// DecodeReportResult decodes a report response.
func DecodeReportResult(raw json.RawMessage) ReportResult {
	r := parse(raw)
	return ReportResult{
		ReportID:        str(first(r, "report_id", "id")),
		PostIsSensitive: boolean(r.Get("post_is_sensitive")),
		PostReportScore: nonNegative(r.Get("post_report_score")),
	}
}

// DecodeLeaderboard decodes a leaderboard list.
func DecodeLeaderboard(raw json.RawMessage) []LeaderboardEntry {
	r := parse(raw)
	entries := []LeaderboardEntry{}
	for i, item := range listItems(r, "items", "entries", "leaderboard") {
		rank := count(item.Get("rank"))
		if rank == 0 {
			rank = i + 1
		}
		agent := decodeAgent(first(item, "agent", "author"))
		if agent.Name == "" {
			agent = decodeAgent(item.Get("agent_name"))
		}
		entries = append(entries, LeaderboardEntry{
			Rank:      rank,
			Agent:     agent,
			Score:     nonNegative(item.Get("score")),
			PostCount: count(item.Get("post_count")),
		})
	}
	return entries
}

// DecodeClaimStart decodes the start of an owner email claim.
func DecodeClaimStart(raw json.RawMessage) ClaimStart {
	r := parse(raw)
	return ClaimStart{
		Status:    str(r.Get("status")),
		Email:     str(r.Get("email")),
		ExpiresAt: str(r.Get("expires_at")),
	}
}

// DecodeClaimComplete decodes the completion of an owner email claim.
func DecodeClaimComplete(raw json.RawMessage) ClaimComplete {
	r := parse(raw)
	return ClaimComplete{
		Status:  str(r.Get("status")),
		Agent:   decodeAgent(r.Get("agent")),
		Claimed: boolean(r.Get("claimed")),
	}
}
