package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalambet/clawgram/internal/clawgram"
)

func posts(ids ...string) []clawgram.Post {
	out := make([]clawgram.Post, len(ids))
	for i, id := range ids {
		out[i] = clawgram.Post{ID: id}
	}
	return out
}

func postIDs(ps []clawgram.Post) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestMergeFeedPage(t *testing.T) {
	prev := &clawgram.FeedPage{Posts: posts("a", "b", "c"), NextCursor: "c1", HasMore: true}
	next := clawgram.FeedPage{Posts: posts("c", "d", "a", "e"), NextCursor: "c2", HasMore: false}

	tests := []struct {
		name string
		how  MergeMode
		want []string
	}{
		{"replace", MergeReplace, []string{"c", "d", "a", "e"}},
		{"append", MergeAppend, []string{"a", "b", "c", "d", "e"}},
		{"background", MergeBackground, []string{"c", "d", "a", "e", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeFeedPage(prev, next, tt.how)
			assert.Equal(t, tt.want, postIDs(got.Posts))
			assert.Equal(t, "c2", got.NextCursor, "incoming cursor wins")
			assert.False(t, got.HasMore, "incoming hasMore wins")
		})
	}
	assert.Equal(t, []string{"a", "b", "c"}, postIDs(prev.Posts), "prev must not be mutated")
}

func TestMergeFeedPage_NilPrev(t *testing.T) {
	next := clawgram.FeedPage{Posts: posts("a", "a", "b"), NextCursor: "n"}
	for _, how := range []MergeMode{MergeReplace, MergeAppend, MergeBackground} {
		got := MergeFeedPage(nil, next, how)
		assert.Equal(t, []string{"a", "b"}, postIDs(got.Posts), how.String())
	}
}

func TestMergeFeedPage_AppendIsIdempotent(t *testing.T) {
	page := clawgram.FeedPage{Posts: posts("a", "b"), NextCursor: "c2", HasMore: true}
	once := MergeFeedPage(&page, page, MergeAppend)
	assert.Equal(t, []string{"a", "b"}, postIDs(once.Posts))
}

func TestMergeSearchPage_BucketScoped(t *testing.T) {
	prev := clawgram.EmptySearchPage(clawgram.SearchAll, "su")
	prev.Agents = clawgram.Bucket[clawgram.Agent]{Items: []clawgram.Agent{{ID: "a1", Name: "nova"}}, NextCursor: "a2", HasMore: true}
	prev.Posts = clawgram.Bucket[clawgram.Post]{Items: posts("p1"), NextCursor: "p2", HasMore: true}

	next := clawgram.EmptySearchPage(clawgram.SearchAll, "su")
	next.Agents = clawgram.Bucket[clawgram.Agent]{Items: []clawgram.Agent{{ID: "a1"}, {ID: "a3"}}}
	next.Posts = clawgram.Bucket[clawgram.Post]{Items: posts("p9")}

	got := MergeSearchPage(&prev, next, clawgram.BucketAgents, MergeAppend)

	assert.Len(t, got.Agents.Items, 2)
	assert.Equal(t, "a3", got.Agents.Items[1].ID)
	assert.Empty(t, got.Agents.NextCursor)
	assert.Equal(t, []string{"p1"}, postIDs(got.Posts.Items), "unrelated bucket carries over")
	assert.Equal(t, map[clawgram.SearchBucket]string{clawgram.BucketPosts: "p2"}, got.Cursors)
}

func TestMergeSearchPage_AllBuckets(t *testing.T) {
	prev := clawgram.EmptySearchPage(clawgram.SearchAll, "su")
	prev.Hashtags = clawgram.Bucket[clawgram.HashtagSummary]{Items: []clawgram.HashtagSummary{{Tag: "sun"}}, NextCursor: "h2"}

	next := clawgram.EmptySearchPage(clawgram.SearchAll, "su")
	next.Hashtags = clawgram.Bucket[clawgram.HashtagSummary]{Items: []clawgram.HashtagSummary{{Tag: "sea"}, {Tag: "sun"}}, NextCursor: "h3"}
	next.Posts = clawgram.Bucket[clawgram.Post]{Items: posts("p1"), NextCursor: "p2"}

	got := MergeSearchPage(&prev, next, "", MergeReplace)

	assert.Len(t, got.Hashtags.Items, 2)
	assert.Equal(t, "h3", got.Cursors[clawgram.BucketHashtags])
	assert.Equal(t, "p2", got.Cursors[clawgram.BucketPosts])
}

func TestMergeSearchPage_UnscopedAppendSkipsEndedBuckets(t *testing.T) {
	prev := clawgram.EmptySearchPage(clawgram.SearchAll, "su")
	prev.Agents = clawgram.Bucket[clawgram.Agent]{Items: []clawgram.Agent{{ID: "a1"}}}
	prev.Hashtags = clawgram.Bucket[clawgram.HashtagSummary]{Items: []clawgram.HashtagSummary{{Tag: "sun"}}, NextCursor: "h2", HasMore: true}
	prev.Posts = clawgram.Bucket[clawgram.Post]{Items: posts("p0"), NextCursor: "p1c", HasMore: true}
	prev.Cursors = clawgram.CursorMap(prev)

	next := clawgram.EmptySearchPage(clawgram.SearchAll, "su")
	next.Agents = clawgram.Bucket[clawgram.Agent]{Items: []clawgram.Agent{{ID: "a1"}, {ID: "a2"}}, NextCursor: "a-page2", HasMore: true}
	next.Hashtags = clawgram.Bucket[clawgram.HashtagSummary]{Items: []clawgram.HashtagSummary{{Tag: "sea"}, {Tag: "sun"}}, NextCursor: "h3", HasMore: true}
	next.Posts = clawgram.Bucket[clawgram.Post]{Items: posts("p1"), NextCursor: "p2", HasMore: true}

	got := MergeSearchPage(&prev, next, "", MergeAppend)

	assert.Len(t, got.Agents.Items, 1, "ended bucket is not restarted")
	assert.Empty(t, got.Agents.NextCursor)
	assert.Len(t, got.Hashtags.Items, 2)
	assert.Equal(t, "sea", got.Hashtags.Items[1].Tag)
	assert.Equal(t, []string{"p0", "p1"}, []string{got.Posts.Items[0].ID, got.Posts.Items[1].ID})
	assert.Equal(t, map[clawgram.SearchBucket]string{
		clawgram.BucketHashtags: "h3",
		clawgram.BucketPosts:    "p2",
	}, got.Cursors)
}

func TestMergeSearchPage_NilPrev(t *testing.T) {
	next := clawgram.EmptySearchPage(clawgram.SearchPosts, "su")
	next.Posts = clawgram.Bucket[clawgram.Post]{Items: posts("p1"), NextCursor: "n"}

	got := MergeSearchPage(nil, next, "", MergeReplace)
	assert.Equal(t, clawgram.SearchPosts, got.Mode)
	assert.Equal(t, "n", got.Cursors[clawgram.BucketPosts])
	assert.NotNil(t, got.Agents.Items)
}

func TestSequencer(t *testing.T) {
	q := newSequencer()
	first, second := q.next("explore"), q.next("explore")

	assert.True(t, q.commit("explore", second))
	assert.False(t, q.commit("explore", first), "earlier response after a later commit is stale")

	other := q.next("following")
	assert.True(t, q.commit("following", other), "keys are independent")

	inflight := q.next("search")
	q.invalidate("search")
	assert.False(t, q.commit("search", inflight))
	assert.True(t, q.commit("search", q.next("search")))
}
