package social

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/storage"
)

// fakeActions answers every call from canned results and counts calls.
type fakeActions struct {
	mu    sync.Mutex
	calls []string

	like    envelope.Result[clawgram.LikeResult]
	follow  envelope.Result[clawgram.FollowResult]
	comment envelope.Result[clawgram.Comment]
	report  envelope.Result[clawgram.ReportResult]
	hide    envelope.Result[clawgram.HideResult]
	del     envelope.Result[clawgram.DeleteResult]

	followedName string
	commentInput clawgram.CommentInput

	// gate, when set, blocks LikePost until a result is sent on it.
	gate chan envelope.Result[clawgram.LikeResult]
}

func (f *fakeActions) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeActions) LikePost(_ context.Context, id string) envelope.Result[clawgram.LikeResult] {
	f.record("like " + id)
	if f.gate != nil {
		return <-f.gate
	}
	return f.like
}

func (f *fakeActions) UnlikePost(_ context.Context, id string) envelope.Result[clawgram.LikeResult] {
	f.record("unlike " + id)
	return f.like
}

func (f *fakeActions) FollowAgent(_ context.Context, name string) envelope.Result[clawgram.FollowResult] {
	f.record("follow " + name)
	f.followedName = name
	return f.follow
}

func (f *fakeActions) UnfollowAgent(_ context.Context, name string) envelope.Result[clawgram.FollowResult] {
	f.record("unfollow " + name)
	return f.follow
}

func (f *fakeActions) CreateComment(_ context.Context, postID string, in clawgram.CommentInput) envelope.Result[clawgram.Comment] {
	f.record("comment " + postID)
	f.commentInput = in
	return f.comment
}

func (f *fakeActions) ReportPost(_ context.Context, id string, _ clawgram.ReportInput) envelope.Result[clawgram.ReportResult] {
	f.record("report " + id)
	return f.report
}

func (f *fakeActions) HideComment(_ context.Context, id string) envelope.Result[clawgram.HideResult] {
	f.record("hide " + id)
	return f.hide
}

func (f *fakeActions) UnhideComment(_ context.Context, id string) envelope.Result[clawgram.HideResult] {
	f.record("unhide " + id)
	return f.hide
}

func (f *fakeActions) DeleteComment(_ context.Context, id string) envelope.Result[clawgram.DeleteResult] {
	f.record("delete-comment " + id)
	return f.del
}

func (f *fakeActions) DeletePost(_ context.Context, id string) envelope.Result[clawgram.DeleteResult] {
	f.record("delete-post " + id)
	return f.del
}

type memJournal struct {
	mu      sync.Mutex
	actions []storage.Action
}

func (j *memJournal) RecordAction(_ context.Context, a storage.Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, a)
	return nil
}

func ok[T any](data T) envelope.Result[T] {
	r := envelope.Success(200, "req-ok", data)
	r.IdempotencyKey = "web-test-key"
	return r
}

func TestToggleLike_UsesServerValueNotInverse(t *testing.T) {
	// Post is shown as not liked, but the server says it already was and
	// stays liked after an idempotent like.
	fa := &fakeActions{like: ok(clawgram.LikeResult{Liked: true, LikeCount: 5, LikeCountKnown: true})}
	s := New(fa)

	res := s.ToggleLike(context.Background(), "post-1", false)
	require.True(t, res.OK)
	assert.True(t, s.ResolveLikedState("post-1", false))
	assert.Equal(t, 5, s.ResolveLikeCount("post-1", 0))

	// currentlyLiked=true issues unlike; the server still answers liked=true.
	res = s.ToggleLike(context.Background(), "post-1", true)
	require.True(t, res.OK)
	assert.True(t, s.ResolveLikedState("post-1", false), "override must be the server boolean verbatim")
	assert.Equal(t, []string{"like post-1", "unlike post-1"}, fa.calls)
}

func TestToggleLike_FailureKeepsOverrides(t *testing.T) {
	fa := &fakeActions{like: ok(clawgram.LikeResult{Liked: true})}
	s := New(fa)
	s.ToggleLike(context.Background(), "p", false)

	fa.like = envelope.Failure[clawgram.LikeResult](429, "slow down", clawgram.CodeRateLimited, "", "req-429")
	res := s.ToggleLike(context.Background(), "p", true)

	assert.False(t, res.OK)
	assert.True(t, s.ResolveLikedState("p", false), "failed toggle must not change the override")
	st := s.State(FamilyLike, "p")
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "req-429", st.RequestID)
	assert.Equal(t, clawgram.ActionMessage(clawgram.CodeRateLimited, ""), st.Error)
}

func TestResolveFallbacks(t *testing.T) {
	s := New(&fakeActions{})

	assert.True(t, s.ResolveLikedState("x", true))
	assert.False(t, s.ResolveFollowingState("nova", false))
	assert.True(t, s.ResolveCommentHiddenState("c", true))
	assert.False(t, s.ResolveCommentDeletedState("c", false))
	assert.True(t, s.ResolvePostSensitiveState("p", true))
	assert.Equal(t, 1.5, s.ResolvePostReportScore("p", 1.5))
	assert.False(t, s.IsPostDeleted("p"))
	assert.Equal(t, StatusIdle, s.State(FamilyLike, "x").Status)
}

func TestToggleFollow_NormalizedKey(t *testing.T) {
	fa := &fakeActions{follow: ok(clawgram.FollowResult{Following: true})}
	s := New(fa)

	res := s.ToggleFollow(context.Background(), " @Nova ", false)
	require.True(t, res.OK)
	assert.Equal(t, "Nova", fa.followedName)
	assert.True(t, s.ResolveFollowingState("nova", false))
	assert.True(t, s.ResolveFollowingState("NOVA", false))
	assert.Equal(t, StatusSuccess, s.State(FamilyFollow, "@nova").Status)
}

func TestToggleFollow_BlankNameIsLocal(t *testing.T) {
	fa := &fakeActions{}
	s := New(fa)

	res := s.ToggleFollow(context.Background(), "  @ ", false)
	assert.False(t, res.OK)
	assert.Equal(t, 0, res.Status)
	assert.Empty(t, fa.calls)
}

func TestSubmitComment(t *testing.T) {
	fa := &fakeActions{comment: ok(clawgram.Comment{ID: "c9", Body: "hi"})}
	s := New(fa)

	res := s.SubmitComment(context.Background(), "post-1", "  ", "")
	assert.False(t, res.OK)
	assert.Equal(t, clawgram.CodeCommentEmpty, res.Code)
	assert.Empty(t, fa.calls, "blank comment must not reach the network")
	assert.Equal(t, StatusError, s.State(FamilyComment, "post-1").Status)

	res = s.SubmitComment(context.Background(), "post-1", " hi ", "c1")
	require.True(t, res.OK)
	assert.Equal(t, clawgram.CommentInput{Body: "hi", ParentCommentID: "c1"}, fa.commentInput)
	assert.Equal(t, StatusSuccess, s.State(FamilyComment, "c1").Status)
	c, found := s.LastComment("c1")
	assert.True(t, found)
	assert.Equal(t, "c9", c.ID)
}

func TestReportPost_SetsBothOverrides(t *testing.T) {
	fa := &fakeActions{report: ok(clawgram.ReportResult{ReportID: "r1", PostIsSensitive: true, PostReportScore: 2.5})}
	s := New(fa)

	res := s.ReportPost(context.Background(), "post-1", "spam", "")
	require.True(t, res.OK)
	assert.True(t, s.ResolvePostSensitiveState("post-1", false))
	assert.Equal(t, 2.5, s.ResolvePostReportScore("post-1", 0))
}

func TestReportPost_OwnPostMessage(t *testing.T) {
	fa := &fakeActions{report: envelope.Failure[clawgram.ReportResult](400, "raw", clawgram.CodeCannotReportOwnPost, "", "req-r")}
	s := New(fa)

	s.ReportPost(context.Background(), "post-1", "spam", "")
	st := s.State(FamilyReport, "post-1")
	assert.Equal(t, clawgram.ActionMessage(clawgram.CodeCannotReportOwnPost, ""), st.Error)
	assert.False(t, s.ResolvePostSensitiveState("post-1", false))
}

func TestHideAndDelete(t *testing.T) {
	fa := &fakeActions{
		hide: ok(clawgram.HideResult{Hidden: false}),
		del:  ok(clawgram.DeleteResult{Deleted: true}),
	}
	s := New(fa)
	ctx := context.Background()

	// Server says the comment is not hidden even though we asked to hide it.
	s.SetCommentHidden(ctx, "c1", false)
	assert.False(t, s.ResolveCommentHiddenState("c1", true))

	s.DeleteComment(ctx, "c2")
	assert.True(t, s.ResolveCommentDeletedState("c2", false))

	s.DeletePost(ctx, "p1")
	assert.True(t, s.IsPostDeleted("p1"))
	assert.Equal(t, []string{"hide c1", "delete-comment c2", "delete-post p1"}, fa.calls)
}

func TestResolvePost(t *testing.T) {
	fa := &fakeActions{
		like:   ok(clawgram.LikeResult{Liked: true, LikeCount: 9, LikeCountKnown: true}),
		follow: ok(clawgram.FollowResult{Following: true}),
		report: ok(clawgram.ReportResult{PostIsSensitive: true, PostReportScore: 3}),
	}
	s := New(fa)
	ctx := context.Background()
	s.ToggleLike(ctx, "p1", false)
	s.ToggleFollow(ctx, "Nova", false)
	s.ReportPost(ctx, "p1", "nsfw", "")

	got := s.ResolvePost(clawgram.Post{ID: "p1", LikeCount: 1, Author: clawgram.Agent{Name: "nova"}})
	assert.True(t, got.ViewerHasLiked)
	assert.Equal(t, 9, got.LikeCount)
	assert.True(t, got.ViewerFollowsAuthor)
	assert.True(t, got.IsSensitive)
	assert.Equal(t, 3.0, got.ReportScore)

	other := s.ResolvePost(clawgram.Post{ID: "p2", LikeCount: 4})
	assert.Equal(t, 4, other.LikeCount)
	assert.False(t, other.ViewerHasLiked)
}

func TestOverridesSurviveUntilReset(t *testing.T) {
	fa := &fakeActions{del: ok(clawgram.DeleteResult{Deleted: true})}
	s := New(fa)
	s.DeletePost(context.Background(), "p1")
	require.True(t, s.IsPostDeleted("p1"))

	s.Reset()
	assert.False(t, s.IsPostDeleted("p1"))
	assert.Equal(t, StatusIdle, s.State(FamilyDeletePost, "p1").Status)
}

func TestSameKeyDispatchesAreNotDeduplicated(t *testing.T) {
	fa := &fakeActions{gate: make(chan envelope.Result[clawgram.LikeResult])}
	s := New(fa)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			s.ToggleLike(ctx, "p1", false)
			done <- struct{}{}
		}()
	}

	// Both dispatches reach the adapter; the last to resolve sets the state.
	fa.gate <- ok(clawgram.LikeResult{Liked: true})
	<-done
	fa.gate <- ok(clawgram.LikeResult{Liked: false})
	<-done

	assert.Len(t, fa.calls, 2)
	assert.False(t, s.ResolveLikedState("p1", true))
}

func TestJournalRecordsOutcomes(t *testing.T) {
	fa := &fakeActions{
		like:   ok(clawgram.LikeResult{Liked: true}),
		follow: envelope.Failure[clawgram.FollowResult](404, "missing", clawgram.CodeNotFound, "", "req-f"),
	}
	j := &memJournal{}
	s := New(fa, WithJournal(j))
	ctx := context.Background()

	s.ToggleLike(ctx, "p1", false)
	s.ToggleFollow(ctx, "Ghost", false)

	require.Len(t, j.actions, 2)
	assert.Equal(t, storage.Action{
		Scope:          clawgram.ScopeLike,
		EntityID:       "p1",
		IdempotencyKey: "web-test-key",
		Status:         storage.ActionSuccess,
		HTTPStatus:     200,
		RequestID:      "req-ok",
	}, j.actions[0])
	assert.Equal(t, storage.ActionError, j.actions[1].Status)
	assert.Equal(t, "ghost", j.actions[1].EntityID)
	assert.Equal(t, clawgram.CodeNotFound, j.actions[1].Code)
}

func TestJournalWithSQLite(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fa := &fakeActions{hide: ok(clawgram.HideResult{Hidden: true})}
	s := New(fa, WithJournal(db))
	s.SetCommentHidden(context.Background(), "c1", false)

	list, err := db.ListActions(context.Background(), storage.ActionFilter{Scope: clawgram.ScopeCommentHide})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c1", list[0].EntityID)
}

func TestStateJSONShape(t *testing.T) {
	b, err := json.Marshal(RequestState{Status: StatusError, Error: "x", RequestID: "r"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error":"x","requestId":"r"}`, string(b))
}
