package api

import (
	"context"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/social"
	"github.com/kalambet/clawgram/internal/storage"
	"github.com/kalambet/clawgram/internal/surface"
	"github.com/kalambet/clawgram/internal/thread"
)

// ActionLister reads the action journal. *storage.Store satisfies it.
type ActionLister interface {
	ListActions(ctx context.Context, f storage.ActionFilter) ([]storage.Action, error)
}

// Session ties the stores together the way an interactive client does:
// a confirmed action updates the social overrides and every loaded copy of
// the affected post, and reads come back with overrides applied.
type Session struct {
	Surfaces *surface.Store
	Threads  *thread.Store
	Social   *social.Store
	Actions  ActionLister // optional
}

// loadedPost returns the freshest loaded copy of a post: the detail cache
// first, then any surface.
func (s *Session) loadedPost(postID string) (clawgram.Post, bool) {
	if st := s.Threads.Detail(postID); st.Post != nil {
		return *st.Post, true
	}
	return s.Surfaces.FindPost(postID)
}

func (s *Session) updatePost(postID string, update func(clawgram.Post) clawgram.Post) {
	s.Surfaces.UpdatePostAcrossSurfaces(postID, update)
	s.Threads.UpdateLoadedPost(postID, update)
}

// Like toggles the viewer's like on a post from its current resolved state.
func (s *Session) Like(ctx context.Context, postID string) envelope.Result[clawgram.LikeResult] {
	post, _ := s.loadedPost(postID)
	liked := s.Social.ResolveLikedState(postID, post.ViewerHasLiked)
	res := s.Social.ToggleLike(ctx, postID, liked)
	if res.OK {
		s.updatePost(postID, func(p clawgram.Post) clawgram.Post {
			p.ViewerHasLiked = res.Data.Liked
			if res.Data.LikeCountKnown {
				p.LikeCount = res.Data.LikeCount
			}
			return p
		})
	}
	return res
}

// Follow toggles the viewer's follow edge to an agent.
func (s *Session) Follow(ctx context.Context, agentName string) envelope.Result[clawgram.FollowResult] {
	post, _ := s.Surfaces.FindAuthor(agentName)
	following := s.Social.ResolveFollowingState(agentName, post.ViewerFollowsAuthor)
	return s.Social.ToggleFollow(ctx, agentName, following)
}

// Comment posts a comment or reply and bumps the post's comment count.
func (s *Session) Comment(ctx context.Context, postID, body, parentCommentID string) envelope.Result[clawgram.Comment] {
	res := s.Social.SubmitComment(ctx, postID, body, parentCommentID)
	if res.OK {
		s.updatePost(postID, func(p clawgram.Post) clawgram.Post {
			p.CommentCount++
			return p
		})
	}
	return res
}

// Report files a report and applies the returned moderation state.
func (s *Session) Report(ctx context.Context, postID, reason, details string) envelope.Result[clawgram.ReportResult] {
	res := s.Social.ReportPost(ctx, postID, reason, details)
	if res.OK {
		s.updatePost(postID, func(p clawgram.Post) clawgram.Post {
			p.IsSensitive = res.Data.PostIsSensitive
			p.ReportScore = res.Data.PostReportScore
			return p
		})
	}
	return res
}

// Post returns a post's detail, loading it when it was never loaded or
// when refresh is set.
func (s *Session) Post(ctx context.Context, postID string, refresh bool) thread.DetailState {
	st := s.Threads.Detail(postID)
	if refresh || st.Status == thread.StatusIdle {
		st = s.Threads.LoadPostDetail(ctx, postID)
	}
	if st.Post != nil {
		p := s.Social.ResolvePost(*st.Post)
		st.Post = &p
	}
	return st
}

// Comments returns a post's comments. An empty cursor loads the first page
// only when none is loaded yet; a cursor appends the next page.
func (s *Session) Comments(ctx context.Context, postID, cursor string) thread.CommentsState {
	st := s.Threads.Comments(postID)
	if cursor != "" || st.Status == thread.StatusIdle {
		st = s.Threads.LoadPostComments(ctx, postID, cursor)
	}
	return s.resolveComments(st)
}

// Replies returns a comment's replies, loading like Comments.
func (s *Session) Replies(ctx context.Context, commentID, cursor string) thread.CommentsState {
	st := s.Threads.Replies(commentID)
	if cursor != "" || st.Status == thread.StatusIdle {
		st = s.Threads.LoadCommentReplies(ctx, commentID, cursor)
	}
	return s.resolveComments(st)
}

func (s *Session) resolveComments(st thread.CommentsState) thread.CommentsState {
	if st.Page == nil {
		return st
	}
	page := *st.Page
	page.Items = make([]clawgram.Comment, len(st.Page.Items))
	for i, c := range st.Page.Items {
		page.Items[i] = s.Social.ResolveComment(c)
	}
	st.Page = &page
	return st
}

// Feed returns a surface snapshot with overrides applied and deleted posts
// dropped.
func (s *Session) Feed(target surface.Surface) surface.FeedLoadState {
	return s.resolveFeed(s.Surfaces.Feed(target))
}

func (s *Session) resolveFeed(st surface.FeedLoadState) surface.FeedLoadState {
	if st.Page == nil {
		return st
	}
	page := *st.Page
	page.Posts = s.resolvePosts(st.Page.Posts)
	st.Page = &page
	return st
}

// Search returns the search snapshot with overrides applied to the posts
// bucket.
func (s *Session) Search() surface.SearchLoadState {
	return s.resolveSearch(s.Surfaces.Search())
}

func (s *Session) resolveSearch(st surface.SearchLoadState) surface.SearchLoadState {
	if st.Page == nil {
		return st
	}
	page := *st.Page
	page.Posts.Items = s.resolvePosts(st.Page.Posts.Items)
	st.Page = &page
	return st
}

func (s *Session) resolvePosts(posts []clawgram.Post) []clawgram.Post {
	out := make([]clawgram.Post, 0, len(posts))
	for _, p := range posts {
		if s.Social.IsPostDeleted(p.ID) {
			continue
		}
		out = append(out, s.Social.ResolvePost(p))
	}
	return out
}

// SocialView is the resolved override state of one post.
type SocialView struct {
	PostID      string              `json:"postId"`
	Liked       bool                `json:"liked"`
	LikeCount   int                 `json:"likeCount"`
	Sensitive   bool                `json:"sensitive"`
	ReportScore float64             `json:"reportScore"`
	Deleted     bool                `json:"deleted"`
	Like        social.RequestState `json:"like"`
	Report      social.RequestState `json:"report"`
	Comment     social.RequestState `json:"comment"`
}

// SocialState resolves a post's social state against its loaded copy.
func (s *Session) SocialState(postID string) SocialView {
	post, _ := s.loadedPost(postID)
	return SocialView{
		PostID:      postID,
		Liked:       s.Social.ResolveLikedState(postID, post.ViewerHasLiked),
		LikeCount:   s.Social.ResolveLikeCount(postID, post.LikeCount),
		Sensitive:   s.Social.ResolvePostSensitiveState(postID, post.IsSensitive),
		ReportScore: s.Social.ResolvePostReportScore(postID, post.ReportScore),
		Deleted:     s.Social.IsPostDeleted(postID),
		Like:        s.Social.State(social.FamilyLike, postID),
		Report:      s.Social.State(social.FamilyReport, postID),
		Comment:     s.Social.State(social.FamilyComment, postID),
	}
}
