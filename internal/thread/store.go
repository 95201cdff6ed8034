// Package thread holds post detail and comment/reply pages per id.
//
// Loads overwrite on resolve without a sequence guard: they are driven by
// discrete focus changes, not rapid concurrent dispatch.
package thread

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
)

// Threads is the subset of the Clawgram adapter the store reads from.
type Threads interface {
	GetPost(ctx context.Context, postID string) envelope.Result[clawgram.Post]
	PostComments(ctx context.Context, postID string, page clawgram.PageRequest) envelope.Result[clawgram.CommentPage]
	CommentReplies(ctx context.Context, commentID string, page clawgram.PageRequest) envelope.Result[clawgram.CommentPage]
}

// Status is the lifecycle of a load.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// DetailState is the loaded copy of one post.
type DetailState struct {
	Status    Status         `json:"status"`
	Post      *clawgram.Post `json:"post,omitempty"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// CommentsState is the accumulated comment or reply list of one parent.
type CommentsState struct {
	Status    Status                `json:"status"`
	Page      *clawgram.CommentPage `json:"page,omitempty"`
	Error     string                `json:"error,omitempty"`
	RequestID string                `json:"requestId,omitempty"`
}

// Store caches thread state. Safe for concurrent use.
type Store struct {
	api       Threads
	pageLimit int
	logger    *slog.Logger

	mu       sync.Mutex
	details  map[string]DetailState
	comments map[string]CommentsState
	replies  map[string]CommentsState
}

// Option configures a Store.
type Option func(*Store)

// WithPageLimit sets the comment page size.
func WithPageLimit(n int) Option {
	return func(s *Store) { s.pageLimit = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty Store.
func New(api Threads, opts ...Option) *Store {
	s := &Store{
		api:       api,
		pageLimit: clawgram.DefaultPageLimit,
		logger:    slog.Default(),
		details:   make(map[string]DetailState),
		comments:  make(map[string]CommentsState),
		replies:   make(map[string]CommentsState),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadPostDetail fetches a post and replaces its detail state.
func (s *Store) LoadPostDetail(ctx context.Context, postID string) DetailState {
	s.mu.Lock()
	prev := s.details[postID]
	s.details[postID] = DetailState{Status: StatusLoading, Post: prev.Post}
	s.mu.Unlock()

	res := s.api.GetPost(ctx, postID)

	var next DetailState
	if res.OK {
		post := res.Data
		next = DetailState{Status: StatusReady, Post: &post, RequestID: res.RequestID}
	} else {
		next = DetailState{
			Status:    StatusError,
			Error:     clawgram.SurfaceMessage(clawgram.ContextPostDetail, res.Code, res.Error),
			RequestID: res.RequestID,
		}
		s.logger.Debug("post detail load failed", "post_id", postID, "status", res.Status, "code", res.Code)
	}

	s.mu.Lock()
	s.details[postID] = next
	s.mu.Unlock()
	return next
}

// LoadPostComments loads top-level comments. An empty cursor replaces the
// list; a cursor appends the incoming items.
func (s *Store) LoadPostComments(ctx context.Context, postID, cursor string) CommentsState {
	return s.loadList(ctx, s.comments, clawgram.ContextComments, postID, cursor, s.api.PostComments)
}

// LoadCommentReplies loads direct replies with the same contract as
// LoadPostComments.
func (s *Store) LoadCommentReplies(ctx context.Context, commentID, cursor string) CommentsState {
	return s.loadList(ctx, s.replies, clawgram.ContextReplies, commentID, cursor, s.api.CommentReplies)
}

type listFunc func(ctx context.Context, id string, page clawgram.PageRequest) envelope.Result[clawgram.CommentPage]

func (s *Store) loadList(ctx context.Context, states map[string]CommentsState, view clawgram.Context, id, cursor string, fetch listFunc) CommentsState {
	s.mu.Lock()
	prev := states[id]
	states[id] = CommentsState{Status: StatusLoading, Page: prev.Page}
	s.mu.Unlock()

	res := fetch(ctx, id, clawgram.PageRequest{Limit: s.pageLimit, Cursor: cursor})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !res.OK {
		st := CommentsState{
			Status:    StatusError,
			Page:      states[id].Page,
			Error:     clawgram.SurfaceMessage(view, res.Code, res.Error),
			RequestID: res.RequestID,
		}
		states[id] = st
		return st
	}

	page := res.Data
	if cursor != "" {
		if cur := states[id].Page; cur != nil {
			items := make([]clawgram.Comment, 0, len(cur.Items)+len(page.Items))
			items = append(items, cur.Items...)
			items = append(items, page.Items...)
			page.Items = items
		}
	}
	st := CommentsState{Status: StatusReady, Page: &page, RequestID: res.RequestID}
	states[id] = st
	return st
}

// UpdateLoadedPost applies update to the cached detail copy of a post.
// It reports whether a loaded post was found.
func (s *Store) UpdateLoadedPost(postID string, update func(clawgram.Post) clawgram.Post) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.details[postID]
	if !ok || st.Post == nil {
		return false
	}
	p := update(*st.Post)
	st.Post = &p
	s.details[postID] = st
	return true
}

// Focus loads a post's detail and first comment page concurrently.
func (s *Store) Focus(ctx context.Context, postID string) {
	var g errgroup.Group
	g.Go(func() error {
		s.LoadPostDetail(ctx, postID)
		return nil
	})
	g.Go(func() error {
		s.LoadPostComments(ctx, postID, "")
		return nil
	})
	_ = g.Wait()
}

// Detail returns the detail state of a post.
func (s *Store) Detail(postID string) DetailState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.details[postID]
	if !ok {
		return DetailState{Status: StatusIdle}
	}
	if st.Post != nil {
		p := *st.Post
		st.Post = &p
	}
	return st
}

// Comments returns the comment state of a post.
func (s *Store) Comments(postID string) CommentsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listSnapshot(s.comments, postID)
}

// Replies returns the reply state of a comment.
func (s *Store) Replies(commentID string) CommentsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listSnapshot(s.replies, commentID)
}

func listSnapshot(states map[string]CommentsState, id string) CommentsState {
	st, ok := states[id]
	if !ok {
		return CommentsState{Status: StatusIdle}
	}
	if st.Page != nil {
		page := *st.Page
		page.Items = append(make([]clawgram.Comment, 0, len(st.Page.Items)), st.Page.Items...)
		st.Page = &page
	}
	return st
}
