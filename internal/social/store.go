// Package social tracks per-entity request state and server-confirmed
// overrides for write actions (like, follow, comment, report, hide, delete).
package social

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/metrics"
	"github.com/kalambet/clawgram/internal/storage"
)

// Actions is the subset of the Clawgram adapter the store dispatches to.
type Actions interface {
	LikePost(ctx context.Context, postID string) envelope.Result[clawgram.LikeResult]
	UnlikePost(ctx context.Context, postID string) envelope.Result[clawgram.LikeResult]
	FollowAgent(ctx context.Context, agentName string) envelope.Result[clawgram.FollowResult]
	UnfollowAgent(ctx context.Context, agentName string) envelope.Result[clawgram.FollowResult]
	CreateComment(ctx context.Context, postID string, in clawgram.CommentInput) envelope.Result[clawgram.Comment]
	ReportPost(ctx context.Context, postID string, in clawgram.ReportInput) envelope.Result[clawgram.ReportResult]
	HideComment(ctx context.Context, commentID string) envelope.Result[clawgram.HideResult]
	UnhideComment(ctx context.Context, commentID string) envelope.Result[clawgram.HideResult]
	DeleteComment(ctx context.Context, commentID string) envelope.Result[clawgram.DeleteResult]
	DeletePost(ctx context.Context, postID string) envelope.Result[clawgram.DeleteResult]
}

// Journal persists completed dispatches. *storage.Store satisfies it.
type Journal interface {
	RecordAction(ctx context.Context, a storage.Action) error
}

// Family names one independent action state machine.
type Family string

const (
	FamilyLike          Family = "like"
	FamilyFollow        Family = "follow"
	FamilyComment       Family = "comment"
	FamilyReport        Family = "report"
	FamilyHideComment   Family = "hide_comment"
	FamilyDeleteComment Family = "delete_comment"
	FamilyDeletePost    Family = "delete_post"
)

// Status is the lifecycle of one dispatch.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// RequestState is the latest dispatch outcome for one entity in one family.
type RequestState struct {
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type stateKey struct {
	family Family
	id     string
}

// Store holds request state and override maps. Overrides set from a
// successful response take precedence over feed-supplied values until
// Reset. The mutex is never held across a network call.
type Store struct {
	actions Actions
	journal Journal
	logger  *slog.Logger

	mu             sync.Mutex
	states         map[stateKey]RequestState
	liked          map[string]bool
	likeCounts     map[string]int
	following      map[string]bool
	commentHidden  map[string]bool
	commentDeleted map[string]bool
	postDeleted    map[string]bool
	sensitive      map[string]bool
	reportScore    map[string]float64
	lastComment    map[string]clawgram.Comment
}

// Option configures a Store.
type Option func(*Store)

// WithJournal records every completed dispatch.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty Store.
func New(actions Actions, opts ...Option) *Store {
	s := &Store{actions: actions, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.reset()
	return s
}

// Reset clears every request state and override.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Store) reset() {
	s.states = make(map[stateKey]RequestState)
	s.liked = make(map[string]bool)
	s.likeCounts = make(map[string]int)
	s.following = make(map[string]bool)
	s.commentHidden = make(map[string]bool)
	s.commentDeleted = make(map[string]bool)
	s.postDeleted = make(map[string]bool)
	s.sensitive = make(map[string]bool)
	s.reportScore = make(map[string]float64)
	s.lastComment = make(map[string]clawgram.Comment)
}

// State returns the request state of id in family; idle if never dispatched.
func (s *Store) State(family Family, id string) RequestState {
	if family == FamilyFollow {
		id = clawgram.NormalizeAgentName(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[stateKey{family, id}]; ok {
		return st
	}
	return RequestState{Status: StatusIdle}
}

func (s *Store) setPending(family Family, id string) {
	s.mu.Lock()
	s.states[stateKey{family, id}] = RequestState{Status: StatusPending}
	s.mu.Unlock()
}

// finish records the outcome of a dispatch. apply runs under the lock on
// success so that multi-field overrides commit together.
func finish[T any](ctx context.Context, s *Store, family Family, scope, id string, res envelope.Result[T], apply func(T)) envelope.Result[T] {
	s.mu.Lock()
	if res.OK {
		if apply != nil {
			apply(res.Data)
		}
		s.states[stateKey{family, id}] = RequestState{Status: StatusSuccess, RequestID: res.RequestID}
	} else {
		s.states[stateKey{family, id}] = RequestState{
			Status:    StatusError,
			Error:     clawgram.ActionMessage(res.Code, res.Error),
			RequestID: res.RequestID,
		}
	}
	s.mu.Unlock()

	outcome := storage.ActionSuccess
	if !res.OK {
		outcome = storage.ActionError
		s.logger.Warn("social action failed",
			"action", scope, "id", id, "status", res.Status, "code", res.Code, "request_id", res.RequestID)
	}
	metrics.IncAction(scope, outcome)

	if s.journal != nil {
		err := s.journal.RecordAction(ctx, storage.Action{
			Scope:          scope,
			EntityID:       id,
			IdempotencyKey: res.IdempotencyKey,
			Status:         outcome,
			HTTPStatus:     res.Status,
			RequestID:      res.RequestID,
			Code:           res.Code,
			Error:          res.Error,
		})
		if err != nil {
			s.logger.Warn("journal write failed", "action", scope, "error", err)
		}
	}
	return res
}

// localError records a failure rejected before any network call.
func localError[T any](s *Store, family Family, id, message, code string) envelope.Result[T] {
	s.mu.Lock()
	s.states[stateKey{family, id}] = RequestState{Status: StatusError, Error: message}
	s.mu.Unlock()
	return envelope.LocalFailure[T](message, code)
}

// ToggleLike likes or unlikes a post depending on currentlyLiked. The new
// override is the server's "liked" value, never the local inverse.
func (s *Store) ToggleLike(ctx context.Context, postID string, currentlyLiked bool) envelope.Result[clawgram.LikeResult] {
	s.setPending(FamilyLike, postID)
	var res envelope.Result[clawgram.LikeResult]
	scope := clawgram.ScopeLike
	if currentlyLiked {
		scope = clawgram.ScopeUnlike
		res = s.actions.UnlikePost(ctx, postID)
	} else {
		res = s.actions.LikePost(ctx, postID)
	}
	return finish(ctx, s, FamilyLike, scope, postID, res, func(r clawgram.LikeResult) {
		s.liked[postID] = r.Liked
		if r.LikeCountKnown {
			s.likeCounts[postID] = r.LikeCount
		}
	})
}

// ToggleFollow follows or unfollows an agent. Follow state is keyed by the
// normalized agent name.
func (s *Store) ToggleFollow(ctx context.Context, agentName string, currentlyFollowing bool) envelope.Result[clawgram.FollowResult] {
	key := clawgram.NormalizeAgentName(agentName)
	if key == "" {
		return localError[clawgram.FollowResult](s, FamilyFollow, key, "Agent name is required.", clawgram.CodeValidationError)
	}
	s.setPending(FamilyFollow, key)
	var res envelope.Result[clawgram.FollowResult]
	scope := clawgram.ScopeFollow
	if currentlyFollowing {
		scope = clawgram.ScopeUnfollow
		res = s.actions.UnfollowAgent(ctx, strings.TrimPrefix(strings.TrimSpace(agentName), "@"))
	} else {
		res = s.actions.FollowAgent(ctx, strings.TrimPrefix(strings.TrimSpace(agentName), "@"))
	}
	return finish(ctx, s, FamilyFollow, scope, key, res, func(r clawgram.FollowResult) {
		s.following[key] = r.Following
	})
}

// SubmitComment posts a comment, or a reply when parentCommentID is set.
// Request state is keyed by the parent comment id for replies and by the
// post id otherwise.
func (s *Store) SubmitComment(ctx context.Context, postID, body, parentCommentID string) envelope.Result[clawgram.Comment] {
	key := postID
	if parentCommentID != "" {
		key = parentCommentID
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return localError[clawgram.Comment](s, FamilyComment, key, clawgram.ActionMessage(clawgram.CodeCommentEmpty, ""), clawgram.CodeCommentEmpty)
	}
	s.setPending(FamilyComment, key)
	res := s.actions.CreateComment(ctx, postID, clawgram.CommentInput{Body: body, ParentCommentID: parentCommentID})
	return finish(ctx, s, FamilyComment, clawgram.ScopeComment, key, res, func(c clawgram.Comment) {
		s.lastComment[key] = c
	})
}

// ReportPost files a report. On success the post's sensitive flag and
// report score overrides are set together from the response.
func (s *Store) ReportPost(ctx context.Context, postID, reason, details string) envelope.Result[clawgram.ReportResult] {
	if strings.TrimSpace(reason) == "" {
		return localError[clawgram.ReportResult](s, FamilyReport, postID, "Choose a reason for the report.", clawgram.CodeValidationError)
	}
	s.setPending(FamilyReport, postID)
	res := s.actions.ReportPost(ctx, postID, clawgram.ReportInput{Reason: reason, Details: details})
	return finish(ctx, s, FamilyReport, clawgram.ScopeReport, postID, res, func(r clawgram.ReportResult) {
		s.sensitive[postID] = r.PostIsSensitive
		s.reportScore[postID] = r.PostReportScore
	})
}

// SetCommentHidden hides or unhides a comment depending on currentlyHidden.
func (s *Store) SetCommentHidden(ctx context.Context, commentID string, currentlyHidden bool) envelope.Result[clawgram.HideResult] {
	s.setPending(FamilyHideComment, commentID)
	var res envelope.Result[clawgram.HideResult]
	scope := clawgram.ScopeCommentHide
	if currentlyHidden {
		scope = clawgram.ScopeCommentUnhide
		res = s.actions.UnhideComment(ctx, commentID)
	} else {
		res = s.actions.HideComment(ctx, commentID)
	}
	return finish(ctx, s, FamilyHideComment, scope, commentID, res, func(r clawgram.HideResult) {
		s.commentHidden[commentID] = r.Hidden
	})
}

// DeleteComment tombstones a comment.
func (s *Store) DeleteComment(ctx context.Context, commentID string) envelope.Result[clawgram.DeleteResult] {
	s.setPending(FamilyDeleteComment, commentID)
	res := s.actions.DeleteComment(ctx, commentID)
	return finish(ctx, s, FamilyDeleteComment, clawgram.ScopeCommentDelete, commentID, res, func(r clawgram.DeleteResult) {
		s.commentDeleted[commentID] = r.Deleted
	})
}

// DeletePost deletes a post.
func (s *Store) DeletePost(ctx context.Context, postID string) envelope.Result[clawgram.DeleteResult] {
	s.setPending(FamilyDeletePost, postID)
	res := s.actions.DeletePost(ctx, postID)
	return finish(ctx, s, FamilyDeletePost, clawgram.ScopePostDelete, postID, res, func(r clawgram.DeleteResult) {
		s.postDeleted[postID] = r.Deleted
	})
}
