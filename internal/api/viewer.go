package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/metrics"
	"github.com/kalambet/clawgram/internal/storage"
	"github.com/kalambet/clawgram/internal/surface"
)

// ViewerDeps holds dependencies for the viewer API.
type ViewerDeps struct {
	Session *Session
	Token   string
	Metrics bool
}

type surfaceLoadRequest struct {
	Hashtag *string `json:"hashtag"`
	Profile string  `json:"profile"`
	Query   string  `json:"query"`
	Mode    string  `json:"mode"`
}

type searchLoadRequest struct {
	Query  string `json:"query"`
	Mode   string `json:"mode"`
	Bucket string `json:"bucket"`
	More   bool   `json:"more"`
}

type commentRequest struct {
	Body            string `json:"body"`
	ParentCommentID string `json:"parent_comment_id"`
}

type reportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

type moreResponse[T any] struct {
	Loaded bool `json:"loaded"`
	State  T    `json:"state"`
}

// NewViewerHandler serves read access to the store snapshots plus the
// social actions a viewer can take. Everything except /health requires the
// bearer token.
func NewViewerHandler(deps ViewerDeps) http.Handler {
	s := deps.Session
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		if deps.Metrics {
			r.Handle("/metrics", metrics.Handler())
		}

		r.Get("/surfaces/{surface}", handleGetSurface(s))
		r.Post("/surfaces/{surface}/load", handleLoadSurface(s))
		r.Post("/surfaces/{surface}/more", handleMoreSurface(s))
		r.Post("/refresh", handleRefresh(s))

		r.Get("/search", handleGetSearch(s))
		r.Post("/search/load", handleLoadSearch(s))

		r.Get("/posts/{id}", handleGetPost(s))
		r.Post("/posts/{id}/select", handleSelectPost(s))
		r.Get("/posts/{id}/comments", handleGetComments(s))
		r.Post("/posts/{id}/comments", handleCreateComment(s))
		r.Post("/posts/{id}/like", handleLike(s))
		r.Post("/posts/{id}/report", handleReport(s))
		r.Get("/comments/{id}/replies", handleGetReplies(s))
		r.Post("/agents/{name}/follow", handleFollow(s))
		r.Get("/social/posts/{id}", handleSocialState(s))

		r.Get("/actions", handleListActions(s))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func surfaceParam(w http.ResponseWriter, r *http.Request) (surface.Surface, bool) {
	target, ok := surface.ParseSurface(chi.URLParam(r, "surface"))
	if !ok {
		httpError(w, http.StatusNotFound, "not_found", "unknown surface %q", chi.URLParam(r, "surface"))
	}
	return target, ok
}

func handleGetSurface(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := surfaceParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Feed(target))
	}
}

func handleLoadSurface(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := surfaceParam(w, r)
		if !ok {
			return
		}
		var req surfaceLoadRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Profile != "" {
			s.Surfaces.SetProfile(req.Profile)
		}
		if req.Query != "" {
			s.Surfaces.SetQuery(req.Query)
		}
		if req.Mode != "" {
			s.Surfaces.SetSearchMode(clawgram.ParseSearchMode(req.Mode))
		}
		st := s.Surfaces.LoadSurface(r.Context(), target, surface.LoadOptions{OverrideHashtag: req.Hashtag})
		writeJSON(w, http.StatusOK, s.resolveFeed(st))
	}
}

func handleMoreSurface(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := surfaceParam(w, r)
		if !ok {
			return
		}
		st, loaded := s.Surfaces.LoadMore(r.Context(), target)
		writeJSON(w, http.StatusOK, moreResponse[surface.FeedLoadState]{Loaded: loaded, State: s.resolveFeed(st)})
	}
}

func handleRefresh(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Surfaces.RefreshAll(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetSearch(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Search())
	}
}

func handleLoadSearch(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchLoadRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.More {
			st, loaded := s.Surfaces.LoadMoreSearch(r.Context(), clawgram.SearchBucket(req.Bucket))
			writeJSON(w, http.StatusOK, moreResponse[surface.SearchLoadState]{Loaded: loaded, State: s.resolveSearch(st)})
			return
		}
		if req.Mode != "" {
			s.Surfaces.SetSearchMode(clawgram.ParseSearchMode(req.Mode))
		}
		if req.Query != "" {
			s.Surfaces.SetQuery(req.Query)
		}
		st := s.Surfaces.LoadSearch(r.Context(), surface.LoadOptions{})
		writeJSON(w, http.StatusOK, s.resolveSearch(st))
	}
}

func handleGetPost(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh := r.URL.Query().Get("refresh") == "true"
		writeJSON(w, http.StatusOK, s.Post(r.Context(), chi.URLParam(r, "id"), refresh))
	}
}

func handleSelectPost(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s.Surfaces.SelectPost(r.Context(), id)
		writeJSON(w, http.StatusOK, map[string]string{"selected": s.Surfaces.Selected()})
	}
}

func handleGetComments(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.Comments(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("cursor"))
		writeJSON(w, http.StatusOK, st)
	}
}

func handleGetReplies(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.Replies(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("cursor"))
		writeJSON(w, http.StatusOK, st)
	}
}

func handleCreateComment(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commentRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		writeResult(w, s.Comment(r.Context(), chi.URLParam(r, "id"), req.Body, req.ParentCommentID))
	}
}

func handleLike(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, s.Like(r.Context(), chi.URLParam(r, "id")))
	}
}

func handleReport(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		writeResult(w, s.Report(r.Context(), chi.URLParam(r, "id"), req.Reason, req.Details))
	}
}

func handleFollow(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, s.Follow(r.Context(), chi.URLParam(r, "name")))
	}
}

func handleSocialState(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.SocialState(chi.URLParam(r, "id")))
	}
}

func handleListActions(s *Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Actions == nil {
			httpError(w, http.StatusNotFound, "not_found", "action journal is disabled")
			return
		}
		q := r.URL.Query()
		actions, err := s.Actions.ListActions(r.Context(), storage.ActionFilter{
			Scope:    q.Get("scope"),
			EntityID: q.Get("entity"),
			Limit:    parseIntParam(r, "limit", 50, 500),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list actions: %v", err)
			return
		}
		if actions == nil {
			actions = []storage.Action{}
		}
		writeJSON(w, http.StatusOK, actions)
	}
}
