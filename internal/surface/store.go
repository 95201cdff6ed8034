// Package surface owns the paginated load state of every browsing surface
// (explore, following, hashtag, profile, search) and the multi-bucket
// search page.
//
// For each surface only the most recently issued load may commit: a slow
// earlier response that resolves after a later one has committed is
// discarded with no merge and no selection change.
package surface

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
)

// Surface is an independently paginated browsing context.
type Surface string

const (
	Explore   Surface = "explore"
	Following Surface = "following"
	Hashtag   Surface = "hashtag"
	Profile   Surface = "profile"
	Search    Surface = "search"
)

// All lists every surface.
var All = []Surface{Explore, Following, Hashtag, Profile, Search}

// ParseSurface validates a surface name.
func ParseSurface(s string) (Surface, bool) {
	v := Surface(strings.ToLower(strings.TrimSpace(s)))
	return v, slices.Contains(All, v)
}

func (s Surface) context() clawgram.Context {
	switch s {
	case Hashtag:
		return clawgram.ContextHashtag
	case Profile:
		return clawgram.ContextProfile
	case Search:
		return clawgram.ContextSearch
	default:
		return clawgram.ContextFeed
	}
}

// Status is the lifecycle of a surface load.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// FeedLoadState is the load state of one feed surface.
type FeedLoadState struct {
	Status    Status             `json:"status"`
	Page      *clawgram.FeedPage `json:"page,omitempty"`
	Error     string             `json:"error,omitempty"`
	RequestID string             `json:"requestId,omitempty"`
}

// SearchLoadState is the load state of the unified search page.
type SearchLoadState struct {
	Status    Status               `json:"status"`
	Page      *clawgram.SearchPage `json:"page,omitempty"`
	Error     string               `json:"error,omitempty"`
	RequestID string               `json:"requestId,omitempty"`
}

// LoadOptions controls a single load.
type LoadOptions struct {
	// Cursor resumes pagination; empty loads the first page.
	Cursor string
	// Append merges the result after the current page.
	Append bool
	// Bucket scopes an all-mode search load to one bucket.
	Bucket clawgram.SearchBucket
	// OverrideHashtag, when set, replaces the current hashtag before
	// loading. A blank override clears it and fails locally.
	OverrideHashtag *string
	// Background refreshes silently: status stays as is while in flight,
	// the merge keeps known items and selection is left alone.
	Background bool
}

// Feeds is the subset of the Clawgram adapter the store reads from.
type Feeds interface {
	ExploreFeed(ctx context.Context, page clawgram.PageRequest) envelope.Result[clawgram.FeedPage]
	FollowingFeed(ctx context.Context, page clawgram.PageRequest) envelope.Result[clawgram.FeedPage]
	HashtagFeed(ctx context.Context, tag string, page clawgram.PageRequest) envelope.Result[clawgram.FeedPage]
	ProfilePosts(ctx context.Context, agentName string, page clawgram.PageRequest) envelope.Result[clawgram.FeedPage]
	SearchUnified(ctx context.Context, req clawgram.SearchRequest) envelope.Result[clawgram.SearchPage]
}

// Focuser loads the detail view of a newly focused post. *thread.Store
// satisfies it.
type Focuser interface {
	Focus(ctx context.Context, postID string)
}

const searchKey = "search"

// Store is safe for concurrent use. The mutex is never held across a
// network call or a Focuser call.
type Store struct {
	api          Feeds
	focus        Focuser
	pageLimit    int
	refreshLimit int
	logger       *slog.Logger

	mu       sync.Mutex
	feeds    map[Surface]FeedLoadState
	search   SearchLoadState
	seq      *sequencer
	hashtag  string
	profile  string
	query    string
	mode     clawgram.SearchMode
	selected string
	focused  bool
}

// Option configures a Store.
type Option func(*Store)

// WithFocuser sets the loader triggered when the focused post changes.
func WithFocuser(f Focuser) Option {
	return func(s *Store) { s.focus = f }
}

// WithPageLimit sets the page size for every surface.
func WithPageLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageLimit = n
		}
	}
}

// WithRefreshConcurrency bounds the number of parallel loads in RefreshAll.
func WithRefreshConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.refreshLimit = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store with every surface idle and search in SearchAll mode.
func New(api Feeds, opts ...Option) *Store {
	s := &Store{
		api:          api,
		pageLimit:    clawgram.DefaultPageLimit,
		refreshLimit: 3,
		logger:       slog.Default(),
		feeds:        make(map[Surface]FeedLoadState),
		search:       SearchLoadState{Status: StatusIdle},
		seq:          newSequencer(),
		mode:         clawgram.SearchAll,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetHashtag sets the tag used by the hashtag surface.
func (s *Store) SetHashtag(tag string) {
	s.mu.Lock()
	s.hashtag = clawgram.NormalizeHashtag(tag)
	s.mu.Unlock()
}

// SetProfile sets the agent whose posts the profile surface shows.
func (s *Store) SetProfile(agentName string) {
	s.mu.Lock()
	s.profile = strings.TrimPrefix(strings.TrimSpace(agentName), "@")
	s.mu.Unlock()
}

// SetQuery sets the search query used by LoadSearch.
func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// SetSearchMode switches the search type. Changing it resets all search
// state, since cursors and buckets are not comparable across types.
func (s *Store) SetSearchMode(mode clawgram.SearchMode) {
	s.mu.Lock()
	changed := s.mode != mode
	s.mu.Unlock()
	if changed {
		s.ResetSearchForType(mode)
	}
}

// ResetSearchForType clears search state, the search feed mirror and the
// selection, sets the new mode and discards in-flight search responses.
func (s *Store) ResetSearchForType(mode clawgram.SearchMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.search = SearchLoadState{Status: StatusIdle}
	delete(s.feeds, Search)
	s.selected = ""
	s.focused = false
	s.seq.invalidate(searchKey)
}

// Hashtag returns the current hashtag.
func (s *Store) Hashtag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashtag
}

// Profile returns the current profile agent name.
func (s *Store) Profile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Query returns the current search query and mode.
func (s *Store) Query() (string, clawgram.SearchMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.mode
}

// Selected returns the focused post id.
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Feed returns a copy of a surface's load state.
func (s *Store) Feed(target Surface) FeedLoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedLocked(target)
}

func (s *Store) feedLocked(target Surface) FeedLoadState {
	st, ok := s.feeds[target]
	if !ok {
		return FeedLoadState{Status: StatusIdle}
	}
	if st.Page != nil {
		page := *st.Page
		page.Posts = slices.Clone(st.Page.Posts)
		st.Page = &page
	}
	return st
}

// Search returns a copy of the search load state.
func (s *Store) Search() SearchLoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchLocked()
}

func (s *Store) searchLocked() SearchLoadState {
	st := s.search
	if st.Page != nil {
		page := *st.Page
		page.Agents.Items = slices.Clone(page.Agents.Items)
		page.Hashtags.Items = slices.Clone(page.Hashtags.Items)
		page.Posts.Items = slices.Clone(page.Posts.Items)
		page.Cursors = clawgram.CursorMap(page)
		st.Page = &page
	}
	return st
}

// UpdatePostAcrossSurfaces applies update to every copy of postID in every
// feed page and the search posts bucket. It returns the number of copies
// updated. Pages are replaced, never mutated in place.
func (s *Store) UpdatePostAcrossSurfaces(postID string, update func(clawgram.Post) clawgram.Post) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for target, st := range s.feeds {
		if st.Page == nil {
			continue
		}
		posts, changed := updatePosts(st.Page.Posts, postID, update)
		if changed == 0 {
			continue
		}
		page := *st.Page
		page.Posts = posts
		st.Page = &page
		s.feeds[target] = st
		n += changed
	}
	if s.search.Page != nil {
		posts, changed := updatePosts(s.search.Page.Posts.Items, postID, update)
		if changed > 0 {
			page := *s.search.Page
			page.Posts.Items = posts
			s.search.Page = &page
			n += changed
		}
	}
	return n
}

func updatePosts(posts []clawgram.Post, postID string, update func(clawgram.Post) clawgram.Post) ([]clawgram.Post, int) {
	var out []clawgram.Post
	n := 0
	for i, p := range posts {
		if p.ID != postID {
			continue
		}
		if out == nil {
			out = slices.Clone(posts)
		}
		out[i] = update(p)
		n++
	}
	if out == nil {
		return posts, 0
	}
	return out, n
}

// FindPost returns the first loaded copy of postID, checking feed surfaces
// in display order and then the search posts bucket.
func (s *Store) FindPost(postID string) (clawgram.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, target := range All {
		st, ok := s.feeds[target]
		if !ok || st.Page == nil {
			continue
		}
		for _, p := range st.Page.Posts {
			if p.ID == postID {
				return p, true
			}
		}
	}
	if s.search.Page != nil {
		for _, p := range s.search.Page.Posts.Items {
			if p.ID == postID {
				return p, true
			}
		}
	}
	return clawgram.Post{}, false
}

// FindAuthor returns the first loaded post written by agentName, so callers
// can read the viewer's follow state for that agent.
func (s *Store) FindAuthor(agentName string) (clawgram.Post, bool) {
	name := clawgram.NormalizeAgentName(agentName)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, target := range All {
		st, ok := s.feeds[target]
		if !ok || st.Page == nil {
			continue
		}
		for _, p := range st.Page.Posts {
			if clawgram.NormalizeAgentName(p.Author.Name) == name {
				return p, true
			}
		}
	}
	return clawgram.Post{}, false
}
