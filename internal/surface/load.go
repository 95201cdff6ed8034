package surface

import (
	"context"
	"maps"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/metrics"
)

const (
	msgEnterHashtag = "Enter a hashtag."
	msgEnterProfile = "Enter an agent name."
	msgEnterQuery   = "Enter a search term."

	minQueryLength = 2
)

// LoadSurface loads a page of target and merges it per opts. Hashtag and
// profile inputs are validated locally; a blank input fails without a
// network call. The search surface delegates to LoadSearch.
func (s *Store) LoadSurface(ctx context.Context, target Surface, opts LoadOptions) FeedLoadState {
	if target == Search {
		s.LoadSearch(ctx, opts)
		return s.Feed(Search)
	}

	key := string(target)
	s.mu.Lock()
	seq := s.seq.next(key)
	if target == Hashtag && opts.OverrideHashtag != nil {
		s.hashtag = clawgram.NormalizeHashtag(*opts.OverrideHashtag)
	}
	input := ""
	switch target {
	case Hashtag:
		input = s.hashtag
		if input == "" {
			return s.failLocally(key, seq, target, msgEnterHashtag)
		}
	case Profile:
		input = s.profile
		if input == "" {
			return s.failLocally(key, seq, target, msgEnterProfile)
		}
	}
	prev := s.feeds[target]
	if !opts.Background {
		s.feeds[target] = FeedLoadState{Status: StatusLoading, Page: prev.Page}
	}
	limit := s.pageLimit
	s.mu.Unlock()

	page := clawgram.PageRequest{Limit: limit, Cursor: opts.Cursor}
	var res envelope.Result[clawgram.FeedPage]
	switch target {
	case Explore:
		res = s.api.ExploreFeed(ctx, page)
	case Following:
		res = s.api.FollowingFeed(ctx, page)
	case Hashtag:
		res = s.api.HashtagFeed(ctx, input, page)
	case Profile:
		res = s.api.ProfilePosts(ctx, input, page)
	default:
		res = envelope.LocalFailure[clawgram.FeedPage]("Unknown surface.", clawgram.CodeValidationError)
	}

	s.mu.Lock()
	if !s.seq.commit(key, seq) {
		st := s.feedLocked(target)
		s.mu.Unlock()
		s.discard(target, seq)
		return st
	}
	cur := s.feeds[target]
	if !res.OK {
		if opts.Background {
			st := s.feedLocked(target)
			s.mu.Unlock()
			s.logger.Debug("background refresh failed", "surface", target, "status", res.Status, "code", res.Code)
			return st
		}
		st := FeedLoadState{
			Status:    StatusError,
			Error:     clawgram.SurfaceMessage(target.context(), res.Code, res.Error),
			RequestID: res.RequestID,
		}
		if opts.Append {
			st.Page = cur.Page
		}
		s.feeds[target] = st
		s.mu.Unlock()
		return s.Feed(target)
	}

	merged := MergeFeedPage(cur.Page, res.Data, modeFor(opts))
	s.feeds[target] = FeedLoadState{Status: StatusReady, Page: &merged, RequestID: res.RequestID}
	focusID := ""
	if !opts.Background {
		focusID = s.reselectLocked(merged.Posts)
	}
	st := s.feedLocked(target)
	s.mu.Unlock()

	s.triggerFocus(ctx, focusID)
	return st
}

// failLocally commits a local validation failure. Called with s.mu held;
// releases it.
func (s *Store) failLocally(key string, seq uint64, target Surface, msg string) FeedLoadState {
	defer s.mu.Unlock()
	if s.seq.commit(key, seq) {
		s.feeds[target] = FeedLoadState{Status: StatusError, Error: msg}
	}
	return s.feedLocked(target)
}

func (s *Store) discard(target Surface, seq uint64) {
	metrics.IncStale(string(target))
	s.logger.Debug("discarding stale response", "surface", target, "seq", seq)
}

// reselectLocked keeps the selection if it is still in posts, else selects
// the first post. It returns the id to focus when the selection changed or
// was never focused, else "".
func (s *Store) reselectLocked(posts []clawgram.Post) string {
	if len(posts) == 0 {
		return ""
	}
	if s.selected != "" {
		for _, p := range posts {
			if p.ID == s.selected {
				if s.focused {
					return ""
				}
				s.focused = true
				return s.selected
			}
		}
	}
	s.selected = posts[0].ID
	s.focused = true
	return s.selected
}

func (s *Store) triggerFocus(ctx context.Context, postID string) {
	if postID == "" || s.focus == nil {
		return
	}
	s.focus.Focus(ctx, postID)
}

// LoadSearch runs the current query in the current mode. A blank query or
// one shorter than two characters fails locally. In SearchAll mode a
// Bucket-scoped append sends only that bucket's cursor; an unscoped append
// sends every bucket's cursor. The posts bucket is mirrored into the
// search feed surface.
func (s *Store) LoadSearch(ctx context.Context, opts LoadOptions) SearchLoadState {
	s.mu.Lock()
	seq := s.seq.next(searchKey)
	query := strings.TrimSpace(s.query)
	mode := s.mode
	switch {
	case query == "":
		return s.failSearchLocally(seq, msgEnterQuery)
	case utf8.RuneCountInString(query) < minQueryLength:
		return s.failSearchLocally(seq, clawgram.SurfaceMessage(clawgram.ContextSearch, clawgram.CodeValidationError, ""))
	}

	prev := s.search
	req := clawgram.SearchRequest{Query: query, Mode: mode, Limit: s.pageLimit}
	bucket := opts.Bucket
	if mode != clawgram.SearchAll {
		bucket = ""
		req.Cursor = opts.Cursor
		if req.Cursor == "" && opts.Append && prev.Page != nil {
			req.Cursor = prev.Page.Cursors[mode.Buckets()[0]]
		}
	} else if opts.Append && prev.Page != nil {
		if bucket != "" {
			cursor := opts.Cursor
			if cursor == "" {
				cursor = prev.Page.Cursors[bucket]
			}
			req.Cursors = map[clawgram.SearchBucket]string{bucket: cursor}
		} else {
			req.Cursors = maps.Clone(prev.Page.Cursors)
		}
	}
	if !opts.Background {
		s.search = SearchLoadState{Status: StatusLoading, Page: prev.Page}
		mirror := s.feeds[Search]
		s.feeds[Search] = FeedLoadState{Status: StatusLoading, Page: mirror.Page}
	}
	s.mu.Unlock()

	res := s.api.SearchUnified(ctx, req)

	s.mu.Lock()
	if !s.seq.commit(searchKey, seq) {
		st := s.searchLocked()
		s.mu.Unlock()
		s.discard(Search, seq)
		return st
	}
	cur := s.search
	if !res.OK {
		if opts.Background {
			st := s.searchLocked()
			s.mu.Unlock()
			s.logger.Debug("background search refresh failed", "status", res.Status, "code", res.Code)
			return st
		}
		msg := clawgram.SurfaceMessage(clawgram.ContextSearch, res.Code, res.Error)
		st := SearchLoadState{Status: StatusError, Error: msg, RequestID: res.RequestID}
		mirror := FeedLoadState{Status: StatusError, Error: msg, RequestID: res.RequestID}
		if opts.Append {
			st.Page = cur.Page
			mirror.Page = s.feeds[Search].Page
		}
		s.search = st
		s.feeds[Search] = mirror
		defer s.mu.Unlock()
		return s.searchLocked()
	}

	how := modeFor(opts)
	prevPage := cur.Page
	if prevPage != nil && (prevPage.Mode != res.Data.Mode || prevPage.Query != res.Data.Query) {
		prevPage = nil
	}
	merged := MergeSearchPage(prevPage, res.Data, bucket, how)
	s.search = SearchLoadState{Status: StatusReady, Page: &merged, RequestID: res.RequestID}
	s.feeds[Search] = FeedLoadState{
		Status: StatusReady,
		Page: &clawgram.FeedPage{
			Posts:      merged.Posts.Items,
			NextCursor: merged.Posts.NextCursor,
			HasMore:    merged.Posts.HasMore,
		},
		RequestID: res.RequestID,
	}
	focusID := ""
	if !opts.Background {
		focusID = s.reselectLocked(merged.Posts.Items)
	}
	st := s.searchLocked()
	s.mu.Unlock()

	s.triggerFocus(ctx, focusID)
	return st
}

func (s *Store) failSearchLocally(seq uint64, msg string) SearchLoadState {
	defer s.mu.Unlock()
	if s.seq.commit(searchKey, seq) {
		s.search = SearchLoadState{Status: StatusError, Error: msg}
		s.feeds[Search] = FeedLoadState{Status: StatusError, Error: msg}
	}
	return s.searchLocked()
}

// LoadMore appends the next page of target. It returns false without a
// network call when the surface has no next cursor; an empty cursor ends
// pagination regardless of hasMore.
func (s *Store) LoadMore(ctx context.Context, target Surface) (FeedLoadState, bool) {
	if target == Search {
		_, ok := s.LoadMoreSearch(ctx, "")
		return s.Feed(Search), ok
	}
	st := s.Feed(target)
	if st.Page == nil || st.Page.NextCursor == "" {
		return st, false
	}
	return s.LoadSurface(ctx, target, LoadOptions{Cursor: st.Page.NextCursor, Append: true}), true
}

// LoadMoreSearch appends the next page of the search results. bucket
// scopes the load in SearchAll mode; empty advances every bucket that has
// a cursor.
func (s *Store) LoadMoreSearch(ctx context.Context, bucket clawgram.SearchBucket) (SearchLoadState, bool) {
	s.mu.Lock()
	st := s.searchLocked()
	mode := s.mode
	s.mu.Unlock()
	if st.Page == nil {
		return st, false
	}

	switch {
	case mode != clawgram.SearchAll:
		bucket = mode.Buckets()[0]
		if st.Page.Cursors[bucket] == "" {
			return st, false
		}
		return s.LoadSearch(ctx, LoadOptions{Cursor: st.Page.Cursors[bucket], Append: true}), true
	case bucket != "":
		if st.Page.Cursors[bucket] == "" {
			return st, false
		}
		return s.LoadSearch(ctx, LoadOptions{Bucket: bucket, Append: true}), true
	default:
		if len(st.Page.Cursors) == 0 {
			return st, false
		}
		return s.LoadSearch(ctx, LoadOptions{Append: true}), true
	}
}

// SelectPost focuses postID, triggering the focus loader when the
// selection changes.
func (s *Store) SelectPost(ctx context.Context, postID string) {
	s.mu.Lock()
	if postID == "" || (postID == s.selected && s.focused) {
		s.mu.Unlock()
		return
	}
	s.selected = postID
	s.focused = true
	s.mu.Unlock()
	s.triggerFocus(ctx, postID)
}

// RefreshAll re-fetches the first page of every ready surface in the
// background, with bounded concurrency.
func (s *Store) RefreshAll(ctx context.Context) {
	s.mu.Lock()
	var targets []Surface
	for _, target := range All {
		if target == Search {
			continue
		}
		if st, ok := s.feeds[target]; ok && st.Status == StatusReady {
			targets = append(targets, target)
		}
	}
	refreshSearch := s.search.Status == StatusReady
	limit := s.refreshLimit
	s.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(limit)
	for _, target := range targets {
		g.Go(func() error {
			s.LoadSurface(ctx, target, LoadOptions{Background: true})
			return nil
		})
	}
	if refreshSearch {
		g.Go(func() error {
			s.LoadSearch(ctx, LoadOptions{Background: true})
			return nil
		})
	}
	_ = g.Wait()
}
