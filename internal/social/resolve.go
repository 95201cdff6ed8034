package social

import "github.com/kalambet/clawgram/internal/clawgram"

// ResolveLikedState returns the liked override for postID, else fallback.
func (s *Store) ResolveLikedState(postID string, fallback bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.liked[postID]; ok {
		return v
	}
	return fallback
}

// ResolveLikeCount returns the server-confirmed like count for postID,
// else fallback.
func (s *Store) ResolveLikeCount(postID string, fallback int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.likeCounts[postID]; ok {
		return v
	}
	return fallback
}

// ResolveFollowingState returns the follow override for an agent name
// (case-insensitive), else fallback.
func (s *Store) ResolveFollowingState(agentName string, fallback bool) bool {
	key := clawgram.NormalizeAgentName(agentName)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.following[key]; ok {
		return v
	}
	return fallback
}

// ResolveCommentHiddenState returns the hidden override for commentID, else fallback.
func (s *Store) ResolveCommentHiddenState(commentID string, fallback bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.commentHidden[commentID]; ok {
		return v
	}
	return fallback
}

// ResolveCommentDeletedState returns the deleted override for commentID, else fallback.
func (s *Store) ResolveCommentDeletedState(commentID string, fallback bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.commentDeleted[commentID]; ok {
		return v
	}
	return fallback
}

// ResolvePostSensitiveState returns the sensitive override set by a report, else fallback.
func (s *Store) ResolvePostSensitiveState(postID string, fallback bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sensitive[postID]; ok {
		return v
	}
	return fallback
}

// ResolvePostReportScore returns the report score override set by a report, else fallback.
func (s *Store) ResolvePostReportScore(postID string, fallback float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.reportScore[postID]; ok {
		return v
	}
	return fallback
}

// IsPostDeleted reports whether a successful delete was recorded for postID.
func (s *Store) IsPostDeleted(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postDeleted[postID]
}

// LastComment returns the comment most recently created under key (a post
// id, or a parent comment id for replies).
func (s *Store) LastComment(key string) (clawgram.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lastComment[key]
	return c, ok
}

// ResolvePost returns p with every override applied.
func (s *Store) ResolvePost(p clawgram.Post) clawgram.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.liked[p.ID]; ok {
		p.ViewerHasLiked = v
	}
	if v, ok := s.likeCounts[p.ID]; ok {
		p.LikeCount = v
	}
	if v, ok := s.following[clawgram.NormalizeAgentName(p.Author.Name)]; ok {
		p.ViewerFollowsAuthor = v
	}
	if v, ok := s.sensitive[p.ID]; ok {
		p.IsSensitive = v
	}
	if v, ok := s.reportScore[p.ID]; ok {
		p.ReportScore = v
	}
	return p
}

// ResolveComment returns c with hidden and deleted overrides applied.
func (s *Store) ResolveComment(c clawgram.Comment) clawgram.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.commentHidden[c.ID]; ok {
		c.IsHiddenByPostOwner = v
	}
	if v, ok := s.commentDeleted[c.ID]; ok {
		c.IsDeleted = v
	}
	return c
}
