package surface

// sequencer issues per-key request numbers and decides which responses may
// commit. A response commits when no later-issued response for the same key
// has committed yet, giving last-issued-wins. Callers hold Store.mu.
type sequencer struct {
	issued    map[string]uint64
	committed map[string]uint64
}

func newSequencer() *sequencer {
	return &sequencer{
		issued:    make(map[string]uint64),
		committed: make(map[string]uint64),
	}
}

func (q *sequencer) next(key string) uint64 {
	q.issued[key]++
	return q.issued[key]
}

func (q *sequencer) commit(key string, seq uint64) bool {
	if seq < q.committed[key] {
		return false
	}
	q.committed[key] = seq
	return true
}

// invalidate discards every response issued so far for key.
func (q *sequencer) invalidate(key string) {
	q.committed[key] = q.issued[key] + 1
}
