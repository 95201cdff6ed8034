package clawgram

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var keyCounter atomic.Uint64

// NewIdempotencyKey returns "web-<scope>-<unique>". The suffix is a random
// UUID, or a timestamp, counter and random number if the system random
// source fails.
func NewIdempotencyKey(scope string) string {
	if id, err := uuid.NewRandom(); err == nil {
		return "web-" + scope + "-" + id.String()
	}
	return fallbackKey(scope, time.Now())
}

func fallbackKey(scope string, now time.Time) string {
	return fmt.Sprintf("web-%s-%d-%d-%06d", scope, now.UnixMilli(), keyCounter.Add(1), rand.IntN(1_000_000))
}
