package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexically sortable id. Ids generated within the same
// millisecond by this process stay strictly increasing.
func NewULID(now time.Time) ulid.ULID {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy)
}

// GenerateEventID returns "<prefix>_<ulid>".
func GenerateEventID(prefix string) string {
	return prefix + "_" + NewULID(time.Now()).String()
}
