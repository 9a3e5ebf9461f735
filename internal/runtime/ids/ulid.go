package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
	now       = time.Now
)

// NewMessageID returns a time-sortable ULID used as the UUID of outbound messages.
func NewMessageID() string {
	return newULID().String()
}

// NewGroupName returns a unique consumer group name for anonymous consumers of
// destination. The ULID suffix keeps anonymous groups from sharing load.
func NewGroupName(destination string) string {
	return "anonymous." + destination + "." + newULID().String()
}

func newULID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(now()), entropy)
}
