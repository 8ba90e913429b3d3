package utils

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyLock sync.Mutex
	entropy     = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a ULID that sorts after every ULID previously returned
// by this process, even within the same millisecond.
func NewULID() ulid.ULID {
	return NewULIDAt(time.Now())
}

// NewULIDAt is NewULID with an explicit timestamp
func NewULIDAt(t time.Time) ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy)
}

// ULIDString returns NewULID in lower case, for file names
func ULIDString() string {
	return strings.ToLower(NewULID().String())
}

// ParseULID accepts either case
func ParseULID(s string) (ulid.ULID, error) {
	return ulid.ParseStrict(strings.ToUpper(s))
}
