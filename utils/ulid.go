package utils

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropyLock serializes generation so ids stay unique under concurrency.
var entropyLock sync.Mutex

// GenerateULID returns a new ULID for the current time.
func GenerateULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.Make()
}

// GenerateULIDString returns a new ULID in its canonical string form.
func GenerateULIDString() string {
	return GenerateULID().String()
}

// GenerateULIDWithTime returns a ULID whose timestamp component is taken
// from t instead of the clock.
func GenerateULIDWithTime(t time.Time) ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy())
}

// ParseULID parses a ULID string.
func ParseULID(s string) (ulid.ULID, error) {
	return ulid.Parse(s)
}

// MustParseULID parses a ULID string, panicking when it is invalid.
func MustParseULID(s string) ulid.ULID {
	return ulid.MustParse(s)
}
