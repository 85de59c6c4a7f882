package request

import (
	"math"
	"time"
)

// GracePeriod is how long a soft-deleted request stays restorable.
const GracePeriod = 7 * 24 * time.Hour

// IsExpired reports whether a soft-deleted request can no longer be
// restored. The boundary instant itself is not yet expired: a restore at
// exactly deletedAt+7d still succeeds. now is always passed in explicitly.
func IsExpired(deletedAt, now time.Time) bool {
	return now.After(deletedAt.Add(GracePeriod))
}

// RemainingDays returns ceil of the days left before expiry. It can be zero
// or negative and is only for user-facing messaging; the hard gate is
// IsExpired.
func RemainingDays(deletedAt, now time.Time) int {
	remaining := deletedAt.Add(GracePeriod).Sub(now)
	return int(math.Ceil(remaining.Hours() / 24))
}
