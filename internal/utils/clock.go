package utils

import "time"

// NowUTC is the clock used for every persisted timestamp.
func NowUTC() time.Time {
	return time.Now().UTC()
}
