package maitre

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}

// NowUTC returns the current UTC time in RFC 3339 format. All timestamps in
// chunk metadata and export envelopes use this format.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
