package models

import "time"

// ConflictLog records a resolved concurrent edit of one item during sync.
type ConflictLog struct {
	ItemUUID        UUID   `json:"item_uuid"`
	LocalTimestamp  int64  `json:"local_timestamp"`
	RemoteTimestamp int64  `json:"remote_timestamp"`
	Resolution      string `json:"resolution"` // local_wins, remote_wins
	DetectedAt      int64  `json:"detected_at"`
}

// DetectedAtTime returns the DetectedAt as time.Time.
func (c *ConflictLog) DetectedAtTime() time.Time {
	return time.Unix(c.DetectedAt, 0)
}
