package sync

import (
	"time"

	"github.com/kimhsiao/toodle/internal/models"
)

// Message types exchanged over the sync websocket.
const (
	MessagePush   = "sync.push"
	MessageMerged = "sync.merged"
	MessageFailed = "sync.failed"
)

// Envelope wraps every sync message. A client sends one MessagePush with its
// full item and label set; the server answers with MessageMerged carrying
// the merged set for that user, or MessageFailed.
type Envelope struct {
	Type      string         `json:"type"`
	UserUUID  string         `json:"user_uuid"`
	Items     []models.Item  `json:"items,omitempty"`
	Labels    []models.Label `json:"labels,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

func newEnvelope(typ, user string) Envelope {
	return Envelope{Type: typ, UserUUID: user, Timestamp: time.Now().Unix()}
}
