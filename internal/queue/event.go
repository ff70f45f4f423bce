// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the audit consumer.
package queue

import (
	"encoding/json"
	"time"
)

// QueueName is the durable queue all domain events go to.
const QueueName = "volunteer.events"

// Event types.
const (
	EventPostModerated = "post.moderated"
	EventSupportCommit = "support.commit"
)

// Event is the envelope written to the broker.  Data holds one of the
// payload structs below, selected by Type.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// PostModerated is published when an admin approves or rejects a post.
type PostModerated struct {
	PostID  uint64  `json:"post_id"`
	OwnerID uint64  `json:"owner_id"`
	AdminID uint64  `json:"admin_id"`
	Status  string  `json:"status"`
	Reason  *string `json:"reason,omitempty"`
}

// SupportCommitChanged is published when a commit is confirmed or canceled.
type SupportCommitChanged struct {
	CommitID uint64 `json:"commit_id"`
	PostID   uint64 `json:"post_id"`
	UserID   uint64 `json:"user_id"`
	ActorID  uint64 `json:"actor_id"`
	Status   string `json:"status"`
	Quantity int    `json:"quantity"`
}

// NewEvent wraps data in an envelope stamped with the current time.
func NewEvent(typ string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, OccurredAt: time.Now().UTC(), Data: raw}, nil
}
