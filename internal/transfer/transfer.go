// Package transfer submits completed recordings to the remote transfer
// pipeline over AMQP. The daemon never moves bytes itself; it publishes a
// request describing what to sync and where, and dedicated transfer workers
// consume the queue.
package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"streamcap/internal/store"
)

// Item is one file the transfer workers should pick up.
type Item struct {
	Path      string `json:"path"`
	SegmentID int64  `json:"segment_id,omitempty"`
	Caption   bool   `json:"caption,omitempty"`
}

// Request describes one remote-sync job.
type Request struct {
	ID          string    `json:"id"`
	TargetURL   string    `json:"target_url"`
	TargetName  string    `json:"target_name"`
	Operation   string    `json:"operation"`
	Destination string    `json:"destination"`
	ExtraArgs   []string  `json:"extra_args,omitempty"`
	Items       []Item    `json:"items"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewRequest assembles a request for a target's action and items. The ID is
// assigned here so retried publishes stay idempotent downstream.
func NewRequest(target *store.Target, action store.Action, items []Item) Request {
	return Request{
		ID:          uuid.NewString(),
		TargetURL:   target.URL,
		TargetName:  target.Name,
		Operation:   action.Operation,
		Destination: action.Destination,
		ExtraArgs:   action.ExtraArgs,
		Items:       items,
		SubmittedAt: time.Now().UTC(),
	}
}

// Submitter hands transfer requests to the broker.
type Submitter interface {
	Submit(ctx context.Context, req Request) error
	Close() error
}
