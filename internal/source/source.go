// Package source defines the interface event-source adapters implement and
// the registry they register under.
package source

import (
	"context"
	"time"

	"github.com/bimotal/motordata/internal/model"
)

// Source fetches Motor Data telemetry events from a remote analytics store.
type Source interface {
	// Fetch returns the events matching params. An empty result with a nil
	// error means every endpoint candidate came back empty; the caller
	// decides whether that is fatal.
	Fetch(ctx context.Context, params Params) ([]model.Event, error)

	// List returns lightweight summaries of the matching events, newest
	// first, without classification.
	List(ctx context.Context, params Params) ([]model.EventSummary, error)
}

// Config holds the connection settings an adapter needs. It is an explicit
// value object: adapters carry no process-wide state.
type Config struct {
	InstanceURL string
	ProjectID   string
	APIKey      string
	Timeout     time.Duration
	PageLimit   int // per-page result limit
	MaxPages    int // pagination hard cap
}

// Params identifies which events to fetch.
type Params struct {
	PersonID        string
	SessionID       string // optional: exact $session_id post-filter
	TargetTimestamp string // optional: exact or second-precision prefix match
}
