package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bimotal/motordata/internal/model"
	"github.com/bimotal/motordata/internal/source"
)

// BulkResult summarizes a bulk download.
type BulkResult struct {
	Listed    int // events the person has
	Selected  int // events inside the quality band (capped at the request count)
	Fetched   int // events actually downloaded
	TableRows int
}

// Bulk downloads many events in one pass: list the person's events, keep
// those inside the property-count quality band, fetch the newest `count`
// of them (count <= 0 means all), and merge everything into the master
// table in one serialized write. Per-event fetches run on a bounded worker
// pool since each is independent and read-only against the remote store; a
// failed or timed-out event is skipped, not retried.
func (p *Pipeline) Bulk(ctx context.Context, params source.Params, count int) (BulkResult, error) {
	summaries, err := p.src.List(ctx, source.Params{PersonID: params.PersonID})
	if err != nil {
		return BulkResult{}, fmt.Errorf("pipeline: bulk list: %w", err)
	}
	if len(summaries) == 0 {
		return BulkResult{}, ErrNoEvents
	}

	selected := p.qualityFilter(summaries)
	if len(selected) == 0 {
		return BulkResult{Listed: len(summaries)}, fmt.Errorf(
			"pipeline: none of %d events inside the %d-%d property quality band: %w",
			len(summaries), p.bulk.MinProperties, p.bulk.MaxProperties, ErrNoEvents)
	}
	if count > 0 && len(selected) > count {
		selected = selected[:count] // listing is newest first
	}

	events := p.fetchAll(ctx, params.PersonID, selected)
	if err := ctx.Err(); err != nil {
		return BulkResult{}, err
	}
	if len(events) == 0 {
		return BulkResult{Listed: len(summaries), Selected: len(selected)},
			fmt.Errorf("pipeline: bulk download fetched nothing: %w", ErrNoEvents)
	}

	result, err := p.ingest(events, false)
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{
		Listed:    len(summaries),
		Selected:  len(selected),
		Fetched:   len(events),
		TableRows: result.TableRows,
	}, nil
}

// qualityFilter keeps summaries whose property count falls inside the
// configured band. MaxProperties 0 disables the upper bound.
func (p *Pipeline) qualityFilter(summaries []model.EventSummary) []model.EventSummary {
	var out []model.EventSummary
	for _, s := range summaries {
		if s.PropertyCount < p.bulk.MinProperties {
			continue
		}
		if p.bulk.MaxProperties > 0 && s.PropertyCount > p.bulk.MaxProperties {
			continue
		}
		out = append(out, s)
	}
	if len(out) < len(summaries) {
		slog.Info("quality filter applied",
			"kept", len(out), "dropped", len(summaries)-len(out),
			"min", p.bulk.MinProperties, "max", p.bulk.MaxProperties)
	}
	return out
}

// fetchAll downloads the selected events on a bounded worker pool. Results
// are collected under a lock; ordering is restored from the selection order
// afterwards so the merge stays deterministic.
func (p *Pipeline) fetchAll(ctx context.Context, personID string, selected []model.EventSummary) []model.Event {
	workers := p.bulk.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(selected) {
		workers = len(selected)
	}

	jobs := make(chan model.EventSummary)
	var mu sync.Mutex
	byTimestamp := make(map[string][]model.Event, len(selected))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				events, err := p.src.Fetch(ctx, source.Params{
					PersonID:        personID,
					TargetTimestamp: s.Timestamp,
				})
				if err != nil {
					slog.Warn("bulk event fetch failed, skipping",
						"timestamp", s.Timestamp, "error", err)
					continue
				}
				mu.Lock()
				byTimestamp[s.Timestamp] = events
				mu.Unlock()
			}
		}()
	}

feed:
	for _, s := range selected {
		select {
		case jobs <- s:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var out []model.Event
	for _, s := range selected {
		out = append(out, byTimestamp[s.Timestamp]...)
	}
	return out
}
