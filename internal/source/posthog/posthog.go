// Package posthog fetches Motor Data events from the PostHog events API.
//
// PostHog deployments answer differently depending on instance version and
// key permissions, so the adapter tries a fixed, ordered list of endpoint
// shapes (person_id vs distinct_id, three session-filter spellings) and
// accepts the first candidate that yields events. Server-side filters miss
// often enough that everything is re-filtered client-side.
package posthog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/bimotal/motordata/internal/model"
	"github.com/bimotal/motordata/internal/source"
	"github.com/bimotal/motordata/internal/source/httpclient"
)

// EventName is the fixed telemetry event type this system ingests.
const EventName = "Motor Data"

const (
	defaultInstanceURL = "https://us.posthog.com"
	defaultPageLimit   = 200
	defaultMaxPages    = 5
)

func init() {
	source.Register("posthog", func(cfg source.Config) source.Source {
		return New(cfg)
	})
}

// Source implements source.Source against PostHog's events API.
type Source struct {
	cfg    source.Config
	client *httpclient.Client
}

// New creates a PostHog source from explicit connection settings.
func New(cfg source.Config) *Source {
	if cfg.InstanceURL == "" {
		cfg.InstanceURL = defaultInstanceURL
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Source{
		cfg:    cfg,
		client: httpclient.New(cfg.InstanceURL, cfg.APIKey, httpclient.WithTimeout(cfg.Timeout)),
	}
}

// eventsResponse is one page of the events endpoint.
type eventsResponse struct {
	Results []eventRecord `json:"results"`
	Next    string        `json:"next"`
}

type eventRecord struct {
	Event      string         `json:"event"`
	Timestamp  string         `json:"timestamp"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties"`
}

// TimestampMissError reports that no event matched the requested timestamp.
// Available carries the timestamps that were found so the caller can retry
// with a corrected query.
type TimestampMissError struct {
	Target    string
	Available []string
}

func (e *TimestampMissError) Error() string {
	return fmt.Sprintf("no event with timestamp matching %q (%d available)", e.Target, len(e.Available))
}

// candidate is one endpoint shape to try: the query path plus its params.
type candidate struct {
	query url.Values
	desc  string
}

// candidates builds the ordered endpoint list. Session-filtered shapes come
// first when a session id is supplied; within each shape, person_id is tried
// before distinct_id.
func (s *Source) candidates(params source.Params) []candidate {
	base := func(idField string) url.Values {
		q := url.Values{}
		q.Set(idField, params.PersonID)
		q.Set("event", EventName)
		q.Set("limit", strconv.Itoa(s.cfg.PageLimit))
		q.Set("order_by", "-timestamp")
		return q
	}

	var out []candidate
	if params.SessionID != "" {
		propFilter := `{"$session_id":"` + params.SessionID + `"}`
		variants := []struct {
			key, value, desc string
		}{
			{"properties", propFilter, "properties filter"},
			{"session_id", params.SessionID, "session_id param"},
			{"$session_id", params.SessionID, "$session_id param"},
		}
		for _, v := range variants {
			for _, idField := range []string{"person_id", "distinct_id"} {
				q := base(idField)
				q.Set(v.key, v.value)
				out = append(out, candidate{query: q, desc: idField + "+" + v.desc})
			}
		}
	}
	for _, idField := range []string{"person_id", "distinct_id"} {
		out = append(out, candidate{query: base(idField), desc: idField})
	}
	return out
}

func (s *Source) eventsPath() string {
	return "/api/projects/" + s.cfg.ProjectID + "/events/"
}

// Fetch tries each endpoint candidate in order and returns the events from
// the first one that yields a non-empty, well-formed result. Candidate
// failures are logged and skipped; if every candidate exhausts, the result
// is empty with a nil error. When params.TargetTimestamp is set the result
// narrows to matching events, or a *TimestampMissError.
func (s *Source) Fetch(ctx context.Context, params source.Params) ([]model.Event, error) {
	for _, cand := range s.candidates(params) {
		records, err := s.fetchCandidate(ctx, cand)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("endpoint candidate failed", "candidate", cand.desc, "error", err)
			continue
		}

		// Defense against server-side filter misses: keep only the fixed
		// event type, and re-check the session id ourselves.
		events := toEvents(records)
		if params.SessionID != "" {
			events = filterSession(events, params.SessionID)
		}
		if len(events) == 0 {
			slog.Debug("candidate returned no matching events", "candidate", cand.desc)
			continue
		}

		slog.Info("events fetched", "candidate", cand.desc, "count", len(events))

		if params.TargetTimestamp != "" {
			matched := filterTimestamp(events, params.TargetTimestamp)
			if len(matched) == 0 {
				return nil, &TimestampMissError{
					Target:    params.TargetTimestamp,
					Available: timestamps(events),
				}
			}
			return matched, nil
		}
		return events, nil
	}
	return nil, nil
}

// fetchCandidate retrieves all pages for one endpoint shape, following the
// continuation cursor up to the page cap. A failed or cursor-less page ends
// pagination early with whatever was collected.
func (s *Source) fetchCandidate(ctx context.Context, cand candidate) ([]eventRecord, error) {
	var resp eventsResponse
	if err := s.client.GetJSON(ctx, s.eventsPath(), cand.query, &resp); err != nil {
		return nil, err
	}

	records := resp.Results
	next := resp.Next
	for page := 1; page < s.cfg.MaxPages && next != ""; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pageResp eventsResponse
		if err := s.client.GetJSONURL(ctx, next, &pageResp); err != nil {
			slog.Warn("page request failed, stopping pagination", "page", page+1, "error", err)
			break
		}
		records = append(records, pageResp.Results...)
		next = pageResp.Next
	}
	return records, nil
}

// toEvents keeps only records of the fixed telemetry event type and strips
// the transport envelope.
func toEvents(records []eventRecord) []model.Event {
	var out []model.Event
	for _, rec := range records {
		if rec.Event != EventName {
			continue
		}
		out = append(out, model.Event{
			Timestamp:  rec.Timestamp,
			Properties: rec.Properties,
		})
	}
	return out
}

func filterSession(events []model.Event, sessionID string) []model.Event {
	out := events[:0]
	for _, ev := range events {
		if ev.SessionID() == sessionID {
			out = append(out, ev)
		}
	}
	return out
}

// filterTimestamp keeps events whose timestamp matches target exactly,
// contains it, or shares its first 19 characters (second-level precision).
// The prefix rule tolerates trailing-zone notation differences between "Z"
// and "+00:00".
func filterTimestamp(events []model.Event, target string) []model.Event {
	prefix := target
	if len(prefix) > 19 {
		prefix = prefix[:19]
	}
	var out []model.Event
	for _, ev := range events {
		ts := ev.Timestamp
		if ts == target || strings.Contains(ts, target) || strings.HasPrefix(ts, prefix) {
			out = append(out, ev)
		}
	}
	return out
}

func timestamps(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Timestamp)
	}
	return out
}

// List fetches the person's events and reduces them to summaries, newest
// first (the API orders by -timestamp).
func (s *Source) List(ctx context.Context, params source.Params) ([]model.EventSummary, error) {
	events, err := s.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.EventSummary, 0, len(events))
	for _, ev := range events {
		out = append(out, model.EventSummary{
			Timestamp:     ev.Timestamp,
			SessionID:     ev.SessionID(),
			PropertyCount: len(ev.Properties),
		})
	}
	return out, nil
}
