// Package pipeline composes the fetch → classify → aggregate → series steps
// in process. Each invocation is synchronous; the bulk path parallelizes the
// independent per-event fetches and serializes the single merge into the
// master table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/bimotal/motordata/internal/archive"
	"github.com/bimotal/motordata/internal/classify"
	"github.com/bimotal/motordata/internal/config"
	"github.com/bimotal/motordata/internal/master"
	"github.com/bimotal/motordata/internal/model"
	"github.com/bimotal/motordata/internal/series"
	"github.com/bimotal/motordata/internal/source"
)

// ErrNoEvents reports that a fetch completed but matched nothing; the CLI
// maps it to a non-zero exit.
var ErrNoEvents = errors.New("no matching events found")

// chartedCategories are the categories that get series files by default;
// cooldown series are produced only on explicit request.
var chartedCategories = []model.Category{
	model.CategoryPower,
	model.CategoryTorque,
	model.CategoryMotorTemp,
	model.CategoryMosfetTemp,
}

// Pipeline wires a source to the master table and series outputs.
type Pipeline struct {
	src        source.Source
	masterPath string
	seriesDir  string
	bulk       config.BulkConfig
	arch       *archive.Archive

	// mergeMu serializes read-modify-write of the master table file: the
	// upsert invariant holds only under single-writer discipline.
	mergeMu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithArchive attaches a raw-event archive; every fetched batch is stored
// before classification.
func WithArchive(a *archive.Archive) Option {
	return func(p *Pipeline) { p.arch = a }
}

// WithBulkConfig sets the bulk-download quality band and worker count.
func WithBulkConfig(bc config.BulkConfig) Option {
	return func(p *Pipeline) { p.bulk = bc }
}

// New creates a Pipeline writing to the given master CSV and series
// directory.
func New(src source.Source, masterPath, seriesDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:        src,
		masterPath: masterPath,
		seriesDir:  seriesDir,
		bulk:       config.Default().Bulk,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunResult summarizes one pipeline invocation.
type RunResult struct {
	Events      int
	TableRows   int
	SeriesFiles []string
}

// Run fetches the matching events, folds them into the master table, and
// (unless skipSeries) regenerates latest-row series for the charted
// categories. Zero matching events is ErrNoEvents.
func (p *Pipeline) Run(ctx context.Context, params source.Params, skipSeries bool) (RunResult, error) {
	events, err := p.src.Fetch(ctx, params)
	if err != nil {
		return RunResult{}, fmt.Errorf("pipeline: fetch: %w", err)
	}
	if len(events) == 0 {
		return RunResult{}, ErrNoEvents
	}
	return p.ingest(events, skipSeries)
}

// ingest archives, classifies, and merges a fetched batch, then rewrites
// the master file and series outputs.
func (p *Pipeline) ingest(events []model.Event, skipSeries bool) (RunResult, error) {
	if p.arch != nil {
		if err := p.arch.Store(events); err != nil {
			// The archive is an audit trail, not the source of truth.
			slog.Warn("archiving fetched events failed", "error", err)
		}
	}

	classified := classify.ClassifyAll(events)

	p.mergeMu.Lock()
	defer p.mergeMu.Unlock()

	tbl, err := master.Load(p.masterPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("pipeline: load master: %w", err)
	}
	tbl.UpsertAll(classified)
	if err := tbl.Save(p.masterPath); err != nil {
		return RunResult{}, fmt.Errorf("pipeline: save master: %w", err)
	}

	result := RunResult{Events: len(events), TableRows: tbl.Len()}
	if !skipSeries {
		files, err := p.writeSeries(tbl, series.Latest, chartedCategories)
		if err != nil {
			return result, err
		}
		result.SeriesFiles = files
	}
	return result, nil
}

// List returns event summaries without touching local state.
func (p *Pipeline) List(ctx context.Context, params source.Params) ([]model.EventSummary, error) {
	summaries, err := p.src.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list: %w", err)
	}
	if len(summaries) == 0 {
		return nil, ErrNoEvents
	}
	return summaries, nil
}

// Series regenerates series files from the current master table without a
// fetch. Mode "summed" sums across all rows; anything else uses the latest
// row. An empty cats slice means the default charted categories.
func (p *Pipeline) Series(summed bool, cats []model.Category) ([]string, error) {
	p.mergeMu.Lock()
	defer p.mergeMu.Unlock()

	tbl, err := master.Load(p.masterPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load master: %w", err)
	}
	if tbl.Len() == 0 {
		return nil, fmt.Errorf("pipeline: master table %s is empty", p.masterPath)
	}
	if len(cats) == 0 {
		cats = chartedCategories
	}
	build := series.Latest
	if summed {
		build = series.Summed
	}
	return p.writeSeries(tbl, build, cats)
}

func (p *Pipeline) writeSeries(tbl *master.Table, build func(*master.Table, model.Category) []model.SeriesPoint, cats []model.Category) ([]string, error) {
	var files []string
	for _, cat := range cats {
		points := build(tbl, cat)
		if len(points) == 0 {
			slog.Warn("no series data for category", "category", cat)
			continue
		}
		path := filepath.Join(p.seriesDir, series.FileName(cat))
		if err := series.WriteCSV(path, points); err != nil {
			return files, fmt.Errorf("pipeline: write series: %w", err)
		}
		files = append(files, path)
	}
	return files, nil
}
