// Package series projects the master table into ordered numeric series per
// category, for chart consumption. Two modes: the latest row only, or values
// summed across every row against a fixed expected index grid.
package series

import (
	"log/slog"
	"math"
	"sort"

	"github.com/bimotal/motordata/internal/classify"
	"github.com/bimotal/motordata/internal/master"
	"github.com/bimotal/motordata/internal/model"
)

// valueRange is the plausibility window for a category. Values outside it
// are sensor glitches, not data; they are dropped with a warning.
type valueRange struct {
	min, max float64
}

var ranges = map[model.Category]valueRange{
	model.CategoryPower:      {25, 800},
	model.CategoryTorque:     {2, 90},
	model.CategoryMotorTemp:  {10, 200},
	model.CategoryMosfetTemp: {10, 200},
}

// expectedIndices returns the full index grid a summed series must cover,
// including indices with no contributing rows. Cooldown categories have no
// declared grid; their summed series covers whatever columns exist.
func expectedIndices(cat model.Category) []int {
	grid := func(lo, hi, step int) []int {
		out := make([]int, 0, (hi-lo)/step+1)
		for i := lo; i <= hi; i += step {
			out = append(out, i)
		}
		return out
	}
	switch cat {
	case model.CategoryPower:
		return grid(25, 900, 25)
	case model.CategoryTorque:
		return grid(2, 90, 2)
	case model.CategoryMotorTemp, model.CategoryMosfetTemp:
		return grid(10, 200, 10)
	default:
		return nil
	}
}

// categoryColumns selects the master-table columns belonging to a category,
// using the same rules the classifier applies to property names.
func categoryColumns(t *master.Table, cat model.Category) []string {
	var cols []string
	for _, col := range t.Columns() {
		if c, ok := classify.CategoryOf(col); ok && c == cat {
			cols = append(cols, col)
		}
	}
	return cols
}

// Latest builds a category's series from the most recent master row. Columns
// with non-finite or out-of-range values are dropped with a warning, never
// an error, and unindexed columns are excluded. Points sort ascending by
// index.
func Latest(t *master.Table, cat model.Category) []model.SeriesPoint {
	row, ok := t.Latest()
	if !ok {
		return nil
	}

	var points []model.SeriesPoint
	for _, col := range categoryColumns(t, cat) {
		value, ok := row.Numeric(col)
		if !ok {
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			slog.Warn("skipping non-finite value", "category", cat, "property", col)
			continue
		}
		if r, bounded := ranges[cat]; bounded && (value < r.min || value > r.max) {
			slog.Warn("value outside expected range, skipping",
				"category", cat, "property", col, "value", value,
				"min", r.min, "max", r.max)
			continue
		}
		idx, indexed := classify.ExtractIndex(col, cat)
		if !indexed {
			continue
		}
		points = append(points, model.SeriesPoint{Index: idx, Value: value, Property: col})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Index < points[j].Index })
	return points
}

// Summed builds a category's series by summing each index's column values
// across all master rows, missing and non-numeric cells contributing zero.
// Every index of the category's expected grid appears in the output, zero
// sums included, so charts keep their full axis range.
func Summed(t *master.Table, cat model.Category) []model.SeriesPoint {
	// index -> contributing columns, in sorted column order.
	byIndex := make(map[int][]string)
	for _, col := range categoryColumns(t, cat) {
		idx, indexed := classify.ExtractIndex(col, cat)
		if !indexed {
			continue
		}
		byIndex[idx] = append(byIndex[idx], col)
	}

	indices := expectedIndices(cat)
	if indices == nil {
		indices = make([]int, 0, len(byIndex))
		for idx := range byIndex {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
	}

	points := make([]model.SeriesPoint, 0, len(indices))
	for _, idx := range indices {
		var sum float64
		var source string
		for _, col := range byIndex[idx] {
			if source == "" {
				source = col
			}
			for _, row := range t.Rows() {
				if v, ok := row.Numeric(col); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
					sum += v
				}
			}
		}
		points = append(points, model.SeriesPoint{Index: idx, Value: sum, Property: source})
	}
	return points
}
