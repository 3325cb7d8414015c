package series

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bimotal/motordata/internal/master"
	"github.com/bimotal/motordata/internal/model"
)

func tableOf(t *testing.T, events ...model.ClassifiedEvent) *master.Table {
	t.Helper()
	tbl := master.NewTable()
	tbl.UpsertAll(events)
	return tbl
}

func powerEvent(ts string, fields map[string]any) model.ClassifiedEvent {
	return model.ClassifiedEvent{
		Timestamp: ts,
		Fields:    map[model.Category]map[string]any{model.CategoryPower: fields},
	}
}

func TestLatestSortedByIndex(t *testing.T) {
	tbl := tableOf(t, powerEvent("T1", map[string]any{
		"power100": 300.0,
		"power025": 100.0,
		"powerLow": 50.0,
		"powerHigh": 400.0,
	}))

	points := Latest(tbl, model.CategoryPower)
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d: %v", len(points), points)
	}
	wantOrder := []int{model.IndexLow, 25, 100, model.IndexHigh}
	for i, p := range points {
		if p.Index != wantOrder[i] {
			t.Fatalf("point %d index = %d, want %d", i, p.Index, wantOrder[i])
		}
	}
}

func TestLatestDropsOutOfRange(t *testing.T) {
	tbl := tableOf(t, powerEvent("T1", map[string]any{
		"power025": 100.0,
		"power050": 5000.0, // above power's plausible maximum
		"power075": 10.0,   // below
	}))

	points := Latest(tbl, model.CategoryPower)
	if len(points) != 1 || points[0].Property != "power025" {
		t.Fatalf("expected only power025 to survive, got %v", points)
	}
}

func TestLatestUsesMostRecentRow(t *testing.T) {
	tbl := tableOf(t,
		powerEvent("T1", map[string]any{"power025": 100.0}),
		powerEvent("T2", map[string]any{"power025": 150.0}),
	)
	points := Latest(tbl, model.CategoryPower)
	if len(points) != 1 || points[0].Value != 150 {
		t.Fatalf("expected value from T2, got %v", points)
	}
}

func TestLatestSkipsUnindexedAndNonNumeric(t *testing.T) {
	tbl := tableOf(t, model.ClassifiedEvent{
		Timestamp: "T1",
		Fields: map[model.Category]map[string]any{
			model.CategoryTorque: {
				"torque04":    12.0,
				"torqueTotal": 50.0,  // no index
				"torque08":    "n/a", // non-numeric
			},
		},
	})
	points := Latest(tbl, model.CategoryTorque)
	if len(points) != 1 || points[0].Index != 4 {
		t.Fatalf("expected only torque04, got %v", points)
	}
}

func TestSummedAcrossRows(t *testing.T) {
	tbl := tableOf(t,
		powerEvent("T1", map[string]any{"power025": 100.0}),
		powerEvent("T2", map[string]any{"power025": 150.0}),
	)

	points := Summed(tbl, model.CategoryPower)

	// Full declared grid: 25..900 step 25.
	if len(points) != 36 {
		t.Fatalf("expected 36 grid points, got %d", len(points))
	}
	if points[0].Index != 25 || points[0].Value != 250 {
		t.Fatalf("index 25 = %v, want sum 250", points[0])
	}
	// An index with no contributing rows stays present with value 0.
	if points[1].Index != 50 || points[1].Value != 0 {
		t.Fatalf("index 50 = %v, want retained zero", points[1])
	}
	if points[1].Property != "" {
		t.Fatalf("zero-contribution index should have empty source, got %q", points[1].Property)
	}
}

func TestSummedTreatsMissingAsZero(t *testing.T) {
	tbl := tableOf(t,
		powerEvent("T1", map[string]any{"power025": 100.0, "power050": 30.0}),
		powerEvent("T2", map[string]any{"power025": 150.0}), // no power050
	)
	points := Summed(tbl, model.CategoryPower)
	for _, p := range points {
		if p.Index == 50 && p.Value != 30 {
			t.Fatalf("index 50 sum = %v, want 30 (missing cell contributes zero)", p.Value)
		}
	}
}

func TestSummedCooldownUsesObservedIndices(t *testing.T) {
	tbl := tableOf(t, model.ClassifiedEvent{
		Timestamp: "T1",
		Fields: map[model.Category]map[string]any{
			model.CategoryMotorCooldown: {"motorCooldown10": 5.0, "motorCooldown20": 7.0},
		},
	})
	points := Summed(tbl, model.CategoryMotorCooldown)
	if len(points) != 2 || points[0].Index != 10 || points[1].Index != 20 {
		t.Fatalf("expected observed indices [10 20], got %v", points)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "power_numeric_values.csv")
	points := []model.SeriesPoint{
		{Index: -1, Value: 50, Property: "powerLow"},
		{Index: 25, Value: 100.5, Property: "power025"},
	}
	if err := WriteCSV(path, points); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"Numeric_Label,Value,Original_Property",
		"-1,50,powerLow",
		"25,100.5,power025",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
