package classify

import (
	"reflect"
	"testing"

	"github.com/bimotal/motordata/internal/model"
)

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		key  string
		want model.Category
		ok   bool
	}{
		{"power025", model.CategoryPower, true},
		{"PowerHigh", model.CategoryPower, true},
		{"torque04", model.CategoryTorque, true},
		{"TORQUE90", model.CategoryTorque, true},
		{"motorTemp010", model.CategoryMotorTemp, true},
		{"MotorTemperature050", model.CategoryMotorTemp, true},
		{"mosfetTemp020", model.CategoryMosfetTemp, true},
		{"mosfetTempCooldown", model.CategoryMosfetCooldown, true},
		{"cooldownMosfet5", model.CategoryMosfetCooldown, true},
		{"motorCooldown10", model.CategoryMotorCooldown, true},
		{"cooldownMotor10", model.CategoryMotorCooldown, true},
		{"$session_id", "", false},
		{"batteryVoltage", "", false},
	}

	for _, tc := range cases {
		got, ok := CategoryOf(tc.key)
		if ok != tc.ok || got != tc.want {
			t.Errorf("CategoryOf(%q) = (%q, %v), want (%q, %v)", tc.key, got, ok, tc.want, tc.ok)
		}
	}
}

// A key must land in at most one category, and precedence must not depend on
// map iteration order: re-classifying the same event yields identical output.
func TestClassifyDeterministic(t *testing.T) {
	ev := model.Event{
		Timestamp: "2025-06-24T18:54:03Z",
		Properties: map[string]any{
			"power025":           100.0,
			"torque04":           12.0,
			"motorTemp010":       40.0,
			"mosfetTemp020":      45.0,
			"mosfetTempCooldown": 3.0,
			"motorCooldown10":    2.0,
			"$session_id":        "abc",
		},
	}

	first := Classify(ev)
	for i := 0; i < 20; i++ {
		if got := Classify(ev); !reflect.DeepEqual(got, first) {
			t.Fatalf("classification not deterministic: %v vs %v", got, first)
		}
	}

	seen := map[string]model.Category{}
	for cat, fields := range first.Fields {
		for key := range fields {
			if prev, dup := seen[key]; dup {
				t.Fatalf("key %q assigned to both %q and %q", key, prev, cat)
			}
			seen[key] = cat
		}
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 classified keys, got %d", len(seen))
	}
	if _, ok := seen["$session_id"]; ok {
		t.Fatal("$session_id should be dropped")
	}
}

func TestClassifyMosfetCooldownExclusion(t *testing.T) {
	ev := model.Event{
		Timestamp:  "t",
		Properties: map[string]any{"mosfetTempCooldown05": 1.0},
	}
	got := Classify(ev)
	if _, ok := got.Fields[model.CategoryMosfetTemp]; ok {
		t.Fatal("cooldown property leaked into mosfet_temp")
	}
	if _, ok := got.Fields[model.CategoryMosfetCooldown]; !ok {
		t.Fatal("expected mosfet_cooldown assignment")
	}
}

func TestClassifyEmptyCategoriesAbsent(t *testing.T) {
	ev := model.Event{
		Timestamp:  "t",
		Properties: map[string]any{"power100": 50.0, "unrelated": 1.0},
	}
	got := Classify(ev)
	if len(got.Fields) != 1 {
		t.Fatalf("expected only power present, got %v", got.Fields)
	}
}

func TestClassifyAllSkipsEmptyEvents(t *testing.T) {
	events := []model.Event{
		{Timestamp: "t1"},
		{Timestamp: "t2", Properties: map[string]any{"unmatched": 1.0}},
		{Timestamp: "t3", Properties: map[string]any{"power100": 2.0}},
	}
	got := ClassifyAll(events)
	if len(got) != 1 || got[0].Timestamp != "t3" {
		t.Fatalf("expected only t3, got %v", got)
	}
}
