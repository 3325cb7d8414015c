// Package classify partitions an event's flat property bag into measurement
// categories. The rule list is ordered and mutually exclusive per key: each
// property name is tested against the rules in precedence order and stops at
// the first match, so a key can never land in two categories.
package classify

import (
	"strings"

	"github.com/bimotal/motordata/internal/model"
)

// rule is one tagged predicate over a lower-cased property name.
type rule struct {
	category model.Category
	match    func(key string) bool
}

// Precedence matters: "mosfetTempCooldown" must hit the mosfet_cooldown
// exclusion in rule 4 before rule 5 can claim it, and the power/torque
// prefix rules shadow everything below them.
var rules = []rule{
	{model.CategoryPower, func(k string) bool {
		return strings.HasPrefix(k, "power")
	}},
	{model.CategoryTorque, func(k string) bool {
		return strings.HasPrefix(k, "torque")
	}},
	{model.CategoryMotorTemp, func(k string) bool {
		return strings.Contains(k, "motortemp")
	}},
	{model.CategoryMosfetTemp, func(k string) bool {
		return strings.Contains(k, "mosfettemp") && !strings.Contains(k, "cooldown")
	}},
	{model.CategoryMosfetCooldown, func(k string) bool {
		return strings.Contains(k, "mosfet") && strings.Contains(k, "cooldown")
	}},
	{model.CategoryMotorCooldown, func(k string) bool {
		return strings.Contains(k, "motor") && strings.Contains(k, "cooldown")
	}},
}

// CategoryOf returns the category a property name belongs to, or false when
// no rule matches. Matching is case-insensitive.
func CategoryOf(key string) (model.Category, bool) {
	lower := strings.ToLower(key)
	for _, r := range rules {
		if r.match(lower) {
			return r.category, true
		}
	}
	return "", false
}

// Classify partitions one event's properties by category. Properties no rule
// claims are dropped. Categories with no matched property are absent from
// the result: a timestamp alone is not data.
func Classify(ev model.Event) model.ClassifiedEvent {
	out := model.ClassifiedEvent{Timestamp: ev.Timestamp}
	for key, value := range ev.Properties {
		cat, ok := CategoryOf(key)
		if !ok {
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[model.Category]map[string]any)
		}
		if out.Fields[cat] == nil {
			out.Fields[cat] = make(map[string]any)
		}
		out.Fields[cat][key] = value
	}
	return out
}

// ClassifyAll classifies a batch of events, skipping events with an empty
// property bag.
func ClassifyAll(events []model.Event) []model.ClassifiedEvent {
	out := make([]model.ClassifiedEvent, 0, len(events))
	for _, ev := range events {
		if len(ev.Properties) == 0 {
			continue
		}
		classified := Classify(ev)
		if len(classified.Fields) == 0 {
			continue
		}
		out = append(out, classified)
	}
	return out
}
