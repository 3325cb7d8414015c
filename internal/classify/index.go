package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bimotal/motordata/internal/model"
)

var (
	trailingTwo   = regexp.MustCompile(`(\d{2})$`)
	trailingThree = regexp.MustCompile(`(\d{3})$`)
	digitRuns     = regexp.MustCompile(`\d+`)
)

// ExtractIndex parses the ordinal position encoded in a property name,
// following the category's naming convention. The second return is false
// when the property is unindexed; such properties stay in the master table
// but are excluded from numeric series.
//
// Torque uses fixed two-digit suffixes, power three-digit; index 0 is a
// placeholder for both and is suppressed. "Low" and "High" boundary names
// map to the -1 / 999 sentinels. Any category falls back to the last run of
// digits anywhere in the name.
func ExtractIndex(name string, cat model.Category) (int, bool) {
	lower := strings.ToLower(name)

	switch cat {
	case model.CategoryTorque:
		if m := trailingTwo.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			if idx == 0 {
				return 0, false
			}
			return idx, true
		}

	case model.CategoryPower:
		if m := trailingThree.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			if idx == 0 {
				return 0, false
			}
			return idx, true
		}
		if strings.Contains(lower, "high") {
			return model.IndexHigh, true
		}
		if strings.Contains(lower, "low") {
			return model.IndexLow, true
		}

	case model.CategoryMotorTemp, model.CategoryMosfetTemp:
		if m := trailingThree.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			return idx, true
		}
		if m := trailingTwo.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			return idx, true
		}
		if strings.Contains(lower, "low") {
			return model.IndexLow, true
		}
		if strings.Contains(lower, "high") {
			return model.IndexHigh, true
		}
	}

	// Fallback for any category: last run of digits anywhere in the name.
	if runs := digitRuns.FindAllString(name, -1); len(runs) > 0 {
		idx, err := strconv.Atoi(runs[len(runs)-1])
		if err == nil {
			return idx, true
		}
	}
	return 0, false
}
