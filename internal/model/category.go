package model

// Category is one of the six fixed measurement buckets a property can be
// classified into. It is a label, not an entity: the set is closed and the
// classification rules live in internal/classify.
type Category string

const (
	CategoryPower          Category = "power"
	CategoryTorque         Category = "torque"
	CategoryMotorTemp      Category = "motor_temp"
	CategoryMosfetTemp     Category = "mosfet_temp"
	CategoryMosfetCooldown Category = "mosfet_cooldown"
	CategoryMotorCooldown  Category = "motor_cooldown"
)

// Categories returns all categories in rule-precedence order.
func Categories() []Category {
	return []Category{
		CategoryPower,
		CategoryTorque,
		CategoryMotorTemp,
		CategoryMosfetTemp,
		CategoryMosfetCooldown,
		CategoryMotorCooldown,
	}
}

// ParseCategory maps a user-supplied name to a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Sentinel index values for boundary properties whose names carry "Low" or
// "High" instead of an ordinal suffix.
const (
	IndexLow  = -1
	IndexHigh = 999
)

// SeriesPoint is one entry of a per-category numeric series: the ordinal
// index extracted from the property name, the numeric value, and the
// property the value came from.
type SeriesPoint struct {
	Index    int
	Value    float64
	Property string
}
