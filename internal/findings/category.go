package findings

import "strings"

// Category is the closed vulnerability category vocabulary.
type Category string

const (
	CategoryAccessControl   Category = "access_control"
	CategoryArithmetic      Category = "arithmetic"
	CategoryReentrancy      Category = "reentrancy"
	CategoryUncheckedCalls  Category = "unchecked_external_calls"
	CategoryOracle          Category = "oracle_manipulation"
	CategoryFrontRunning    Category = "front_running"
	CategoryGasOptimization Category = "gas_optimization"
	CategoryUpgradeability  Category = "upgradeability"
	CategoryOther           Category = "other"
)

var categories = map[Category]struct{}{
	CategoryAccessControl:   {},
	CategoryArithmetic:      {},
	CategoryReentrancy:      {},
	CategoryUncheckedCalls:  {},
	CategoryOracle:          {},
	CategoryFrontRunning:    {},
	CategoryGasOptimization: {},
	CategoryUpgradeability:  {},
	CategoryOther:           {},
}

// Valid reports whether c belongs to the closed vocabulary.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ParseCategory maps a category label onto the closed vocabulary.
// Unknown labels map to other, never dropped.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}
