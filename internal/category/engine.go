// Package category implements the deterministic keyword classifier used when
// an extraction arrives without category information.
package category

import (
	"strings"

	"scontrino/internal/core"
)

type keywordRule struct {
	keyword  string
	category core.Category
}

// defaultRules is the ordered keyword table. Order is part of the contract:
// the first keyword contained in the item name wins, so more specific
// entries ("water bill") sit above the generic ones ("water").
var defaultRules = []keywordRule{
	// Utilities
	{"electricity", core.Utilities},
	{"electric bill", core.Utilities},
	{"water bill", core.Utilities},
	{"gas bill", core.Utilities},
	{"internet", core.Utilities},
	{"broadband", core.Utilities},
	{"wifi", core.Utilities},
	{"phone bill", core.Utilities},
	{"mobile recharge", core.Utilities},
	{"utility", core.Utilities},

	// Transportation
	{"uber", core.Transportation},
	{"lyft", core.Transportation},
	{"taxi", core.Transportation},
	{"bus ticket", core.Transportation},
	{"train", core.Transportation},
	{"metro", core.Transportation},
	{"fuel", core.Transportation},
	{"petrol", core.Transportation},
	{"diesel", core.Transportation},
	{"parking", core.Transportation},
	{"toll", core.Transportation},
	{"flight", core.Transportation},

	// Entertainment
	{"netflix", core.Entertainment},
	{"spotify", core.Entertainment},
	{"subscription", core.Entertainment},
	{"cinema", core.Entertainment},
	{"movie", core.Entertainment},
	{"concert", core.Entertainment},
	{"theater", core.Entertainment},
	{"game", core.Entertainment},
	{"music", core.Entertainment},

	// Healthcare
	{"pharmacy", core.Healthcare},
	{"medicine", core.Healthcare},
	{"doctor", core.Healthcare},
	{"hospital", core.Healthcare},
	{"clinic", core.Healthcare},
	{"dental", core.Healthcare},
	{"vitamin", core.Healthcare},
	{"prescription", core.Healthcare},

	// Food
	{"milk", core.Food},
	{"bread", core.Food},
	{"coffee", core.Food},
	{"tea", core.Food},
	{"pizza", core.Food},
	{"burger", core.Food},
	{"rice", core.Food},
	{"egg", core.Food},
	{"cheese", core.Food},
	{"chicken", core.Food},
	{"fruit", core.Food},
	{"vegetable", core.Food},
	{"juice", core.Food},
	{"water", core.Food},
	{"snack", core.Food},
	{"chocolate", core.Food},
	{"grocery", core.Food},
	{"restaurant", core.Food},
	{"cafe", core.Food},
	{"bakery", core.Food},
	{"beer", core.Food},
	{"wine", core.Food},

	// Shopping
	{"shirt", core.Shopping},
	{"shoes", core.Shopping},
	{"dress", core.Shopping},
	{"jeans", core.Shopping},
	{"jacket", core.Shopping},
	{"laptop", core.Shopping},
	{"headphone", core.Shopping},
	{"charger", core.Shopping},
	{"furniture", core.Shopping},
	{"toy", core.Shopping},
	{"book", core.Shopping},
	{"bag", core.Shopping},
	{"watch", core.Shopping},
	{"cosmetic", core.Shopping},
	{"detergent", core.Shopping},
	{"soap", core.Shopping},
	{"shampoo", core.Shopping},
}

// Engine classifies item names by substring containment against an ordered
// keyword table. It is a total function: every input maps to a category,
// falling back to Others.
type Engine struct {
	rules []keywordRule
}

// NewEngine returns an engine backed by the default keyword table.
func NewEngine() *Engine {
	return &Engine{rules: defaultRules}
}

// Categorize maps an item name to a category. The name is lowercased and the
// first rule whose keyword it contains wins; table order is the tie-break.
func (e *Engine) Categorize(name string) core.Category {
	lower := strings.ToLower(name)
	for _, rule := range e.rules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category
		}
	}
	return core.Others
}

// CategorizeItems assigns a category to every item that lacks one. Order and
// count are preserved; items that already carry a valid category keep it.
func (e *Engine) CategorizeItems(items []core.ReceiptItem) []core.ReceiptItem {
	out := make([]core.ReceiptItem, len(items))
	for i, item := range items {
		if !item.Category.IsValid() {
			item.Category = e.Categorize(item.Name)
		}
		out[i] = item
	}
	return out
}
