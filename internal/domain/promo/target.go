package promo

// TargetType enumerates how a promotion selects line items.
type TargetType string

const (
	// TargetAll matches every line item in the cart.
	TargetAll TargetType = "ALL"
	// TargetCategory matches line items of one category.
	TargetCategory TargetType = "CATEGORY"
	// TargetProducts matches line items whose menu item is in an explicit set.
	TargetProducts TargetType = "PRODUCTS"
)

// Target is a line-item selection descriptor.
type Target struct {
	Type       TargetType
	CategoryID string
	ProductIDs []string
}

// Target derives the selection descriptor for this promotion item: a menu
// item id wins over a category id, and neither means the whole cart.
func (pi PromotionItem) Target() Target {
	switch {
	case pi.MenuItemID != "":
		return Target{Type: TargetProducts, ProductIDs: []string{pi.MenuItemID}}
	case pi.CategoryID != "":
		return Target{Type: TargetCategory, CategoryID: pi.CategoryID}
	default:
		return Target{Type: TargetAll}
	}
}

// ResolveTarget returns the ordered sub-sequence of items matching the
// descriptor. It never fails: an unmatched descriptor yields an empty slice.
func ResolveTarget(t Target, items []LineItem) []LineItem {
	switch t.Type {
	case TargetAll:
		matched := make([]LineItem, len(items))
		copy(matched, items)
		return matched
	case TargetCategory:
		var matched []LineItem
		for _, li := range items {
			if li.CategoryID == t.CategoryID {
				matched = append(matched, li)
			}
		}
		return matched
	case TargetProducts:
		wanted := make(map[string]struct{}, len(t.ProductIDs))
		for _, id := range t.ProductIDs {
			wanted[id] = struct{}{}
		}
		var matched []LineItem
		for _, li := range items {
			if _, ok := wanted[li.MenuItemID]; ok {
				matched = append(matched, li)
			}
		}
		return matched
	default:
		return nil
	}
}
