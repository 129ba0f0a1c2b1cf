package entity

// Item is one inventory line. Its identity is the (Area, Description) pair.
type Item struct {
	Area        string `json:"area"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// Key identifies an item within the master list
type Key struct {
	Area        string
	Description string
}

// Key returns the identity of the item
func (i Item) Key() Key {
	return Key{Area: i.Area, Description: i.Description}
}

// AreaSummary holds aggregate counts for one area. It is derived on demand
// and never stored on its own.
type AreaSummary struct {
	Area           string `json:"area"`
	TotalItems     int    `json:"total_items"`
	TotalQuantity  int    `json:"total_quantity"`
	ZeroCountItems int    `json:"zero_count_items"`
}

// Add folds one item quantity into the summary
func (s *AreaSummary) Add(quantity int) {
	s.TotalItems++
	s.TotalQuantity += quantity
	if quantity == 0 {
		s.ZeroCountItems++
	}
}

// Summarize aggregates a set of quantities for an area
func Summarize(area string, quantities []int) AreaSummary {
	s := AreaSummary{Area: area}
	for _, q := range quantities {
		s.Add(q)
	}
	return s
}

// CloneItems returns a copy of the slice so callers cannot mutate shared state
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
