package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	Product
	Quantity int `json:"quantity"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is a complete, read-only view of a cart at one version.
// Line items keep the order in which each product was first added.
type Snapshot struct {
	version uint64
	items   []LineItem
}

func NewSnapshot(version uint64, items []LineItem) Snapshot {
	cp := make([]LineItem, len(items))
	copy(cp, items)
	return Snapshot{version: version, items: cp}
}

// Version counts the transitions applied before this snapshot was taken.
func (s Snapshot) Version() uint64 { return s.version }

// Items returns a copy of the line items.
func (s Snapshot) Items() []LineItem {
	cp := make([]LineItem, len(s.items))
	copy(cp, s.items)
	return cp
}

// Len is the number of distinct products.
func (s Snapshot) Len() int { return len(s.items) }

func (s Snapshot) IsEmpty() bool { return len(s.items) == 0 }

// Count is the total number of units across all line items.
func (s Snapshot) Count() int {
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s Snapshot) Find(productID int64) (LineItem, bool) {
	for _, it := range s.items {
		if it.ID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// Summary is all zeros for an empty cart.
func (s Snapshot) Summary() OrderSummary {
	if s.IsEmpty() {
		return OrderSummary{
			Subtotal:              decimal.Zero,
			DeliveryFee:           decimal.Zero,
			Tax:                   decimal.Zero,
			GrandTotal:            decimal.Zero,
			FreeDeliveryRemaining: decimal.Zero,
		}
	}
	return Summarize(s.Total())
}

type snapshotJSON struct {
	Version uint64          `json:"version"`
	Items   []LineItem      `json:"items"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(snapshotJSON{
		Version: s.version,
		Items:   items,
		Count:   s.Count(),
		Total:   s.Total(),
	})
}

// UnmarshalJSON rebuilds a snapshot from its wire form. Count and total are
// derived again from the items rather than trusted.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = NewSnapshot(w.Version, w.Items)
	return nil
}
