package domain

import "github.com/shopspring/decimal"

var (
	FreeDeliveryThreshold = decimal.RequireFromString("50.00")
	StandardDeliveryFee   = decimal.RequireFromString("4.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

// OrderSummary is the checkout breakdown shown under the cart. Amounts are
// not rounded; FormatCurrency rounds for display.
type OrderSummary struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	Tax                   decimal.Decimal `json:"tax"`
	GrandTotal            decimal.Decimal `json:"grand_total"`
	FreeDelivery          bool            `json:"free_delivery"`
	FreeDeliveryRemaining decimal.Decimal `json:"free_delivery_remaining"`
}

// Summarize applies the delivery and tax rules to the subtotal of a cart
// holding at least one line item.
func Summarize(subtotal decimal.Decimal) OrderSummary {
	s := OrderSummary{
		Subtotal:              subtotal,
		DeliveryFee:           StandardDeliveryFee,
		Tax:                   subtotal.Mul(TaxRate),
		FreeDeliveryRemaining: decimal.Zero,
	}
	// free delivery strictly above the threshold
	if subtotal.GreaterThan(FreeDeliveryThreshold) {
		s.DeliveryFee = decimal.Zero
		s.FreeDelivery = true
	}
	if subtotal.LessThan(FreeDeliveryThreshold) {
		s.FreeDeliveryRemaining = FreeDeliveryThreshold.Sub(subtotal)
	}
	s.GrandTotal = subtotal.Add(s.DeliveryFee).Add(s.Tax)
	return s
}

func FormatCurrency(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

// Truncate shortens text to max runes and appends an ellipsis.
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
