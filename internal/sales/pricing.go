package sales

import (
	"fmt"
	"math"
	"strconv"

	"optika/internal"
)

// DiscountPresets are the selectable 10%-step discounts. A line whose
// discount numerically equals one of these (within tolerance) shows
// the preset; anything else shows a computed read-only label.
var DiscountPresets = []float64{0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

const discountTolerance = 1e-6

// NewSaleItem opens a sale line at the product's master retail price
// with no discount.
func NewSaleItem(p internal.Product, spec string, qty int) internal.SaleItem {
	if qty < 1 {
		qty = 1
	}
	return internal.SaleItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		SpecDisplay: spec,
		Quantity:    qty,
		RetailPrice: p.RetailPrice,
		Discount:    1,
		SalesPrice:  p.RetailPrice * float64(qty),
	}
}

// SetQuantity makes quantity the authoritative edit: the sales price
// follows, the discount holds.
func SetQuantity(item *internal.SaleItem, qty int) {
	if qty < 1 {
		qty = 1
	}
	item.Quantity = qty
	item.SalesPrice = item.RetailPrice * float64(qty) * item.Discount
}

// SetDiscount makes the discount the authoritative edit.
func SetDiscount(item *internal.SaleItem, discount float64) {
	if discount < 0 {
		discount = 0
	}
	if discount > 1 {
		discount = 1
	}
	item.Discount = discount
	item.SalesPrice = item.RetailPrice * float64(item.Quantity) * discount
}

// SetSalesPrice makes a direct price edit authoritative: the discount
// is rederived when the retail total is positive, clamped at zero, and
// left alone otherwise.
func SetSalesPrice(item *internal.SaleItem, price float64) {
	if price < 0 {
		price = 0
	}
	item.SalesPrice = price
	denom := item.RetailPrice * float64(item.Quantity)
	if denom > 0 {
		d := price / denom
		if d < 0 {
			d = 0
		}
		item.Discount = d
	}
}

// IsPresetDiscount reports whether the discount equals one of the
// selectable presets within tolerance.
func IsPresetDiscount(discount float64) bool {
	for _, p := range DiscountPresets {
		if math.Abs(discount-p) < discountTolerance {
			return true
		}
	}
	return false
}

// DiscountLabel renders the discount in 折 (tenths). Presets render
// without padding ("9折"); computed discounts round to one decimal
// place ("8.5折").
func DiscountLabel(discount float64) string {
	if IsPresetDiscount(discount) {
		return strconv.FormatFloat(math.Round(discount*10), 'f', -1, 64) + "折"
	}
	return fmt.Sprintf("%.1f折", discount*10)
}
