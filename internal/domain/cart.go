package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the persisted cart of an authenticated user.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Lines     []CartLine `json:"lineItems,omitempty"`
}

// CartLine is one product within a cart. UnitPrice is the product price
// captured the last time the line was added to or resized.
type CartLine struct {
	ID        string          `json:"id,omitempty"`
	CartID    string          `json:"cartId,omitempty"`
	ProductID string          `json:"productId"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// LineTotal is UnitPrice × Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums the line totals exactly.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ItemsCount sums line quantities.
func ItemsCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Lines)
}

func (c Cart) ItemsCount() int {
	return ItemsCount(c.Lines)
}
