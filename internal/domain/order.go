package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order may move from one status to another.
// Only pending orders change; paid and cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	if from != OrderPending {
		return false
	}
	return to == OrderPaid || to == OrderCancelled
}

// CheckTransition wraps ErrInvalidTransition with the offending pair.
func CheckTransition(from, to OrderStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return nil
}

// Order is an immutable snapshot of a cart taken at checkout.
type Order struct {
	ID               string          `json:"id"`
	UserID           *string         `json:"userId,omitempty"`
	Username         string          `json:"username,omitempty"`
	Status           OrderStatus     `json:"status"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	ShippingAddress  string          `json:"shippingAddress,omitempty"`
	BillingAddress   string          `json:"billingAddress,omitempty"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	Items            []OrderItem     `json:"items,omitempty"`
}

// Customer returns the display name used in listings.
func (o Order) Customer() string {
	if o.UserID == nil || o.Username == "" {
		return "Guest"
	}
	return o.Username
}

type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	ProductSlug string          `json:"productSlug,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderLine is a (product, quantity, price) triple fed into order creation.
type OrderLine struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// OrderLinesFromCart converts cart lines into order lines, keeping the
// snapshotted unit price.
func OrderLinesFromCart(lines []CartLine) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		out = append(out, OrderLine{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	return out
}

// OrderTotal sums price × quantity over the lines.
func OrderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
