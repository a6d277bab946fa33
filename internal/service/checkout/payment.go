package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGateway charges an order total and returns a provider reference.
type PaymentGateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal) (reference string, err error)
}

// StubGateway approves every charge. No money moves.
type StubGateway struct{}

func (StubGateway) Charge(_ context.Context, _ string, _ decimal.Decimal) (string, error) {
	return "stub-" + uuid.NewString(), nil
}
