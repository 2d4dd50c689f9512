package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// OfferingUnavailableError indicates the requested (product, partner) pair
// cannot be priced: the offering does not exist or is not currently
// available. Any occurrence aborts the entire order.
type OfferingUnavailableError struct {
	ProductID string
	PartnerID string
}

func (e *OfferingUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available from partner %s", e.ProductID, e.PartnerID)
}

// Quote is the priced outcome for one line item. All values are exact
// decimals; rounding happens once at the order-total level, never here, so
// summation across many items cannot compound rounding error.
type Quote struct {
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	// Commission is the platform's cut: Subtotal * partner rate / 100.
	Commission decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Pricer resolves (product, partner, quantity) into a Quote using the
// catalog's offerings and partner commission rates.
type Pricer struct {
	catalog catalog.Repository
}

// NewPricer creates a Pricer backed by the given catalog.
func NewPricer(c catalog.Repository) *Pricer {
	return &Pricer{catalog: c}
}

// Price resolves the unit price for the pair and computes subtotal and
// commission for the given quantity.
func (p *Pricer) Price(ctx context.Context, productID, partnerID string, quantity int) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, &InvalidQuantityError{ProductID: productID}
	}

	off, err := p.catalog.FindOffering(ctx, productID, partnerID)
	if err != nil {
		var nf *catalog.OfferingNotFoundError
		if errors.As(err, &nf) {
			return Quote{}, &OfferingUnavailableError{ProductID: productID, PartnerID: partnerID}
		}
		return Quote{}, errors.Wrapf(err, "find offering %s/%s", productID, partnerID)
	}
	if !off.Available {
		return Quote{}, &OfferingUnavailableError{ProductID: productID, PartnerID: partnerID}
	}

	partner, err := p.catalog.GetPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, catalog.ErrPartnerNotFound) {
			return Quote{}, &OfferingUnavailableError{ProductID: productID, PartnerID: partnerID}
		}
		return Quote{}, errors.Wrapf(err, "get partner %s", partnerID)
	}

	qty := decimal.NewFromInt(int64(quantity))
	subtotal := off.Price.Mul(qty)

	return Quote{
		UnitPrice:  off.Price,
		Subtotal:   subtotal,
		Commission: subtotal.Mul(partner.CommissionRate).Div(hundred),
	}, nil
}
