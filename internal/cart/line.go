package cart

import (
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
)

// Line is one offer in the cart with its quantity. Quantity is always at least 1.
type Line struct {
	OfferID     string
	Description string
	UnitPrice   money.Money
	Quantity    int
}

func newLine(offer domain.Offer) Line {
	return Line{
		OfferID:     offer.ID,
		Description: offer.Description,
		UnitPrice:   offer.UnitPrice,
		Quantity:    1,
	}
}

// ExtendedPrice is UnitPrice x Quantity.
func (l Line) ExtendedPrice() money.Money {
	return l.UnitPrice.Scale(l.Quantity)
}

func (l Line) WithIncrementedQuantity() Line {
	l.Quantity++
	return l
}

// WithDecrementedQuantity returns the line with one less item, or false when the
// line would reach zero and must be removed instead.
func (l Line) WithDecrementedQuantity() (Line, bool) {
	if l.Quantity <= 1 {
		return Line{}, false
	}
	l.Quantity--
	return l, true
}
