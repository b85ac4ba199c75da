package domain

import "github.com/josko3567/oby-server/internal/money"

// Offer is a purchasable catalog item.
//
// The catalog has no identifier other than the display name, so ID holds the
// name. Two offers sharing a name collapse into one catalog entry and one cart line.
type Offer struct {
	ID          string
	Description string
	UnitPrice   money.Money
}
