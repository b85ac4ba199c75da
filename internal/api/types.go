// Package api holds the JSON bodies exchanged between the table client and the
// order service.
package api

import "encoding/json"

// Offer is a catalog entry as it travels over the wire. The price parts are kept
// as json.Number so each offer can be validated on its own.
type Offer struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	PriceInteger  json.Number `json:"price_integer"`
	PriceFraction json.Number `json:"price_fraction"`
	// Price is an optional "2.40" style alternative to the two parts, accepted on insert.
	Price string `json:"price,omitempty"`
}

type OffersResponse struct {
	Offers []Offer `json:"offers"`
}

type OfferResponse struct {
	Offer Offer `json:"offer"`
}

type OfferInsertRequest struct {
	Offer Offer `json:"offer"`
}

type Table struct {
	Name       string `json:"name"`
	OrderCount int64  `json:"order_count"`
}

type TablesResponse struct {
	Tables []Table `json:"tables"`
}

type TableResponse struct {
	Table Table `json:"table"`
}

type TableInsertRequest struct {
	Table Table `json:"table"`
}

type OffersTablesResponse struct {
	Offers []Offer `json:"offers"`
	Tables []Table `json:"tables"`
}

type OrderID struct {
	Count int64  `json:"count"`
	Table string `json:"table"`
}

type OrderItem struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type Order struct {
	ID       OrderID     `json:"id"`
	Finished bool        `json:"finished"`
	Items    []OrderItem `json:"items"`
}

// OrderEnvelope is the POST /orders body.
type OrderEnvelope struct {
	Order Order `json:"order"`
}

type OrderCreatedResponse struct {
	Order Order  `json:"order"`
	Total string `json:"total"`
}

type OrdersResponse struct {
	Orders []Order `json:"orders"`
}

type OrderFinishedResponse struct {
	Table string `json:"table"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
