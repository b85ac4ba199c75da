// Package submission turns a cart into the order-intake wire payload and sends it.
package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/josko3567/oby-server/internal/api"
	"github.com/josko3567/oby-server/internal/cart"
)

// SequenceCount is the fixed order count sent by the client; the order service
// assigns the real per-table sequence number.
const SequenceCount = 1

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to submit")
	ErrSubmissionFailure = errors.New("order submission failed")
)

// Intake is the order-intake collaborator.
type Intake interface {
	SubmitOrder(ctx context.Context, order api.OrderEnvelope) error
}

// Item carries identity and quantity only; the service prices the order itself.
type Item struct {
	OfferID  string
	Quantity int
}

type Payload struct {
	Destination string
	Count       int64
	Finished    bool
	Items       []Item
}

// Build snapshots the cart for the given destination.
func Build(c *cart.Cart, destination string) (Payload, error) {
	if c.IsEmpty() {
		return Payload{}, ErrEmptyCart
	}

	lines := c.Lines()
	items := make([]Item, len(lines))
	for i, line := range lines {
		items[i] = Item{OfferID: line.OfferID, Quantity: line.Quantity}
	}

	return Payload{
		Destination: destination,
		Count:       SequenceCount,
		Finished:    false,
		Items:       items,
	}, nil
}

// Envelope is the wire representation of the payload.
func (p Payload) Envelope() api.OrderEnvelope {
	items := make([]api.OrderItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = api.OrderItem{ID: item.OfferID, Count: item.Quantity}
	}
	return api.OrderEnvelope{
		Order: api.Order{
			ID:       api.OrderID{Count: p.Count, Table: p.Destination},
			Finished: p.Finished,
			Items:    items,
		},
	}
}

// Result is the outcome of one send.
type Result struct {
	Payload Payload
	Err     error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Send hands the payload to the intake collaborator. Any failure is reported as
// ErrSubmissionFailure wrapping the cause.
func Send(ctx context.Context, intake Intake, p Payload) Result {
	if err := intake.SubmitOrder(ctx, p.Envelope()); err != nil {
		if errors.Is(err, ErrSubmissionFailure) {
			return Result{Payload: p, Err: err}
		}
		return Result{Payload: p, Err: fmt.Errorf("%w: %w", ErrSubmissionFailure, err)}
	}
	return Result{Payload: p}
}
