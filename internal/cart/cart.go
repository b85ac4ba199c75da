// Package cart accumulates selected offers into an order in progress.
//
// A Cart is owned by a single session and is not safe for concurrent use.
package cart

import (
	"errors"
	"fmt"

	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
)

var ErrIndexOutOfRange = errors.New("cart index out of range")

// Cart keeps its lines in first-insertion order with at most one line per offer.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts one more of the offer into the cart. A repeated offer increments the
// existing line in place; a new offer is appended with quantity 1.
func (c *Cart) Add(offer domain.Offer) {
	if i := c.indexOf(offer.ID); i >= 0 {
		c.lines[i] = c.lines[i].WithIncrementedQuantity()
		return
	}
	c.lines = append(c.lines, newLine(offer))
}

// RemoveAt deletes the whole line at index regardless of its quantity.
func (c *Cart) RemoveAt(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// DecrementAt takes one item off the line at index, dropping the line when it
// reaches zero.
func (c *Cart) DecrementAt(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if line, ok := c.lines[index].WithDecrementedQuantity(); ok {
		c.lines[index] = line
		return nil
	}
	return c.RemoveAt(index)
}

// Total sums the extended price of every line.
func (c *Cart) Total() money.Money {
	total := money.Zero()
	for _, line := range c.lines {
		total = total.Add(line.ExtendedPrice())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) indexOf(offerID string) int {
	for i, line := range c.lines {
		if line.OfferID == offerID {
			return i
		}
	}
	return -1
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: %d (cart has %d lines)", ErrIndexOutOfRange, index, len(c.lines))
	}
	return nil
}
