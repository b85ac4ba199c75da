package features

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/josko3567/oby-server/internal/cart"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
)

type cartTestContext struct {
	offers map[string]domain.Offer
	cart   *cart.Cart
	err    error
}

func (c *cartTestContext) reset() {
	c.offers = map[string]domain.Offer{}
	c.cart = cart.New()
	c.err = nil
}

func (c *cartTestContext) anOfferPriced(name, price string) error {
	p, err := money.Parse(price)
	if err != nil {
		return err
	}
	c.offers[name] = domain.Offer{ID: name, UnitPrice: p}
	return nil
}

func (c *cartTestContext) iAddTimes(name string, n int) error {
	o, ok := c.offers[name]
	if !ok {
		return fmt.Errorf("unknown offer %q", name)
	}
	for i := 0; i < n; i++ {
		c.cart.Add(o)
	}
	return nil
}

func (c *cartTestContext) iRemoveLine(n int) error {
	c.err = c.cart.RemoveAt(n - 1)
	return nil
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if c.cart.Len() != n {
		return fmt.Errorf("expected %d lines, got %d", n, c.cart.Len())
	}
	return nil
}

func (c *cartTestContext) line(n int) (cart.Line, error) {
	lines := c.cart.Lines()
	if n < 1 || n > len(lines) {
		return cart.Line{}, fmt.Errorf("no line %d", n)
	}
	return lines[n-1], nil
}

func (c *cartTestContext) lineIsWithQuantity(n int, name string, qty int) error {
	l, err := c.line(n)
	if err != nil {
		return err
	}
	if l.OfferID != name || l.Quantity != qty {
		return fmt.Errorf("expected %s x%d, got %s x%d", name, qty, l.OfferID, l.Quantity)
	}
	return nil
}

func (c *cartTestContext) lineHasExtendedPrice(n int, want string) error {
	l, err := c.line(n)
	if err != nil {
		return err
	}
	if got := l.ExtendedPrice().String(); got != want {
		return fmt.Errorf("expected extended price %s, got %s", want, got)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(want string) error {
	if got := c.cart.Total().String(); got != want {
		return fmt.Errorf("expected total %s, got %s", want, got)
	}
	return nil
}

func (c *cartTestContext) theRemovalFailsWithIndexOutOfRange() error {
	if !errors.Is(c.err, cart.ErrIndexOutOfRange) {
		return fmt.Errorf("expected ErrIndexOutOfRange, got %v", c.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^an offer "([^"]*)" priced (\d+\.\d{2})$`, tc.anOfferPriced)
	ctx.Step(`^I add "([^"]*)" (\d+) times$`, tc.iAddTimes)
	ctx.Step(`^I remove line (\d+)$`, tc.iRemoveLine)
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^line (\d+) is "([^"]*)" with quantity (\d+)$`, tc.lineIsWithQuantity)
	ctx.Step(`^line (\d+) has extended price "([^"]*)"$`, tc.lineHasExtendedPrice)
	ctx.Step(`^the cart total is "([^"]*)"$`, tc.theCartTotalIs)
	ctx.Step(`^the removal fails with index out of range$`, tc.theRemovalFailsWithIndexOutOfRange)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
