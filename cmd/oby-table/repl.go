package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/josko3567/oby-server/internal/session"
	"github.com/josko3567/oby-server/internal/submission"
)

const helpText = `commands:
  offers          reload and list offers
  add <n|name>    add one of offer n (or by name) to the cart
  dec <i>         take one item off cart line i
  remove <i>      drop cart line i
  cart            show the cart and its total
  submit          send the cart as an order
  help            show this help
  quit            leave
`

// repl drives a session from line-oriented input.
type repl struct {
	sess *session.Session
	in   *bufio.Scanner
	out  io.Writer
}

func newREPL(sess *session.Session, in io.Reader, out io.Writer) *repl {
	return &repl{sess: sess, in: bufio.NewScanner(in), out: out}
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintf(r.out, "table %s\n", r.sess.Destination())
	r.showOffers(ctx)

	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		if quit := r.exec(ctx, r.in.Text()); quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (r *repl) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, arg := strings.ToLower(fields[0]), strings.Join(fields[1:], " ")

	switch cmd {
	case "offers", "o":
		r.showOffers(ctx)
	case "add", "a":
		r.add(arg)
	case "dec", "d":
		r.editLine(arg, r.sess.DecrementAt)
	case "remove", "rm", "r":
		r.editLine(arg, r.sess.RemoveAt)
	case "cart", "c":
		r.showCart()
	case "submit", "s":
		r.submit(ctx)
	case "help", "h", "?":
		fmt.Fprint(r.out, helpText)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(r.out, "unknown command %q, type help\n", cmd)
	}
	return false
}

func (r *repl) showOffers(ctx context.Context) {
	if err := r.sess.RefreshOffers(ctx); err != nil {
		fmt.Fprintf(r.out, "could not load offers: %v\n", err)
	}
	offers := r.sess.Offers()
	if len(offers) == 0 {
		fmt.Fprintln(r.out, "no offers")
		return
	}

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, o := range offers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", i+1, o.ID, o.UnitPrice.Format())
	}
	tw.Flush()
}

func (r *repl) add(arg string) {
	if arg == "" {
		fmt.Fprintln(r.out, "usage: add <n|name>")
		return
	}
	offer, err := r.sess.FindOffer(arg)
	if err != nil {
		fmt.Fprintf(r.out, "%v\n", err)
		return
	}
	r.sess.Add(offer)
	fmt.Fprintf(r.out, "added %s, total %s\n", offer.ID, r.sess.Cart().Total().Format())
}

func (r *repl) editLine(arg string, edit func(int) error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		fmt.Fprintln(r.out, "expected a cart line number")
		return
	}
	if err := edit(n - 1); err != nil {
		fmt.Fprintf(r.out, "%v\n", err)
		return
	}
	r.showCart()
}

func (r *repl) showCart() {
	c := r.sess.Cart()
	if c.IsEmpty() {
		fmt.Fprintln(r.out, "cart is empty")
		return
	}

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, line := range c.Lines() {
		fmt.Fprintf(tw, "%d\t%s\t%s\tx%d\t%s\t\n", i+1, line.OfferID, line.UnitPrice.Format(), line.Quantity, line.ExtendedPrice().Format())
	}
	fmt.Fprintf(tw, "\ttotal\t\t\t%s\t\n", c.Total().Format())
	tw.Flush()
}

func (r *repl) submit(ctx context.Context) {
	res := r.sess.Submit(ctx)
	switch {
	case res.OK():
		fmt.Fprintf(r.out, "order sent for %s\n", r.sess.Destination())
	case errors.Is(res.Err, submission.ErrEmptyCart):
		fmt.Fprintln(r.out, "cart is empty, nothing to send")
	case errors.Is(res.Err, session.ErrSubmissionInFlight):
		fmt.Fprintln(r.out, "an order is already being sent")
	default:
		fmt.Fprintf(r.out, "order failed, cart kept: %v\n", res.Err)
	}
}
