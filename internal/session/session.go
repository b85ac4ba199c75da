// Package session owns the diner's cart for one table and drives it through
// browsing, building and submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/josko3567/oby-server/internal/cart"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/submission"
)

// UnknownDestination is used when the table URL has no path segment.
const UnknownDestination = "unknown-table"

const (
	DefaultCatalogTimeout = 5 * time.Second
	DefaultSubmitTimeout  = 10 * time.Second
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrOfferNotFound      = errors.New("offer not found")
)

type State int32

const (
	StateBrowsing State = iota
	StateBuilding
	StateSubmitting
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateBrowsing:
		return "browsing"
	case StateBuilding:
		return "building"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Catalog supplies the offers a diner can choose from.
type Catalog interface {
	FetchOffers(ctx context.Context) ([]domain.Offer, error)
}

type Options struct {
	Destination    string
	Catalog        Catalog
	Intake         submission.Intake
	CatalogTimeout time.Duration
	SubmitTimeout  time.Duration
	Logger         *slog.Logger
}

// Session is used from a single goroutine, except for Submit which may be
// raced and is guarded.
type Session struct {
	destination    string
	catalog        Catalog
	intake         submission.Intake
	catalogTimeout time.Duration
	submitTimeout  time.Duration
	log            *slog.Logger

	cart     *cart.Cart
	offers   []domain.Offer
	state    atomic.Int32
	inFlight atomic.Bool
}

func New(opts Options) *Session {
	if opts.Destination == "" {
		opts.Destination = UnknownDestination
	}
	if opts.CatalogTimeout <= 0 {
		opts.CatalogTimeout = DefaultCatalogTimeout
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Session{
		destination:    opts.Destination,
		catalog:        opts.Catalog,
		intake:         opts.Intake,
		catalogTimeout: opts.CatalogTimeout,
		submitTimeout:  opts.SubmitTimeout,
		log:            opts.Logger.With("table", opts.Destination),
		cart:           cart.New(),
	}
}

func (s *Session) Destination() string {
	return s.destination
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Cart exposes the owned cart for rendering.
func (s *Session) Cart() *cart.Cart {
	return s.cart
}

func (s *Session) Offers() []domain.Offer {
	out := make([]domain.Offer, len(s.offers))
	copy(out, s.offers)
	return out
}

// RefreshOffers replaces the offer list. On failure the previous list is kept.
func (s *Session) RefreshOffers(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.catalogTimeout)
	defer cancel()

	offers, err := s.catalog.FetchOffers(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "catalog fetch failed", "error", err)
		return err
	}
	s.offers = offers
	s.log.DebugContext(ctx, "catalog loaded", "offers", len(offers))
	return nil
}

// FindOffer resolves a 1-based position in the offer list or an offer name.
func (s *Session) FindOffer(ref string) (domain.Offer, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(s.offers) {
			return domain.Offer{}, fmt.Errorf("%w: #%d", ErrOfferNotFound, n)
		}
		return s.offers[n-1], nil
	}
	for _, o := range s.offers {
		if strings.EqualFold(o.ID, ref) {
			return o, nil
		}
	}
	return domain.Offer{}, fmt.Errorf("%w: %q", ErrOfferNotFound, ref)
}

func (s *Session) Add(offer domain.Offer) {
	s.cart.Add(offer)
	s.state.Store(int32(StateBuilding))
}

func (s *Session) RemoveAt(index int) error {
	if err := s.cart.RemoveAt(index); err != nil {
		return err
	}
	s.state.Store(int32(StateBuilding))
	return nil
}

func (s *Session) DecrementAt(index int) error {
	if err := s.cart.DecrementAt(index); err != nil {
		return err
	}
	s.state.Store(int32(StateBuilding))
	return nil
}

// Submit sends the cart once. The cart is cleared on success and left as it was
// on failure so the diner can retry.
func (s *Session) Submit(ctx context.Context) submission.Result {
	if !s.inFlight.CompareAndSwap(false, true) {
		return submission.Result{Err: ErrSubmissionInFlight}
	}
	defer s.inFlight.Store(false)

	payload, err := submission.Build(s.cart, s.destination)
	if err != nil {
		return submission.Result{Err: err}
	}

	prev := s.State()
	s.state.Store(int32(StateSubmitting))

	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	res := submission.Send(ctx, s.intake, payload)
	if !res.OK() {
		s.log.ErrorContext(ctx, "order submission failed", "error", res.Err, "lines", len(payload.Items))
		// The failure is reported through res; the kept cart is editable again.
		s.state.Store(int32(StateBuilding))
		return res
	}

	s.log.InfoContext(ctx, "order submitted", "lines", len(payload.Items), "previous_state", prev.String())
	s.cart.Clear()
	s.state.Store(int32(StateConfirmed))
	return res
}

// DestinationFromURL returns the percent-decoded last path segment of a table
// page URL, or UnknownDestination when there is none.
func DestinationFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return UnknownDestination
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	if segment == "" {
		return UnknownDestination
	}

	decoded, err := url.PathUnescape(segment)
	if err != nil || decoded == "" {
		return UnknownDestination
	}
	return decoded
}
