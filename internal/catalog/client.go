// Package catalog fetches the offer list from the order service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/josko3567/oby-server/internal/api"
	"github.com/josko3567/oby-server/internal/domain"
	"github.com/josko3567/oby-server/internal/money"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrCatalogFetchFailure = errors.New("catalog fetch failed")

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// FetchOffers loads GET /offers. Offers with an invalid price are skipped and
// logged; the rest are returned in catalog order.
func (c *Client) FetchOffers(ctx context.Context) ([]domain.Offer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/offers", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogFetchFailure, resp.StatusCode)
	}

	var body struct {
		Offers []json.RawMessage `json:"offers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrCatalogFetchFailure, err)
	}

	offers := make([]domain.Offer, 0, len(body.Offers))
	for _, raw := range body.Offers {
		offer, err := decodeOffer(raw)
		if err != nil {
			c.log.WarnContext(ctx, "skipping catalog offer", "offer", offerName(raw), "error", err)
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// decodeOffer decodes and validates a single catalog entry, so a wrongly typed
// field only costs that entry.
func decodeOffer(raw json.RawMessage) (domain.Offer, error) {
	var o api.Offer
	if err := json.Unmarshal(raw, &o); err != nil {
		return domain.Offer{}, fmt.Errorf("%w: %w", money.ErrInvalidPrice, err)
	}
	return ToDomain(o)
}

func offerName(raw json.RawMessage) string {
	var named struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &named)
	return named.Name
}

// ToDomain validates a wire offer. The price parts win over the price string
// when both are present.
func ToDomain(o api.Offer) (domain.Offer, error) {
	if strings.TrimSpace(o.Name) == "" {
		return domain.Offer{}, fmt.Errorf("%w: missing name", money.ErrInvalidPrice)
	}

	var (
		price money.Money
		err   error
	)
	switch {
	case o.PriceInteger != "" || o.PriceFraction != "":
		price, err = money.ParseParts(defaultZero(o.PriceInteger), defaultZero(o.PriceFraction))
	case o.Price != "":
		price, err = money.Parse(o.Price)
	default:
		err = fmt.Errorf("%w: missing price", money.ErrInvalidPrice)
	}
	if err != nil {
		return domain.Offer{}, err
	}

	return domain.Offer{
		ID:          o.Name,
		Description: o.Description,
		UnitPrice:   price,
	}, nil
}

// FromDomain renders an offer with the price split into parts.
func FromDomain(o domain.Offer) api.Offer {
	return api.Offer{
		Name:          o.ID,
		Description:   o.Description,
		PriceInteger:  json.Number(o.UnitPrice.Units().String()),
		PriceFraction: json.Number(fmt.Sprint(o.UnitPrice.Hundredths())),
	}
}

func defaultZero(n json.Number) string {
	if n == "" {
		return "0"
	}
	return n.String()
}
