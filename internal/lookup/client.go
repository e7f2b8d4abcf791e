// Package lookup fetches per-100g nutrition for packaged foods from Open Food Facts.
// Lookups are a convenience: callers report failures and carry on.
package lookup

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/logger"
)

// ErrLookupFailed marks network, status and decoding failures.
var ErrLookupFailed = stderrors.New("product lookup failed")

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	Rate     float64 // requests per second
	Burst    int
}

// Client handles communication with the Open Food Facts product API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	cache       *memoryCache
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = constants.DefaultLookupBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultLookupTimeout
	}
	if opts.Rate <= 0 {
		opts.Rate = constants.DefaultLookupRate
	}
	if opts.Burst <= 0 {
		opts.Burst = constants.DefaultLookupBurst
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		cache:       newMemoryCache(opts.CacheTTL),
	}
}

// Lookup returns the product with barcode upc. Unknown products wrap
// errors.ErrNotFound; transport problems wrap ErrLookupFailed.
func (c *Client) Lookup(ctx context.Context, upc string) (Product, error) {
	upc = strings.TrimSpace(upc)
	if err := ValidateUPC(upc); err != nil {
		return Product{}, err
	}

	if item, ok := c.cache.get(upc); ok {
		logger.Debug("Lookup cache hit", "upc", upc, "found", item.found)
		if !item.found {
			return Product{}, errors.NotFoundf("product %s", upc)
		}
		return item.product, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Product{}, fmt.Errorf("%w: rate limiter: %w", ErrLookupFailed, err)
	}

	p, found, err := c.fetch(ctx, upc)
	if err != nil {
		logger.Warn("Product lookup failed", "upc", upc, "error", err)
		return Product{}, err
	}
	c.cache.set(upc, p, found)
	if !found {
		return Product{}, errors.NotFoundf("product %s", upc)
	}

	logger.Debug("Product found", "upc", upc, "name", p.Name)
	return p, nil
}

func (c *Client) fetch(ctx context.Context, upc string) (Product, bool, error) {
	reqURL := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, upc)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Product{}, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", constants.AppName+"/"+constants.Version)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Product{}, false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Product{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Product{}, false, fmt.Errorf("%w: status %d, body: %s", ErrLookupFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded offResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Product{}, false, fmt.Errorf("%w: failed to decode response: %v", ErrLookupFailed, err)
	}
	if decoded.Status != 1 {
		return Product{}, false, nil
	}
	return decoded.toProduct(upc), true, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
