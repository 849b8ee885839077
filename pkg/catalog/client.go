// Copyright 2025 Bidwell Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog resolves on-demand (fixed) prices from the provider's
// public pricing catalog.
//
// The catalog is a two-level indirection: a per-offer region index maps
// each region to the current versioned price-list URL, and the price
// list maps product SKUs to attributes and term prices. Resolving one
// price costs two sequential HTTP reads. There are no retries; any
// transport failure propagates to the caller, which decides whether to
// repeat the whole decision later.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DefaultEndpoint is the public pricing catalog host. The catalog is
// global; it is served from a single region regardless of the region
// being priced.
const DefaultEndpoint = "https://pricing.us-east-1.amazonaws.com"

// RegionPriceListNotFoundError indicates the region index has no entry
// for the requested region. This is a catalog data gap, not a transport
// failure; it is terminal for the invocation.
type RegionPriceListNotFoundError struct {
	Region string
	Offer  OfferKind
}

func (e *RegionPriceListNotFoundError) Error() string {
	return fmt.Sprintf("could not find %s price list for region %q", e.Offer.Code(), e.Region)
}

// InstanceTypeUnavailableError indicates the requested instance type is
// not sold under the requested offer in this region.
type InstanceTypeUnavailableError struct {
	InstanceType string
	Offer        OfferKind
}

func (e *InstanceTypeUnavailableError) Error() string {
	return fmt.Sprintf("instance type %s is not available for use in %s", e.InstanceType, e.Offer.Code())
}

// Client fetches prices from the public catalog.
type Client struct {
	endpoint   string
	httpClient *http.Client
	log        logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the catalog host. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithTimeout bounds each of the two HTTP reads.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a catalog client. Without options it talks to the
// public endpoint with a 30 second per-request timeout and discards logs.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchOnDemandPrice resolves the current fixed hourly price for the
// instance type under the given offer in the given region.
//
// The region is assumed to be already validated upstream; an unknown
// region here surfaces as *RegionPriceListNotFoundError because the
// index simply has no entry for it.
func (c *Client) FetchOnDemandPrice(
	ctx context.Context,
	region, instanceType string,
	offer OfferKind,
) (decimal.Decimal, error) {
	index, err := c.fetchRegionIndex(ctx, offer)
	if err != nil {
		return decimal.Decimal{}, err
	}

	entry, ok := index.Regions[region]
	if !ok {
		return decimal.Decimal{}, &RegionPriceListNotFoundError{Region: region, Offer: offer}
	}
	if entry.CurrentVersionURL == "" {
		return decimal.Decimal{}, fmt.Errorf("region index entry for %q has no currentVersionUrl", region)
	}

	document, err := c.fetchPriceDocument(ctx, entry.CurrentVersionURL)
	if err != nil {
		return decimal.Decimal{}, err
	}

	skus := document.matchingSKUs(instanceType, offer)
	if len(skus) == 0 {
		return decimal.Decimal{}, &InstanceTypeUnavailableError{InstanceType: instanceType, Offer: offer}
	}
	if len(skus) > 1 {
		// The catalog does not define which product wins here; we take
		// the lexicographically first SKU and surface the ambiguity.
		c.log.V(1).Info("multiple catalog products matched, taking first SKU",
			"instance_type", instanceType,
			"offer", offer.Code(),
			"matched", len(skus),
			"selected_sku", skus[0])
	}

	price, err := document.onDemandUSD(skus[0])
	if err != nil {
		return decimal.Decimal{}, err
	}

	c.log.V(1).Info("resolved on-demand price",
		"region", region,
		"instance_type", instanceType,
		"offer", offer.Code(),
		"sku", skus[0],
		"price", price.String())
	return price, nil
}

// fetchRegionIndex retrieves and parses the offer's region index.
func (c *Client) fetchRegionIndex(ctx context.Context, offer OfferKind) (*RegionIndex, error) {
	url := fmt.Sprintf("%s/offers/v1.0/aws/%s/current/region_index.json", c.endpoint, offer.Code())

	var index RegionIndex
	if err := c.getJSON(ctx, url, &index); err != nil {
		return nil, fmt.Errorf("failed to fetch region index for %s: %w", offer.Code(), err)
	}
	if index.Regions == nil {
		return nil, fmt.Errorf("region index for %s has no regions table", offer.Code())
	}
	return &index, nil
}

// fetchPriceDocument retrieves and parses a versioned price list.
// versionURL is the path from the region index, relative to the host.
func (c *Client) fetchPriceDocument(ctx context.Context, versionURL string) (*PriceDocument, error) {
	url := c.endpoint + versionURL

	var document PriceDocument
	if err := c.getJSON(ctx, url, &document); err != nil {
		return nil, fmt.Errorf("failed to fetch price document: %w", err)
	}
	if document.Products == nil {
		return nil, fmt.Errorf("price document %s has no products table", versionURL)
	}
	return &document, nil
}

// getJSON performs one GET and decodes the body into out. Price
// documents run to tens of megabytes, so the body is streamed into the
// decoder rather than read whole.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}
