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

package catalog

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Wire types for the public pricing catalog. The catalog is served as
// two JSON documents: a region index mapping regions to the current
// versioned price-list URL, and the price list itself mapping product
// SKUs to attributes and term prices.

// RegionIndex is the top-level region index document for one offer.
type RegionIndex struct {
	Regions map[string]RegionIndexEntry `json:"regions"`
}

// RegionIndexEntry points at the current price-list version for a region.
type RegionIndexEntry struct {
	CurrentVersionURL string `json:"currentVersionUrl"`
}

// PriceDocument is a versioned price list for one offer in one region.
type PriceDocument struct {
	Products map[string]Product `json:"products"`
	Terms    Terms              `json:"terms"`
}

// Product is one catalog product: a SKU plus its attribute map.
type Product struct {
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
}

// Terms holds the price terms per purchase model. Only OnDemand is read.
type Terms struct {
	OnDemand map[string]map[string]OfferTerm `json:"OnDemand"`
}

// OfferTerm is one priced term for a SKU.
type OfferTerm struct {
	PriceDimensions map[string]PriceDimension `json:"priceDimensions"`
}

// PriceDimension carries the unit price per currency.
type PriceDimension struct {
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

// ParseError indicates the catalog document did not have the expected
// shape. Missing keys are reported as typed errors at the parse boundary
// rather than surfacing as zero values downstream.
type ParseError struct {
	SKU    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed price document entry for sku %s: %s", e.SKU, e.Reason)
}

// onDemandUSD extracts the on-demand USD unit price for a SKU.
//
// A SKU's on-demand term and its price dimensions are both keyed by
// opaque rate codes; the catalog publishes exactly one on-demand term
// per SKU. Keys are walked in sorted order so the same document always
// yields the same price dimension.
func (d *PriceDocument) onDemandUSD(sku string) (decimal.Decimal, error) {
	terms, ok := d.Terms.OnDemand[sku]
	if !ok || len(terms) == 0 {
		return decimal.Decimal{}, &ParseError{SKU: sku, Reason: "no OnDemand term"}
	}

	for _, code := range sortedKeys(terms) {
		dimensions := terms[code].PriceDimensions
		if len(dimensions) == 0 {
			return decimal.Decimal{}, &ParseError{SKU: sku, Reason: "OnDemand term has no price dimensions"}
		}
		dimension := dimensions[sortedKeys(dimensions)[0]]
		usd, ok := dimension.PricePerUnit["USD"]
		if !ok {
			return decimal.Decimal{}, &ParseError{SKU: sku, Reason: "price dimension has no USD unit price"}
		}

		// Currency amounts stay decimal end to end; a float here would
		// silently truncate catalog precision beyond two places.
		price, err := decimal.NewFromString(usd)
		if err != nil {
			return decimal.Decimal{}, &ParseError{SKU: sku, Reason: fmt.Sprintf("unparseable USD price %q", usd)}
		}
		return price, nil
	}

	return decimal.Decimal{}, &ParseError{SKU: sku, Reason: "no OnDemand term"}
}

// matchingSKUs returns the SKUs whose product matches the instance type
// and offer predicate, in lexicographic SKU order. Sorting makes the
// first-match selection stable within a single document version; the
// catalog itself does not promise ordering across re-publishes.
func (d *PriceDocument) matchingSKUs(instanceType string, offer OfferKind) []string {
	var skus []string
	for sku, product := range d.Products {
		if product.Attributes["instanceType"] != instanceType {
			continue
		}
		if !offer.matches(product.Attributes) {
			continue
		}
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
