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

// Package engine combines the fixed-price catalog, the spot market, and
// reserved capacity into one provisioning recommendation.
//
// The decision is linear: if available reserved capacity covers the
// request, no pricing is needed; otherwise the current demand price and
// the lowest current spot price are resolved (each through its own TTL
// cache) and the cheaper option wins, with the bid set to the demand
// price rounded to three decimals.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nextdoor/bidwell/internal/cache"
	"github.com/nextdoor/bidwell/internal/market"
	"github.com/nextdoor/bidwell/internal/reservations"
	"github.com/nextdoor/bidwell/pkg/aws"
	"github.com/nextdoor/bidwell/pkg/catalog"
	"github.com/nextdoor/bidwell/pkg/metrics"
)

// Default TTLs for the two cached value kinds. Demand prices change
// rarely; spot prices fluctuate continuously. Both are configuration,
// not constants of the algorithm.
const (
	DefaultDemandPriceTTL = time.Hour
	DefaultSpotPriceTTL   = 10 * time.Second
)

// Collaborator labels for external-read metrics.
const (
	collaboratorCatalog      = "catalog"
	collaboratorMarket       = "market"
	collaboratorReservations = "reservations"
)

// Reason explains a recommendation.
type Reason string

const (
	// ReasonReservedCapacity: enough reserved capacity covers the
	// request; no pricing comparison was needed.
	ReasonReservedCapacity Reason = "reserved capacity covers the request"

	// ReasonSpotCheaper: the lowest current spot price is below the
	// demand price.
	ReasonSpotCheaper Reason = "spot price is below the demand price"

	// ReasonSpotNotCheaper: the lowest current spot price is at or
	// above the demand price.
	ReasonSpotNotCheaper Reason = "spot price is not below the demand price"
)

// Recommendation is the engine's answer for one request.
type Recommendation struct {
	// UseSpot reports whether the market offering is recommended.
	UseSpot bool

	// BidPrice is the maximum price to commit to when using the market
	// offering: the demand price rounded to three decimals. Only
	// meaningful when UseSpot is true.
	BidPrice decimal.Decimal

	// Zone is the availability zone carrying the winning spot price.
	// Empty unless UseSpot is true.
	Zone string

	// DemandPrice is the fixed hourly price. Zero when the reserved
	// short-circuit skipped pricing entirely.
	DemandPrice decimal.Decimal

	// SpotPrice is the lowest current spot price, when one was resolved.
	SpotPrice *market.ZonePrice

	// Reserved is the reserved-capacity picture that fed the decision.
	Reserved reservations.Capacity

	// Reason explains the outcome.
	Reason Reason
}

// Params wires an Engine. EC2, Catalog and Market are required;
// Reservations may be nil to skip the reserved-capacity check entirely.
type Params struct {
	Region string
	Offer  catalog.OfferKind

	EC2          aws.EC2Client
	Catalog      *catalog.Client
	Market       *market.Client
	Reservations *reservations.Counter

	Cache   *cache.Store
	Metrics *metrics.Metrics
	Log     logr.Logger

	// DemandPriceTTL and SpotPriceTTL override the cache windows.
	// Zero means the default.
	DemandPriceTTL time.Duration
	SpotPriceTTL   time.Duration
}

// Engine is a pricing session for one (region, offer) pair.
type Engine struct {
	region         string
	offer          catalog.OfferKind
	catalog        *catalog.Client
	market         *market.Client
	reservations   *reservations.Counter
	cache          *cache.Store
	metrics        *metrics.Metrics
	log            logr.Logger
	demandPriceTTL time.Duration
	spotPriceTTL   time.Duration
}

// New creates a pricing session, validating the region against the
// provider's region list. An unknown region is a terminal
// *aws.InvalidRegionError; nothing downstream re-checks it.
func New(ctx context.Context, params Params) (*Engine, error) {
	if params.EC2 == nil || params.Catalog == nil || params.Market == nil {
		return nil, fmt.Errorf("engine requires EC2, Catalog and Market clients")
	}

	if err := aws.NewRegionValidator(params.EC2).ValidateRegion(ctx, params.Region); err != nil {
		return nil, err
	}

	e := &Engine{
		region:         params.Region,
		offer:          params.Offer,
		catalog:        params.Catalog,
		market:         params.Market,
		reservations:   params.Reservations,
		cache:          params.Cache,
		metrics:        params.Metrics,
		log:            params.Log,
		demandPriceTTL: params.DemandPriceTTL,
		spotPriceTTL:   params.SpotPriceTTL,
	}
	if e.metrics == nil {
		e.metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if e.cache == nil {
		e.cache = cache.NewStore(cache.WithLookupHook(e.metrics.CacheLookupHook()))
	}
	if e.demandPriceTTL <= 0 {
		e.demandPriceTTL = DefaultDemandPriceTTL
	}
	if e.spotPriceTTL <= 0 {
		e.spotPriceTTL = DefaultSpotPriceTTL
	}
	return e, nil
}

// Recommend answers the provisioning question for desiredCount instances
// of instanceType.
//
// Reserved capacity is checked first; when it covers the request the
// engine returns without touching the catalog or the market. Otherwise
// the demand and spot prices are resolved concurrently (they are
// independent; the comparison is the join point) and compared.
func (e *Engine) Recommend(ctx context.Context, instanceType string, desiredCount int) (*Recommendation, error) {
	start := time.Now()
	rec, err := e.recommend(ctx, instanceType, desiredCount)
	e.metrics.DecisionDuration.Observe(time.Since(start).Seconds())
	e.metrics.Recommendations.WithLabelValues(outcomeLabel(rec, err)).Inc()
	return rec, err
}

func (e *Engine) recommend(ctx context.Context, instanceType string, desiredCount int) (*Recommendation, error) {
	var capacity reservations.Capacity
	if e.reservations != nil {
		var err error
		capacity, err = e.reservations.Available(ctx, instanceType)
		e.metrics.ObserveExternalRead(collaboratorReservations, err)
		if err != nil {
			return nil, err
		}

		if capacity.Available >= desiredCount {
			e.log.V(1).Info("reserved capacity covers the request, skipping pricing",
				"instance_type", instanceType,
				"available", capacity.Available,
				"desired", desiredCount)
			return &Recommendation{
				UseSpot:  false,
				Reserved: capacity,
				Reason:   ReasonReservedCapacity,
			}, nil
		}
	}

	var (
		demand decimal.Decimal
		spot   market.ZonePrice
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		demand, err = e.DemandPrice(groupCtx, instanceType)
		return err
	})
	group.Go(func() error {
		var err error
		spot, err = e.lowestSpotPrice(groupCtx, instanceType)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	rec := &Recommendation{
		DemandPrice: demand,
		SpotPrice:   &spot,
		Reserved:    capacity,
	}
	if spot.Price.LessThan(demand) {
		rec.UseSpot = true
		rec.BidPrice = demand.Round(3)
		rec.Zone = spot.Zone
		rec.Reason = ReasonSpotCheaper
	} else {
		rec.Reason = ReasonSpotNotCheaper
	}

	e.log.V(1).Info("priced request",
		"instance_type", instanceType,
		"demand_price", demand.String(),
		"spot_price", spot.Price.String(),
		"spot_zone", spot.Zone,
		"use_spot", rec.UseSpot)
	return rec, nil
}

// DemandPrice resolves the fixed hourly price for the instance type
// through the decision cache. Exported so callers can display the
// demand price without forcing a full recommendation.
func (e *Engine) DemandPrice(ctx context.Context, instanceType string) (decimal.Decimal, error) {
	key := cache.Key(e.region, instanceType, e.offer.Name(), metrics.ValueKindDemandPrice)
	return cache.GetOrFetch(ctx, e.cache, key, e.demandPriceTTL,
		func(ctx context.Context) (decimal.Decimal, error) {
			price, err := e.catalog.FetchOnDemandPrice(ctx, e.region, instanceType, e.offer)
			e.metrics.ObserveExternalRead(collaboratorCatalog, err)
			return price, err
		})
}

// lowestSpotPrice resolves the aggregated market price through the
// decision cache. Its TTL clock is independent of the demand price's.
func (e *Engine) lowestSpotPrice(ctx context.Context, instanceType string) (market.ZonePrice, error) {
	key := cache.Key(e.region, instanceType, metrics.ValueKindSpotPrice)
	return cache.GetOrFetch(ctx, e.cache, key, e.spotPriceTTL,
		func(ctx context.Context) (market.ZonePrice, error) {
			zp, err := e.market.LowestSpotPrice(ctx, instanceType)
			e.metrics.ObserveExternalRead(collaboratorMarket, err)
			return zp, err
		})
}

func outcomeLabel(rec *Recommendation, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case rec.Reason == ReasonReservedCapacity:
		return metrics.OutcomeReserved
	case rec.UseSpot:
		return metrics.OutcomeSpot
	default:
		return metrics.OutcomeOnDemand
	}
}
