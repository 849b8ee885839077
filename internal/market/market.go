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

// Package market resolves the current spot (market) price for an
// instance type: it pulls the recent price history and the region's
// available-zone directory, reduces the history to one current
// observation per zone, and picks the global minimum.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/shopspring/decimal"

	"github.com/nextdoor/bidwell/pkg/aws"
)

// DefaultLookback is how far back the history query reaches. Spot prices
// change continuously; a 15 minute window bounds the payload while still
// containing the latest observation for every active zone.
const DefaultLookback = 15 * time.Minute

// ZonePrice is one zone's current spot price.
type ZonePrice struct {
	// Zone is the availability zone the price applies to
	Zone string

	// Price is the hourly spot price in USD
	Price decimal.Decimal

	// Timestamp is when AWS recorded the observation
	Timestamp time.Time
}

// NoSpotPriceError indicates no zone had any observation in the query
// window. Terminal for the invocation; the caller decides whether to ask
// again later.
type NoSpotPriceError struct {
	InstanceType string
	Region       string
}

func (e *NoSpotPriceError) Error() string {
	return fmt.Sprintf("could not find any spot price for instance type %s in region %s", e.InstanceType, e.Region)
}

// Client resolves spot prices for one region.
type Client struct {
	ec2      aws.EC2Client
	region   string
	lookback time.Duration
	log      logr.Logger
}

// NewClient creates a market client over the given EC2 client.
// A lookback of zero means DefaultLookback.
func NewClient(ec2 aws.EC2Client, region string, lookback time.Duration, log logr.Logger) *Client {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Client{
		ec2:      ec2,
		region:   region,
		lookback: lookback,
		log:      log,
	}
}

// LowestSpotPrice returns the minimum current spot price across the
// region's available zones. Costs one or two API reads: the zone
// directory and the price history.
func (c *Client) LowestSpotPrice(ctx context.Context, instanceType string) (ZonePrice, error) {
	zones, err := c.availableZones(ctx)
	if err != nil {
		return ZonePrice{}, err
	}

	since := time.Now().Add(-c.lookback)
	observations, err := c.ec2.DescribeSpotPriceHistory(ctx, instanceType, since)
	if err != nil {
		return ZonePrice{}, err
	}

	c.log.V(1).Info("fetched spot price history",
		"instance_type", instanceType,
		"region", c.region,
		"zones", len(zones),
		"observations", len(observations))

	lowest, err := Reduce(observations, zones)
	if err != nil {
		// An empty window and an empty zone directory both mean the
		// market has no usable price right now.
		return ZonePrice{}, &NoSpotPriceError{InstanceType: instanceType, Region: c.region}
	}
	return lowest, nil
}

// availableZones returns the names of zones whose state is "available",
// in directory order. Impaired and unavailable zones contribute no
// candidate observation.
func (c *Client) availableZones(ctx context.Context) ([]string, error) {
	directory, err := c.ec2.DescribeAvailabilityZones(ctx)
	if err != nil {
		return nil, err
	}

	zones := make([]string, 0, len(directory))
	for _, az := range directory {
		if az.State == aws.ZoneStateAvailable {
			zones = append(zones, az.Name)
		}
	}
	return zones, nil
}
