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

// Package aws provides narrow client interfaces over the AWS APIs the
// pricing engine reads from: spot price history, the zone directory,
// the region list, Reserved Instances, and running instance counts.
//
// The real implementation uses the AWS SDK v2 with built-in support for
// STS AssumeRole. For testing, use MockClient.
package aws

import (
	"context"
	"time"
)

// Client is the entry point for AWS access.
type Client interface {
	// EC2 returns an EC2Client for the specified account configuration.
	// If accountConfig.AssumeRoleARN is set, it will assume that role.
	// Otherwise, it uses the default credential chain.
	EC2(ctx context.Context, accountConfig AccountConfig) (EC2Client, error)
}

// EC2Client provides the EC2 read operations the pricing engine needs.
// All operations are scoped to the region the client was created for.
type EC2Client interface {
	// DescribeRegions returns the names of all regions the provider
	// currently publishes. Used to validate the requested region up front.
	DescribeRegions(ctx context.Context) ([]string, error)

	// DescribeAvailabilityZones returns the region's zone directory,
	// including zone health state. Callers filter on ZoneStateAvailable.
	DescribeAvailabilityZones(ctx context.Context) ([]AvailabilityZone, error)

	// DescribeSpotPriceHistory returns spot price observations for the
	// instance type, restricted to the Linux/UNIX product lines, recorded
	// at or after since. An empty result is valid and means the provider
	// published no prices in the window.
	DescribeSpotPriceHistory(ctx context.Context, instanceType string, since time.Time) ([]SpotObservation, error)

	// DescribeReservedInstances returns Reserved Instances for the
	// instance type matching the given state and scope filters.
	DescribeReservedInstances(ctx context.Context, instanceType, state, scope string) ([]ReservedInstance, error)

	// CountRunningInstances returns the number of currently running
	// instances of the given type in the region.
	CountRunningInstances(ctx context.Context, instanceType string) (int, error)
}

// ClientConfig configures AWS client creation.
type ClientConfig struct {
	// HTTPTimeout bounds every API call. External reads must never block
	// unboundedly; the SDK imposes no overall deadline by default.
	// Default: 30 seconds.
	HTTPTimeout time.Duration

	// EndpointURL overrides the AWS endpoint for all services.
	// Used for testing against LocalStack; empty in production.
	EndpointURL string
}

// NewClient creates a new AWS client with the specified configuration.
func NewClient(config ClientConfig) Client {
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 30 * time.Second
	}
	return &RealClient{config: config}
}
