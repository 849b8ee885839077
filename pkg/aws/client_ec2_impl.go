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

package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/shopspring/decimal"
)

// RealEC2Client is a production implementation of EC2Client that makes
// real API calls to AWS EC2 using the AWS SDK v2.
type RealEC2Client struct {
	client  *ec2.Client
	timeout time.Duration
}

// NewRealEC2Client creates an EC2 client from a prepared SDK configuration.
func NewRealEC2Client(awsCfg aws.Config, cfg ClientConfig) *RealEC2Client {
	ec2Opts := []func(*ec2.Options){}
	if cfg.EndpointURL != "" {
		// Endpoint override for LocalStack testing
		ec2Opts = append(ec2Opts, func(o *ec2.Options) {
			o.BaseEndpoint = &cfg.EndpointURL
		})
	}
	return &RealEC2Client{
		client:  ec2.NewFromConfig(awsCfg, ec2Opts...),
		timeout: cfg.HTTPTimeout,
	}
}

// withTimeout bounds a single API call. The SDK does not impose an
// overall deadline on its own.
func (c *RealEC2Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// DescribeRegions returns the names of all published regions.
func (c *RealEC2Client) DescribeRegions(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	return regions, nil
}

// DescribeAvailabilityZones returns the region's zone directory with state.
func (c *RealEC2Client) DescribeAvailabilityZones(ctx context.Context) ([]AvailabilityZone, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.client.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe availability zones: %w", err)
	}

	zones := make([]AvailabilityZone, 0, len(out.AvailabilityZones))
	for _, az := range out.AvailabilityZones {
		if az.ZoneName == nil {
			continue
		}
		zones = append(zones, AvailabilityZone{
			Name:  *az.ZoneName,
			State: string(az.State),
		})
	}
	return zones, nil
}

// DescribeSpotPriceHistory returns spot observations for the instance type
// since the given time, restricted to the Linux/UNIX product lines.
// Results are paginated by the SDK; all pages are collected.
func (c *RealEC2Client) DescribeSpotPriceHistory(
	ctx context.Context,
	instanceType string,
	since time.Time,
) ([]SpotObservation, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes: []types.InstanceType{types.InstanceType(instanceType)},
		ProductDescriptions: []string{
			ProductDescriptionLinuxUnix,
			ProductDescriptionLinuxUnixVPC,
		},
		StartTime: &since,
	}

	var observations []SpotObservation
	paginator := ec2.NewDescribeSpotPriceHistoryPaginator(c.client, input)
	for paginator.HasMorePages() {
		pageCtx, cancel := c.withTimeout(ctx)
		page, err := paginator.NextPage(pageCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to describe spot price history for %s: %w", instanceType, err)
		}

		for _, sp := range page.SpotPriceHistory {
			obs, err := spotObservationFromSDK(sp)
			if err != nil {
				return nil, err
			}
			observations = append(observations, obs)
		}
	}
	return observations, nil
}

// spotObservationFromSDK converts an SDK history record to a SpotObservation.
// A record with a missing or unparseable price is a provider data error,
// not something to silently skip.
func spotObservationFromSDK(sp types.SpotPrice) (SpotObservation, error) {
	if sp.SpotPrice == nil || sp.Timestamp == nil {
		return SpotObservation{}, fmt.Errorf("spot price history record missing price or timestamp")
	}
	price, err := decimal.NewFromString(*sp.SpotPrice)
	if err != nil {
		return SpotObservation{}, fmt.Errorf("failed to parse spot price %q: %w", *sp.SpotPrice, err)
	}

	obs := SpotObservation{
		InstanceType:       string(sp.InstanceType),
		Price:              price,
		Timestamp:          *sp.Timestamp,
		ProductDescription: string(sp.ProductDescription),
	}
	if sp.AvailabilityZone != nil {
		obs.AvailabilityZone = *sp.AvailabilityZone
	}
	return obs, nil
}

// DescribeReservedInstances returns Reserved Instances for the instance
// type matching the given state and scope filters.
func (c *RealEC2Client) DescribeReservedInstances(
	ctx context.Context,
	instanceType, state, scope string,
) ([]ReservedInstance, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filters := []types.Filter{
		{Name: aws.String("instance-type"), Values: []string{instanceType}},
		{Name: aws.String("state"), Values: []string{state}},
	}
	if scope != "" {
		filters = append(filters, types.Filter{
			Name: aws.String("scope"), Values: []string{scope},
		})
	}

	out, err := c.client.DescribeReservedInstances(ctx, &ec2.DescribeReservedInstancesInput{
		Filters: filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe reserved instances for %s: %w", instanceType, err)
	}

	ris := make([]ReservedInstance, 0, len(out.ReservedInstances))
	for _, ri := range out.ReservedInstances {
		converted := ReservedInstance{
			InstanceType: string(ri.InstanceType),
			State:        string(ri.State),
			Scope:        string(ri.Scope),
		}
		if ri.ReservedInstancesId != nil {
			converted.ReservedInstanceID = *ri.ReservedInstancesId
		}
		if ri.InstanceCount != nil {
			converted.InstanceCount = *ri.InstanceCount
		}
		if ri.End != nil {
			converted.End = *ri.End
		}
		ris = append(ris, converted)
	}
	return ris, nil
}

// CountRunningInstances returns the number of running instances of the
// given type in the region.
func (c *RealEC2Client) CountRunningInstances(ctx context.Context, instanceType string) (int, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("instance-type"), Values: []string{instanceType}},
			{Name: aws.String("instance-state-name"), Values: []string{"running"}},
		},
	}

	count := 0
	paginator := ec2.NewDescribeInstancesPaginator(c.client, input)
	for paginator.HasMorePages() {
		pageCtx, cancel := c.withTimeout(ctx)
		page, err := paginator.NextPage(pageCtx)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("failed to describe running instances for %s: %w", instanceType, err)
		}
		for _, reservation := range page.Reservations {
			count += len(reservation.Instances)
		}
	}
	return count, nil
}
