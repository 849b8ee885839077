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
	"time"

	"github.com/shopspring/decimal"
)

// Product description constants for DescribeSpotPriceHistory queries.
// Spot prices are published per OS product line; we query the Linux/UNIX
// variants, which cover the instances this tool advises on.
const (
	ProductDescriptionLinuxUnix    = "Linux/UNIX"
	ProductDescriptionLinuxUnixVPC = "Linux/UNIX (Amazon VPC)"
)

// Reserved Instance filter constants, matching the EC2 API filter values.
const (
	RIStateActive   = "active"
	RIScopeRegional = "Region"
)

// ZoneStateAvailable is the AvailabilityZone state for zones that can
// currently host capacity. Impaired and unavailable zones are excluded
// from spot price aggregation.
const ZoneStateAvailable = "available"

// AccountConfig represents configuration for accessing an AWS account.
// Supports both the default credential chain and AssumeRole-based access.
type AccountConfig struct {
	// Region is the AWS region for API calls.
	Region string

	// AssumeRoleARN is the ARN of the role to assume before making calls.
	// If empty, the default credential chain is used directly.
	// Example: "arn:aws:iam::111111111111:role/bidwell-pricing"
	AssumeRoleARN string

	// SessionName is the name to use for AssumeRole sessions.
	// Defaults to "bidwell" if not specified.
	SessionName string
}

// SpotObservation is a single spot price history record.
// Immutable value; a time-ordered collection of these per zone is reduced
// to one current observation by the market aggregator.
type SpotObservation struct {
	// InstanceType is the instance type (e.g., "r3.2xlarge")
	InstanceType string

	// AvailabilityZone is the zone the price was recorded in
	AvailabilityZone string

	// Price is the hourly spot price in USD.
	// Decimal so that catalog precision survives comparison and display.
	Price decimal.Decimal

	// Timestamp is when AWS recorded this price change
	Timestamp time.Time

	// ProductDescription is the OS product line (e.g., "Linux/UNIX")
	ProductDescription string
}

// AvailabilityZone is one entry from the region's zone directory.
type AvailabilityZone struct {
	// Name is the zone name (e.g., "us-east-1a")
	Name string

	// State is the zone health state reported by EC2
	// (e.g., "available", "impaired", "unavailable")
	State string
}

// ReservedInstance represents an EC2 Reserved Instance.
type ReservedInstance struct {
	// ReservedInstanceID is the unique identifier
	ReservedInstanceID string

	// InstanceType is the instance type this RI covers
	InstanceType string

	// InstanceCount is the number of instances this RI covers
	InstanceCount int32

	// State is the RI state (e.g., "active", "retired")
	State string

	// Scope is "Region" for regional RIs or "Availability Zone" for zonal RIs
	Scope string

	// End is when the RI expires
	End time.Time
}
