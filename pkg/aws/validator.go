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
)

// InvalidRegionError indicates the requested region is not in the
// provider's published region list. This is a terminal input error;
// callers must not retry it.
type InvalidRegionError struct {
	Region string
}

func (e *InvalidRegionError) Error() string {
	return fmt.Sprintf("invalid region name %q", e.Region)
}

// RegionValidator checks a requested region against the provider's
// published region list. Validation happens once, at the start of a
// pricing session; everything downstream can assume the region is real.
type RegionValidator struct {
	client EC2Client
}

// NewRegionValidator creates a validator backed by the given EC2 client.
func NewRegionValidator(client EC2Client) *RegionValidator {
	return &RegionValidator{client: client}
}

// ValidateRegion returns an *InvalidRegionError if region is not a member
// of the provider's region list, or a wrapped transport error if the
// list could not be fetched.
func (v *RegionValidator) ValidateRegion(ctx context.Context, region string) error {
	regions, err := v.client.DescribeRegions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list regions: %w", err)
	}

	for _, r := range regions {
		if r == region {
			return nil
		}
	}
	return &InvalidRegionError{Region: region}
}
