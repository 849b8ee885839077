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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateRegion verifies membership in the region list.
func TestValidateRegion(t *testing.T) {
	ec2 := NewMockEC2Client()
	ec2.Regions = []string{"us-east-1", "us-west-2", "eu-west-1"}

	validator := NewRegionValidator(ec2)

	assert.NoError(t, validator.ValidateRegion(context.Background(), "us-east-1"))
	assert.NoError(t, validator.ValidateRegion(context.Background(), "eu-west-1"))

	err := validator.ValidateRegion(context.Background(), "us-east-7")
	var invalid *InvalidRegionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "us-east-7", invalid.Region)
	assert.Equal(t, `invalid region name "us-east-7"`, err.Error())
}

// TestValidateRegionTransportError verifies a failed region listing is
// not reported as an invalid region.
func TestValidateRegionTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	ec2 := NewMockEC2Client()
	ec2.DescribeRegionsError = boom

	err := NewRegionValidator(ec2).ValidateRegion(context.Background(), "us-east-1")
	require.ErrorIs(t, err, boom)

	var invalid *InvalidRegionError
	assert.False(t, errors.As(err, &invalid))
}
