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
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMockClientAssumeRoleRecording verifies AssumeRole ARN capture.
func TestMockClientAssumeRoleRecording(t *testing.T) {
	client := NewMockClient()

	_, err := client.EC2(context.Background(), AccountConfig{Region: "us-east-1"})
	require.NoError(t, err)
	assert.Empty(t, client.AssumeRoleARNs)

	_, err = client.EC2(context.Background(), AccountConfig{
		Region:        "us-east-1",
		AssumeRoleARN: "arn:aws:iam::123456789012:role/PricingReader",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"arn:aws:iam::123456789012:role/PricingReader"}, client.AssumeRoleARNs)
}

// TestMockClientError verifies construction failures surface.
func TestMockClientError(t *testing.T) {
	boom := errors.New("assume role denied")
	client := NewMockClient()
	client.EC2Error = boom

	_, err := client.EC2(context.Background(), AccountConfig{Region: "us-east-1"})
	assert.ErrorIs(t, err, boom)
}

// TestMockEC2SpotHistoryFiltering verifies the mock applies the same
// instance-type and time-window filters as the real API.
func TestMockEC2SpotHistoryFiltering(t *testing.T) {
	now := time.Now()
	ec2 := NewMockEC2Client()
	ec2.SpotHistory = []SpotObservation{
		{
			InstanceType:     "r3.2xlarge",
			AvailabilityZone: "us-east-1a",
			Price:            decimal.RequireFromString("0.30"),
			Timestamp:        now.Add(-5 * time.Minute),
		},
		{
			InstanceType:     "r3.2xlarge",
			AvailabilityZone: "us-east-1a",
			Price:            decimal.RequireFromString("0.20"),
			Timestamp:        now.Add(-2 * time.Hour),
		},
		{
			InstanceType:     "m5.large",
			AvailabilityZone: "us-east-1a",
			Price:            decimal.RequireFromString("0.05"),
			Timestamp:        now.Add(-5 * time.Minute),
		},
	}

	observations, err := ec2.DescribeSpotPriceHistory(
		context.Background(), "r3.2xlarge", now.Add(-15*time.Minute))
	require.NoError(t, err)

	require.Len(t, observations, 1)
	assert.True(t, observations[0].Price.Equal(decimal.RequireFromString("0.30")))
	assert.Equal(t, 1, ec2.DescribeSpotPriceHistoryCalls)
}
