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
	"sync"
	"time"
)

// MockClient is a mock implementation of the Client interface for testing.
// It returns a single shared MockEC2Client regardless of account config
// and records AssumeRole requests.
type MockClient struct {
	mu sync.Mutex

	// EC2ClientInstance is the mock EC2 client returned by EC2().
	EC2ClientInstance *MockEC2Client

	// EC2Error, when set, is returned by EC2() to simulate client
	// construction failures (bad credentials, AssumeRole denied).
	EC2Error error

	// AssumeRoleARNs records the role ARNs requested via EC2().
	AssumeRoleARNs []string
}

// NewMockClient creates a MockClient with an initialized MockEC2Client.
func NewMockClient() *MockClient {
	return &MockClient{
		EC2ClientInstance: NewMockEC2Client(),
	}
}

// EC2 returns the mock EC2 client.
func (m *MockClient) EC2(_ context.Context, accountConfig AccountConfig) (EC2Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EC2Error != nil {
		return nil, m.EC2Error
	}
	if accountConfig.AssumeRoleARN != "" {
		m.AssumeRoleARNs = append(m.AssumeRoleARNs, accountConfig.AssumeRoleARN)
	}
	return m.EC2ClientInstance, nil
}

// MockEC2Client is a configurable mock implementation of EC2Client.
// Set the response fields to control what each operation returns; set the
// corresponding error field to simulate API failures. Call counts are
// tracked so tests can assert how many external reads an operation cost.
type MockEC2Client struct {
	mu sync.Mutex

	Regions           []string
	AvailabilityZones []AvailabilityZone
	SpotHistory       []SpotObservation
	ReservedInstances []ReservedInstance
	RunningCount      int

	DescribeRegionsError           error
	DescribeAvailabilityZonesError error
	DescribeSpotPriceHistoryError  error
	DescribeReservedInstancesError error
	CountRunningInstancesError     error

	DescribeRegionsCalls           int
	DescribeAvailabilityZonesCalls int
	DescribeSpotPriceHistoryCalls  int
	DescribeReservedInstancesCalls int
	CountRunningInstancesCalls     int
}

// NewMockEC2Client creates an empty MockEC2Client.
func NewMockEC2Client() *MockEC2Client {
	return &MockEC2Client{}
}

// DescribeRegions returns the configured region list.
func (m *MockEC2Client) DescribeRegions(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeRegionsCalls++
	if m.DescribeRegionsError != nil {
		return nil, m.DescribeRegionsError
	}
	return append([]string(nil), m.Regions...), nil
}

// DescribeAvailabilityZones returns the configured zone directory.
func (m *MockEC2Client) DescribeAvailabilityZones(_ context.Context) ([]AvailabilityZone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeAvailabilityZonesCalls++
	if m.DescribeAvailabilityZonesError != nil {
		return nil, m.DescribeAvailabilityZonesError
	}
	return append([]AvailabilityZone(nil), m.AvailabilityZones...), nil
}

// DescribeSpotPriceHistory returns configured observations for the
// instance type recorded at or after since.
func (m *MockEC2Client) DescribeSpotPriceHistory(
	_ context.Context,
	instanceType string,
	since time.Time,
) ([]SpotObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeSpotPriceHistoryCalls++
	if m.DescribeSpotPriceHistoryError != nil {
		return nil, m.DescribeSpotPriceHistoryError
	}

	var observations []SpotObservation
	for _, obs := range m.SpotHistory {
		if obs.InstanceType == instanceType && !obs.Timestamp.Before(since) {
			observations = append(observations, obs)
		}
	}
	return observations, nil
}

// DescribeReservedInstances returns configured RIs matching the filters.
func (m *MockEC2Client) DescribeReservedInstances(
	_ context.Context,
	instanceType, state, scope string,
) ([]ReservedInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeReservedInstancesCalls++
	if m.DescribeReservedInstancesError != nil {
		return nil, m.DescribeReservedInstancesError
	}

	var ris []ReservedInstance
	for _, ri := range m.ReservedInstances {
		if ri.InstanceType != instanceType || ri.State != state {
			continue
		}
		if scope != "" && ri.Scope != scope {
			continue
		}
		ris = append(ris, ri)
	}
	return ris, nil
}

// CountRunningInstances returns the configured running count.
func (m *MockEC2Client) CountRunningInstances(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CountRunningInstancesCalls++
	if m.CountRunningInstancesError != nil {
		return 0, m.CountRunningInstancesError
	}
	return m.RunningCount, nil
}
