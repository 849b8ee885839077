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

// Package reservations counts pre-purchased reserved capacity for an
// instance type. When enough reserved capacity covers a request, no
// pricing decision is needed at all.
package reservations

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/nextdoor/bidwell/pkg/aws"
)

// CountingMode selects how available reserved capacity is computed.
// Both modes are deliberate, named configurations; which one is right
// depends on whether reserved capacity is already being consumed by
// long-running workloads.
type CountingMode string

const (
	// ReservedOnly counts the instance total of active regional
	// Reserved Instances, ignoring what is currently running.
	ReservedOnly CountingMode = "reserved-only"

	// NetOfRunning subtracts currently running instances of the type
	// from the reserved total. The result can be negative when demand
	// already exceeds reservations.
	NetOfRunning CountingMode = "net-of-running"
)

// ParseCountingMode maps a configuration value to a CountingMode.
func ParseCountingMode(s string) (CountingMode, error) {
	switch CountingMode(s) {
	case ReservedOnly:
		return ReservedOnly, nil
	case NetOfRunning:
		return NetOfRunning, nil
	default:
		return "", fmt.Errorf("unknown counting mode %q, must be one of: %s, %s", s, ReservedOnly, NetOfRunning)
	}
}

// Counter computes available reserved capacity for instance types in
// one region.
type Counter struct {
	ec2  aws.EC2Client
	mode CountingMode
	log  logr.Logger
}

// NewCounter creates a Counter using the given counting mode.
func NewCounter(ec2 aws.EC2Client, mode CountingMode, log logr.Logger) *Counter {
	return &Counter{ec2: ec2, mode: mode, log: log}
}

// Capacity is the reserved-capacity picture for one instance type.
type Capacity struct {
	// Reserved is the instance total across active regional RIs.
	Reserved int

	// Running is the number of currently running instances of the type.
	// Only populated in NetOfRunning mode.
	Running int

	// Available is Reserved, or Reserved-Running in NetOfRunning mode.
	// Can be negative in NetOfRunning mode.
	Available int
}

// Available returns the reserved-capacity picture for the instance type.
// One API read in ReservedOnly mode, two in NetOfRunning mode.
func (c *Counter) Available(ctx context.Context, instanceType string) (Capacity, error) {
	ris, err := c.ec2.DescribeReservedInstances(ctx, instanceType, aws.RIStateActive, aws.RIScopeRegional)
	if err != nil {
		return Capacity{}, fmt.Errorf("failed to count reserved instances: %w", err)
	}

	capacity := Capacity{}
	for _, ri := range ris {
		capacity.Reserved += int(ri.InstanceCount)
	}
	capacity.Available = capacity.Reserved

	if c.mode == NetOfRunning {
		running, err := c.ec2.CountRunningInstances(ctx, instanceType)
		if err != nil {
			return Capacity{}, fmt.Errorf("failed to count running instances: %w", err)
		}
		capacity.Running = running
		capacity.Available = capacity.Reserved - running
	}

	c.log.V(1).Info("counted reserved capacity",
		"instance_type", instanceType,
		"mode", string(c.mode),
		"reserved", capacity.Reserved,
		"running", capacity.Running,
		"available", capacity.Available)
	return capacity, nil
}
