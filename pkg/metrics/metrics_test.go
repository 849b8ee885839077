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

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMetrics verifies registration on a fresh registry.
func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	assert.NotNil(t, m.CacheLookups)
	assert.NotNil(t, m.ExternalReads)
	assert.NotNil(t, m.ExternalReadErrors)
	assert.NotNil(t, m.Recommendations)
	assert.NotNil(t, m.DecisionDuration)

	// Registering a second instance on the same registry must panic via
	// MustRegister; a fresh registry must not.
	assert.Panics(t, func() { NewMetrics(registry) })
}

// TestObserveCacheLookup verifies hit and miss counting.
func TestObserveCacheLookup(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCacheLookup(ValueKindDemandPrice, true)
	m.ObserveCacheLookup(ValueKindDemandPrice, true)
	m.ObserveCacheLookup(ValueKindSpotPrice, false)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.CacheLookups.WithLabelValues(ValueKindDemandPrice, "hit")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.CacheLookups.WithLabelValues(ValueKindDemandPrice, "miss")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.CacheLookups.WithLabelValues(ValueKindSpotPrice, "miss")))
}

// TestCacheLookupHook verifies the value kind is taken from the key's
// last segment.
func TestCacheLookupHook(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	hook := m.CacheLookupHook()

	hook("us-east-1:r3.2xlarge:ec2:"+ValueKindDemandPrice, false)
	hook("us-east-1:r3.2xlarge:"+ValueKindSpotPrice, true)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.CacheLookups.WithLabelValues(ValueKindDemandPrice, "miss")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.CacheLookups.WithLabelValues(ValueKindSpotPrice, "hit")))
}

// TestObserveExternalRead verifies read and error counting.
func TestObserveExternalRead(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveExternalRead("catalog", nil)
	m.ObserveExternalRead("catalog", errors.New("boom"))
	m.ObserveExternalRead("market", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ExternalReads.WithLabelValues("catalog")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExternalReadErrors.WithLabelValues("catalog")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExternalReads.WithLabelValues("market")))
	require.Equal(t, float64(0), testutil.ToFloat64(m.ExternalReadErrors.WithLabelValues("market")))
}
