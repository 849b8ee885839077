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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdoor/bidwell/internal/reservations"
)

// TestLoadDefaults verifies that no config file yields the documented
// defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.DefaultRegion)
	assert.Equal(t, "AmazonEC2", cfg.GetOffer().Code())
	assert.Equal(t, reservations.NetOfRunning, cfg.GetCountingMode())
	assert.Equal(t, time.Hour, cfg.GetDemandPriceTTL())
	assert.Equal(t, 10*time.Second, cfg.GetSpotPriceTTL())
	assert.Equal(t, 15*time.Minute, cfg.GetSpotLookback())
	assert.Equal(t, 30*time.Second, cfg.GetHTTPTimeout())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.CatalogEndpoint)
	assert.Empty(t, cfg.AssumeRoleARN)
}

// TestLoadFromFile verifies YAML values override defaults.
func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
offer: emr
countingMode: reserved-only
demandPriceTTL: 30m
spotPriceTTL: 5s
logLevel: debug
assumeRoleArn: arn:aws:iam::123456789012:role/PricingReader
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ElasticMapReduce", cfg.GetOffer().Code())
	assert.Equal(t, reservations.ReservedOnly, cfg.GetCountingMode())
	assert.Equal(t, 30*time.Minute, cfg.GetDemandPriceTTL())
	assert.Equal(t, 5*time.Second, cfg.GetSpotPriceTTL())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "arn:aws:iam::123456789012:role/PricingReader", cfg.AssumeRoleARN)
}

// TestLoadEnvOverrides verifies BIDWELL_* environment variables beat
// file values.
func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("offer: ec2\nspotPriceTTL: 10s\n"), 0o600))

	t.Setenv("BIDWELL_OFFER", "emr")
	t.Setenv("BIDWELL_SPOT_PRICE_TTL", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ElasticMapReduce", cfg.GetOffer().Code())
	assert.Equal(t, 2*time.Second, cfg.GetSpotPriceTTL())
}

// TestLoadMissingFile verifies an explicitly requested file must exist.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestValidate verifies rejection of bad values.
func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Offer:        "ec2",
			CountingMode: "net-of-running",
			LogLevel:     "info",
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Offer = "rds"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.CountingMode = "guess"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.LogLevel = "trace"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SpotPriceTTL = "soon"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SpotPriceTTL = "-10s"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AssumeRoleARN = "not-an-arn"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AssumeRoleARN = "arn:aws:iam::123456789012:role/PricingReader"
	assert.NoError(t, cfg.Validate())
}
