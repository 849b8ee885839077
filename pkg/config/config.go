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

// Package config provides configuration management for the bidwell CLI.
//
// Configuration can be loaded from a YAML file or environment variables;
// the file is optional, so a bare invocation runs on defaults plus
// whatever BIDWELL_* variables are set.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/viper"

	"github.com/nextdoor/bidwell/internal/reservations"
	"github.com/nextdoor/bidwell/pkg/catalog"
)

// Config represents the complete bidwell configuration.
type Config struct {
	// DefaultRegion is the AWS region priced when none is given on the
	// command line.
	DefaultRegion string `yaml:"defaultRegion,omitempty"`

	// Offer selects the price list to consult.
	// Valid values: "ec2", "emr"
	// Default: ec2
	Offer string `yaml:"offer,omitempty"`

	// CountingMode controls how reserved capacity is counted.
	// Valid values: "reserved-only", "net-of-running"
	// Default: net-of-running
	CountingMode string `yaml:"countingMode,omitempty"`

	// DemandPriceTTL is how long a fetched demand price stays fresh.
	// Format: Go duration string (e.g., "1h", "30m")
	// Default: 1h - published prices change monthly at most
	DemandPriceTTL string `yaml:"demandPriceTTL,omitempty"`

	// SpotPriceTTL is how long a fetched spot price stays fresh.
	// Format: Go duration string (e.g., "10s", "1m")
	// Default: 10s - the market moves continuously
	SpotPriceTTL string `yaml:"spotPriceTTL,omitempty"`

	// SpotLookback is how far back spot price history is read.
	// Format: Go duration string
	// Default: 15m
	SpotLookback string `yaml:"spotLookback,omitempty"`

	// HTTPTimeout bounds every outbound HTTP and AWS API call.
	// Format: Go duration string
	// Default: 30s
	HTTPTimeout string `yaml:"httpTimeout,omitempty"`

	// CatalogEndpoint overrides the public price-list endpoint.
	// Intended for tests; empty means the real endpoint.
	CatalogEndpoint string `yaml:"catalogEndpoint,omitempty"`

	// AssumeRoleARN is an optional IAM role to assume for EC2 API calls.
	// Format: arn:aws:iam::ACCOUNT_ID:role/ROLE_NAME
	AssumeRoleARN string `yaml:"assumeRoleArn,omitempty"`

	// LogLevel controls the verbosity of logs.
	// Valid values: debug, info, warn, error
	// Default: info
	LogLevel string `yaml:"logLevel,omitempty"`
}

// Load loads configuration from an optional YAML file and validates it.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (BIDWELL_* prefix)
//  2. Configuration file values
//  3. Default values
//
// Environment variables override any configuration value by converting
// the field name to uppercase with a BIDWELL_ prefix. For example:
//   - BIDWELL_DEFAULT_REGION overrides defaultRegion
//   - BIDWELL_SPOT_PRICE_TTL overrides spotPriceTTL
//   - BIDWELL_LOG_LEVEL overrides logLevel
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("defaultRegion", "us-east-1")
	v.SetDefault("offer", "ec2")
	v.SetDefault("countingMode", "net-of-running")
	v.SetDefault("demandPriceTTL", "1h")
	v.SetDefault("spotPriceTTL", "10s")
	v.SetDefault("spotLookback", "15m")
	v.SetDefault("httpTimeout", "30s")
	v.SetDefault("logLevel", "info")

	// Enable environment variable overrides with BIDWELL_ prefix.
	// Manually bind each config key to its environment variable:
	// Viper's automatic mapping doesn't handle camelCase to
	// SCREAMING_SNAKE_CASE well.
	v.SetEnvPrefix("BIDWELL")
	_ = v.BindEnv("defaultRegion", "BIDWELL_DEFAULT_REGION")
	_ = v.BindEnv("offer", "BIDWELL_OFFER")
	_ = v.BindEnv("countingMode", "BIDWELL_COUNTING_MODE")
	_ = v.BindEnv("demandPriceTTL", "BIDWELL_DEMAND_PRICE_TTL")
	_ = v.BindEnv("spotPriceTTL", "BIDWELL_SPOT_PRICE_TTL")
	_ = v.BindEnv("spotLookback", "BIDWELL_SPOT_LOOKBACK")
	_ = v.BindEnv("httpTimeout", "BIDWELL_HTTP_TIMEOUT")
	_ = v.BindEnv("catalogEndpoint", "BIDWELL_CATALOG_ENDPOINT")
	_ = v.BindEnv("assumeRoleArn", "BIDWELL_ASSUME_ROLE_ARN")
	_ = v.BindEnv("logLevel", "BIDWELL_LOG_LEVEL")

	// Read the configuration file when one was given. A missing file
	// is an error only if the caller asked for it.
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if _, err := catalog.ParseOfferKind(c.Offer); err != nil {
		return err
	}

	if _, err := reservations.ParseCountingMode(c.CountingMode); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	for name, value := range map[string]string{
		"demandPriceTTL": c.DemandPriceTTL,
		"spotPriceTTL":   c.SpotPriceTTL,
		"spotLookback":   c.SpotLookback,
		"httpTimeout":    c.HTTPTimeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", name, value)
		}
	}

	if c.AssumeRoleARN != "" && !isValidIAMRoleARN(c.AssumeRoleARN) {
		return fmt.Errorf(
			"invalid AssumeRole ARN %q: must be in format arn:aws:iam::ACCOUNT_ID:role/ROLE_NAME",
			c.AssumeRoleARN,
		)
	}

	return nil
}

// isValidIAMRoleARN checks if a string is a valid IAM role ARN.
// Valid format: arn:aws:iam::123456789012:role/RoleName
// Also accepts: arn:aws-us-gov:iam::... for GovCloud
func isValidIAMRoleARN(arn string) bool {
	matched, _ := regexp.MatchString(`^arn:(aws|aws-us-gov|aws-cn):iam::\d{12}:role/[a-zA-Z0-9+=,.@\-_/]+$`, arn)
	return matched
}

// GetOffer returns the parsed offer kind.
func (c *Config) GetOffer() catalog.OfferKind {
	kind, err := catalog.ParseOfferKind(c.Offer)
	if err != nil {
		// Should never happen since Validate() checks this
		return catalog.OfferEC2
	}
	return kind
}

// GetCountingMode returns the parsed reserved-capacity counting mode.
func (c *Config) GetCountingMode() reservations.CountingMode {
	mode, err := reservations.ParseCountingMode(c.CountingMode)
	if err != nil {
		// Should never happen since Validate() checks this
		return reservations.NetOfRunning
	}
	return mode
}

// GetDemandPriceTTL returns the parsed demand-price cache window.
func (c *Config) GetDemandPriceTTL() time.Duration {
	return durationOr(c.DemandPriceTTL, time.Hour)
}

// GetSpotPriceTTL returns the parsed spot-price cache window.
func (c *Config) GetSpotPriceTTL() time.Duration {
	return durationOr(c.SpotPriceTTL, 10*time.Second)
}

// GetSpotLookback returns the parsed spot history lookback window.
func (c *Config) GetSpotLookback() time.Duration {
	return durationOr(c.SpotLookback, 15*time.Minute)
}

// GetHTTPTimeout returns the parsed outbound call timeout.
func (c *Config) GetHTTPTimeout() time.Duration {
	return durationOr(c.HTTPTimeout, 30*time.Second)
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		// Should never happen since Validate() checks this
		return fallback
	}
	return d
}
