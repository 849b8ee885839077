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

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ec2VersionURL = "/offers/v1.0/aws/AmazonEC2/20250601/us-east-1/index.json"

// catalogServer serves a fake two-document catalog: the EC2 region
// index for us-east-1 and a versioned price list.
func catalogServer(t *testing.T, priceDocument string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/offers/v1.0/aws/AmazonEC2/current/region_index.json",
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"regions": {
					"us-east-1": {"currentVersionUrl": "` + ec2VersionURL + `"}
				}
			}`))
		})
	mux.HandleFunc(ec2VersionURL, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(priceDocument))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

const linuxSharedDocument = `{
	"products": {
		"SKU1": {
			"sku": "SKU1",
			"attributes": {
				"instanceType": "r3.2xlarge",
				"operatingSystem": "Linux",
				"tenancy": "Shared"
			}
		},
		"SKU2": {
			"sku": "SKU2",
			"attributes": {
				"instanceType": "r3.2xlarge",
				"operatingSystem": "Windows",
				"tenancy": "Shared"
			}
		},
		"SKU3": {
			"sku": "SKU3",
			"attributes": {
				"instanceType": "r3.2xlarge",
				"operatingSystem": "Linux",
				"tenancy": "Dedicated"
			}
		}
	},
	"terms": {
		"OnDemand": {
			"SKU1": {
				"SKU1.RATE": {
					"priceDimensions": {
						"SKU1.RATE.DIM": {"pricePerUnit": {"USD": "0.6650000000"}}
					}
				}
			}
		}
	}
}`

// TestFetchOnDemandPrice verifies the two-read resolution path and the
// product filter.
func TestFetchOnDemandPrice(t *testing.T) {
	server := catalogServer(t, linuxSharedDocument)
	client := NewClient(WithEndpoint(server.URL))

	price, err := client.FetchOnDemandPrice(context.Background(), "us-east-1", "r3.2xlarge", OfferEC2)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.665")), "got %s", price)
}

// TestFetchOnDemandPriceRegionNotInIndex verifies the typed error for a
// region absent from the index.
func TestFetchOnDemandPriceRegionNotInIndex(t *testing.T) {
	server := catalogServer(t, linuxSharedDocument)
	client := NewClient(WithEndpoint(server.URL))

	_, err := client.FetchOnDemandPrice(context.Background(), "mars-north-1", "r3.2xlarge", OfferEC2)

	var notFound *RegionPriceListNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "mars-north-1", notFound.Region)
	assert.Equal(t, `could not find AmazonEC2 price list for region "mars-north-1"`, err.Error())
}

// TestFetchOnDemandPriceInstanceTypeUnavailable verifies the typed
// error when no product passes the filter.
func TestFetchOnDemandPriceInstanceTypeUnavailable(t *testing.T) {
	server := catalogServer(t, linuxSharedDocument)
	client := NewClient(WithEndpoint(server.URL))

	_, err := client.FetchOnDemandPrice(context.Background(), "us-east-1", "x1e.32xlarge", OfferEC2)

	var unavailable *InstanceTypeUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "x1e.32xlarge", unavailable.InstanceType)
	assert.Equal(t, "instance type x1e.32xlarge is not available for use in AmazonEC2", err.Error())
}

// TestFetchOnDemandPriceMultipleMatches verifies the deterministic
// first-SKU selection when several products pass the filter.
func TestFetchOnDemandPriceMultipleMatches(t *testing.T) {
	document := `{
		"products": {
			"SKUB": {
				"sku": "SKUB",
				"attributes": {
					"instanceType": "r3.2xlarge",
					"operatingSystem": "Linux",
					"tenancy": "Shared"
				}
			},
			"SKUA": {
				"sku": "SKUA",
				"attributes": {
					"instanceType": "r3.2xlarge",
					"operatingSystem": "Linux",
					"tenancy": "Shared"
				}
			}
		},
		"terms": {
			"OnDemand": {
				"SKUA": {
					"SKUA.RATE": {
						"priceDimensions": {
							"SKUA.RATE.DIM": {"pricePerUnit": {"USD": "0.100"}}
						}
					}
				},
				"SKUB": {
					"SKUB.RATE": {
						"priceDimensions": {
							"SKUB.RATE.DIM": {"pricePerUnit": {"USD": "0.200"}}
						}
					}
				}
			}
		}
	}`
	server := catalogServer(t, document)
	client := NewClient(WithEndpoint(server.URL))

	// SKUA sorts first, so its price wins regardless of map order.
	price, err := client.FetchOnDemandPrice(context.Background(), "us-east-1", "r3.2xlarge", OfferEC2)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.1")), "got %s", price)
}

// TestFetchOnDemandPriceMalformedDocument verifies parse failures
// surface as typed errors instead of zero prices.
func TestFetchOnDemandPriceMalformedDocument(t *testing.T) {
	tests := []struct {
		name     string
		document string
		reason   string
	}{
		{
			name: "no OnDemand term",
			document: `{
				"products": {
					"SKU1": {
						"sku": "SKU1",
						"attributes": {
							"instanceType": "r3.2xlarge",
							"operatingSystem": "Linux",
							"tenancy": "Shared"
						}
					}
				},
				"terms": {"OnDemand": {}}
			}`,
			reason: "no OnDemand term",
		},
		{
			name: "no USD price",
			document: `{
				"products": {
					"SKU1": {
						"sku": "SKU1",
						"attributes": {
							"instanceType": "r3.2xlarge",
							"operatingSystem": "Linux",
							"tenancy": "Shared"
						}
					}
				},
				"terms": {
					"OnDemand": {
						"SKU1": {
							"SKU1.RATE": {
								"priceDimensions": {
									"SKU1.RATE.DIM": {"pricePerUnit": {"CNY": "4.2"}}
								}
							}
						}
					}
				}
			}`,
			reason: "no USD unit price",
		},
		{
			name: "unparseable price",
			document: `{
				"products": {
					"SKU1": {
						"sku": "SKU1",
						"attributes": {
							"instanceType": "r3.2xlarge",
							"operatingSystem": "Linux",
							"tenancy": "Shared"
						}
					}
				},
				"terms": {
					"OnDemand": {
						"SKU1": {
							"SKU1.RATE": {
								"priceDimensions": {
									"SKU1.RATE.DIM": {"pricePerUnit": {"USD": "not-a-number"}}
								}
							}
						}
					}
				}
			}`,
			reason: "unparseable USD price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := catalogServer(t, tt.document)
			client := NewClient(WithEndpoint(server.URL))

			_, err := client.FetchOnDemandPrice(context.Background(), "us-east-1", "r3.2xlarge", OfferEC2)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "SKU1", parseErr.SKU)
			assert.Contains(t, parseErr.Reason, tt.reason)
		})
	}
}

// TestFetchOnDemandPriceHTTPFailure verifies non-200 responses fail the
// resolution.
func TestFetchOnDemandPriceHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(WithEndpoint(server.URL))
	_, err := client.FetchOnDemandPrice(context.Background(), "us-east-1", "r3.2xlarge", OfferEC2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch region index")
}
