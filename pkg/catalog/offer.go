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

import "fmt"

// OfferKind selects the commercial product line within the pricing
// catalog. Each kind pairs the catalog offer code with a predicate that
// narrows the product table to the right commercial offer for an
// instance type.
//
// There is deliberately one parameterized client rather than one client
// type per offer: the kinds differ only in offer code and predicate.
type OfferKind struct {
	name string
	code string
	// matches reports whether a product's attributes belong to this
	// offer. Pure function over the attribute map.
	matches func(attributes map[string]string) bool
}

// Name returns the short configuration name of the offer kind
// (e.g., "ec2").
func (k OfferKind) Name() string { return k.name }

// Code returns the catalog offer code (e.g., "AmazonEC2").
func (k OfferKind) Code() string { return k.code }

func (k OfferKind) String() string { return k.code }

var (
	// OfferEC2 is generic compute: Linux on shared tenancy.
	OfferEC2 = OfferKind{
		name: "ec2",
		code: "AmazonEC2",
		matches: func(attributes map[string]string) bool {
			return attributes["operatingSystem"] == "Linux" &&
				attributes["tenancy"] == "Shared"
		},
	}

	// OfferEMR is the managed-analytics bundle (EMR software on the
	// instance).
	OfferEMR = OfferKind{
		name: "emr",
		code: "ElasticMapReduce",
		matches: func(attributes map[string]string) bool {
			return attributes["softwareType"] == "EMR"
		},
	}
)

// ParseOfferKind maps a configuration value to an OfferKind.
// Accepted values: "ec2", "emr".
func ParseOfferKind(name string) (OfferKind, error) {
	switch name {
	case OfferEC2.name:
		return OfferEC2, nil
	case OfferEMR.name:
		return OfferEMR, nil
	default:
		return OfferKind{}, fmt.Errorf("unknown offer kind %q, must be one of: ec2, emr", name)
	}
}
