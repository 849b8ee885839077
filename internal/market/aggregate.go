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

package market

import (
	"errors"
	"sort"

	"github.com/nextdoor/bidwell/pkg/aws"
)

// errNoObservations is the internal sentinel for an empty reduction.
// Callers wrap it into a NoSpotPriceError carrying the request context.
var errNoObservations = errors.New("no current observation in any zone")

// Reduce collapses raw spot observations to the single lowest current
// price across the given zones.
//
// Per zone, the current observation is the one with the latest
// timestamp; timestamp ties are broken by input order (stable sort, the
// later input wins).
// Across zones, the minimum price wins, and a price tie keeps the
// first-encountered zone in the given zone order. That tie-break is
// deterministic but carries no meaning beyond determinism.
func Reduce(observations []aws.SpotObservation, zones []string) (ZonePrice, error) {
	var current []ZonePrice
	for _, zone := range zones {
		obs, ok := latestForZone(observations, zone)
		if !ok {
			// A zone with no observations contributes no candidate.
			continue
		}
		current = append(current, ZonePrice{
			Zone:      zone,
			Price:     obs.Price,
			Timestamp: obs.Timestamp,
		})
	}

	if len(current) == 0 {
		return ZonePrice{}, errNoObservations
	}

	lowest := current[0]
	for _, zp := range current[1:] {
		if zp.Price.LessThan(lowest.Price) {
			lowest = zp
		}
	}
	return lowest, nil
}

// latestForZone returns the zone's observation with the maximum
// timestamp, or ok=false when the zone has none.
func latestForZone(observations []aws.SpotObservation, zone string) (aws.SpotObservation, bool) {
	var zoneObs []aws.SpotObservation
	for _, obs := range observations {
		if obs.AvailabilityZone == zone {
			zoneObs = append(zoneObs, obs)
		}
	}
	if len(zoneObs) == 0 {
		return aws.SpotObservation{}, false
	}

	sort.SliceStable(zoneObs, func(i, j int) bool {
		return zoneObs[i].Timestamp.Before(zoneObs[j].Timestamp)
	})
	return zoneObs[len(zoneObs)-1], true
}
