// Package compare implements the duplicate predicate used by the collision
// resolver: given two address records that already share a fingerprint, it
// decides whether they describe the same real-world address.
package compare

import (
	"github.com/golang/geo/s2"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/postal"
)

// earthRadiusMeters is the mean Earth radius used to turn s2's angular
// distance into meters.
const earthRadiusMeters = 6371008.8

// thresholds for the three duplicate tiers, in meters.
const (
	veryCloseMeters = 10
	closeMeters     = 100
	exactMeters     = 1000
)

// Comparator decides whether two addresses are duplicates.
type Comparator struct{}

// New returns a Comparator.
func New() *Comparator {
	return &Comparator{}
}

// IsDuplicate reports whether a and b describe the same address, per the
// tiered distance/field criteria: addresses within 10m need only an exact
// house number and a plausible street match; within 100m they need an
// exact house number and a likely street match; within 1000m every field
// (house number, street, city, postcode) must match exactly.
func (c *Comparator) IsDuplicate(a, b address.Address) bool {
	dist := distanceMeters(a, b)

	houseNumber := lazyStatus(func() postal.DuplicateStatus {
		return optFieldDuplicate(a.Number, b.Number, postal.IsHouseNumberDuplicate)
	})
	street := lazyStatus(func() postal.DuplicateStatus {
		return fieldDuplicate(a.Street, b.Street, postal.IsStreetDuplicate)
	})
	name := lazyStatus(func() postal.DuplicateStatus {
		return fieldDuplicate(a.City, b.City, postal.IsNameDuplicate)
	})
	postcode := lazyStatus(func() postal.DuplicateStatus {
		return fieldDuplicate(a.Postcode, b.Postcode, postal.IsPostalCodeDuplicate)
	})

	veryClose := dist < veryCloseMeters &&
		houseNumber() >= postal.ExactDuplicate &&
		street() >= postal.PossibleDuplicate

	closeDuplicate := dist < closeMeters &&
		houseNumber() >= postal.ExactDuplicate &&
		street() >= postal.LikelyDuplicate

	exact := dist < exactMeters &&
		houseNumber() == postal.ExactDuplicate &&
		name() == postal.ExactDuplicate &&
		postcode() == postal.ExactDuplicate &&
		street() == postal.ExactDuplicate

	return veryClose || closeDuplicate || exact
}

func distanceMeters(a, b address.Address) float64 {
	pa := s2.LatLngFromDegrees(a.Lat, a.Lon)
	pb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return float64(pa.Distance(pb)) * earthRadiusMeters
}

// lazyStatus memoizes a DuplicateStatus computation so the (potentially
// expensive, cgo-crossing) comparison only runs once per field even though
// IsDuplicate may reference it from multiple tiers.
func lazyStatus(compute func() postal.DuplicateStatus) func() postal.DuplicateStatus {
	var (
		done bool
		val  postal.DuplicateStatus
	)
	return func() postal.DuplicateStatus {
		if !done {
			val = compute()
			done = true
		}
		return val
	}
}

// fieldDuplicate requires both fields present; raw equality short-circuits
// to ExactDuplicate before calling into libpostal.
func fieldDuplicate(x, y string, compare func(string, string) postal.DuplicateStatus) postal.DuplicateStatus {
	if x == "" || y == "" {
		return postal.NonDuplicate
	}
	if x == y {
		return postal.ExactDuplicate
	}
	return compare(x, y)
}

// optFieldDuplicate treats both-absent as an exact match, matching the
// house-number comparison's semantics (a missing house number on both
// sides is not itself evidence against a duplicate).
func optFieldDuplicate(x, y string, compare func(string, string) postal.DuplicateStatus) postal.DuplicateStatus {
	if x == "" && y == "" {
		return postal.ExactDuplicate
	}
	if x == "" || y == "" {
		return postal.NonDuplicate
	}
	if x == y {
		return postal.ExactDuplicate
	}
	return compare(x, y)
}
