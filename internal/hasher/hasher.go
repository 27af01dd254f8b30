// Package hasher computes locality-sensitive fingerprints for addresses,
// such that two records with both lexical and geographic proximity share at
// least one fingerprint.
package hasher

import (
	"github.com/cespare/xxhash/v2"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/postal"
)

// GeohashPrecision controls how coarsely latitude/longitude are folded into
// the fingerprint. 5 collides addresses within about 10km at the equator
// and about 1km at 80 degrees of latitude; no inhabited place sits much
// closer than 8 degrees to a pole, so this precision is a safe default
// across latitudes actually in use.
const GeohashPrecision = 5

// Hasher produces fingerprints for an address.
type Hasher struct {
	precision uint32
}

// New returns a Hasher using the default geohash precision.
func New() *Hasher {
	return &Hasher{precision: GeohashPrecision}
}

// Hash returns the set of fingerprints for addr. An empty result means the
// address could not be hashed (libpostal produced nothing usable) and
// callers should treat it as ineligible for deduplication.
func (h *Hasher) Hash(addr address.Address) []int64 {
	opts := postal.NearDupeHashOptions{
		// Only keep local keys (number/street); the geohash component
		// already filters out geographically distant addresses.
		AddressOnlyKeys:      true,
		WithName:             true,
		WithAddress:          true,
		WithCityOrEquivalent: false,
		WithPostalCode:       false,
		WithLatLon:           true,
		Latitude:             addr.Lat,
		Longitude:            addr.Lon,
		GeohashPrecision:     h.precision,
	}

	preHashes := postal.NearDupeHashes(address.PostalRepr(addr), opts)
	if len(preHashes) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(preHashes))
	hashes := make([]int64, 0, len(preHashes))
	for _, pre := range preHashes {
		fp := int64(xxhash.Sum64String(pre))
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		hashes = append(hashes, fp)
	}
	return hashes
}
