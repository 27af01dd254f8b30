package sources

import (
	"testing"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

func TestPriorityOrdering(t *testing.T) {
	if National.Priority() <= Community.Priority() {
		t.Errorf("National priority %v should exceed Community priority %v", National.Priority(), Community.Priority())
	}
	if Community.Priority() <= CrowdSourced.Priority() {
		t.Errorf("Community priority %v should exceed CrowdSourced priority %v", Community.Priority(), CrowdSourced.Priority())
	}
}

func TestFilterNationalAlwaysPasses(t *testing.T) {
	excluded := &Region{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	f := Filter(National, excluded)
	if !f(address.Address{Lat: 0, Lon: 0}) {
		t.Error("National source should never be filtered out")
	}
}

func TestFilterExcludesRegionForOtherSources(t *testing.T) {
	excluded := &Region{MinLat: 40, MaxLat: 50, MinLon: 0, MaxLon: 10}
	f := Filter(Community, excluded)

	if f(address.Address{Lat: 45, Lon: 5}) {
		t.Error("Community source should be excluded within the reserved region")
	}
	if !f(address.Address{Lat: 0, Lon: 0}) {
		t.Error("Community source should pass outside the reserved region")
	}
}

func TestFilterNilRegionAcceptsEverywhere(t *testing.T) {
	f := Filter(CrowdSourced, nil)
	if !f(address.Address{Lat: 45, Lon: 5}) {
		t.Error("nil region should accept everywhere")
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []Source{National, Community, CrowdSourced} {
		parsed, err := Parse(s.String())
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("Parse(%q) = %v, want %v", s.String(), parsed, s)
		}
	}
}

func TestParseUnknownSource(t *testing.T) {
	if _, err := Parse("bogus"); err == nil {
		t.Error("Parse(\"bogus\") should return an error")
	}
}

func TestRankRewardsCompleteness(t *testing.T) {
	rank := Rank(Community)
	sparse := rank(address.Address{})
	complete := rank(address.Address{Unit: "4B", City: "Paris", District: "8e", Region: "IDF", Postcode: "75008"})

	if complete <= sparse {
		t.Errorf("rank(complete)=%v should exceed rank(sparse)=%v", complete, sparse)
	}
}
