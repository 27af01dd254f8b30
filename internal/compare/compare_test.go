package compare

import (
	"math"
	"testing"

	"github.com/ehdc-llpg/deduplicator/internal/address"
	"github.com/ehdc-llpg/deduplicator/internal/postal"
)

func TestFieldDuplicateRawEquality(t *testing.T) {
	status := fieldDuplicate("rue de Paris", "rue de Paris", func(string, string) postal.DuplicateStatus {
		t.Fatal("compare should not be called on raw equality")
		return postal.NonDuplicate
	})
	if status != postal.ExactDuplicate {
		t.Errorf("fieldDuplicate(equal) = %v, want Exact", status)
	}
}

func TestFieldDuplicateEitherAbsent(t *testing.T) {
	called := false
	status := fieldDuplicate("", "42", func(string, string) postal.DuplicateStatus {
		called = true
		return postal.NonDuplicate
	})
	if called {
		t.Fatal("compare should not be called when a field is absent")
	}
	if status != postal.NonDuplicate {
		t.Errorf("fieldDuplicate(absent) = %v, want NonDuplicate", status)
	}
}

func TestOptFieldDuplicateBothAbsent(t *testing.T) {
	status := optFieldDuplicate("", "", func(string, string) postal.DuplicateStatus {
		t.Fatal("compare should not be called when both fields are absent")
		return postal.NonDuplicate
	})
	if status != postal.ExactDuplicate {
		t.Errorf("optFieldDuplicate(absent, absent) = %v, want Exact", status)
	}
}

func TestOptFieldDuplicateOneAbsent(t *testing.T) {
	status := optFieldDuplicate("42", "", func(string, string) postal.DuplicateStatus {
		t.Fatal("compare should not be called when one field is absent")
		return postal.NonDuplicate
	})
	if status != postal.NonDuplicate {
		t.Errorf("optFieldDuplicate(one absent) = %v, want NonDuplicate", status)
	}
}

func TestDistanceMetersSamePoint(t *testing.T) {
	a := address.Address{Lat: 48.8707572, Lon: 2.3047277}
	b := a
	if d := distanceMeters(a, b); math.Abs(d) > 1e-6 {
		t.Errorf("distanceMeters(same point) = %v, want ~0", d)
	}
}

func TestDistanceMetersKnownSeparation(t *testing.T) {
	a := address.Address{Lat: 48.8707572, Lon: 2.3047277}
	b := address.Address{Lat: 48.8656, Lon: 2.3212}
	d := distanceMeters(a, b)
	if d < 500 || d > 2500 {
		t.Errorf("distanceMeters = %v, want a plausible ~1-2km separation", d)
	}
}
