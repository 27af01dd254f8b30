// Package address defines the canonical record shared by every stage of the
// deduplication pipeline.
package address

// NBFields is the number of optional descriptive fields considered when
// scoring how complete an address record is (unit, city, district, region,
// postcode).
const NBFields = 5

// Address is a single address record as it flows through the engine. Lat and
// Lon are required; the remaining fields use the empty string to mean
// "absent", matching the convention used at the CSV and SQL boundaries.
type Address struct {
	Lat, Lon float64

	Number   string
	Street   string
	Unit     string
	City     string
	District string
	Region   string
	Postcode string
}

// sentinelHouseNumber marks a house number that is known to be missing
// rather than genuinely absent (a convention inherited from upstream open
// data feeds).
const sentinelHouseNumber = "S/N"

// Eligible reports whether addr carries enough information to be hashed and
// compared. Records failing this check are dropped silently by the
// insertion pipeline.
func Eligible(addr Address) bool {
	if addr.Number == "" || addr.Number == sentinelHouseNumber {
		return false
	}
	return addr.Street != ""
}

// CountNonEmptyFields counts how many of the optional descriptive fields are
// populated. It is the building block of the default ranking function.
func CountNonEmptyFields(addr Address) int {
	count := 0
	for _, f := range []string{addr.Unit, addr.City, addr.District, addr.Region, addr.Postcode} {
		if f != "" {
			count++
		}
	}
	return count
}

// PostalLabel pairs a libpostal component label with its value, used to
// build the representation libpostal expects for hashing and comparison.
type PostalLabel struct {
	Label string
	Value string
}

// PostalRepr returns addr's non-empty fields as libpostal (label, value)
// pairs, in the component order libpostal documents.
func PostalRepr(addr Address) []PostalLabel {
	fields := []struct {
		label string
		value string
	}{
		{"house_number", addr.Number},
		{"road", addr.Street},
		{"unit", addr.Unit},
		{"city", addr.City},
		{"state_district", addr.District},
		{"country_region", addr.Region},
		{"postcode", addr.Postcode},
	}

	repr := make([]PostalLabel, 0, len(fields))
	for _, f := range fields {
		if f.value != "" {
			repr = append(repr, PostalLabel{Label: f.label, Value: f.value})
		}
	}
	return repr
}
