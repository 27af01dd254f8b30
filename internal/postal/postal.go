// Package postal wraps the libpostal C library's near-duplicate hashing and
// duplicate-status comparison primitives. These are not exposed by
// github.com/openvenues/gopostal (which only covers parsing), so they are
// bound here directly against the same C library.
package postal

/*
#cgo pkg-config: libpostal
#include <libpostal/libpostal.h>
#include <stdlib.h>
*/
import "C"

import (
	"log"
	"sync"
	"unsafe"

	"github.com/ehdc-llpg/deduplicator/internal/address"
)

var mu sync.Mutex

var setupOnce sync.Once

func ensureSetup() {
	setupOnce.Do(func() {
		if !bool(C.libpostal_setup()) || !bool(C.libpostal_setup_language_classifier()) {
			log.Fatal("postal: failed to load libpostal")
		}
	})
}

// DuplicateStatus mirrors libpostal's libpostal_duplicate_status_t. The
// numeric values are ordered, so callers can compare statuses with the
// usual relational operators.
type DuplicateStatus int

const (
	NullDuplicate     DuplicateStatus = -1
	NonDuplicate      DuplicateStatus = 0
	PossibleDuplicate DuplicateStatus = 3
	LikelyDuplicate   DuplicateStatus = 6
	ExactDuplicate    DuplicateStatus = 9
)

func fromC(raw C.libpostal_duplicate_status_t) DuplicateStatus {
	switch raw {
	case C.LIBPOSTAL_NULL_DUPLICATE_STATUS:
		return NullDuplicate
	case C.LIBPOSTAL_NON_DUPLICATE:
		return NonDuplicate
	case C.LIBPOSTAL_POSSIBLE_DUPLICATE_NEEDS_REVIEW:
		return PossibleDuplicate
	case C.LIBPOSTAL_LIKELY_DUPLICATE:
		return LikelyDuplicate
	case C.LIBPOSTAL_EXACT_DUPLICATE:
		return ExactDuplicate
	default:
		return NullDuplicate
	}
}

func defaultDuplicateOptions() C.libpostal_duplicate_options_t {
	return C.libpostal_duplicate_options_t{
		num_languages: 0,
		languages:     nil,
	}
}

// IsHouseNumberDuplicate compares two house number fields.
func IsHouseNumberDuplicate(a, b string) DuplicateStatus {
	ensureSetup()
	mu.Lock()
	defer mu.Unlock()

	ca, cb := C.CString(a), C.CString(b)
	defer C.free(unsafe.Pointer(ca))
	defer C.free(unsafe.Pointer(cb))

	return fromC(C.libpostal_is_house_number_duplicate(ca, cb, defaultDuplicateOptions()))
}

// IsStreetDuplicate compares two street name fields.
func IsStreetDuplicate(a, b string) DuplicateStatus {
	ensureSetup()
	mu.Lock()
	defer mu.Unlock()

	ca, cb := C.CString(a), C.CString(b)
	defer C.free(unsafe.Pointer(ca))
	defer C.free(unsafe.Pointer(cb))

	return fromC(C.libpostal_is_street_duplicate(ca, cb, defaultDuplicateOptions()))
}

// IsNameDuplicate compares two name-like fields (used here for the city
// field, as the original duplicate criteria does).
func IsNameDuplicate(a, b string) DuplicateStatus {
	ensureSetup()
	mu.Lock()
	defer mu.Unlock()

	ca, cb := C.CString(a), C.CString(b)
	defer C.free(unsafe.Pointer(ca))
	defer C.free(unsafe.Pointer(cb))

	return fromC(C.libpostal_is_name_duplicate(ca, cb, defaultDuplicateOptions()))
}

// IsPostalCodeDuplicate compares two postal code fields.
func IsPostalCodeDuplicate(a, b string) DuplicateStatus {
	ensureSetup()
	mu.Lock()
	defer mu.Unlock()

	ca, cb := C.CString(a), C.CString(b)
	defer C.free(unsafe.Pointer(ca))
	defer C.free(unsafe.Pointer(cb))

	return fromC(C.libpostal_is_postal_code_duplicate(ca, cb, defaultDuplicateOptions()))
}

// NearDupeHashOptions mirrors libpostal_near_dupe_hash_options_t, exposing
// only the fields the hasher needs to set explicitly.
type NearDupeHashOptions struct {
	WithName             bool
	WithAddress          bool
	WithCityOrEquivalent bool
	WithPostalCode       bool
	WithLatLon           bool
	Latitude             float64
	Longitude            float64
	GeohashPrecision     uint32
	AddressOnlyKeys      bool
}

// NearDupeHashes runs repr through libpostal's near-dupe hashing, returning
// the raw hash strings it produces (before any stable re-hashing).
func NearDupeHashes(repr []address.PostalLabel, opts NearDupeHashOptions) []string {
	ensureSetup()
	mu.Lock()
	defer mu.Unlock()

	n := len(repr)
	if n == 0 {
		return nil
	}

	cLabels := make([]*C.char, n)
	cValues := make([]*C.char, n)
	for i, f := range repr {
		cLabels[i] = C.CString(f.Label)
		cValues[i] = C.CString(f.Value)
	}
	defer func() {
		for i := range repr {
			C.free(unsafe.Pointer(cLabels[i]))
			C.free(unsafe.Pointer(cValues[i]))
		}
	}()

	cOpts := C.libpostal_get_near_dupe_hash_default_options()
	cOpts.with_name = C.bool(opts.WithName)
	cOpts.with_address = C.bool(opts.WithAddress)
	cOpts.with_city_or_equivalent = C.bool(opts.WithCityOrEquivalent)
	cOpts.with_postal_code = C.bool(opts.WithPostalCode)
	cOpts.with_latlon = C.bool(opts.WithLatLon)
	cOpts.latitude = C.double(opts.Latitude)
	cOpts.longitude = C.double(opts.Longitude)
	cOpts.geohash_precision = C.uint32_t(opts.GeohashPrecision)
	cOpts.address_only_keys = C.bool(opts.AddressOnlyKeys)

	var numHashes C.size_t
	cHashes := C.libpostal_near_dupe_hashes(
		C.size_t(n),
		(**C.char)(unsafe.Pointer(&cLabels[0])),
		(**C.char)(unsafe.Pointer(&cValues[0])),
		cOpts,
		&numHashes,
	)
	if cHashes == nil {
		return nil
	}
	defer C.libpostal_expansion_array_destroy(cHashes, numHashes)

	return cStringArrayToSlice(cHashes, numHashes)
}

func cStringArrayToSlice(arr **C.char, size C.size_t) []string {
	out := make([]string, int(size))
	ptr := (*[1 << 30]*C.char)(unsafe.Pointer(arr))
	for i := 0; i < int(size); i++ {
		out[i] = C.GoString(ptr[i])
	}
	return out
}

// Teardown releases libpostal's global state. It is safe to call at process
// exit; it is not required between runs.
func Teardown() {
	mu.Lock()
	defer mu.Unlock()
	C.libpostal_teardown()
	C.libpostal_teardown_language_classifier()
}
