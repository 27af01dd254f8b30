package hasher

import "testing"

func TestNewDefaultsToDocumentedPrecision(t *testing.T) {
	h := New()
	if h.precision != GeohashPrecision {
		t.Errorf("New() precision = %d, want %d", h.precision, GeohashPrecision)
	}
}
