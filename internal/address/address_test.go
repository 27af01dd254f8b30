package address

import "testing"

func TestEligible(t *testing.T) {
	cases := []struct {
		name string
		addr Address
		want bool
	}{
		{"complete", Address{Number: "32", Street: "Champs Elysees"}, true},
		{"missing number", Address{Street: "Champs Elysees"}, false},
		{"sentinel number", Address{Number: "S/N", Street: "Champs Elysees"}, false},
		{"missing street", Address{Number: "32"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Eligible(tc.addr); got != tc.want {
				t.Errorf("Eligible(%+v) = %v, want %v", tc.addr, got, tc.want)
			}
		})
	}
}

func TestCountNonEmptyFields(t *testing.T) {
	addr := Address{Unit: "4B", City: "Paris", Postcode: "75008"}
	if got := CountNonEmptyFields(addr); got != 3 {
		t.Errorf("CountNonEmptyFields = %d, want 3", got)
	}

	if got := CountNonEmptyFields(Address{}); got != 0 {
		t.Errorf("CountNonEmptyFields(empty) = %d, want 0", got)
	}
}

func TestPostalRepr(t *testing.T) {
	addr := Address{Number: "54", Street: "rue des Koubis", City: "Paris"}
	repr := PostalRepr(addr)

	want := map[string]string{
		"house_number": "54",
		"road":         "rue des Koubis",
		"city":         "Paris",
	}

	if len(repr) != len(want) {
		t.Fatalf("PostalRepr returned %d entries, want %d", len(repr), len(want))
	}
	for _, got := range repr {
		if want[got.Label] != got.Value {
			t.Errorf("PostalRepr entry %+v does not match expected %q", got, want[got.Label])
		}
	}
}

func TestPostalReprEmpty(t *testing.T) {
	if repr := PostalRepr(Address{}); len(repr) != 0 {
		t.Errorf("PostalRepr(empty) = %v, want empty", repr)
	}
}
