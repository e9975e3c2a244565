package types

import "testing"

func TestAddressRoundTrip(t *testing.T) {
	line2 := "Apt 4"
	in := Address{
		Line1:      "12 Market St",
		Line2:      &line2,
		City:       "Oakland",
		State:      "CA",
		PostalCode: "94607",
		Country:    "US",
	}

	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value() returned error: %v", err)
	}

	var out Address
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if out.Line1 != in.Line1 || out.City != in.City || out.PostalCode != in.PostalCode {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Line2 == nil || *out.Line2 != line2 {
		t.Fatalf("line2 lost in round trip: %+v", out)
	}
}

func TestAddressValueRejectsMissingFields(t *testing.T) {
	in := Address{City: "Oakland", PostalCode: "94607"}
	if _, err := in.Value(); err == nil {
		t.Fatal("expected error for missing line1")
	}
}

func TestAddressScanDefaultsCountry(t *testing.T) {
	var out Address
	if err := out.Scan([]byte(`{"line1":"1 Main","city":"Reno","state":"NV","postal_code":"89501"}`)); err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if out.Country != "US" {
		t.Fatalf("expected country default US, got %q", out.Country)
	}
}
