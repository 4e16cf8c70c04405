package id

import "testing"

func TestNameValidation(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"my.topic-1 v2", true},
		{"bad/name", false},
		{"", false},
		{"plain_name", true},
	}
	for _, c := range cases {
		if got := IsValidName(c.name); got != c.want {
			t.Errorf("IsValidName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIdentifierRoundTrip(t *testing.T) {
	num := Numeric(42)
	b := num.AsBytes()
	got, n, err := FromBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(b) || got != num {
		t.Fatalf("round trip mismatch: got %+v consumed %d", got, n)
	}

	named, err := Named("orders.v1")
	if err != nil {
		t.Fatal(err)
	}
	b = named.AsBytes()
	got, n, err = FromBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(b) || got != named {
		t.Fatalf("round trip mismatch: got %+v consumed %d", got, n)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  My   Topic  "); got != "my.topic" {
		t.Fatalf("Normalize = %q", got)
	}
}
