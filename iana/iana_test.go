package iana

import "testing"

func TestLookupKnownElement(t *testing.T) {
	el, ok := Lookup(8)
	if !ok {
		t.Fatal("expected sourceIPv4Address to be registered")
	}
	if el.Name != "sourceIPv4Address" || el.Type != Ipv4Address {
		t.Fatalf("got %+v", el)
	}
}

func TestLookupUnknownElement(t *testing.T) {
	if _, ok := Lookup(65000); ok {
		t.Fatal("expected unregistered id to be absent")
	}
}

func TestFixedLengthTable(t *testing.T) {
	cases := []struct {
		typ  AbstractDataType
		want int
	}{
		{Unsigned8, 1},
		{Unsigned16, 2},
		{Unsigned32, 4},
		{Unsigned64, 8},
		{MacAddress, 6},
		{Ipv4Address, 4},
		{Ipv6Address, 16},
		{OctetArray, 0},
	}
	for _, c := range cases {
		got, ok := FixedLength(c.typ)
		if !ok {
			t.Fatalf("%s: expected a known type", c.typ)
		}
		if got != c.want {
			t.Fatalf("%s: got length %d, want %d", c.typ, got, c.want)
		}
	}
}
