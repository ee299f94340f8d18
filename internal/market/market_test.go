package market

import "testing"

func TestFromCode(t *testing.T) {
	cases := []struct {
		code string
		want Market
		ok   bool
	}{
		{"com", AmazonCom, true},
		{"CO.UK", AmazonCoUk, true},
		{" de ", AmazonDe, true},
		{"com.au", AmazonComAu, true},
		{"jp", AmazonCom, false},
		{"", AmazonCom, false},
	}

	for _, tc := range cases {
		got, ok := FromCode(tc.code)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("FromCode(%q) = %v, %v; want %v, %v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSizeMultiplierBounds(t *testing.T) {
	for _, m := range All() {
		mult := m.SizeMultiplier()
		if mult < 0.2 || mult > 1.0 {
			t.Fatalf("%s multiplier %v outside [0.2, 1.0]", m, mult)
		}
	}
	if AmazonCom.SizeMultiplier() != 1.0 {
		t.Fatalf("US marketplace must be the baseline, got %v", AmazonCom.SizeMultiplier())
	}
}

func TestFormatProfiles(t *testing.T) {
	if !Kindle.Digital() || !AudioBook.Digital() {
		t.Fatalf("expected Kindle and Audiobook to be digital")
	}
	if Paperback.Digital() || Hardcover.Digital() {
		t.Fatalf("expected print formats to be physical")
	}
}

func TestFormatFromString(t *testing.T) {
	if f, ok := FormatFromString("Audiobook"); !ok || f != AudioBook {
		t.Fatalf("FormatFromString(Audiobook) = %v, %v", f, ok)
	}
	if f, ok := FormatFromString("vinyl"); ok || f != Kindle {
		t.Fatalf("unknown format should default to Kindle, got %v, %v", f, ok)
	}
}
