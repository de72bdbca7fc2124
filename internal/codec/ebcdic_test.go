package codec

import "testing"

func TestLookupKnownCCSIDs(t *testing.T) {
	if Lookup(CCSID037) == nil {
		t.Fatal("CCSID037 not registered")
	}
	if Lookup(CCSID1140) == nil {
		t.Fatal("CCSID1140 not registered")
	}
	if Lookup(CCSID(9999)) != nil {
		t.Fatal("expected nil for unsupported CCSID")
	}
}

func TestRoundTripASCIIRange037(t *testing.T) {
	tbl := Lookup(CCSID037)
	want := "HELLO WORLD 123"
	enc := tbl.EncodeString(want)
	got := tbl.DecodeString(enc)
	if got != want {
		t.Errorf("round trip = %q, want %q", got, want)
	}
}

func TestSpaceByteIs0x40(t *testing.T) {
	tbl := Lookup(CCSID037)
	enc := tbl.EncodeString(" ")
	if len(enc) != 1 || enc[0] != 0x40 {
		t.Errorf("encode(' ') = %#v, want [0x40]", enc)
	}
}

func TestDigitBytes(t *testing.T) {
	tbl := Lookup(CCSID037)
	tests := []struct {
		digit rune
		want  byte
	}{
		{'0', 0xF0}, {'1', 0xF1}, {'9', 0xF9},
	}
	for _, tt := range tests {
		enc := tbl.Encode([]rune{tt.digit})
		if enc[0] != tt.want {
			t.Errorf("encode(%q) = %#x, want %#x", tt.digit, enc[0], tt.want)
		}
	}
}

func TestUnencodableRuneUsesSubstitute(t *testing.T) {
	tbl := Lookup(CCSID037)
	enc := tbl.Encode([]rune{0x4E00}) // CJK ideograph, not in CP037
	if enc[0] != 0x6F {
		t.Errorf("encode(unmappable) = %#x, want default substitute 0x6F", enc[0])
	}
	dec := tbl.Decode(enc)
	if dec[0] != '?' {
		t.Errorf("decode(substitute) = %q, want '?'", dec[0])
	}
}

func TestCP1140EuroSubstitution(t *testing.T) {
	cp037 := Lookup(CCSID037)
	cp1140 := Lookup(CCSID1140)
	if cp037.toUnicode[0x9F] == cp1140.toUnicode[0x9F] {
		t.Error("CP1140 should differ from CP037 at byte 0x9F (euro sign)")
	}
	if cp1140.toUnicode[0x9F] != 0x20AC {
		t.Errorf("CP1140 byte 0x9F = %#x, want euro sign U+20AC", cp1140.toUnicode[0x9F])
	}
}

func TestWithSubstituteOverride(t *testing.T) {
	tbl := Lookup(CCSID037).WithSubstitute(0x7F)
	enc := tbl.Encode([]rune{0x4E00})
	if enc[0] != 0x7F {
		t.Errorf("custom substitute not applied: got %#x, want 0x7F", enc[0])
	}
}

func TestDecodeAllBytesProducesNoPanicAndCorrectLength(t *testing.T) {
	tbl := Lookup(CCSID037)
	var all []byte
	for i := 0; i < 256; i++ {
		all = append(all, byte(i))
	}
	runes := tbl.Decode(all)
	if len(runes) != 256 {
		t.Errorf("Decode(256 bytes) produced %d runes, want 256", len(runes))
	}
}
