// Package codec provides bidirectional EBCDIC<->Unicode translation for
// the 5250 data stream. Tables are 256-entry arrays indexed by EBCDIC
// byte value, the same shape as the teacher's CP437ToUnicodeTable, just
// built from IBM code page 037/1140 instead of DOS code page 437.
package codec

// CCSID identifies a supported coded character set.
type CCSID int

const (
	CCSID037  CCSID = 37
	CCSID1140 CCSID = 1140
)

// cp037ToUnicode is IBM code page 037 (US/Canada EBCDIC), the default
// CCSID used when the host does not negotiate a different one.
var cp037ToUnicode = [256]rune{
	0x0000, 0x0001, 0x0002, 0x0003, 0x009C, 0x0009, 0x0086, 0x007F,
	0x0097, 0x008D, 0x008E, 0x000B, 0x000C, 0x000D, 0x000E, 0x000F,
	0x0010, 0x0011, 0x0012, 0x0013, 0x009D, 0x0085, 0x0008, 0x0087,
	0x0018, 0x0019, 0x0092, 0x008F, 0x001C, 0x001D, 0x001E, 0x001F,
	0x0080, 0x0081, 0x0082, 0x0083, 0x0084, 0x000A, 0x0017, 0x001B,
	0x0088, 0x0089, 0x008A, 0x008B, 0x008C, 0x0005, 0x0006, 0x0007,
	0x0090, 0x0091, 0x0016, 0x0093, 0x0094, 0x0095, 0x0096, 0x0004,
	0x0098, 0x0099, 0x009A, 0x009B, 0x0014, 0x0015, 0x009E, 0x001A,
	0x0020, 0x00A0, 0x00E2, 0x00E4, 0x00E0, 0x00E1, 0x00E3, 0x00E5,
	0x00E7, 0x00F1, 0x00A2, 0x002E, 0x003C, 0x0028, 0x002B, 0x007C,
	0x0026, 0x00E9, 0x00EA, 0x00EB, 0x00E8, 0x00ED, 0x00EE, 0x00EF,
	0x00EC, 0x00DF, 0x0021, 0x0024, 0x002A, 0x0029, 0x003B, 0x00AC,
	0x002D, 0x002F, 0x00C2, 0x00C4, 0x00C0, 0x00C1, 0x00C3, 0x00C5,
	0x00C7, 0x00D1, 0x00A6, 0x002C, 0x0025, 0x005F, 0x003E, 0x003F,
	0x00F8, 0x00C9, 0x00CA, 0x00CB, 0x00C8, 0x00CD, 0x00CE, 0x00CF,
	0x00CC, 0x0060, 0x003A, 0x0023, 0x0040, 0x0027, 0x003D, 0x0022,
	0x00D8, 0x0061, 0x0062, 0x0063, 0x0064, 0x0065, 0x0066, 0x0067,
	0x0068, 0x0069, 0x00AB, 0x00BB, 0x00F0, 0x00FD, 0x00FE, 0x00B1,
	0x00B0, 0x006A, 0x006B, 0x006C, 0x006D, 0x006E, 0x006F, 0x0070,
	0x0071, 0x0072, 0x00AA, 0x00BA, 0x00E6, 0x00B8, 0x00C6, 0x00A4,
	0x00B5, 0x007E, 0x0073, 0x0074, 0x0075, 0x0076, 0x0077, 0x0078,
	0x0079, 0x007A, 0x00A1, 0x00BF, 0x00D0, 0x00DD, 0x00DE, 0x00AE,
	0x005E, 0x00A3, 0x00A5, 0x00B7, 0x00A9, 0x00A7, 0x00B6, 0x00BC,
	0x00BD, 0x00BE, 0x005B, 0x005D, 0x00AF, 0x00A8, 0x00B4, 0x00D7,
	0x007B, 0x0041, 0x0042, 0x0043, 0x0044, 0x0045, 0x0046, 0x0047,
	0x0048, 0x0049, 0x00AD, 0x00F4, 0x00F6, 0x00F2, 0x00F3, 0x00F5,
	0x007D, 0x004A, 0x004B, 0x004C, 0x004D, 0x004E, 0x004F, 0x0050,
	0x0051, 0x0052, 0x00B9, 0x00FB, 0x00FC, 0x00F9, 0x00FA, 0x00FF,
	0x005C, 0x00F7, 0x0053, 0x0054, 0x0055, 0x0056, 0x0057, 0x0058,
	0x0059, 0x005A, 0x00B2, 0x00D4, 0x00D6, 0x00D2, 0x00D3, 0x00D5,
	0x0030, 0x0031, 0x0032, 0x0033, 0x0034, 0x0035, 0x0036, 0x0037,
	0x0038, 0x0039, 0x00B3, 0x00DB, 0x00DC, 0x00D9, 0x00DA, 0x009F,
}

// cp1140ToUnicode is CP037 with the single substitution CP1140 is
// defined by: byte 0x9F maps to the euro sign instead of the currency
// sign (U+00A4).
var cp1140ToUnicode = func() [256]rune {
	t := cp037ToUnicode
	t[0x9F] = 0x20AC
	return t
}()

// Table is a bidirectional EBCDIC<->Unicode mapping for one CCSID.
type Table struct {
	ccsid      CCSID
	toUnicode  [256]rune
	fromRune   map[rune]byte
	substitute byte
}

// tables holds the built-in CCSID037 and CCSID1140 tables, built once
// at package init.
var tables = map[CCSID]*Table{
	CCSID037:  buildTable(CCSID037, cp037ToUnicode, 0x6F),
	CCSID1140: buildTable(CCSID1140, cp1140ToUnicode, 0x6F),
}

func buildTable(ccsid CCSID, toUnicode [256]rune, substitute byte) *Table {
	t := &Table{
		ccsid:      ccsid,
		toUnicode:  toUnicode,
		fromRune:   make(map[rune]byte, 256),
		substitute: substitute,
	}
	for b, r := range toUnicode {
		if _, exists := t.fromRune[r]; !exists {
			t.fromRune[r] = byte(b)
		}
	}
	return t
}

// Lookup returns the table for ccsid, or nil if unsupported.
func Lookup(ccsid CCSID) *Table {
	return tables[ccsid]
}

// WithSubstitute returns a copy of t whose Encode substitute byte is
// sub, used when a host negotiates a non-default replacement character
// for un-encodable runes.
func (t *Table) WithSubstitute(sub byte) *Table {
	cp := *t
	cp.substitute = sub
	return &cp
}

// Decode translates an EBCDIC byte string into Unicode runes.
func (t *Table) Decode(src []byte) []rune {
	out := make([]rune, len(src))
	for i, b := range src {
		out[i] = t.toUnicode[b]
	}
	return out
}

// DecodeString is Decode followed by a conversion to string.
func (t *Table) DecodeString(src []byte) string {
	return string(t.Decode(src))
}

// Encode translates Unicode runes into EBCDIC bytes, substituting
// t.substitute for any rune not present in this CCSID.
func (t *Table) Encode(src []rune) []byte {
	out := make([]byte, len(src))
	for i, r := range src {
		b, ok := t.fromRune[r]
		if !ok {
			b = t.substitute
		}
		out[i] = b
	}
	return out
}

// EncodeString is Encode over a string's runes.
func (t *Table) EncodeString(src string) []byte {
	return t.Encode([]rune(src))
}

// CCSID reports which coded character set this table implements.
func (t *Table) CCSID() CCSID {
	return t.ccsid
}
