package codec

import (
	"golang.org/x/text/encoding/charmap"
)

// ArtDump renders raw bytes captured from a Transparent-Data order (5250
// order byte 0x04) as CP437 box-drawing text, the same
// translation path the teacher's convertEncoding uses for BBS screen
// output, reused here for the diagnostic dumper in cmd/tn5250r rather
// than for the primary EBCDIC data path.
func ArtDump(raw []byte) string {
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
