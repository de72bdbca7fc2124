package parser

import "github.com/dtg01100/tn5250r-go/internal/protoerr"

// Structured-field class/type identifiers recognized by name; any
// other SFID is routed generically (skip-unknown, per spec.md §4.4).
const (
	SFQuery                  uint16 = 0x0170
	SFQueryReply             uint16 = 0x0180 // outbound: session's answer to SFQuery
	SFSetReplyMode           uint16 = 0x0185
	SFDefinePendingOperations uint16 = 0x01A6
	SFEraseReset             uint16 = 0x0F51
	SFPresentation           uint16 = 0x01B4
)

// SFMarker is the constant byte IBM structured fields use between the
// length field and the class/type identifier, for both inbound parsing
// and outbound encoding (e.g. session's Query Reply).
const SFMarker byte = 0xD9

// StructuredField is one decoded structured field from a
// Write-Structured-Field (0xF3) command payload.
type StructuredField struct {
	ID   uint16
	Body []byte
}

// ParseStructuredFields walks a 0xF3 command payload, which may
// contain more than one length-prefixed structured field back to back.
// Unknown SFIDs are skipped using their own length (producing an
// UnknownSF diagnostic, not a hard failure); a field whose declared
// length exceeds the remaining bytes is TruncatedStructuredField.
func ParseStructuredFields(payload []byte) ([]StructuredField, []error) {
	var fields []StructuredField
	var diags []error

	pos := 0
	for pos < len(payload) {
		if pos+3 > len(payload) {
			diags = append(diags, protoerr.New(protoerr.TruncatedStructuredField, "parser.ParseStructuredFields", nil))
			break
		}
		length := int(payload[pos])<<8 | int(payload[pos+1])
		if length < 3 {
			diags = append(diags, protoerr.New(protoerr.BadCommand, "parser.ParseStructuredFields", nil))
			break
		}
		if pos+length > len(payload) {
			diags = append(diags, protoerr.New(protoerr.TruncatedStructuredField, "parser.ParseStructuredFields", nil))
			break
		}
		marker := payload[pos+2]
		if marker != SFMarker {
			diags = append(diags, protoerr.New(protoerr.BadCommand, "parser.ParseStructuredFields", nil))
			pos += length
			continue
		}
		if length < 5 {
			diags = append(diags, protoerr.New(protoerr.TruncatedStructuredField, "parser.ParseStructuredFields", nil))
			pos += length
			continue
		}
		id := uint16(payload[pos+3])<<8 | uint16(payload[pos+4])
		body := payload[pos+5 : pos+length]

		switch id {
		case SFQuery, SFSetReplyMode, SFDefinePendingOperations, SFEraseReset, SFPresentation:
			fields = append(fields, StructuredField{ID: id, Body: append([]byte(nil), body...)})
		default:
			diags = append(diags, protoerr.New(protoerr.UnknownSF, "parser.ParseStructuredFields", nil))
			fields = append(fields, StructuredField{ID: id, Body: append([]byte(nil), body...)})
		}
		pos += length
	}

	return fields, diags
}
