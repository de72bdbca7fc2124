// Package parser decodes a 5250 data stream: the General Data Stream
// (GDS) record header, the top-level command byte, and for
// Write-To-Display/Write-Structured-Field the order stream and
// structured-field bodies within it.
//
// Dispatch here follows the teacher's internal/terminal/parser.go
// shape: a small state/opcode enum plus a switch-based dispatcher,
// adapted from ANSI escape-sequence parsing to 5250 opcode/order
// parsing.
package parser

import "github.com/dtg01100/tn5250r-go/internal/protoerr"

// gdsHeaderLen is the fixed 10-byte General Data Stream record header
// defined by the 5250 telnet encapsulation: 2-byte record length,
// 2-byte record type (0x12A0 for GDS), 2-byte reserved, 1-byte
// variable header length, 1-byte flags, 1-byte opcode, 1-byte reserved.
const gdsHeaderLen = 10

const gdsRecordTypeData = 0x12A0

// Header is a decoded GDS record header.
type Header struct {
	RecordLength uint16
	RecordType   uint16
	VarHeaderLen byte
	Flags        byte
	Opcode       byte
}

// ParseHeader strips and decodes the 10-byte GDS header from record,
// returning the header and the remaining 5250 command payload.
func ParseHeader(record []byte) (Header, []byte, error) {
	if len(record) < gdsHeaderLen {
		return Header{}, nil, protoerr.New(protoerr.TruncatedRecord, "parser.ParseHeader", nil)
	}
	h := Header{
		RecordLength: be16(record[0:2]),
		RecordType:   be16(record[2:4]),
		VarHeaderLen: record[6],
		Flags:        record[7],
		Opcode:       record[8],
	}
	if h.RecordType != gdsRecordTypeData {
		return Header{}, nil, protoerr.New(protoerr.BadCommand, "parser.ParseHeader", nil)
	}
	return h, record[gdsHeaderLen:], nil
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
