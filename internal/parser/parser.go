package parser

import (
	"github.com/hashicorp/go-multierror"

	"github.com/dtg01100/tn5250r-go/internal/codec"
	"github.com/dtg01100/tn5250r-go/internal/display"
	"github.com/dtg01100/tn5250r-go/internal/fields"
	"github.com/dtg01100/tn5250r-go/internal/protoerr"
)

// 5250 command codes (first byte of a GDS record payload).
const (
	CmdWriteToDisplay       byte = 0xF1
	CmdReadBuffer           byte = 0xF2
	CmdWriteStructuredField byte = 0xF3
	CmdReadModifiedFields   byte = 0xF4
	CmdEraseWrite           byte = 0xF5
	CmdReadInputFields      byte = 0x5B
	CmdReadMDTFields        byte = 0x52 // alias for CmdReadModifiedFields, see DESIGN.md open question (a)
	CmdClearUnit            byte = 0x40
	CmdClearFormatTable     byte = 0x51
	CmdSaveScreen           byte = 0x22
	CmdRestoreScreen        byte = 0x12
	CmdWriteErrorCode       byte = 0x04
	CmdRollUpDown           byte = 0x23
)

// WCC (Write Control Character) bits: the byte immediately following a
// Write-To-Display/Erase-Write command byte, governing reset/sound/
// unlock behavior per spec.md §4.4/§4.8.
const (
	WCCResetMDT      byte = 1 << 6
	WCCSoundAlarm    byte = 1 << 2
	WCCKeyboardReset byte = 1 << 1
)

// Result is what processing one GDS record produced: an updated field
// table (nil if the command didn't redefine fields), a saved-screen
// snapshot request, any structured fields found, and every recoverable
// diagnostic collected along the way.
type Result struct {
	Opcode          byte
	RawOpcode       byte
	FieldTable      *fields.Table
	StructuredFields []StructuredField
	TransparentData [][]byte
	SaveRequested   bool
	RestoreRequested bool
	ResetMDT        bool
	ErrorText       []rune
	Diagnostics     *multierror.Error
}

// Parser decodes 5250 records against a shared display buffer and
// EBCDIC table, dispatching on the command byte the way the teacher's
// ANSIParser dispatches on CSI final bytes.
type Parser struct {
	buf   *display.Buffer
	table *codec.Table
}

// New returns a Parser that writes into buf using table for EBCDIC
// translation.
func New(buf *display.Buffer, table *codec.Table) *Parser {
	return &Parser{buf: buf, table: table}
}

// FeedRecord decodes one already-deframed 5250 record (GDS header plus
// command payload) and applies its effects to the display buffer.
func (p *Parser) FeedRecord(record []byte) (Result, error) {
	_, payload, err := ParseHeader(record)
	if err != nil {
		return Result{}, err
	}
	if len(payload) == 0 {
		return Result{}, protoerr.New(protoerr.TruncatedRecord, "parser.FeedRecord", nil)
	}
	cmd := payload[0]
	body := payload[1:]

	res := Result{Opcode: cmd, RawOpcode: cmd}
	if cmd == CmdReadMDTFields {
		res.Opcode = CmdReadModifiedFields
	}

	switch cmd {
	case CmdEraseWrite, CmdWriteToDisplay:
		if len(body) == 0 {
			return res, protoerr.New(protoerr.TruncatedRecord, "parser.FeedRecord(WCC)", nil)
		}
		wcc := body[0]
		body = body[1:]
		res.ResetMDT = wcc&WCCResetMDT != 0

		if cmd == CmdEraseWrite {
			p.buf.Clear()
		}
		orderRes, err := walkOrders(p.buf, p.table, body)
		if err != nil {
			return res, err
		}
		res.TransparentData = orderRes.transparent
		if len(orderRes.attrAddrs) > 0 {
			ffws := make([]fields.FFW, len(orderRes.ffws))
			fcws := make([]fields.FCW, len(orderRes.fcws))
			for i := range orderRes.ffws {
				ffws[i] = fields.FFW(orderRes.ffws[i])
				fcws[i] = fields.FCW(orderRes.fcws[i])
			}
			table, err := fields.Scan(p.buf, orderRes.attrAddrs, ffws, fcws)
			if err != nil {
				res.Diagnostics = multierror.Append(res.Diagnostics, err)
			} else {
				res.FieldTable = table
			}
		}

	case CmdClearUnit:
		p.buf.Clear()

	case CmdClearFormatTable:
		// Blanks the field table without touching displayed data.
		empty, _ := fields.Scan(p.buf, nil, nil, nil)
		res.FieldTable = empty

	case CmdWriteStructuredField:
		sfs, diags := ParseStructuredFields(body)
		res.StructuredFields = sfs
		for _, d := range diags {
			res.Diagnostics = multierror.Append(res.Diagnostics, d)
		}
		for _, d := range diags {
			if pe, ok := d.(*protoerr.Error); ok && pe.Kind.AbortsRecord() {
				return res, d
			}
		}

	case CmdSaveScreen:
		res.SaveRequested = true

	case CmdRestoreScreen:
		res.RestoreRequested = true

	case CmdReadBuffer, CmdReadModifiedFields, CmdReadMDTFields, CmdReadInputFields:
		// Read-class commands produce no buffer mutation; the session
		// layer answers them directly from current state.

	case CmdWriteErrorCode:
		// Body is an EBCDIC error message painted on the display's last
		// row, per spec.md §4.4, and also surfaced as a diagnostic.
		text := p.table.Decode(body)
		res.ErrorText = text
		p.paintErrorLine(text)
		res.Diagnostics = multierror.Append(res.Diagnostics,
			protoerr.New(protoerr.FieldValidation, "parser.FeedRecord(WriteErrorCode)", nil))

	case CmdRollUpDown:
		if len(body) < 3 {
			return res, protoerr.New(protoerr.TruncatedRecord, "parser.FeedRecord(RollUpDown)", nil)
		}
		top, bottom, n := int(body[0]), int(body[1]), int(body[2]&0x7F)
		var rollErr error
		if body[2]&0x80 != 0 {
			rollErr = p.buf.RollDown(top, bottom, n)
		} else {
			rollErr = p.buf.RollUp(top, bottom, n)
		}
		if rollErr != nil {
			return res, rollErr
		}

	default:
		return res, protoerr.New(protoerr.BadCommand, "parser.FeedRecord", nil)
	}

	return res, nil
}

// paintErrorLine writes text (already EBCDIC-decoded) left-justified
// onto the display's last row, truncating or blank-padding to fit,
// per WriteErrorCode's "paint the message line" behavior.
func (p *Parser) paintErrorLine(text []rune) {
	rows, cols := p.buf.Dimensions()
	row := rows - 1
	for col := 0; col < cols; col++ {
		ch := rune(' ')
		if col < len(text) {
			ch = text[col]
		}
		_ = p.buf.SetCell(p.buf.Address(row, col), ch, 0)
	}
}
