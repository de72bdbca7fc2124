// Package session owns one connection's display buffer, field table,
// and outbound write queue, and exposes the keyboard operations a
// controller drives on behalf of a user (type, backspace, tab,
// function key). It does no I/O itself; internal/controller feeds it
// decoded records and drains its outbound queue onto a transport.
package session

import (
	"github.com/google/uuid"

	"github.com/dtg01100/tn5250r-go/internal/codec"
	"github.com/dtg01100/tn5250r-go/internal/display"
	"github.com/dtg01100/tn5250r-go/internal/fields"
	"github.com/dtg01100/tn5250r-go/internal/parser"
	"github.com/dtg01100/tn5250r-go/internal/protoerr"
)

// AID (Attention Identifier) key codes sent in a Read-class response,
// identifying which key the user pressed to submit input.
type AID byte

const (
	AIDEnter AID = 0xF1
	AIDPF1   AID = 0x31
	AIDPF2   AID = 0x32
	AIDPF3   AID = 0x33
	AIDClear AID = 0xBD
)

// Diagnostic is one recorded non-fatal event, tagged with this
// session's identity so a controller juggling many sessions can tell
// them apart in logs.
type Diagnostic struct {
	SessionID string
	Err       error
}

// maxSavedScreens bounds the Save-Screen ring so a host that saves
// without ever restoring can't grow a session's memory unboundedly.
const maxSavedScreens = 4

// savedScreen is one Save-Screen snapshot: the display contents plus
// the field table that was in effect at save time.
type savedScreen struct {
	snap   display.Snapshot
	fields *fields.Table
}

// Session owns the presentation space and field table for one
// connection.
type Session struct {
	ID     string
	buf    *display.Buffer
	table  *codec.Table
	parser *parser.Parser
	fields *fields.Table
	model  display.Model

	outbound     [][]byte
	diagnostics  []Diagnostic
	savedScreens []savedScreen
	transparent  [][]byte
	keyboardLocked bool
}

// New creates a Session for the given display model and CCSID.
func New(model display.Model, ccsid codec.CCSID) *Session {
	buf := display.NewBuffer(model)
	tbl := codec.Lookup(ccsid)
	if tbl == nil {
		tbl = codec.Lookup(codec.CCSID037)
	}
	return &Session{
		ID:     uuid.NewString(),
		buf:    buf,
		table:  tbl,
		parser: parser.New(buf, tbl),
		model:  model,
	}
}

// FeedBytes decodes one already-deframed 5250 record and applies it to
// the session's display and field state.
func (s *Session) FeedBytes(record []byte) error {
	res, err := s.parser.FeedRecord(record)
	if err != nil {
		if err2, ok := err.(*protoerr.Error); ok && err2.Kind.AbortsRecord() {
			s.keyboardLocked = true
		}
		return err
	}
	s.keyboardLocked = false
	if res.FieldTable != nil {
		s.fields = res.FieldTable
	}
	if res.ResetMDT && s.fields != nil {
		s.fields.ClearAllMDT()
	}
	if res.Diagnostics != nil {
		for _, e := range res.Diagnostics.Errors {
			s.diagnostics = append(s.diagnostics, Diagnostic{SessionID: s.ID, Err: e})
		}
	}
	if len(res.TransparentData) > 0 {
		s.transparent = append(s.transparent, res.TransparentData...)
	}
	if res.SaveRequested {
		s.saveScreen()
	}
	if res.RestoreRequested {
		if err := s.restoreScreen(); err != nil {
			s.diagnostics = append(s.diagnostics, Diagnostic{SessionID: s.ID, Err: err})
		}
	}
	for _, sf := range res.StructuredFields {
		if sf.ID == parser.SFQuery {
			s.outbound = append(s.outbound, s.encodeQueryReply())
		}
	}
	switch res.Opcode {
	case parser.CmdReadModifiedFields:
		s.outbound = append(s.outbound, s.encodeReadResponse(AID(0)))
	case parser.CmdReadInputFields:
		s.outbound = append(s.outbound, s.encodeAllInputFieldsResponse())
	case parser.CmdReadBuffer:
		s.outbound = append(s.outbound, s.encodeReadBufferResponse())
	}
	return nil
}

// saveScreen pushes a Save-Screen snapshot onto the ring, dropping the
// oldest entry once maxSavedScreens is exceeded.
func (s *Session) saveScreen() {
	s.savedScreens = append(s.savedScreens, savedScreen{snap: s.buf.Save(), fields: s.fields})
	if len(s.savedScreens) > maxSavedScreens {
		s.savedScreens = s.savedScreens[len(s.savedScreens)-maxSavedScreens:]
	}
}

// restoreScreen pops the most recent Save-Screen snapshot and applies
// it. Restoring with nothing saved is a recoverable diagnostic, not a
// fatal error.
func (s *Session) restoreScreen() error {
	if len(s.savedScreens) == 0 {
		return protoerr.New(protoerr.BadCommand, "session.restoreScreen", nil)
	}
	last := s.savedScreens[len(s.savedScreens)-1]
	s.savedScreens = s.savedScreens[:len(s.savedScreens)-1]
	if err := s.buf.Restore(last.snap); err != nil {
		return err
	}
	s.fields = last.fields
	return nil
}

// Diagnostics returns every diagnostic recorded so far.
func (s *Session) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// Display returns the underlying display buffer (read-mostly access
// for a renderer; field-table mutation still goes through Session's
// keyboard methods).
func (s *Session) Display() *display.Buffer {
	return s.buf
}

// Fields returns the current field table, or nil if none has been
// defined yet.
func (s *Session) Fields() *fields.Table {
	return s.fields
}

// TransparentData returns every Transparent-Data order payload
// received so far (5250 order byte 0x04), raw bytes the host
// passes through the order stream untranslated, e.g. CP437 box-drawing
// art in a BBS-style screen.
func (s *Session) TransparentData() [][]byte {
	return s.transparent
}

func (s *Session) currentField() (int, fields.Field, error) {
	if s.fields == nil {
		return -1, fields.Field{}, protoerr.New(protoerr.KeyboardLocked, "session.currentField", nil)
	}
	row, col := s.buf.Cursor()
	addr := s.buf.Address(row, col)
	idx, f, ok := s.fields.At(addr)
	if !ok {
		return -1, fields.Field{}, protoerr.New(protoerr.KeyboardLocked, "session.currentField", nil)
	}
	if f.Protected() {
		return -1, fields.Field{}, protoerr.New(protoerr.KeyboardLocked, "session.currentField", nil)
	}
	return idx, f, nil
}

// TypeChar inserts r at the cursor position, provided the cursor is in
// an unprotected field, advancing the cursor one cell and marking the
// field's MDT bit. Numeric-only rejection and uppercase coercion
// (spec.md §4.6) are applied per keystroke via fields.ValidateInput;
// the whole-field transforms (right-adjust, zero-fill) apply at field
// exit, see transformFieldContent.
func (s *Session) TypeChar(r rune) error {
	if s.keyboardLocked {
		return protoerr.New(protoerr.KeyboardLocked, "session.TypeChar", nil)
	}
	idx, f, err := s.currentField()
	if err != nil {
		return err
	}
	out, err := fields.ValidateInput(f, []rune{r})
	if err != nil {
		return err
	}
	row, col := s.buf.Cursor()
	addr := s.buf.Address(row, col)
	if err := s.buf.SetCell(addr, out[0], 0); err != nil {
		return err
	}
	if err := s.fields.SetMDT(idx); err != nil {
		return err
	}
	wasLastCell := addr == f.EndAddr
	next := (addr + 1) % s.bufLen()
	nr, nc := s.buf.RowCol(next)
	s.buf.SetCursor(nr, nc)

	if wasLastCell && f.AutoEnter() {
		return s.FunctionKey(AIDEnter)
	}
	return nil
}

// bufLen returns the total number of cells in the display buffer.
func (s *Session) bufLen() int {
	rows, cols := s.buf.Dimensions()
	return rows * cols
}

// transformFieldContent applies field-exit transforms (right-adjust,
// zero-fill) that need the field's whole content at once, writing the
// result back into the buffer. A field with neither bit set is
// untouched, since per-keystroke validation already handled
// numeric-only rejection and uppercase coercion.
func (s *Session) transformFieldContent(f fields.Field) error {
	if !f.RightAdjust() && !f.ZeroFill() {
		return nil
	}
	content := s.fieldContent(f)
	out, err := fields.ValidateInput(f, content)
	if err != nil {
		return err
	}
	bufLen := s.bufLen()
	addr := (f.StartAddr + 1) % bufLen
	for _, r := range out {
		if err := s.buf.SetCell(addr, r, 0); err != nil {
			return err
		}
		addr = (addr + 1) % bufLen
	}
	return nil
}

// Backspace moves the cursor back one cell and blanks it, if that
// cell belongs to the same unprotected field.
func (s *Session) Backspace() error {
	curIdx, _, curErr := s.currentField()
	row, col := s.buf.Cursor()
	addr := s.buf.Address(row, col)
	rows, cols := s.buf.Dimensions()
	prev := (addr - 1 + rows*cols) % (rows * cols)
	pr, pc := s.buf.RowCol(prev)
	s.buf.SetCursor(pr, pc)
	idx, f, err := s.currentField()
	if err != nil || curErr != nil || idx != curIdx || prev == f.StartAddr {
		return nil // leaving the field is not an error, just a no-op blank
	}
	if err := s.buf.SetCell(prev, ' ', 0); err != nil {
		return err
	}
	return s.fields.SetMDT(idx)
}

// Delete blanks the cell under the cursor without moving it.
func (s *Session) Delete() error {
	row, col := s.buf.Cursor()
	addr := s.buf.Address(row, col)
	idx, _, err := s.currentField()
	if err != nil {
		return err
	}
	if err := s.buf.SetCell(addr, ' ', 0); err != nil {
		return err
	}
	return s.fields.SetMDT(idx)
}

// Tab moves the cursor to the start of the next unprotected field,
// applying the field-exit transform to the field being left.
func (s *Session) Tab() error {
	if s.fields == nil {
		return protoerr.New(protoerr.KeyboardLocked, "session.Tab", nil)
	}
	row, col := s.buf.Cursor()
	addr := s.buf.Address(row, col)
	curIdx, curField, ok := s.fields.At(addr)
	if !ok {
		curIdx = -1
	} else if !curField.Protected() {
		if err := s.transformFieldContent(curField); err != nil {
			return err
		}
	}
	idx, ok := s.fields.NextInputField(curIdx)
	if !ok {
		return protoerr.New(protoerr.KeyboardLocked, "session.Tab", nil)
	}
	f := s.fields.All()[idx]
	row, col = s.buf.RowCol(f.StartAddr + 1)
	s.buf.SetCursor(row, col)
	return nil
}

// BackTab moves the cursor to the start of the previous unprotected
// field, applying the field-exit transform to the field being left.
func (s *Session) BackTab() error {
	if s.fields == nil {
		return protoerr.New(protoerr.KeyboardLocked, "session.BackTab", nil)
	}
	row, col := s.buf.Cursor()
	addr := s.buf.Address(row, col)
	curIdx, curField, ok := s.fields.At(addr)
	if !ok {
		curIdx = 0
	} else if !curField.Protected() {
		if err := s.transformFieldContent(curField); err != nil {
			return err
		}
	}
	idx, ok := s.fields.PrevInputField(curIdx)
	if !ok {
		return protoerr.New(protoerr.KeyboardLocked, "session.BackTab", nil)
	}
	f := s.fields.All()[idx]
	row, col = s.buf.RowCol(f.StartAddr + 1)
	s.buf.SetCursor(row, col)
	return nil
}

// MoveCursor places the cursor at an explicit row/col, clamping to
// bounds.
func (s *Session) MoveCursor(row, col int) {
	s.buf.SetCursor(row, col)
}

// Clear resets the display and field table to empty, honoring the
// CLEAR key.
func (s *Session) Clear() {
	s.buf.Clear()
	s.fields = nil
	s.keyboardLocked = false
}

// FunctionKey applies the field-exit transform and validates mandatory
// fields (if any), encodes a Read-class response record carrying aid
// plus every modified field's content, and enqueues it for
// transmission.
func (s *Session) FunctionKey(aid AID) error {
	if s.keyboardLocked {
		return protoerr.New(protoerr.KeyboardLocked, "session.FunctionKey", nil)
	}
	if s.fields != nil {
		for _, f := range s.fields.All() {
			if !f.Protected() {
				if err := s.transformFieldContent(f); err != nil {
					return err
				}
			}
			content := s.fieldContent(f)
			if err := fields.CheckMandatory(f, content); err != nil {
				return err
			}
		}
	}
	s.outbound = append(s.outbound, s.encodeReadResponse(aid))
	return nil
}

func (s *Session) fieldContent(f fields.Field) []rune {
	bufLen := s.bufLen()
	n := f.Len(bufLen)
	out := make([]rune, 0, n)
	addr := (f.StartAddr + 1) % bufLen
	for i := 0; i < n; i++ {
		c, _ := s.buf.Cell(addr)
		out = append(out, c.Char)
		addr = (addr + 1) % bufLen
	}
	return out
}

// deviceType maps the display model to the 5250 device-type string
// reported in a Query Reply, the same family of identifiers
// internal/telnet's TERMINAL-TYPE negotiation exchanges with the host.
func (s *Session) deviceType() string {
	switch s.model {
	case display.Model3:
		return "IBM-3196-A1"
	case display.Model4:
		return "IBM-3477-FC"
	case display.Model5:
		return "IBM-3477-FG"
	default:
		return "IBM-3179-2"
	}
}

// encodeQueryReply builds the Query Reply structured field (class
// 0x01, type 0x80) answering an inbound SFQuery, carrying the
// session's device type, a firmware-level placeholder, and the
// display's row/column count, per spec.md §4.4.1.
func (s *Session) encodeQueryReply() []byte {
	deviceType := s.table.Encode([]rune(s.deviceType()))
	firmware := s.table.Encode([]rune("0000000"))
	rows, cols := s.buf.Dimensions()

	body := make([]byte, 0, len(deviceType)+len(firmware)+3)
	body = append(body, deviceType...)
	body = append(body, firmware...)
	body = append(body, byte(rows), byte(cols), 0x00) // trailing byte: feature flags, none set

	length := 5 + len(body)
	out := make([]byte, 0, length)
	out = append(out, byte(length>>8), byte(length))
	out = append(out, parser.SFMarker)
	out = append(out, byte(parser.SFQueryReply>>8), byte(parser.SFQueryReply))
	out = append(out, body...)
	return out
}

// encodeAllInputFieldsResponse answers Read-Input-Fields (0x5B) with
// every unprotected field's current content, regardless of its MDT
// bit, unlike encodeReadResponse's modified-only set.
func (s *Session) encodeAllInputFieldsResponse() []byte {
	out := []byte{0x00} // no AID: this is a host-polled read, not a keyed submission
	if s.fields == nil {
		return out
	}
	for _, f := range s.fields.All() {
		if f.Protected() {
			continue
		}
		content := s.fieldContent(f)
		addr := display.EncodeAddress(f.StartAddr)
		out = append(out, addr[0], addr[1])
		out = append(out, s.table.Encode(content)...)
	}
	return out
}

// encodeReadBufferResponse answers Read-Buffer (0xF2) with the entire
// display contents in address order, attribute bytes included as
// blanks, the shape a full-buffer read takes on the wire.
func (s *Session) encodeReadBufferResponse() []byte {
	n := s.bufLen()
	runes := make([]rune, n)
	for i := 0; i < n; i++ {
		c, _ := s.buf.Cell(i)
		if c.IsAttr {
			runes[i] = ' '
		} else {
			runes[i] = c.Char
		}
	}
	out := []byte{0x00} // no AID: this is a host-polled read, not a keyed submission
	out = append(out, s.table.Encode(runes)...)
	return out
}

// encodeReadResponse builds the AID byte plus each modified field's
// buffer address and content, the shape a Read-Modified-Fields
// response takes on the wire.
func (s *Session) encodeReadResponse(aid AID) []byte {
	out := []byte{byte(aid)}
	if s.fields == nil {
		return out
	}
	for _, idx := range s.fields.Modified() {
		f := s.fields.All()[idx]
		content := s.fieldContent(f)
		addr := display.EncodeAddress(f.StartAddr)
		out = append(out, addr[0], addr[1])
		out = append(out, s.table.Encode(content)...)
	}
	return out
}

// DrainOutbound returns and clears every queued outbound record.
func (s *Session) DrainOutbound() [][]byte {
	out := s.outbound
	s.outbound = nil
	return out
}

// KeyboardLocked reports whether keyboard input is currently rejected
// (set by an aborted record; cleared by the next record that is
// processed without error).
func (s *Session) KeyboardLocked() bool {
	return s.keyboardLocked
}
