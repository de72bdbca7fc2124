package session

import (
	"testing"

	"github.com/dtg01100/tn5250r-go/internal/codec"
	"github.com/dtg01100/tn5250r-go/internal/display"
	"github.com/dtg01100/tn5250r-go/internal/parser"
)

func gdsHeader(payloadLen int) []byte {
	total := 10 + payloadLen
	return []byte{byte(total >> 8), byte(total), 0x12, 0xA0, 0, 0, 0x04, 0, parser.CmdEraseWrite, 0}
}

func writeInputField(t *testing.T, s *Session, addr int) {
	t.Helper()
	sba := display.EncodeAddress(addr)
	body := []byte{0x00, parser.OrderSBA, sba[0], sba[1], parser.OrderSOF, 0x00, 0x00} // leading byte is WCC
	record := append(gdsHeader(len(body)+1), parser.CmdEraseWrite)
	record = append(record, body...)
	if err := s.FeedBytes(record); err != nil {
		t.Fatalf("FeedBytes: %v", err)
	}
}

func TestNewSessionHasUUID(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	if s.ID == "" {
		t.Error("expected non-empty session ID")
	}
}

func TestFeedBytesBuildsFieldTable(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	if s.Fields() == nil || len(s.Fields().All()) != 1 {
		t.Fatalf("Fields() = %+v, want one field", s.Fields())
	}
}

func TestTypeCharSetsMDTAndAdvancesCursor(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	s.MoveCursor(0, 1)

	if err := s.TypeChar('A'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	c, _ := s.Display().Cell(1)
	if c.Char != 'A' {
		t.Errorf("Cell(1) = %q, want 'A'", c.Char)
	}
	row, col := s.Display().Cursor()
	if row != 0 || col != 2 {
		t.Errorf("cursor after TypeChar = (%d,%d), want (0,2)", row, col)
	}
	if len(s.Fields().Modified()) != 1 {
		t.Error("expected field to be marked modified after TypeChar")
	}
}

func TestTypeCharRejectedInProtectedArea(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	s.MoveCursor(5, 5) // no field table at all yet
	if err := s.TypeChar('A'); err == nil {
		t.Error("expected KeyboardLocked typing with no field table")
	}
}

func TestTabMovesToNextInputField(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	if err := s.Tab(); err != nil {
		t.Fatalf("Tab: %v", err)
	}
	row, col := s.Display().Cursor()
	if row != 0 || col != 1 {
		t.Errorf("cursor after Tab = (%d,%d), want (0,1)", row, col)
	}
}

func TestFunctionKeyEnqueuesOutbound(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	s.MoveCursor(0, 1)
	if err := s.TypeChar('9'); err != nil {
		t.Fatal(err)
	}
	if err := s.FunctionKey(AIDEnter); err != nil {
		t.Fatalf("FunctionKey: %v", err)
	}
	out := s.DrainOutbound()
	if len(out) != 1 {
		t.Fatalf("DrainOutbound() = %d records, want 1", len(out))
	}
	if out[0][0] != byte(AIDEnter) {
		t.Errorf("first byte = %#x, want AIDEnter", out[0][0])
	}
	if len(s.DrainOutbound()) != 0 {
		t.Error("DrainOutbound should clear the queue")
	}
}

func TestClearResetsFieldsAndKeyboardLock(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	s.Clear()
	if s.Fields() != nil {
		t.Error("expected Fields() nil after Clear")
	}
	if s.KeyboardLocked() {
		t.Error("expected keyboard unlocked after Clear")
	}
}

// writeTwoFields defines two SOF fields: an unprotected field (ffwA,
// fcwA) at addr 0 spanning two data cells, followed by a protected
// terminator field at addr 3, so the first field has a fixed small
// length for exercising field-exit behavior.
func writeTwoFields(t *testing.T, s *Session, ffwA, fcwA byte) {
	t.Helper()
	sbaA := display.EncodeAddress(0)
	sbaB := display.EncodeAddress(3)
	body := []byte{
		0x00,
		parser.OrderSBA, sbaA[0], sbaA[1], parser.OrderSOF, ffwA, fcwA,
		parser.OrderSBA, sbaB[0], sbaB[1], parser.OrderSOF, 0x20, 0x00, // protected terminator
	}
	record := append(gdsHeader(len(body)+1), parser.CmdEraseWrite)
	record = append(record, body...)
	if err := s.FeedBytes(record); err != nil {
		t.Fatalf("FeedBytes: %v", err)
	}
}

func TestTypeCharRejectsNonNumericInNumericOnlyField(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeTwoFields(t, s, 0x10, 0x00) // FFWNumericOnly
	s.MoveCursor(0, 1)
	if err := s.TypeChar('A'); err == nil {
		t.Error("expected rejection typing a letter into a numeric-only field")
	}
}

func TestTypeCharCoercesUppercase(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeTwoFields(t, s, 0x01, 0x00) // FFWUppercase
	s.MoveCursor(0, 1)
	if err := s.TypeChar('a'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	c, _ := s.Display().Cell(1)
	if c.Char != 'A' {
		t.Errorf("Cell(1) = %q, want uppercased 'A'", c.Char)
	}
}

func TestTypeCharAutoEntersOnLastCell(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeTwoFields(t, s, 0x00, 0x10) // FCWAutoEnter
	s.MoveCursor(0, 1)
	if err := s.TypeChar('1'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	if len(s.DrainOutbound()) != 0 {
		t.Fatal("expected no outbound record before the last cell is written")
	}
	if err := s.TypeChar('2'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	out := s.DrainOutbound()
	if len(out) != 1 {
		t.Fatalf("DrainOutbound() = %d records, want 1 (auto-enter on last cell)", len(out))
	}
	if out[0][0] != byte(AIDEnter) {
		t.Errorf("first byte = %#x, want AIDEnter", out[0][0])
	}
}

func TestQueryStructuredFieldProducesQueryReply(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	sf := []byte{0x00, 0x05, parser.SFMarker, 0x01, 0x70} // length 5, SFQuery
	record := append(gdsHeader(len(sf)+1), parser.CmdWriteStructuredField)
	record = append(record, sf...)
	if err := s.FeedBytes(record); err != nil {
		t.Fatalf("FeedBytes: %v", err)
	}
	out := s.DrainOutbound()
	if len(out) != 1 {
		t.Fatalf("DrainOutbound() = %d records, want 1", len(out))
	}
	reply := out[0]
	if len(reply) < 5 || reply[2] != parser.SFMarker {
		t.Fatalf("reply = %v, want a marker-delimited structured field", reply)
	}
	id := uint16(reply[3])<<8 | uint16(reply[4])
	if id != parser.SFQueryReply {
		t.Errorf("reply ID = %#x, want SFQueryReply %#x", id, parser.SFQueryReply)
	}
}

func TestReadModifiedFieldsProducesOutboundWithoutAID(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	s.MoveCursor(0, 1)
	if err := s.TypeChar('9'); err != nil {
		t.Fatal(err)
	}
	record := append(gdsHeader(1), parser.CmdReadModifiedFields)
	if err := s.FeedBytes(record); err != nil {
		t.Fatalf("FeedBytes: %v", err)
	}
	out := s.DrainOutbound()
	if len(out) != 1 {
		t.Fatalf("DrainOutbound() = %d records, want 1 (host-polled read)", len(out))
	}
	if out[0][0] != 0x00 {
		t.Errorf("first byte = %#x, want 0x00 (no AID for a host-initiated read)", out[0][0])
	}
}

func TestSaveScreenThenRestoreScreenRoundTrips(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	writeInputField(t, s, 0)
	s.MoveCursor(0, 1)
	if err := s.TypeChar('X'); err != nil {
		t.Fatal(err)
	}

	saveRecord := append(gdsHeader(1), parser.CmdSaveScreen)
	if err := s.FeedBytes(saveRecord); err != nil {
		t.Fatalf("FeedBytes(Save): %v", err)
	}

	s.Clear()
	if c, _ := s.Display().Cell(1); c.Char == 'X' {
		t.Fatal("expected Clear to blank the display before restore")
	}

	restoreRecord := append(gdsHeader(1), parser.CmdRestoreScreen)
	if err := s.FeedBytes(restoreRecord); err != nil {
		t.Fatalf("FeedBytes(Restore): %v", err)
	}
	c, _ := s.Display().Cell(1)
	if c.Char != 'X' {
		t.Errorf("Cell(1) after restore = %q, want 'X'", c.Char)
	}
}

func TestRestoreScreenWithNothingSavedIsNonFatal(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	record := append(gdsHeader(1), parser.CmdRestoreScreen)
	if err := s.FeedBytes(record); err != nil {
		t.Fatalf("FeedBytes: %v, want nil (recorded as a diagnostic, not fatal)", err)
	}
	if len(s.Diagnostics()) != 1 {
		t.Errorf("Diagnostics() = %d entries, want 1", len(s.Diagnostics()))
	}
}

func TestTransparentDataAccumulates(t *testing.T) {
	s := New(display.Model2, codec.CCSID037)
	body := []byte{0x00, parser.OrderTransparentData, 0x02, 0xC9, 0xCA}
	record := append(gdsHeader(len(body)+1), parser.CmdWriteToDisplay)
	record = append(record, body...)
	if err := s.FeedBytes(record); err != nil {
		t.Fatalf("FeedBytes: %v", err)
	}
	data := s.TransparentData()
	if len(data) != 1 || len(data[0]) != 2 {
		t.Fatalf("TransparentData() = %v, want one 2-byte block", data)
	}
}

func TestRegistryRegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	s := New(display.Model2, codec.CCSID037)
	r.Register(s)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if r.Get(s.ID) != s {
		t.Error("Get did not return the registered session")
	}
	r.Unregister(s.ID)
	if r.Len() != 0 {
		t.Error("expected Len() 0 after Unregister")
	}
}
