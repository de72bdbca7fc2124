package display

import "testing"

func TestModelDimensions(t *testing.T) {
	tests := []struct {
		model    Model
		wantRows int
		wantCols int
	}{
		{Model2, 24, 80},
		{Model3, 32, 80},
		{Model4, 43, 80},
		{Model5, 27, 132},
	}
	for _, tt := range tests {
		rows, cols := tt.model.Dimensions()
		if rows != tt.wantRows || cols != tt.wantCols {
			t.Errorf("Model%d.Dimensions() = %dx%d, want %dx%d", tt.model, rows, cols, tt.wantRows, tt.wantCols)
		}
	}
}

func TestAddressRoundTrip(t *testing.T) {
	b := NewBuffer(Model2)
	rows, cols := b.Dimensions()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			addr := b.Address(row, col)
			gotRow, gotCol := b.RowCol(addr)
			if gotRow != row || gotCol != col {
				t.Fatalf("RowCol(Address(%d,%d)) = (%d,%d)", row, col, gotRow, gotCol)
			}
		}
	}
}

func TestEncodeDecodeAddressRoundTrip(t *testing.T) {
	for addr := 0; addr < 1920; addr++ {
		enc := EncodeAddress(addr)
		got, err := DecodeAddress(enc[0], enc[1])
		if err != nil {
			t.Fatalf("DecodeAddress(%v): %v", enc, err)
		}
		if got != addr {
			t.Errorf("round trip addr %d -> %v -> %d", addr, enc, got)
		}
	}
}

func TestDecodeAddressRejectsInvalidByte(t *testing.T) {
	if _, err := DecodeAddress(0x00, 0x00); err == nil {
		t.Error("expected error decoding invalid buffer-address byte 0x00")
	}
}

func TestSetCellAndCellOutOfBounds(t *testing.T) {
	b := NewBuffer(Model2)
	if err := b.SetCell(0, 'A', 0); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	c, err := b.Cell(0)
	if err != nil || c.Char != 'A' {
		t.Fatalf("Cell(0) = %+v, err %v", c, err)
	}
	if err := b.SetCell(99999, 'X', 0); err == nil {
		t.Error("expected BadAddress for out-of-bounds SetCell")
	}
}

func TestCursorClamping(t *testing.T) {
	b := NewBuffer(Model2)
	b.SetCursor(-5, 1000)
	row, col := b.Cursor()
	if row != 0 || col != 79 {
		t.Errorf("Cursor() = (%d,%d), want clamped (0,79)", row, col)
	}
}

func TestClearBlanksAndHomesCursor(t *testing.T) {
	b := NewBuffer(Model2)
	b.SetCell(5, 'Z', 0)
	b.SetCursor(10, 10)
	b.Clear()
	c, _ := b.Cell(5)
	if c.Char != ' ' {
		t.Errorf("Cell(5) after Clear = %q, want blank", c.Char)
	}
	row, col := b.Cursor()
	if row != 0 || col != 0 {
		t.Errorf("Cursor() after Clear = (%d,%d), want (0,0)", row, col)
	}
}

func TestEraseToAddressInclusiveBothEnds(t *testing.T) {
	b := NewBuffer(Model2)
	for i := 0; i < 10; i++ {
		b.SetCell(i, 'X', 0)
	}
	if err := b.EraseToAddress(2, 5); err != nil {
		t.Fatalf("EraseToAddress: %v", err)
	}
	for i := 2; i <= 5; i++ {
		c, _ := b.Cell(i)
		if c.Char != ' ' {
			t.Errorf("Cell(%d) = %q, want blank (inclusive erase)", i, c.Char)
		}
	}
	c, _ := b.Cell(1)
	if c.Char != 'X' {
		t.Error("Cell(1) was erased but should be outside [2,5]")
	}
	c, _ = b.Cell(6)
	if c.Char != 'X' {
		t.Error("Cell(6) was erased but should be outside [2,5]")
	}
}

func TestRollUpBlanksBottomRows(t *testing.T) {
	b := NewBuffer(Model2)
	_, cols := b.Dimensions()
	b.SetCell(b.Address(1, 0), 'R', 0)
	if err := b.RollUp(0, 2, 1); err != nil {
		t.Fatalf("RollUp: %v", err)
	}
	c, _ := b.Cell(b.Address(0, 0))
	if c.Char != 'R' {
		t.Error("row 1 did not roll up into row 0")
	}
	for col := 0; col < cols; col++ {
		c, _ := b.Cell(b.Address(2, col))
		if c.Char != ' ' {
			t.Fatalf("bottom row not blanked after RollUp at col %d", col)
		}
	}
}

func TestRollDownBlanksTopRows(t *testing.T) {
	b := NewBuffer(Model2)
	b.SetCell(b.Address(1, 0), 'R', 0)
	if err := b.RollDown(0, 2, 1); err != nil {
		t.Fatalf("RollDown: %v", err)
	}
	c, _ := b.Cell(b.Address(2, 0))
	if c.Char != 'R' {
		t.Error("row 1 did not roll down into row 2")
	}
	c, _ = b.Cell(b.Address(0, 0))
	if c.Char != ' ' {
		t.Error("top row not blanked after RollDown")
	}
}

func TestDrainDirtyReportsAndClears(t *testing.T) {
	b := NewBuffer(Model2)
	b.SetCell(3, 'A', 0)
	b.SetCell(7, 'B', 0)
	dirty := b.DrainDirty()
	if len(dirty) < 2 {
		t.Fatalf("DrainDirty() = %v, want at least addrs 3 and 7", dirty)
	}
	again := b.DrainDirty()
	if len(again) != 0 {
		t.Errorf("second DrainDirty() = %v, want empty", again)
	}
}
