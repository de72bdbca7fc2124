// Package display implements the 5250 presentation space: a fixed-size
// grid of Cells addressed by a 12/14-bit buffer address, a cursor, an
// attribute plane, and roll/scroll operations. It has no knowledge of
// fields or the wire protocol; internal/fields and internal/parser
// build on top of it.
package display

import "github.com/dtg01100/tn5250r-go/internal/protoerr"

// Model identifies a 5250 display size class.
type Model int

const (
	Model2 Model = 2
	Model3 Model = 3
	Model4 Model = 4
	Model5 Model = 5
)

// Dimensions returns the row/column count for a display model.
func (m Model) Dimensions() (rows, cols int) {
	switch m {
	case Model2:
		return 24, 80
	case Model3:
		return 32, 80
	case Model4:
		return 43, 80
	case Model5:
		return 27, 132
	default:
		return 24, 80
	}
}

// AttrByte is a 5250 field/character attribute byte. Only the low 6
// bits carry meaning; the top 2 bits are parity-style padding used by
// the buffer-address encoding, not part of the attribute semantics.
type AttrByte byte

const (
	AttrProtected    AttrByte = 1 << 5
	AttrNumericOnly  AttrByte = 1 << 4
	AttrIntensified  AttrByte = 1 << 3 // non-display / intensified, model-dependent
	AttrNonDisplay   AttrByte = AttrIntensified
	AttrMDT          AttrByte = 1 << 2
)

// Cell is one position in the display buffer.
type Cell struct {
	Char  rune
	Attr  AttrByte
	IsAttr bool // true if this cell holds a field attribute byte, not data
	dirty bool
}

// Buffer is the 5250 presentation space.
type Buffer struct {
	rows, cols int
	cells      []Cell
	cursorRow  int
	cursorCol  int
}

// NewBuffer allocates a blank buffer sized for model.
func NewBuffer(model Model) *Buffer {
	rows, cols := model.Dimensions()
	return &Buffer{
		rows:  rows,
		cols:  cols,
		cells: make([]Cell, rows*cols),
	}
}

// Dimensions reports the buffer's row/column count.
func (b *Buffer) Dimensions() (rows, cols int) {
	return b.rows, b.cols
}

// Address converts a 0-based row/col into a linear buffer address.
func (b *Buffer) Address(row, col int) int {
	return row*b.cols + col
}

// RowCol converts a linear buffer address back into 0-based row/col.
func (b *Buffer) RowCol(addr int) (row, col int) {
	return addr / b.cols, addr % b.cols
}

// InBounds reports whether addr is a valid position in this buffer.
func (b *Buffer) InBounds(addr int) bool {
	return addr >= 0 && addr < len(b.cells)
}

// Cell returns the cell at addr.
func (b *Buffer) Cell(addr int) (Cell, error) {
	if !b.InBounds(addr) {
		return Cell{}, protoerr.New(protoerr.BadAddress, "display.Cell", nil)
	}
	return b.cells[addr], nil
}

// SetCell writes a data cell at addr and marks it dirty.
func (b *Buffer) SetCell(addr int, ch rune, attr AttrByte) error {
	if !b.InBounds(addr) {
		return protoerr.New(protoerr.BadAddress, "display.SetCell", nil)
	}
	b.cells[addr] = Cell{Char: ch, Attr: attr, dirty: true}
	return nil
}

// SetAttrCell writes a field-attribute cell at addr (the byte that
// begins a field, per spec.md's field-table scan).
func (b *Buffer) SetAttrCell(addr int, attr AttrByte) error {
	if !b.InBounds(addr) {
		return protoerr.New(protoerr.BadAddress, "display.SetAttrCell", nil)
	}
	b.cells[addr] = Cell{Attr: attr, IsAttr: true, dirty: true}
	return nil
}

// Cursor returns the current cursor position.
func (b *Buffer) Cursor() (row, col int) {
	return b.cursorRow, b.cursorCol
}

// SetCursor moves the cursor, clamping to the buffer bounds.
func (b *Buffer) SetCursor(row, col int) {
	if row < 0 {
		row = 0
	}
	if row >= b.rows {
		row = b.rows - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= b.cols {
		col = b.cols - 1
	}
	b.cursorRow, b.cursorCol = row, col
}

// Clear resets every cell to blank and homes the cursor, used by
// Clear-Unit (0x40) and Erase/Write (0xF5).
func (b *Buffer) Clear() {
	for i := range b.cells {
		b.cells[i] = Cell{Char: ' ', dirty: true}
	}
	b.cursorRow, b.cursorCol = 0, 0
}

// EraseToAddress blanks cells from fromAddr up to and including
// toAddr, wrapping if toAddr < fromAddr, implementing the EA (Erase to
// Address) order's inclusive-both-ends semantics.
func (b *Buffer) EraseToAddress(fromAddr, toAddr int) error {
	if !b.InBounds(fromAddr) || !b.InBounds(toAddr) {
		return protoerr.New(protoerr.BadAddress, "display.EraseToAddress", nil)
	}
	addr := fromAddr
	for {
		b.cells[addr] = Cell{Char: ' ', dirty: true}
		if addr == toAddr {
			break
		}
		addr = (addr + 1) % len(b.cells)
	}
	return nil
}

// RollUp scrolls the buffer up by n rows within [topRow, bottomRow]
// inclusive, blanking the rows that roll in at the bottom.
func (b *Buffer) RollUp(topRow, bottomRow, n int) error {
	if topRow < 0 || bottomRow >= b.rows || topRow > bottomRow {
		return protoerr.New(protoerr.BadAddress, "display.RollUp", nil)
	}
	span := bottomRow - topRow + 1
	if n > span {
		n = span
	}
	for r := topRow; r <= bottomRow-n; r++ {
		copy(b.row(r), b.row(r+n))
	}
	for r := bottomRow - n + 1; r <= bottomRow; r++ {
		b.blankRow(r)
	}
	return nil
}

// RollDown scrolls the buffer down by n rows within [topRow, bottomRow]
// inclusive, blanking the rows that roll in at the top.
func (b *Buffer) RollDown(topRow, bottomRow, n int) error {
	if topRow < 0 || bottomRow >= b.rows || topRow > bottomRow {
		return protoerr.New(protoerr.BadAddress, "display.RollDown", nil)
	}
	span := bottomRow - topRow + 1
	if n > span {
		n = span
	}
	for r := bottomRow; r >= topRow+n; r-- {
		copy(b.row(r), b.row(r-n))
	}
	for r := topRow; r < topRow+n; r++ {
		b.blankRow(r)
	}
	return nil
}

func (b *Buffer) row(r int) []Cell {
	start := r * b.cols
	return b.cells[start : start+b.cols]
}

func (b *Buffer) blankRow(r int) {
	row := b.row(r)
	for i := range row {
		row[i] = Cell{Char: ' ', dirty: true}
	}
}

// Snapshot is an opaque copy of a Buffer's cells and cursor position,
// produced by Save and consumed by Restore, backing the 5250
// Save-Screen/Restore-Screen commands.
type Snapshot struct {
	cells          []Cell
	cursorRow, cursorCol int
}

// Save captures the buffer's current cells and cursor position.
func (b *Buffer) Save() Snapshot {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return Snapshot{cells: cells, cursorRow: b.cursorRow, cursorCol: b.cursorCol}
}

// Restore replaces the buffer's cells and cursor with a prior Save,
// marking every cell dirty so a renderer repaints the whole screen.
func (b *Buffer) Restore(snap Snapshot) error {
	if len(snap.cells) != len(b.cells) {
		return protoerr.New(protoerr.BadCommand, "display.Restore", nil)
	}
	copy(b.cells, snap.cells)
	for i := range b.cells {
		b.cells[i].dirty = true
	}
	b.cursorRow, b.cursorCol = snap.cursorRow, snap.cursorCol
	return nil
}

// DrainDirty returns the addresses of every cell modified since the
// last DrainDirty call and clears their dirty flags, letting a renderer
// do incremental updates instead of repainting the whole screen.
func (b *Buffer) DrainDirty() []int {
	var addrs []int
	for i := range b.cells {
		if b.cells[i].dirty {
			addrs = append(addrs, i)
			b.cells[i].dirty = false
		}
	}
	return addrs
}
