// Package fields builds and maintains the 5250 field table: the set of
// input/output fields discovered by scanning a display.Buffer for
// Start-Of-Field (SOF) attribute cells, in left-to-right/top-to-bottom
// order, plus per-field MDT (modified data tag) state, navigation, and
// validation.
//
// The Field type is grounded on racingmars-go3270's Field (row/col +
// write/intense booleans), generalized from an author-declared screen
// description into a table derived by scanning, and from the 3270
// attribute model to the 5250 FFW/FCW byte-pair model.
package fields

import (
	"sort"

	"github.com/dtg01100/tn5250r-go/internal/display"
	"github.com/dtg01100/tn5250r-go/internal/protoerr"
)

// FFW bits (Field Format Word, first attribute byte) relevant to
// validation and navigation.
type FFW byte

const (
	FFWProtected     FFW = 1 << 5
	FFWNumericOnly   FFW = 1 << 4
	FFWMandatoryFill FFW = 1 << 3
	FFWRightAdjust   FFW = 1 << 2
	FFWZeroFill      FFW = 1 << 1
	FFWUppercase     FFW = 1 << 0
)

// FCW bits (Field Control Word, second attribute byte).
type FCW byte

const (
	FCWMandatoryEnter FCW = 1 << 5
	FCWAutoEnter      FCW = 1 << 4
)

// Field is one entry in the field table, discovered by scanning for a
// Start-Of-Field attribute cell.
type Field struct {
	StartAddr int // address of the attribute byte itself
	EndAddr   int // address of the last data cell (exclusive of next field's attribute)
	FFW       FFW
	FCW       FCW
	MDT       bool
}

func (f Field) Len(bufLen int) int {
	if f.EndAddr >= f.StartAddr {
		return f.EndAddr - f.StartAddr
	}
	return bufLen - f.StartAddr + f.EndAddr
}

func (f Field) Protected() bool    { return f.FFW&FFWProtected != 0 }
func (f Field) NumericOnly() bool  { return f.FFW&FFWNumericOnly != 0 }
func (f Field) MandatoryFill() bool { return f.FFW&FFWMandatoryFill != 0 }
func (f Field) RightAdjust() bool  { return f.FFW&FFWRightAdjust != 0 }
func (f Field) ZeroFill() bool     { return f.FFW&FFWZeroFill != 0 }
func (f Field) Uppercase() bool    { return f.FFW&FFWUppercase != 0 }
func (f Field) MandatoryEnter() bool { return f.FCW&FCWMandatoryEnter != 0 }
func (f Field) AutoEnter() bool    { return f.FCW&FCWAutoEnter != 0 }

// Table is the ordered, non-overlapping set of fields currently
// defined on a display.Buffer. Order is scan/discovery order (tab
// order), not author-declared order, per spec.md's invariant.
type Table struct {
	fields []Field
}

// Scan rebuilds the field table from the attribute addresses and their
// (ffw, fcw) pairs collected by the caller (the parser), ordered by
// address. Each field ends at the cell before the next field's
// attribute; the last one wraps around to the first. buf supplies only
// the buffer dimensions.
func Scan(buf *display.Buffer, attrAddrs []int, ffws []FFW, fcws []FCW) (*Table, error) {
	if len(attrAddrs) != len(ffws) || len(attrAddrs) != len(fcws) {
		return nil, protoerr.New(protoerr.BadCommand, "fields.Scan", nil)
	}
	rows, cols := buf.Dimensions()
	bufLen := rows * cols

	order := make([]int, len(attrAddrs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return attrAddrs[order[a]] < attrAddrs[order[b]] })

	t := &Table{fields: make([]Field, 0, len(attrAddrs))}
	for k, i := range order {
		addr := attrAddrs[i]
		end := bufLen - 1
		if k+1 < len(order) {
			end = (attrAddrs[order[k+1]] - 1 + bufLen) % bufLen
		} else if len(order) > 0 {
			end = (attrAddrs[order[0]] - 1 + bufLen) % bufLen
		}
		t.fields = append(t.fields, Field{
			StartAddr: addr,
			EndAddr:   end,
			FFW:       ffws[i],
			FCW:       fcws[i],
		})
	}
	if err := t.checkNonOverlap(bufLen); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) checkNonOverlap(bufLen int) error {
	seen := make([]bool, bufLen)
	for _, f := range t.fields {
		if seen[f.StartAddr] {
			return protoerr.New(protoerr.FieldOverlap, "fields.checkNonOverlap", nil)
		}
		seen[f.StartAddr] = true
	}
	return nil
}

// All returns the field table in scan order.
func (t *Table) All() []Field {
	return t.fields
}

// At returns the field whose range contains addr, or false if addr
// falls in no field (i.e. it is protected output-only space with no
// declared field).
func (t *Table) At(addr int) (int, Field, bool) {
	for i, f := range t.fields {
		if within(f, addr) {
			return i, f, true
		}
	}
	return -1, Field{}, false
}

func within(f Field, addr int) bool {
	if f.EndAddr >= f.StartAddr {
		return addr >= f.StartAddr && addr <= f.EndAddr
	}
	return addr >= f.StartAddr || addr <= f.EndAddr
}

// SetMDT sets the modified-data-tag bit for the field at index i.
func (t *Table) SetMDT(i int) error {
	if i < 0 || i >= len(t.fields) {
		return protoerr.New(protoerr.BadAddress, "fields.SetMDT", nil)
	}
	t.fields[i].MDT = true
	return nil
}

// ClearAllMDT clears MDT on every field, used by Write-To-Display's
// "reset MDT" WCC bit.
func (t *Table) ClearAllMDT() {
	for i := range t.fields {
		t.fields[i].MDT = false
	}
}

// Modified returns the indices of every field with MDT set, in scan
// order, for Read-MDT-Fields (0x52/0xF4).
func (t *Table) Modified() []int {
	var out []int
	for i, f := range t.fields {
		if f.MDT {
			out = append(out, i)
		}
	}
	return out
}

// NextInputField returns the index of the first non-protected field at
// or after index i+1, wrapping around, implementing Tab navigation. It
// returns false if there is no input field at all.
func (t *Table) NextInputField(i int) (int, bool) {
	n := len(t.fields)
	if n == 0 {
		return -1, false
	}
	for step := 1; step <= n; step++ {
		idx := (i + step) % n
		if !t.fields[idx].Protected() {
			return idx, true
		}
	}
	return -1, false
}

// PrevInputField returns the index of the nearest non-protected field
// before index i, wrapping around, implementing Back-Tab navigation.
func (t *Table) PrevInputField(i int) (int, bool) {
	n := len(t.fields)
	if n == 0 {
		return -1, false
	}
	for step := 1; step <= n; step++ {
		idx := ((i-step)%n + n) % n
		if !t.fields[idx].Protected() {
			return idx, true
		}
	}
	return -1, false
}
