package fields

import (
	"testing"

	"github.com/dtg01100/tn5250r-go/internal/display"
)

func TestScanBuildsNonOverlappingTable(t *testing.T) {
	buf := display.NewBuffer(display.Model2)
	attrAddrs := []int{0, 10, 20}
	ffws := []FFW{FFWProtected, 0, FFWNumericOnly}
	fcws := []FCW{0, 0, 0}

	tbl, err := Scan(buf, attrAddrs, ffws, fcws)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(tbl.All()) != 3 {
		t.Fatalf("All() = %d fields, want 3", len(tbl.All()))
	}
	if tbl.All()[0].EndAddr != 9 {
		t.Errorf("field 0 EndAddr = %d, want 9", tbl.All()[0].EndAddr)
	}
}

func TestScanRejectsOverlap(t *testing.T) {
	buf := display.NewBuffer(display.Model2)
	attrAddrs := []int{5, 5}
	ffws := []FFW{0, 0}
	fcws := []FCW{0, 0}
	if _, err := Scan(buf, attrAddrs, ffws, fcws); err == nil {
		t.Error("expected FieldOverlap error for duplicate start address")
	}
}

func TestAtFindsContainingField(t *testing.T) {
	buf := display.NewBuffer(display.Model2)
	tbl, err := Scan(buf, []int{0, 10}, []FFW{0, 0}, []FCW{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	idx, f, ok := tbl.At(5)
	if !ok || idx != 0 {
		t.Fatalf("At(5) = idx %d ok %v, want idx 0", idx, ok)
	}
	_ = f
}

func TestSetMDTAndModified(t *testing.T) {
	buf := display.NewBuffer(display.Model2)
	tbl, _ := Scan(buf, []int{0, 10}, []FFW{0, 0}, []FCW{0, 0})
	if err := tbl.SetMDT(1); err != nil {
		t.Fatalf("SetMDT: %v", err)
	}
	mod := tbl.Modified()
	if len(mod) != 1 || mod[0] != 1 {
		t.Errorf("Modified() = %v, want [1]", mod)
	}
	tbl.ClearAllMDT()
	if len(tbl.Modified()) != 0 {
		t.Error("ClearAllMDT did not clear MDT")
	}
}

func TestNextPrevInputFieldSkipsProtected(t *testing.T) {
	buf := display.NewBuffer(display.Model2)
	tbl, _ := Scan(buf, []int{0, 10, 20}, []FFW{FFWProtected, 0, FFWProtected}, []FCW{0, 0, 0})

	idx, ok := tbl.NextInputField(0)
	if !ok || idx != 1 {
		t.Fatalf("NextInputField(0) = %d, want 1", idx)
	}
	idx, ok = tbl.NextInputField(1)
	if !ok || idx != 1 {
		t.Fatalf("NextInputField(1) wrapped to %d, want 1 (only unprotected)", idx)
	}
	idx, ok = tbl.PrevInputField(0)
	if !ok || idx != 1 {
		t.Fatalf("PrevInputField(0) = %d, want 1", idx)
	}
}

func TestNextInputFieldNoneUnprotected(t *testing.T) {
	buf := display.NewBuffer(display.Model2)
	tbl, _ := Scan(buf, []int{0}, []FFW{FFWProtected}, []FCW{0})
	if _, ok := tbl.NextInputField(0); ok {
		t.Error("expected no input field when all fields protected")
	}
}

func TestValidateInputNumericOnlyRejectsLetters(t *testing.T) {
	f := Field{FFW: FFWNumericOnly}
	if _, err := ValidateInput(f, []rune("12a")); err == nil {
		t.Error("expected FieldValidation for non-digit in numeric-only field")
	}
	if _, err := ValidateInput(f, []rune("123")); err != nil {
		t.Errorf("unexpected error for valid numeric input: %v", err)
	}
}

func TestValidateInputUppercase(t *testing.T) {
	f := Field{FFW: FFWUppercase}
	out, err := ValidateInput(f, []rune("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "ABC" {
		t.Errorf("got %q, want ABC", string(out))
	}
}

func TestValidateInputRightAdjustZeroFill(t *testing.T) {
	f := Field{FFW: FFWRightAdjust | FFWZeroFill}
	out, err := ValidateInput(f, []rune("  42"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "0042" {
		t.Errorf("got %q, want 0042", string(out))
	}
}

func TestCheckMandatoryFillRejectsBlank(t *testing.T) {
	f := Field{FCW: FCWMandatoryEnter, FFW: FFWMandatoryFill, MDT: true}
	if err := CheckMandatory(f, []rune("1 3")); err == nil {
		t.Error("expected FieldValidation for blank position in mandatory-fill field")
	}
	if err := CheckMandatory(f, []rune("123")); err != nil {
		t.Errorf("unexpected error for fully-filled field: %v", err)
	}
}

func TestCheckMandatoryEnterRequiresMDT(t *testing.T) {
	f := Field{FCW: FCWMandatoryEnter, MDT: false}
	if err := CheckMandatory(f, []rune("x")); err == nil {
		t.Error("expected FieldValidation when mandatory-enter field has no MDT")
	}
}
