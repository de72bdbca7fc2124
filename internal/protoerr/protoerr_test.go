package protoerr

import (
	"errors"
	"testing"
)

func TestFatalKinds(t *testing.T) {
	fatal := []Kind{TransportClosed, TransportIO, NegotiationLoop, MalformedSubnegotiation, UnsupportedOption}
	for _, k := range fatal {
		if !k.Fatal() {
			t.Errorf("%s.Fatal() = false, want true", k)
		}
	}
	nonFatal := []Kind{FieldValidation, KeyboardLocked, Busy, IdleTimeout}
	for _, k := range nonFatal {
		if k.Fatal() {
			t.Errorf("%s.Fatal() = true, want false", k)
		}
	}
}

func TestRecordedDiagnosticKinds(t *testing.T) {
	if !UnknownSF.RecordedDiagnostic() || !FieldOverlap.RecordedDiagnostic() {
		t.Error("UnknownSF and FieldOverlap must be recorded diagnostics")
	}
	if BadCommand.RecordedDiagnostic() {
		t.Error("BadCommand must not be a recorded diagnostic")
	}
}

func TestAbortsRecordKinds(t *testing.T) {
	aborting := []Kind{BadCommand, BadAddress, TruncatedRecord, TruncatedStructuredField}
	for _, k := range aborting {
		if !k.AbortsRecord() {
			t.Errorf("%s.AbortsRecord() = false, want true", k)
		}
	}
	if Busy.AbortsRecord() {
		t.Error("Busy must not abort a record")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	e := New(TransportIO, "transport.Read", cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is did not find wrapped cause")
	}
	if e.Error() == "" {
		t.Error("Error() returned empty string")
	}
}

func TestErrorWithoutCause(t *testing.T) {
	e := New(Busy, "controller.Type", nil)
	if e.Error() == "" {
		t.Error("Error() returned empty string for nil cause")
	}
}
