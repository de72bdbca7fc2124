// Package protoerr defines the shared error-kind taxonomy used across
// the transport, telnet, display, fields, parser, session, and
// controller packages, so callers can switch on a single Kind instead
// of package-specific sentinel errors.
package protoerr

import "fmt"

// Kind classifies a protocol error for propagation-policy decisions:
// whether the session must close, whether the record is merely
// recorded as a diagnostic, or whether the current record is aborted
// but the session stays open.
type Kind int

const (
	TransportClosed Kind = iota
	TransportIO
	NegotiationLoop
	MalformedSubnegotiation
	UnsupportedOption
	BadCommand
	BadAddress
	TruncatedRecord
	TruncatedStructuredField
	UnknownSF
	FieldOverlap
	FieldValidation
	KeyboardLocked
	IdleTimeout
	Busy
)

func (k Kind) String() string {
	switch k {
	case TransportClosed:
		return "TransportClosed"
	case TransportIO:
		return "TransportIO"
	case NegotiationLoop:
		return "NegotiationLoop"
	case MalformedSubnegotiation:
		return "MalformedSubnegotiation"
	case UnsupportedOption:
		return "UnsupportedOption"
	case BadCommand:
		return "BadCommand"
	case BadAddress:
		return "BadAddress"
	case TruncatedRecord:
		return "TruncatedRecord"
	case TruncatedStructuredField:
		return "TruncatedStructuredField"
	case UnknownSF:
		return "UnknownSF"
	case FieldOverlap:
		return "FieldOverlap"
	case FieldValidation:
		return "FieldValidation"
	case KeyboardLocked:
		return "KeyboardLocked"
	case IdleTimeout:
		return "IdleTimeout"
	case Busy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// Fatal reports whether an error of this kind must close the session.
func (k Kind) Fatal() bool {
	switch k {
	case TransportClosed, TransportIO, NegotiationLoop, MalformedSubnegotiation, UnsupportedOption:
		return true
	default:
		return false
	}
}

// RecordedDiagnostic reports whether an error of this kind is recorded
// to the diagnostics ring while execution continues, rather than
// aborting the current record.
func (k Kind) RecordedDiagnostic() bool {
	switch k {
	case UnknownSF, FieldOverlap:
		return true
	default:
		return false
	}
}

// AbortsRecord reports whether an error of this kind aborts the
// current record (and asserts keyboard lock) without closing the
// session.
func (k Kind) AbortsRecord() bool {
	switch k {
	case BadCommand, BadAddress, TruncatedRecord, TruncatedStructuredField:
		return true
	default:
		return false
	}
}

// Error wraps an underlying cause with a Kind and the operation that
// produced it, implementing Unwrap so callers can errors.Is/As through
// to the original cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error. err may be nil when the kind alone is the
// diagnostic (e.g. Busy, KeyboardLocked).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
