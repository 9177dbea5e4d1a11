// Package errors defines the failure categories reported by assertion
// verification. Every error produced by this module carries a Kind so that
// callers can distinguish, say, an expired assertion (re-prompt the user to
// log in) from a forged one (reject outright), and a stack trace captured at
// the point the error originated.
package errors

import (
	stderrors "errors"

	"github.com/go-errors/errors"
)

// Kind discriminates verification failures.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this module.
	KindUnknown Kind = iota
	// KindMalformedToken covers parse and structure failures, including any
	// missing required field anywhere in the verification pipeline.
	KindMalformedToken
	// KindExpiredSignature is reported when a certificate or assertion is past
	// its expiration time.
	KindExpiredSignature
	// KindInvalidSignature covers signature mismatches and untrusted root
	// issuers.
	KindInvalidSignature
	// KindUnsupportedCertChain is reported for certificate chains longer than
	// one link. Multi-certificate chains are rejected by policy: their meaning
	// is undefined by the protocol and accepting them would be a security hole.
	KindUnsupportedCertChain
	// KindAudienceMismatch is reported when the assertion's audience does not
	// match the caller's expectation.
	KindAudienceMismatch
	// KindConnection covers network and remote-service failures.
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindMalformedToken:
		return "malformed token"
	case KindExpiredSignature:
		return "expired signature"
	case KindInvalidSignature:
		return "invalid signature"
	case KindUnsupportedCertChain:
		return "unsupported certificate chain"
	case KindAudienceMismatch:
		return "audience mismatch"
	case KindConnection:
		return "connection error"
	default:
		return "unknown error"
	}
}

// Error is a verification failure. It wraps an errors.Error so a backtrace of
// where the error originated is available via Stack(). The intent is for this
// type to only be used when errors are originated. Any circumstance where an
// error is being wrapped and passed up the stack can just use the `%w`
// formatter.
type Error struct {
	kind Kind
	err  *errors.Error
}

// Errorf creates a new error of the given kind with the given message.
func Errorf(kind Kind, format string, a ...interface{}) *Error {
	return &Error{kind: kind, err: errors.Errorf(format, a...)}
}

// Error returns the error's kind and message.
func (e *Error) Error() string {
	return e.kind.String() + ": " + e.err.Error()
}

// Kind returns the error's failure category.
func (e *Error) Kind() Kind {
	return e.kind
}

// Stack returns the error's message and the stack trace captured when it was
// originated.
func (e *Error) Stack() string {
	return e.err.ErrorStack()
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the Kind of err, unwrapping as needed, or KindUnknown if err
// did not originate in this module.
func KindOf(err error) Kind {
	var verificationError *Error
	if stderrors.As(err, &verificationError) {
		return verificationError.kind
	}

	return KindUnknown
}

// IsKind reports whether err is a verification failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTrustError reports whether err means the assertion was structurally sound
// but could not be trusted: expired, badly signed, carrying an unsupported
// chain, or intended for a different audience.
func IsTrustError(err error) bool {
	switch KindOf(err) {
	case KindExpiredSignature, KindInvalidSignature, KindUnsupportedCertChain, KindAudienceMismatch:
		return true
	default:
		return false
	}
}
