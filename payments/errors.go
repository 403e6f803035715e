package payments

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind is the closed taxonomy of errors the Monitor can classify,
// exactly spec.md §7 — a Go sum type expressed as a string-backed enum so
// that it logs readably and compares cheaply.
type ErrorKind string

const (
	KindRPCConnectionFailed    ErrorKind = "RpcConnectionFailed"
	KindNetworkTimeout         ErrorKind = "NetworkTimeout"
	KindRPCError               ErrorKind = "RpcError"
	KindDatabaseError          ErrorKind = "DatabaseError"
	KindTransactionNotFound    ErrorKind = "TransactionNotFound"
	KindTransactionFailed      ErrorKind = "TransactionFailed"
	KindAccountKeysError       ErrorKind = "AccountKeysError"
	KindInvalidAccountKeys     ErrorKind = "InvalidAccountKeys"
	KindMissingBalanceMetadata ErrorKind = "MissingBalanceMetadata"
	KindRecipientNotFound      ErrorKind = "RecipientNotFound"
	KindReferenceNotFound      ErrorKind = "ReferenceNotFound"
	KindAmountTooLow           ErrorKind = "AmountTooLow"
	KindSolValidationFailed    ErrorKind = "SolValidationFailed"
	KindValidationException    ErrorKind = "ValidationException"
)

// Severity is the operator-facing urgency of a classified error.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// rpcSubCode enumerates the generic-RPC-failure sub-codes that make a
// KindRPCError retryable, per spec.md §7.
type rpcSubCode string

const (
	RPCSubCodeInternal        rpcSubCode = "internal"
	RPCSubCodeRateLimit       rpcSubCode = "rate-limit"
	RPCSubCodeUnavailable     rpcSubCode = "unavailable"
	RPCSubCodeGatewayTimeout  rpcSubCode = "gateway-timeout"
)

var severityByKind = map[ErrorKind]Severity{
	KindRPCConnectionFailed:    SeverityCritical,
	KindNetworkTimeout:         SeverityCritical,
	KindRPCError:               SeverityMedium,
	KindDatabaseError:          SeverityCritical,
	KindTransactionNotFound:    SeverityMedium,
	KindTransactionFailed:      SeverityHigh,
	KindAccountKeysError:       SeverityMedium,
	KindInvalidAccountKeys:     SeverityHigh,
	KindMissingBalanceMetadata: SeverityMedium,
	KindRecipientNotFound:      SeverityHigh,
	KindReferenceNotFound:      SeverityHigh,
	KindAmountTooLow:           SeverityHigh,
	KindSolValidationFailed:    SeverityHigh,
	KindValidationException:    SeverityLow,
}

// unconditionallyRetryable holds the kinds whose retryability does not
// depend on an RPC sub-code.
var unconditionallyRetryable = map[ErrorKind]bool{
	KindRPCConnectionFailed:    true,
	KindNetworkTimeout:         true,
	KindTransactionNotFound:    true,
	KindMissingBalanceMetadata: true,
}

// Severity is a pure function of the error kind.
func (k ErrorKind) Severity() Severity {
	if s, ok := severityByKind[k]; ok {
		return s
	}
	return SeverityLow
}

// Retryable is a pure function of the error kind and, for KindRPCError
// only, an RPC sub-code.
func (k ErrorKind) Retryable(subCode string) bool {
	if unconditionallyRetryable[k] {
		return true
	}
	if k == KindRPCError {
		switch rpcSubCode(subCode) {
		case RPCSubCodeInternal, RPCSubCodeRateLimit, RPCSubCodeUnavailable, RPCSubCodeGatewayTimeout:
			return true
		}
	}
	return false
}

// ClassifiedError wraps a cause with the payment context the Classifier
// attaches before the error crosses a component boundary (spec.md §7
// "Propagation").
type ClassifiedError struct {
	Kind      ErrorKind
	SubCode   string // only meaningful for KindRPCError
	Cause     error
	Reference string
	Amount    decimal.Decimal
	TokenMint string
	Recipient string
}

// Error implements error.
func (e *ClassifiedError) Error() string {
	msg := fmt.Sprintf("%s: reference=%s", e.Kind, e.Reference)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	return msg
}

// Unwrap supports errors.Is/As against the underlying cause.
func (e *ClassifiedError) Unwrap() error { return e.Cause }

// Severity is a convenience forward to e.Kind.Severity().
func (e *ClassifiedError) Severity() Severity { return e.Kind.Severity() }

// Retryable is a convenience forward to e.Kind.Retryable(e.SubCode).
func (e *ClassifiedError) Retryable() bool { return e.Kind.Retryable(e.SubCode) }

// Classify wraps cause as a ClassifiedError of the given kind, attaching
// payment context. subCode is only consulted for KindRPCError.
func Classify(kind ErrorKind, subCode string, cause error, p *Payment) *ClassifiedError {
	ce := &ClassifiedError{
		Kind:    kind,
		SubCode: subCode,
		Cause:   cause,
	}
	if p != nil {
		ce.Reference = p.Reference
		ce.Amount = p.Amount
		ce.TokenMint = p.TokenMint
		ce.Recipient = p.Recipient
	}
	return ce
}

// AsClassifiedError unwraps err looking for a *ClassifiedError, returning
// it and true if found.
func AsClassifiedError(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ErrNotYetPresent is returned by the Reference Locator when the ledger has
// not (yet) observed any transaction touching the payment's reference key.
// It is a debug-logged signal, not an error (spec.md §4.2).
var ErrNotYetPresent = errors.New("reference not yet present on ledger")
