package bridge

import "fmt"

const (
	operationErrorTemplateConstant          = "%s (state %s): %v"
	operationErrorWithoutStateTemplateConst = "%s: %v"
)

// FailureKind classifies bridge operation failures for user-facing reporting.
type FailureKind string

// Failure kinds reported by bridge operations.
const (
	FailureKindMalformedConfig      FailureKind = "MalformedConfig"
	FailureKindNotABridgeRepository FailureKind = "NotABridgeRepository"
	FailureKindNoBridgeMarker       FailureKind = "NoBridgeMarker"
	FailureKindCheckoutBlocked      FailureKind = "CheckoutBlocked"
	FailureKindLinkError            FailureKind = "LinkError"
	FailureKindRevisionUnavailable  FailureKind = "RevisionUnavailable"
	FailureKindPartialSwitchWarning FailureKind = "PartialSwitchWarning"
)

// OperationError couples a failure kind with the state an operation reached.
type OperationError struct {
	Kind  FailureKind
	State string
	Err   error
}

// Error renders the failure kind, reached state, and underlying cause.
func (operationError *OperationError) Error() string {
	if len(operationError.State) == 0 {
		return fmt.Sprintf(operationErrorWithoutStateTemplateConst, operationError.Kind, operationError.Err)
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Kind, operationError.State, operationError.Err)
}

// Unwrap exposes the underlying cause.
func (operationError *OperationError) Unwrap() error {
	return operationError.Err
}

// NewOperationError builds an OperationError for the supplied kind and cause.
func NewOperationError(kind FailureKind, state string, cause error) *OperationError {
	return &OperationError{Kind: kind, State: state, Err: cause}
}

// KindOf extracts the failure kind from an error chain when present.
func KindOf(candidate error) (FailureKind, bool) {
	operationError, matches := candidate.(*OperationError)
	if matches {
		return operationError.Kind, true
	}
	type unwrapper interface{ Unwrap() error }
	wrapped, canUnwrap := candidate.(unwrapper)
	if canUnwrap && wrapped.Unwrap() != nil {
		return KindOf(wrapped.Unwrap())
	}
	return "", false
}
