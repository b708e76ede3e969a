package checkout

import (
	"fmt"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInactive          Code = "INACTIVE"
	CodeVariantNotFound   Code = "VARIANT_NOT_FOUND"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeIPBanned          Code = "IP_BANNED"
	CodeCooldown          Code = "COOLDOWN"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
)

// Error is the failure shape returned to callers of PlaceOrder and
// CheckEligibility. Two errors match under errors.Is when their codes match.
type Error struct {
	Code                     Code
	Message                  string
	ProductID                int64
	CooldownRemainingSeconds int
	CooldownMinutes          int
	Err                      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInactive          = &Error{Code: CodeInactive}
	ErrVariantNotFound   = &Error{Code: CodeVariantNotFound}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock}
	ErrOriginBanned      = &Error{Code: CodeIPBanned}
	ErrCooldownActive    = &Error{Code: CodeCooldown}
	ErrStoreUnavailable  = &Error{Code: CodeStoreUnavailable}
)

func validationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func productError(code Code, productID int64, message string) *Error {
	return &Error{Code: code, ProductID: productID, Message: message}
}

func unavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "the store is temporarily unavailable, please try again", Err: err}
}
