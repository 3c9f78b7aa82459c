package dto

import "net/http"

// Transport-level error codes
const (
	ErrCodeUnknown      = "ERR_UNKNOWN"
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeConflict     = "ERR_CONFLICT"
)

// transportErrorHTTPStatus maps transport error codes to HTTP status codes
var transportErrorHTTPStatus = map[string]int{
	ErrCodeUnknown:      http.StatusInternalServerError,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
}

// domainErrorHTTPStatus maps domain error codes to HTTP status codes.
// Domain codes reach clients verbatim so the frontend can branch on them;
// only the status is derived here.
var domainErrorHTTPStatus = map[string]int{
	// invalid input -> 400
	"INVALID_RECEIVABLE_NUMBER": http.StatusBadRequest,
	"INVALID_PAYMENT_NUMBER":    http.StatusBadRequest,
	"INVALID_CUSTOMER":          http.StatusBadRequest,
	"INVALID_DESCRIPTION":       http.StatusBadRequest,
	"INVALID_AMOUNT":            http.StatusBadRequest,
	"INVALID_INSTALLMENTS":      http.StatusBadRequest,
	"INVALID_TERM":              http.StatusBadRequest,
	"INVALID_ADJUSTMENT":        http.StatusBadRequest,
	"INVALID_PAYMENT_KIND":      http.StatusBadRequest,
	"INVALID_PAYMENT_METHOD":    http.StatusBadRequest,
	"INVALID_TARGET":            http.StatusBadRequest,
	"INSTALLMENT_MISMATCH":      http.StatusBadRequest,
	"INVALID_REASON":            http.StatusBadRequest,
	"INVALID_PERIOD":            http.StatusBadRequest,
	"INVALID_SELLER":            http.StatusBadRequest,
	"INVALID_RECEIVABLE":        http.StatusBadRequest,
	"VALIDATION_ERROR":          http.StatusBadRequest,

	// missing resources -> 404
	"NOT_FOUND":              http.StatusNotFound,
	"RECEIVABLE_NOT_FOUND":   http.StatusNotFound,
	"INSTALLMENT_NOT_FOUND":  http.StatusNotFound,
	"PAYMENT_NOT_FOUND":      http.StatusNotFound,
	"ORDER_NOT_FOUND":        http.StatusNotFound,
	"PAYMENT_TERM_NOT_FOUND": http.StatusNotFound,

	// conflicting state -> 409
	"ALREADY_EXISTS":            http.StatusConflict,
	"CONCURRENCY_CONFLICT":      http.StatusConflict,
	"ACCOUNTS_ALREADY_LAUNCHED": http.StatusConflict,

	// business rule violations -> 422
	"INVALID_STATE":            http.StatusUnprocessableEntity,
	"EXCEEDS_OUTSTANDING":      http.StatusUnprocessableEntity,
	"INSTALLMENT_PAID":         http.StatusUnprocessableEntity,
	"INSTALLMENT_SUM_MISMATCH": http.StatusUnprocessableEntity,
	"ALREADY_REVERSED":         http.StatusUnprocessableEntity,
	"INVALID_REVERSAL":         http.StatusUnprocessableEntity,

	// auth -> 401/403
	"UNAUTHORIZED": http.StatusUnauthorized,
	"FORBIDDEN":    http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes fall through to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := transportErrorHTTPStatus[code]; ok {
		return status
	}
	if status, ok := domainErrorHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
