package errors

import (
	"errors"
	"fmt"
)

// Error types for the auction engine
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeBusiness    ErrorType = "business_rule_violation"
	ErrorTypeFunds       ErrorType = "insufficient_funds"
	ErrorTypeConcurrency ErrorType = "concurrency_conflict"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeExternal    ErrorType = "external"
)

// AppError represents a structured application error. Every failure in the
// engine is scoped to one bid or one settlement attempt; nothing here is
// fatal to the process.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

// NewBusinessError reports a violated auction rule. Callers are expected to
// inspect Details for the current threshold (e.g., minimum_amount) and retry.
func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

// NewInsufficientFundsError surfaces a ledger rejection verbatim.
func NewInsufficientFundsError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeFunds,
		Code:       "INSUFFICIENT_FUNDS",
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

// NewConcurrencyError reports a lost race for the per-auction lock. The
// caller should retry with a fresh read of the current bid.
func NewConcurrencyError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConcurrency,
		Code:       "CONCURRENCY_CONFLICT",
		Message:    message,
		Retryable:  true,
		StatusCode: 409,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       "EXTERNAL_SERVICE_ERROR",
		Message:    fmt.Sprintf("%s service error: %s", service, message),
		Retryable:  true,
		StatusCode: 502,
		Details:    map[string]interface{}{"service": service},
	}
}

// Predefined common errors
var (
	ErrAuctionNotFound = NewNotFoundError("auction")
	ErrBidNotFound     = NewNotFoundError("bid")
	ErrAuctionNotActive = NewBusinessError("AUCTION_NOT_ACTIVE",
		"Auction is not accepting bids")
	ErrAlreadyPublished = NewBusinessError("ALREADY_PUBLISHED",
		"Auction has already been published")
	ErrEndTimeInPast = NewBusinessError("END_TIME_IN_PAST",
		"Auction end time must be in the future")
	ErrInvalidPriceRelationship = NewBusinessError("INVALID_PRICE_RELATIONSHIP",
		"Reserve and buy-now prices must exceed the starting price")
	ErrSellerCannotBid = NewBusinessError("SELLER_CANNOT_BID",
		"Sellers cannot bid on their own auctions")
	ErrBuyNowUnavailable = NewBusinessError("BUY_NOW_UNAVAILABLE",
		"Auction has no buy-now price or it is already claimed")
	ErrCeilingBelowAmount = NewValidationError("CEILING_BELOW_AMOUNT",
		"Auto-bid ceiling must be at least the bid amount")
	ErrNotSeller = NewBusinessError("NOT_SELLER",
		"Only the seller can perform this action")
)

// NewBidTooLowError reports a rejected bid along with the minimum amount
// that would currently be accepted.
func NewBidTooLowError(minimum string) *AppError {
	return NewBusinessError("BID_TOO_LOW",
		fmt.Sprintf("Bid too low, minimum is now %s", minimum)).
		WithDetails(map[string]interface{}{"minimum_amount": minimum})
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
