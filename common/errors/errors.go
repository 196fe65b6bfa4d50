package errors

import "fmt"

// ErrorCode 에러 코드 정의
type ErrorCode string

const (
	// Validation Errors
	ErrCodeInvalidCheckout     ErrorCode = "INVALID_CHECKOUT"
	ErrCodeProductNotFound     ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeCouponInvalid       ErrorCode = "COUPON_INVALID"
	ErrCodeCouponExpired       ErrorCode = "COUPON_EXPIRED"
	ErrCodeCouponBelowMinimum  ErrorCode = "COUPON_BELOW_MINIMUM"
	ErrCodeOrderNotFound       ErrorCode = "ORDER_NOT_FOUND"

	// Technical Errors
	ErrCodeGatewayError        ErrorCode = "GATEWAY_ERROR"
	ErrCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrCodeTimeoutError        ErrorCode = "TIMEOUT_ERROR"
	ErrCodeSerializationError  ErrorCode = "SERIALIZATION_ERROR"
	ErrCodeConfigurationError  ErrorCode = "CONFIGURATION_ERROR"
)

// DomainError 도메인 에러 구조체
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// New 새로운 도메인 에러 생성
func New(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Wrap 기존 에러를 래핑한 도메인 에러 생성
func Wrap(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Code 에러 코드 추출 (도메인 에러가 아니면 UNKNOWN 반환)
func Code(err error) ErrorCode {
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr.Code
	}
	return "UNKNOWN"
}

// IsRetryable 재시도 가능한 에러인지 판단
func IsRetryable(err error) bool {
	switch Code(err) {
	case ErrCodeGatewayError, ErrCodeDatabaseError, ErrCodeTimeoutError:
		return true
	}
	return false
}

// IsValidation 호출자 입력 오류인지 판단 (재시도 불필요)
func IsValidation(err error) bool {
	switch Code(err) {
	case ErrCodeInvalidCheckout, ErrCodeProductNotFound, ErrCodeCouponInvalid,
		ErrCodeCouponExpired, ErrCodeCouponBelowMinimum:
		return true
	}
	return false
}
