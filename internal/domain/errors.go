package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrQuotaExceeded     = errors.New("api quota exceeded, please try again later")
	ErrCircuitOpen       = errors.New("circuit breaker is open, please try again later")
	ErrParse             = errors.New("failed to parse analysis response")
	ErrContentBlocked    = errors.New("content blocked")
	ErrEmptyResponse     = errors.New("empty response from api")
	ErrNoImageFound      = errors.New("no image payload found in response")
	ErrStorage           = errors.New("storage failure")
	ErrNoImagesGenerated = errors.New("failed to generate any images")
)

// ErrorKind labels a failure of an external call so callers can pick a
// backoff policy or decide not to retry at all.
type ErrorKind string

const (
	KindRateLimit      ErrorKind = "RATE_LIMIT"
	KindQuotaExceeded  ErrorKind = "QUOTA_EXCEEDED"
	KindNetwork        ErrorKind = "NETWORK_ERROR"
	KindUnknown        ErrorKind = "UNKNOWN"
	KindParse          ErrorKind = "PARSE_ERROR"
	KindContentBlocked ErrorKind = "CONTENT_BLOCKED"
	KindEmptyResponse  ErrorKind = "EMPTY_RESPONSE"
	KindNoImageFound   ErrorKind = "NO_IMAGE_FOUND"
	KindStorage        ErrorKind = "STORAGE_ERROR"
	KindCircuitOpen    ErrorKind = "CIRCUIT_OPEN"
)

// Retryable reports whether a failure of this kind may be attempted again.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimit, KindNetwork, KindUnknown:
		return true
	default:
		return false
	}
}

// KindOf maps structural failures onto their kind. Transient provider
// failures are classified by the resilience package instead.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrContentBlocked):
		return KindContentBlocked
	case errors.Is(err, ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, ErrNoImageFound):
		return KindNoImageFound
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}
