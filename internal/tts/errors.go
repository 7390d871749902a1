package tts

import (
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrNoEngineConfigured indicates no TTS engine has been selected
	ErrNoEngineConfigured = errors.New("no TTS engine configured - specify --engine edge, gtts, piper, polly or google")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrEngineNotAvailable indicates the selected engine is not available
	ErrEngineNotAvailable = errors.New("selected TTS engine is not available")

	// ErrSynthesisFailed indicates synthesis operation failed
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrEmptyText is returned when attempting to synthesize empty text
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong is returned when a chunk exceeds the engine limit
	ErrTextTooLong = errors.New("text too long for engine")

	// ErrInvalidRate indicates the speech rate is out of range
	ErrInvalidRate = fmt.Errorf("speech rate must be between %d and %d words per minute", MinRate, MaxRate)

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Engine  EngineType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *TTSError) Error() string {
	prefix := string(e.Code)
	if e.Engine != EngineNone {
		prefix = string(e.Engine) + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorCodeTextTooLong       ErrorCode = "TEXT_TOO_LONG"
	ErrorCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorCodeCanceled          ErrorCode = "CANCELED"
)

// NewTTSError creates a new TTS error
func NewTTSError(engine EngineType, code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Engine:  engine,
		Message: message,
		Cause:   cause,
	}
}

// IsFatal returns true if no further chunk can succeed with this engine
func (e *TTSError) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable, ErrorCodeCanceled:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err is a TTSError that should stop a conversion.
func IsFatal(err error) bool {
	var te *TTSError
	return errors.As(err, &te) && te.IsFatal()
}
