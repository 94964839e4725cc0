package publisher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Classification buckets a platform failure for retry policy and for the
// message shown to the user.
type Classification string

const (
	ClassRateLimited Classification = "rate_limited"
	ClassAuthFailed  Classification = "auth_failed"
	ClassValidation  Classification = "validation"
	ClassTransient   Classification = "transient"
	ClassUnknown     Classification = "unknown"
)

// RateLimitCooldown is the retry-after hint attached to rate-limited
// failures.
const RateLimitCooldown = 15 * time.Minute

// PlatformError wraps a failure from a platform API, preserving the raw
// message.
type PlatformError struct {
	Platform string
	Message  string
	Class    Classification
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

// Retryable reports whether the queue should redeliver after this error.
// Auth and validation failures need user action; retrying them burns
// attempts for nothing.
func (e *PlatformError) Retryable() bool {
	switch e.Class {
	case ClassAuthFailed, ClassValidation:
		return false
	default:
		return true
	}
}

// Errorf builds a PlatformError, classifying from the formatted message.
func Errorf(platform string, format string, args ...interface{}) *PlatformError {
	msg := fmt.Sprintf(format, args...)
	return &PlatformError{Platform: platform, Message: msg, Class: classifyMessage(msg)}
}

// ValidationErrorf builds a non-retryable validation failure.
func ValidationErrorf(platform string, format string, args ...interface{}) *PlatformError {
	return &PlatformError{Platform: platform, Message: fmt.Sprintf(format, args...), Class: ClassValidation}
}

func classifyMessage(msg string) Classification {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate limit"):
		return ClassRateLimited
	case strings.Contains(lower, "401"), strings.Contains(lower, "403"), strings.Contains(lower, "authentication failed"):
		return ClassAuthFailed
	default:
		return ClassUnknown
	}
}

// Classify extracts the classification from any error. Non-platform
// errors classify by message, so wrapped HTTP failures still bucket
// correctly.
func Classify(err error) Classification {
	if err == nil {
		return ClassUnknown
	}
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return classifyMessage(err.Error())
}
