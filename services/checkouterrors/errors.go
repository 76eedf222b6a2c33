package checkouterrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Step tells which provider interaction failed, so the UI can explain whether
// tokenization or the step-up confirmation went wrong.
type Step string

const (
	StepTokenize Step = "tokenize"
	StepConfirm  Step = "confirm"
	StepRedirect Step = "redirect"
)

// ValidationError is field-level, user-correctable and never fatal.
type ValidationError struct {
	FieldErrors map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed for fields: %s", strings.Join(fields, ", "))
}

// ProviderError means the payment provider rejected the operation. The
// message is safe to show verbatim.
type ProviderError struct {
	ProviderCode string
	Step         Step
	Message      string
}

func (e *ProviderError) Error() string {
	if e.ProviderCode == "" {
		return fmt.Sprintf("provider rejected %s: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("provider rejected %s (%s): %s", e.Step, e.ProviderCode, e.Message)
}

// NetworkError is a transport or script-load failure. Retryable by the user;
// never auto-retried to avoid duplicate charges.
type NetworkError struct {
	Message string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %s", e.Message)
}

// UnrecognizedMethodError is a programming error: a method id that was never
// registered reached the checkout.
type UnrecognizedMethodError struct {
	MethodID string
}

func (e *UnrecognizedMethodError) Error() string {
	return fmt.Sprintf("unrecognized payment method '%s'", e.MethodID)
}

// DuplicateMethodError is a programming error: the same method id was
// registered twice.
type DuplicateMethodError struct {
	MethodID string
}

func (e *DuplicateMethodError) Error() string {
	return fmt.Sprintf("payment method '%s' registered twice", e.MethodID)
}

// Kind classifies any error surfaced by the checkout into the stable taxonomy.
func Kind(err error) string {
	var validationErr *ValidationError
	var providerErr *ProviderError
	var networkErr *NetworkError
	var unrecognizedErr *UnrecognizedMethodError
	var duplicateErr *DuplicateMethodError

	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &providerErr):
		return "provider"
	case errors.As(err, &networkErr):
		return "network"
	case errors.As(err, &unrecognizedErr):
		return "unrecognized_method"
	case errors.As(err, &duplicateErr):
		return "duplicate_method"
	default:
		return "internal"
	}
}

// IsRetryable tells whether re-submitting the same attempt makes sense.
func IsRetryable(err error) bool {
	switch Kind(err) {
	case "validation", "provider", "network":
		return true
	default:
		return false
	}
}
