package cases

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds shared by the store, remote client, and repository.
// Callers classify failures with errors.Is against these markers.
var (
	// ErrTransport covers an unreachable remote or a malformed response.
	ErrTransport = errors.New("transport error")
	// ErrNotFound covers a missing case or result.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers a malformed payload rejected before any network
	// or storage attempt.
	ErrValidation = errors.New("validation error")
	// ErrPersistence covers local storage read/write failures.
	ErrPersistence = errors.New("persistence error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a failure is worth retrying as-is. Validation
// and not-found failures are not; they need different input.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "case operation failed"
	}
	return strings.Join(parts, ": ")
}
