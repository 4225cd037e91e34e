package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// NoPassportError is raised when the data source has nothing for an address.
type NoPassportError struct {
	Address string
}

func (e NoPassportError) Error() string {
	return "no passport found for this address"
}

// InvalidRuleError is a community configured with an unknown deduplication rule.
type InvalidRuleError struct {
	Rule string
}

func (e InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid deduplication rule %q", e.Rule)
}

// ValidationError carries a detail message meant to be shown as is.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}
