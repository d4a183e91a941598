package recurrence

import "fmt"

// InvalidRuleError reports a malformed recurrence configuration.
type InvalidRuleError struct {
	Field  string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid recurrence rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid recurrence rule: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &InvalidRuleError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
