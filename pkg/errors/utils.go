package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code.String()
	}
	return ""
}

// GetContext returns the context of the outermost *Error in err's chain.
func GetContext(err error) map[string]string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Context
	}
	return nil
}

// FormatError renders an error over several lines for CLI output
func FormatError(err error) string {
	var e *Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}

	parts := []string{
		fmt.Sprintf("Code: %s", e.Code),
		fmt.Sprintf("Message: %s", e.Message),
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts = append(parts, "Context:")
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("  %s: %v", k, e.Context[k]))
		}
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Cause))
	}

	return strings.Join(parts, "\n")
}

// AsError converts any error to *Error, wrapping foreign errors as common.internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	return New(CommonInternal, err.Error(), err)
}
