// Package messages renders errors and reports for the CLI.
package messages

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/aatumaykin/chronos/internal/constants"
)

// FormatError formats an error with its hints.
//
// Parameters:
//   - err: The error to format
//
// Returns:
//   - "Error: " line followed by one line per distinct hint
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	builder := &strings.Builder{}
	builder.WriteString(fmt.Sprintf(constants.MsgErrorFormat, err))

	seen := make(map[string]bool)
	for _, hint := range errors.GetAllHints(err) {
		for _, line := range strings.Split(hint, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			builder.WriteString(fmt.Sprintf(constants.MsgErrorHint, line))
		}
	}

	return builder.String()
}

// FormatConfigLoadError formats a configuration loading error message.
//
// Parameters:
//   - err: The error that occurred during configuration loading
//
// Returns:
//   - Formatted configuration load error string
func FormatConfigLoadError(err error) string {
	return fmt.Sprintf(constants.MsgConfigLoadError, err)
}

// FormatValidationErrors formats a list of validation errors with numbering.
//
// Parameters:
//   - errs: Slice of validation errors to format
//
// Returns:
//   - Formatted string with all validation errors numbered (1, 2, 3...)
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	builder := &strings.Builder{}

	// Add validation error header
	builder.WriteString(constants.MsgConfigValidationError)

	// Add each validation error with numbering
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf(constants.MsgConfigValidatePrefix, fmt.Sprintf("%d. %v", i+1, err)))
	}

	return builder.String()
}
