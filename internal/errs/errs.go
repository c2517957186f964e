// Package errs defines the error kinds surfaced to callers. Validation
// failures are never retried, provider failures may be retried as a whole
// run, and credential failures require re-authentication.
package errs

import "fmt"

// ValidationError reports bad caller input: malformed windows, unrecognized
// documents, missing columns, or invalid rows.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ProviderError reports a non-success response from the mail provider API.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider API error %d: %s", e.Status, e.Body)
}

// CredentialError reports an unusable credential: no refresh token, or the
// provider rejected the refresh exchange.
type CredentialError struct {
	Msg string
	Err error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
