package domain

import (
	"errors"
	"fmt"
)

// Error kind identifiers as they appear in tool result envelopes.
const (
	KindConfiguration        = "ConfigurationError"
	KindValidation           = "ValidationError"
	KindAuthentication       = "AuthenticationError"
	KindApplianceUnreachable = "ApplianceUnreachableError"
	KindApplianceRejected    = "ApplianceRejected"
	KindInternal             = "InternalError"
)

// ConfigurationError reports a fatal startup misconfiguration, e.g. a
// missing OPENDTU_HOST.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// ValidationError reports a limit command that failed local validation.
// No network call is made for a command that fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthenticationError reports a 401 or 403 from the appliance. The
// request is never retried with different credentials.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// ApplianceUnreachableError reports a transport-level failure: connection
// refused, timeout, DNS failure. Reads may be retried once; writes never.
type ApplianceUnreachableError struct {
	Host string
	Err  error
}

func (e *ApplianceUnreachableError) Error() string {
	return fmt.Sprintf("appliance %s unreachable: %v", e.Host, e.Err)
}

func (e *ApplianceUnreachableError) Unwrap() error { return e.Err }

// ApplianceRejectedError reports that the appliance responded but signalled
// failure, either via a non-success HTTP status or via the status field of
// an otherwise successful JSON body. The appliance's message is carried
// verbatim.
type ApplianceRejectedError struct {
	Status  string
	Message string
}

func (e *ApplianceRejectedError) Error() string {
	if e.Message == "" {
		return "appliance rejected request: " + e.Status
	}
	return fmt.Sprintf("appliance rejected request (%s): %s", e.Status, e.Message)
}

// KindOf maps an error to its envelope kind. Unknown errors map to
// KindInternal so the envelope contract holds for every failure.
func KindOf(err error) string {
	var (
		cfgErr    *ConfigurationError
		valErr    *ValidationError
		authErr   *AuthenticationError
		unreached *ApplianceUnreachableError
		rejected  *ApplianceRejectedError
	)
	switch {
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &unreached):
		return KindApplianceUnreachable
	case errors.As(err, &rejected):
		return KindApplianceRejected
	default:
		return KindInternal
	}
}
