// Package errors defines the error taxonomy shared by commands, the client
// manager and the base API wrapper. Callers match with the standard
// errors.Is / errors.As against the sentinels and types declared here.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCommand            = errors.New("command error")
	ErrAuthentication     = errors.New("authentication failed")
	ErrNotFound           = errors.New("not found")
	ErrAmbiguousMatch     = errors.New("ambiguous match")
	ErrForbidden          = errors.New("forbidden")
	ErrHTTP               = errors.New("http error")
	ErrUnsupportedVersion = errors.New("unsupported version")
)

// CommandError is a generic user-facing failure. The host prints its
// message without any further detail.
type CommandError struct {
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CommandError) Unwrap() error { return e.Err }

func (e *CommandError) Is(target error) bool { return target == ErrCommand }

// Commandf builds a CommandError. A %w verb keeps the wrapped error as cause.
func Commandf(format string, args ...any) error {
	wrapped := fmt.Errorf(format, args...)
	return &CommandError{Message: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

// AuthenticationError reports a credential or service catalog failure.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrAuthentication.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// NotFoundError reports that no resource (or command) matched Query.
// Suggestion, when set, is the closest known name.
type NotFoundError struct {
	Kind       string
	Query      string
	Suggestion string
	Err        error
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "resource"
	}
	var msg string
	if kind == "command" {
		msg = fmt.Sprintf("unknown command %q", e.Query)
	} else {
		msg = fmt.Sprintf("no %s with a name or ID of '%s' exists", kind, e.Query)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrCommand
}

// AmbiguousMatchError reports that more than one resource (or command)
// matched Query. IDs lists the conflicting identifiers.
type AmbiguousMatchError struct {
	Kind  string
	Query string
	IDs   []string
}

func (e *AmbiguousMatchError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "resource"
	}
	if kind == "command" {
		return fmt.Sprintf("ambiguous command %q: could be %s", e.Query, strings.Join(e.IDs, ", "))
	}
	msg := fmt.Sprintf("more than one %s exists with the name or ID '%s'", kind, e.Query)
	if len(e.IDs) > 0 {
		msg += ": " + strings.Join(e.IDs, ", ")
	}
	return msg
}

func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch || target == ErrCommand
}

// HTTPError is a non-2xx response translated at the API wrapper boundary.
type HTTPError struct {
	StatusCode int
	Message    string
	Method     string
	URL        string
	RequestID  string
}

func (e *HTTPError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (HTTP %d)", e.message(), e.StatusCode)
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (Request-ID: %s)", e.RequestID)
	}
	return b.String()
}

func (e *HTTPError) message() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.StatusCode {
	case 401:
		return "The request you have made requires authentication."
	case 403:
		return "You are not authorized to perform the requested action."
	case 404:
		return "The resource could not be found."
	}
	return fmt.Sprintf("%s %s failed", e.Method, e.URL)
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrHTTP:
		return true
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrForbidden:
		return e.StatusCode == 403
	case ErrAuthentication:
		return e.StatusCode == 401
	}
	return false
}

// UnsupportedVersionError is returned when a requested API version has no
// registered client.
type UnsupportedVersionError struct {
	API       string
	Version   string
	Supported []string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("invalid %s client version '%s'. must be one of: %s",
		e.API, e.Version, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion || target == ErrCommand
}

// IsUserFacing reports whether err belongs to the taxonomy above. The shell
// prints such errors as a plain message; anything else is treated as a bug.
func IsUserFacing(err error) bool {
	for _, target := range []error{ErrCommand, ErrAuthentication, ErrHTTP, ErrNotFound, ErrAmbiguousMatch} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
