package transport

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error is returned when a remote call does not succeed: a non-2xx status,
// an undecodable body or a network failure (StatusCode 0).
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.StatusCode != 0 {
		_, _ = fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		sb.WriteString(": ")
		sb.WriteString(body)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail is the raw failure detail shown to the user.
func (e *Error) Detail() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		if e.StatusCode != 0 {
			return fmt.Sprintf("%d %s", e.StatusCode, body)
		}
		return body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// IsNetwork reports whether the request never got an HTTP response.
func (e *Error) IsNetwork() bool {
	return e.StatusCode == 0
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Detail returns the user-facing detail of any error.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	if te, ok := AsError(err); ok {
		return te.Detail()
	}
	return err.Error()
}
