package postgrest

import (
	"fmt"
	"net/http"

	"savvy/internal/records"
)

// APIError is a non-2xx answer from the hosted record store.
type APIError struct {
	Op      string
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: HTTP %d: [%s] %s", e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
}

// Unwrap maps a 404 to records.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return records.ErrNotFound
	}
	return nil
}

// IsAuth reports whether the store rejected the session token or policy.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// PublicMessage is the store's own explanation, safe to show to the user.
func (e *APIError) PublicMessage() string {
	return e.Message
}
