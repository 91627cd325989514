package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors callers match with errors.Is.
var (
	// ErrUnauthorized marks a 401: the session is no longer valid.
	ErrUnauthorized = errors.New("client: session expired")
	// ErrForbidden marks a 403: the actor lacks permission.
	ErrForbidden = errors.New("client: access denied")
	// ErrTransport marks a request that never produced an HTTP response.
	ErrTransport = errors.New("client: transport failure")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is match auth failures against the sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// newAPIError builds an APIError from a response body, preferring the
// backend's message fields and falling back to "HTTP <status>".
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	e.Code, e.Message = parseErrorBody(body)
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", status)
	}
	return e
}

func parseErrorBody(body []byte) (code, message string) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", ""
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", ""
	}

	// {"error":{"code":"ERR_X","message":"..."}} as the ERP backend sends it.
	if nested, ok := doc["error"].(map[string]any); ok {
		code, _ = nested["code"].(string)
		if msg, _ := nested["message"].(string); msg != "" {
			return code, msg
		}
		if msg, _ := nested["description"].(string); msg != "" {
			return code, msg
		}
	}
	if c, ok := doc["code"].(string); ok && code == "" {
		code = c
	}
	for _, key := range []string{"message", "error", "msg"} {
		if msg, ok := doc[key].(string); ok && msg != "" {
			return code, msg
		}
	}
	return code, ""
}
