package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError is a non-2xx backend response. Detail carries the body's
// "detail" field when the backend sent one; otherwise the message falls
// back to the bare status code.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request failed: %d %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("request failed: HTTP %d", e.Code)
}

// statusError builds a StatusError from a response, opportunistically
// parsing the body for a detail message.
func statusError(resp *http.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return se
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		se.Detail = payload.Detail
		return se
	}
	// Non-JSON or detail-less body: keep the raw text if it is short
	// enough to be a message rather than a page.
	if len(body) <= 256 {
		se.Detail = string(body)
	}
	return se
}
