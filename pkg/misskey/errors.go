package misskey

import "fmt"

// UsageError reports a caller mistake detected before any network call.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return "usage error: " + e.Reason }

// APIError is returned when an endpoint answers with a status other than 200.
// The body is not decoded.
type APIError struct {
	Endpoint   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error. status=%d", e.StatusCode)
}

// DecodeError is returned when a 200 response body does not match the expected shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError wraps failures to reach the server at all.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("post %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
