package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject fakes or different transports.
type Client interface {
	// PostJSON sends body serialized as JSON with Content-Type application/json.
	// Non-2xx statuses are returned as a Response, not as an error.
	PostJSON(ctx context.Context, url string, body any, headers map[string]string) (Response, error)
}
