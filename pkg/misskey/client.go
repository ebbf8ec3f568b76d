package misskey

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ito-mmj/misskey-sample/pkg/httpclient"
)

const (
	// DefaultBaseURL is the instance the client talks to unless told otherwise.
	DefaultBaseURL = "https://misskey.io"

	EndpointCreateNote    = "/api/notes/create"
	EndpointLocalTimeline = "/api/notes/local-timeline"

	defaultTimeout = 15 * time.Second
)

// Client calls the Misskey notes API of a single instance.
type Client struct {
	baseURL   string
	transport httpclient.Client
}

// NewClient builds a Client for baseURL. A nil transport gets a resty client
// with a bounded timeout.
func NewClient(baseURL string, transport httpclient.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if transport == nil {
		transport = httpclient.NewRestyClient(defaultTimeout)
	}
	return &Client{baseURL: baseURL, transport: transport}
}

// BaseURL returns the instance root the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

// call posts req as JSON to endpoint, requires a 200 status and decodes the
// body into out. Unknown JSON fields are ignored.
func (c *Client) call(ctx context.Context, endpoint string, req, out any) error {
	resp, err := c.transport.PostJSON(ctx, c.baseURL+endpoint, req, nil)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode()}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return &UsageError{Reason: "credential token is empty"}
	}
	return nil
}

// CreateNote posts a new note and returns it as stored by the server.
// Calling it twice creates two notes.
func (c *Client) CreateNote(ctx context.Context, token string, text *string, visibility Visibility) (*Note, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	req := CreateNoteRequest{
		I:          token,
		Visibility: visibility,
		Text:       text,
	}

	var res CreateNoteResponse
	if err := c.call(ctx, EndpointCreateNote, req, &res); err != nil {
		return nil, err
	}
	if err := res.validate(); err != nil {
		return nil, &DecodeError{Endpoint: EndpointCreateNote, Err: err}
	}
	return res.CreatedNote, nil
}

// LocalTimeline fetches recent notes from the instance's local timeline.
// A zero limit means DefaultTimelineLimit.
func (c *Client) LocalTimeline(ctx context.Context, token string, limit int) ([]Note, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	req := TimelineRequest{I: token, Limit: limit}

	var notes []Note
	if err := c.call(ctx, EndpointLocalTimeline, req, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		return nil, &DecodeError{Endpoint: EndpointLocalTimeline, Err: fmt.Errorf("expected a JSON array")}
	}
	for i := range notes {
		if err := notes[i].validate(); err != nil {
			return nil, &DecodeError{Endpoint: EndpointLocalTimeline, Err: fmt.Errorf("notes[%d]: %w", i, err)}
		}
	}
	return notes, nil
}
