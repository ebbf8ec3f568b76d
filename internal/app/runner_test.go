package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ito-mmj/misskey-sample/internal/config"
	"github.com/ito-mmj/misskey-sample/pkg/misskey"
	"github.com/ito-mmj/misskey-sample/pkg/publishers"
)

// fakeAPI returns preset results and records calls in order.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	note      *misskey.Note
	createErr error
	timeline  []misskey.Note
	tlErr     error
	gotText   *string
	gotVis    misskey.Visibility
	gotLimit  int
}

func (f *fakeAPI) CreateNote(_ context.Context, _ string, text *string, vis misskey.Visibility) (*misskey.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	f.gotText, f.gotVis = text, vis
	return f.note, f.createErr
}

func (f *fakeAPI) LocalTimeline(_ context.Context, _ string, limit int) ([]misskey.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "timeline")
	f.gotLimit = limit
	return f.timeline, f.tlErr
}

// fakePublisher records forwarded events.
type fakePublisher struct {
	events []publishers.Event
	err    error
}

func (f *fakePublisher) ID() string   { return "fake" }
func (f *fakePublisher) Type() string { return "fake" }
func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) error {
	f.events = append(f.events, evt)
	return f.err
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:       "https://misskey.example",
		Token:         "abc",
		NoteText:      "Hello Misskey World.",
		Visibility:    misskey.VisibilityPublic,
		TimelineLimit: 20,
		CallDelay:     time.Second,
		HTTPTimeout:   time.Second,
	}
}

func newTestRunner(t *testing.T, api NotesAPI, out *bytes.Buffer, opts ...Option) (*Runner, *[]string) {
	t.Helper()
	opts = append([]Option{WithAPI(api), WithOutput(out)}, opts...)
	r, err := NewRunner(context.Background(), testConfig(), nil, opts...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	var slept []string
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d.String())
		return nil
	}
	return r, &slept
}

func TestRunPrintsCreateThenTimeline(t *testing.T) {
	api := &fakeAPI{
		note: &misskey.Note{ID: "9x1", CreatedAt: "2024-01-01T00:00:00.000Z"},
		timeline: []misskey.Note{
			{ID: "1", CreatedAt: "t1", User: misskey.User{ID: "u1", Username: "alice"}},
			{ID: "2", CreatedAt: "t2", Text: misskey.StringPtr("hi"), User: misskey.User{ID: "u2", Username: "bob", Name: misskey.StringPtr("Bob")}},
		},
	}
	var out bytes.Buffer
	r, slept := newTestRunner(t, api, &out)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "create: id=9x1 id=2024-01-01T00:00:00.000Z \nuser=Bob text=hi\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
	if strings.Join(api.calls, ",") != "create,timeline" {
		t.Fatalf("calls = %v", api.calls)
	}
	if len(*slept) != 1 || (*slept)[0] != "1s" {
		t.Fatalf("slept = %v", *slept)
	}
	if api.gotText == nil || *api.gotText != "Hello Misskey World." || api.gotVis != misskey.VisibilityPublic {
		t.Fatalf("create args text=%v vis=%q", api.gotText, api.gotVis)
	}
	if api.gotLimit != 20 {
		t.Fatalf("limit = %d", api.gotLimit)
	}
}

func TestRunStopsAfterCreateFailure(t *testing.T) {
	api := &fakeAPI{createErr: &misskey.APIError{Endpoint: misskey.EndpointCreateNote, StatusCode: 401}}
	var out bytes.Buffer
	r, slept := newTestRunner(t, api, &out)

	err := r.Run(context.Background())
	var apiErr *misskey.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Fatalf("expected APIError 401, got %v", err)
	}
	if len(api.calls) != 1 || len(*slept) != 0 {
		t.Fatalf("timeline must not run after failure: calls=%v slept=%v", api.calls, *slept)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunPropagatesTimelineDecodeError(t *testing.T) {
	api := &fakeAPI{
		note:  &misskey.Note{ID: "9x1", CreatedAt: "c"},
		tlErr: &misskey.DecodeError{Endpoint: misskey.EndpointLocalTimeline, Err: errors.New("bad")},
	}
	var out bytes.Buffer
	r, _ := newTestRunner(t, api, &out)

	err := r.Run(context.Background())
	var decErr *misskey.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestNewRunnerRejectsEmptyToken(t *testing.T) {
	cfg := testConfig()
	cfg.Token = ""
	api := &fakeAPI{}

	_, err := NewRunner(context.Background(), cfg, nil, WithAPI(api))
	if !IsUsageError(err) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("no API call expected, got %v", api.calls)
	}
}

func TestRunForwardsNotesToPublishers(t *testing.T) {
	api := &fakeAPI{
		note: &misskey.Note{ID: "9x1", CreatedAt: "c"},
		timeline: []misskey.Note{
			{ID: "1", Text: misskey.StringPtr("a"), User: misskey.User{Username: "alice"}},
			{ID: "2", User: misskey.User{Username: "skipped"}},
		},
	}
	pub := &fakePublisher{}
	var out bytes.Buffer
	r, _ := newTestRunner(t, api, &out, WithFanout(publishers.NewFanout([]publishers.Publisher{pub})))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].Kind != publishers.KindCreated || pub.events[0].Note.ID != "9x1" {
		t.Fatalf("first event = %#v", pub.events[0])
	}
	if pub.events[1].Kind != publishers.KindTimeline || pub.events[1].Note.ID != "1" {
		t.Fatalf("second event = %#v", pub.events[1])
	}
	if pub.events[0].Instance != "https://misskey.example" || pub.events[0].ID == "" {
		t.Fatalf("event metadata = %#v", pub.events[0])
	}
}

func TestRunAbortsOnPublisherFailure(t *testing.T) {
	api := &fakeAPI{note: &misskey.Note{ID: "9x1", CreatedAt: "c"}}
	pub := &fakePublisher{err: errors.New("sink down")}
	var out bytes.Buffer
	r, _ := newTestRunner(t, api, &out, WithFanout(publishers.NewFanout([]publishers.Publisher{pub})))

	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected error from failing publisher")
	}
	if len(api.calls) != 1 {
		t.Fatalf("timeline must not run after failure, calls=%v", api.calls)
	}
}

func TestNewRunnerLoadsPublishersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := "publishers:\n  - id: hook\n    type: http\n    http:\n      url: https://example.com/hook\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := testConfig()
	cfg.PublishersFile = path

	r, err := NewRunner(context.Background(), cfg, nil, WithAPI(&fakeAPI{}))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if r.fanout.Size() != 1 {
		t.Fatalf("fanout size = %d", r.fanout.Size())
	}
}

func TestSleepContextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero delay: %v", err)
	}
}

func TestRunEndToEndAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case misskey.EndpointCreateNote:
			_, _ = w.Write([]byte(`{"createdNote":{"id":"9x1","createdAt":"2024-01-01T00:00:00.000Z","text":"Hello Misskey World.","user":{"id":"u1","username":"me","name":null}}}`))
		case misskey.EndpointLocalTimeline:
			_, _ = w.Write([]byte(`[{"id":"1","createdAt":"t1","text":null,"user":{"id":"u1","username":"alice","name":null}},{"id":"2","createdAt":"t2","text":"hi","user":{"id":"u2","username":"bob","name":"Bob"}}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.BaseURL = srv.URL
	cfg.CallDelay = 0
	var out bytes.Buffer
	r, err := NewRunner(context.Background(), cfg, nil, WithOutput(&out))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "create: id=9x1 id=2024-01-01T00:00:00.000Z \nuser=Bob text=hi\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}
