package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ito-mmj/misskey-sample/internal/config"
	"github.com/ito-mmj/misskey-sample/internal/logger"
	"github.com/ito-mmj/misskey-sample/pkg/httpclient"
	"github.com/ito-mmj/misskey-sample/pkg/misskey"
	"github.com/ito-mmj/misskey-sample/pkg/publishers"
)

// NotesAPI is the part of the Misskey client the runner drives.
type NotesAPI interface {
	CreateNote(ctx context.Context, token string, text *string, visibility misskey.Visibility) (*misskey.Note, error)
	LocalTimeline(ctx context.Context, token string, limit int) ([]misskey.Note, error)
}

// Runner posts a note, waits, then prints the local timeline.
type Runner struct {
	cfg    *config.Config
	api    NotesAPI
	fanout *publishers.Fanout
	out    io.Writer
	log    logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithAPI replaces the Misskey client.
func WithAPI(api NotesAPI) Option { return func(r *Runner) { r.api = api } }

// WithOutput sets where result lines are written (stdout by default).
func WithOutput(w io.Writer) Option { return func(r *Runner) { r.out = w } }

// WithFanout sets the sinks created and timeline notes are forwarded to.
func WithFanout(f *publishers.Fanout) Option { return func(r *Runner) { r.fanout = f } }

// NewRunner wires the Misskey client, output and optional publishers.
// An empty token is rejected here, before anything touches the network.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if cfg.Token == "" {
		return nil, &misskey.UsageError{Reason: "credential token is empty (set MISSKEY_TOKEN)"}
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	r := &Runner{
		cfg:   cfg,
		out:   os.Stdout,
		log:   log,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.api == nil {
		r.api = misskey.NewClient(cfg.BaseURL, httpclient.NewRestyClient(cfg.HTTPTimeout))
	}
	if r.fanout == nil && cfg.PublishersFile != "" {
		fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
		if err != nil {
			return nil, err
		}
		r.fanout = fanout
	}

	return r, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	cfgs, err := publishers.LoadConfigs(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), cfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(cfgs))
	for _, c := range cfgs {
		summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Run creates the note, pauses for the configured delay and reads the local
// timeline. The first error aborts the run.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.api == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.closeFanout()

	if err := r.CreateNote(ctx); err != nil {
		return fmt.Errorf("create note: %w", err)
	}

	r.log.DebugObj("waiting before timeline read", "delay", r.cfg.CallDelay.String())
	if err := r.sleep(ctx, r.cfg.CallDelay); err != nil {
		return fmt.Errorf("wait before timeline: %w", err)
	}

	if err := r.ReadLocalTimeline(ctx); err != nil {
		return fmt.Errorf("read local timeline: %w", err)
	}
	return nil
}

// CreateNote posts the configured message and prints the confirmation line.
func (r *Runner) CreateNote(ctx context.Context) error {
	start := time.Now()
	note, err := r.api.CreateNote(ctx, r.cfg.Token, misskey.StringPtr(r.cfg.NoteText), r.cfg.Visibility)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.out, misskey.CreatedLine(note)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	r.log.InfoObj("note created", "note_meta", map[string]any{
		"id":         note.ID,
		"visibility": string(r.cfg.Visibility),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return r.forward(ctx, publishers.KindCreated, *note)
}

// ReadLocalTimeline fetches the local timeline and prints every note that has text.
func (r *Runner) ReadLocalTimeline(ctx context.Context) error {
	start := time.Now()
	notes, err := r.api.LocalTimeline(ctx, r.cfg.Token, r.cfg.TimelineLimit)
	if err != nil {
		return err
	}

	printed := 0
	for _, n := range notes {
		if !n.HasText() {
			continue
		}
		if _, err := fmt.Fprintln(r.out, misskey.TimelineLine(n)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		printed++
		if err := r.forward(ctx, publishers.KindTimeline, n); err != nil {
			return err
		}
	}
	r.log.InfoObj("local timeline read", "timeline_meta", map[string]any{
		"received":   len(notes),
		"printed":    printed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (r *Runner) forward(ctx context.Context, kind string, note misskey.Note) error {
	if r.fanout.Size() == 0 {
		return nil
	}
	if _, err := r.fanout.Publish(ctx, publishers.NewEvent(kind, r.cfg.BaseURL, note)); err != nil {
		return fmt.Errorf("forward %s note %s: %w", kind, note.ID, err)
	}
	return nil
}

func (r *Runner) closeFanout() {
	if err := r.fanout.Close(); err != nil {
		r.log.ErrorObj("publisher close failed", "error", err)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsUsageError reports whether err stems from caller misuse rather than the remote API.
func IsUsageError(err error) bool {
	var usage *misskey.UsageError
	return errors.As(err, &usage)
}
