package misskey

import "errors"

// Package misskey is a small client for the Misskey notes API.

// DefaultTimelineLimit is the number of notes requested from a timeline when
// no explicit limit is set.
const DefaultTimelineLimit = 20

// CreateNoteRequest is the body of POST /api/notes/create.
type CreateNoteRequest struct {
	I          string     `json:"i"`
	Visibility Visibility `json:"visibility"`
	Text       *string    `json:"text,omitempty"`
}

// CreateNoteResponse is the body returned by POST /api/notes/create.
type CreateNoteResponse struct {
	CreatedNote *Note `json:"createdNote"`
}

// TimelineRequest is the body of POST /api/notes/local-timeline.
type TimelineRequest struct {
	I     string `json:"i"`
	Limit int    `json:"limit"`
}

// Note is a single post. Unknown fields sent by the server are ignored.
type Note struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"createdAt"`
	Text      *string `json:"text"`
	User      User    `json:"user"`
}

// User is the author of a note.
type User struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     *string `json:"name"`
}

// DisplayName returns the user's name, falling back to the username.
func (u User) DisplayName() string {
	if u.Name != nil {
		return *u.Name
	}
	return u.Username
}

// HasText reports whether the note carries text.
func (n Note) HasText() bool { return n.Text != nil }

// validate checks the fields the server is required to send.
func (n *Note) validate() error {
	if n == nil {
		return errors.New("note is null")
	}
	if n.ID == "" {
		return errors.New("note id is missing")
	}
	if n.CreatedAt == "" {
		return errors.New("note createdAt is missing")
	}
	if n.User.ID == "" {
		return errors.New("note user.id is missing")
	}
	if n.User.Username == "" {
		return errors.New("note user.username is missing")
	}
	return nil
}

func (r *CreateNoteResponse) validate() error {
	if r.CreatedNote == nil {
		return errors.New("createdNote is missing")
	}
	return r.CreatedNote.validate()
}

// StringPtr is a helper for optional text fields.
func StringPtr(s string) *string { return &s }
