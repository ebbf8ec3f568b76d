package publishers

import "github.com/ito-mmj/misskey-sample/pkg/misskey"

func sampleEvent(kind string) Event {
	return NewEvent(kind, "https://misskey.example", misskey.Note{
		ID:        "9x1",
		CreatedAt: "2024-01-01T00:00:00.000Z",
		Text:      misskey.StringPtr("hi"),
		User:      misskey.User{ID: "u1", Username: "me"},
	})
}
