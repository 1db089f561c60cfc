package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files (avatars, submissions, chat attachments,
// documents) and returns a URL the app persists alongside the row. The
// backing store is external; only the URL and metadata live in the database.
type FileStorage interface {
	Save(ctx context.Context, dir, filename string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, url string) error
}
