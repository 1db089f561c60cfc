// Package filestore persists uploaded files on the local disk. Stored files
// are addressed by a /media/-rooted URL so the serving layer (or a reverse
// proxy) can map them straight to the upload directory.
package filestore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aulanet/campus/core"
)

const urlPrefix = "/media/"

type localStorage struct {
	root string
}

var _ core.FileStorage = (*localStorage)(nil)

func NewLocalStorage(conf *core.Config) *localStorage {
	return &localStorage{root: conf.UploadDir}
}

// Save writes r under root/dir with a random name that keeps the original
// extension, so colliding filenames cannot overwrite each other.
func (st localStorage) Save(_ context.Context, dir, filename string, r io.Reader) (string, error) {
	name := uuid.New().String() + strings.ToLower(path.Ext(filename))
	relPath := path.Join(dir, name)

	fullDir := filepath.Join(st.root, filepath.FromSlash(dir))
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	f, err := os.Create(filepath.Join(st.root, filepath.FromSlash(relPath)))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return urlPrefix + relPath, nil
}

func (st localStorage) Delete(_ context.Context, url string) error {
	relPath := strings.TrimPrefix(url, urlPrefix)
	if relPath == url || strings.Contains(relPath, "..") {
		return errors.Errorf("invalid file url: %s", url)
	}
	err := os.Remove(filepath.Join(st.root, filepath.FromSlash(relPath)))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "deleting file")
}
