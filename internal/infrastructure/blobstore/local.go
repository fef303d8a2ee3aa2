package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/arisan/internal/domain/proof"
)

// LocalStore keeps proofs on the local filesystem under dir. Refs are the
// slash-separated object names, served from publicBaseURL.
type LocalStore struct {
	dir           string
	publicBaseURL string
	deleteWorkers int
}

func NewLocalStore(dir, publicBaseURL string, deleteWorkers int) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, crerr.New("local blob dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, crerr.Wrapf(err, "create blob dir %s", dir)
	}

	return &LocalStore{
		dir:           dir,
		publicBaseURL: strings.TrimSuffix(strings.TrimSpace(publicBaseURL), "/"),
		deleteWorkers: deleteWorkers,
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, name, _ string, body io.Reader, _ int64) (string, error) {
	ref, err := cleanRef(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", crerr.Wrap(err, "create proof dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", crerr.Wrap(err, "create temp proof file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", crerr.Wrap(err, "write proof")
	}
	if err := tmp.Close(); err != nil {
		return "", crerr.Wrap(err, "close proof")
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", crerr.Wrap(err, "commit proof")
	}

	return ref, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	ref, err := cleanRef(ref)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return proof.ErrNotFound
	}
	if err != nil {
		return crerr.Wrapf(err, "delete proof %s", ref)
	}
	return nil
}

func (s *LocalStore) DeleteMany(ctx context.Context, refs []string) error {
	return deleteMany(ctx, s.deleteWorkers, refs, s.Delete)
}

func (s *LocalStore) URL(_ context.Context, ref string) (string, error) {
	ref, err := cleanRef(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(ref))); errors.Is(err, fs.ErrNotExist) {
		return "", proof.ErrNotFound
	}

	escaped := (&url.URL{Path: ref}).EscapedPath()
	if s.publicBaseURL == "" {
		return "/" + escaped, nil
	}
	return s.publicBaseURL + "/" + escaped, nil
}

// cleanRef rejects names that would escape the store root.
func cleanRef(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", crerr.New("proof name is required")
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(name, "/") || strings.Contains(cleaned, "..") {
		return "", crerr.Newf("invalid proof name %q", name)
	}
	return cleaned, nil
}
