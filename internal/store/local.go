package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lakemirror/lakemirror/internal/utils"
	"github.com/spf13/afero"
)

// in-flight writes carry this suffix until renamed into place, so a crashed
// run never leaves a half-written file under its final name
const partialSuffix = ".partial"

// LocalStore is a destination volume backed by a directory on a filesystem.
type LocalStore struct {
	fs   afero.Fs
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := utils.ResolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDestinationUnavailable, root, err)
	}
	return NewLocalStoreFs(afero.NewOsFs(), abs)
}

// NewLocalStoreFs builds a local store on an explicit filesystem. Tests use
// an in-memory Fs.
func NewLocalStoreFs(fsys afero.Fs, root string) (*LocalStore, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDestinationUnavailable, root, err)
	}
	return &LocalStore{fs: fsys, root: root}, nil
}

// Root returns the volume directory.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) List(ctx context.Context) ([]*Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDestinationUnavailable, s.root, err)
	}

	entries := make([]*Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || strings.HasSuffix(info.Name(), partialSuffix) {
			continue
		}
		entries = append(entries, &Entry{
			Name:           info.Name(),
			Size:           info.Size(),
			SourceModified: info.ModTime().UTC(),
		})
	}

	return entries, nil
}

func (s *LocalStore) Put(ctx context.Context, in *PutInput) error {
	partial := filepath.Join(s.root, in.Name+partialSuffix)
	final := filepath.Join(s.root, in.Name)

	f, err := s.fs.Create(partial)
	if err != nil {
		return fmt.Errorf("store: put %q: %w", in.Name, err)
	}

	if _, err := io.Copy(f, in.Body); err != nil {
		f.Close()
		s.fs.Remove(partial)
		return fmt.Errorf("store: put %q: %w", in.Name, err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(partial)
		return fmt.Errorf("store: put %q: %w", in.Name, err)
	}

	if err := s.fs.Rename(partial, final); err != nil {
		s.fs.Remove(partial)
		return fmt.Errorf("store: put %q: %w", in.Name, err)
	}

	// pin the file mtime to the source marker so the next List reads it back
	if !in.SourceModified.IsZero() {
		if err := s.fs.Chtimes(final, in.SourceModified, in.SourceModified); err != nil {
			return fmt.Errorf("store: put %q: %w", in.Name, err)
		}
	}

	return nil
}

func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(filepath.Join(s.root, name))
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", name, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := s.fs.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

var _ Store = (*LocalStore)(nil)
