package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/spf13/afero"
)

// FSStore keeps objects as plain files. The content type is derived from
// the extension on read.
type FSStore struct {
	fs afero.Fs
}

func NewFSStore(fs afero.Fs) *FSStore {
	return &FSStore{fs: fs}
}

// NewOsFSStore roots the store at dir on the local disk.
func NewOsFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

func (s *FSStore) Put(_ context.Context, name string, data []byte, contentType string) (*core.ObjectInfo, error) {
	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	st, err := s.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return &core.ObjectInfo{
		Name:        name,
		Size:        uint64(st.Size()),
		ContentType: contentType,
		ModTime:     st.ModTime(),
	}, nil
}

func (s *FSStore) Get(_ context.Context, name string) ([]byte, *core.ObjectInfo, error) {
	data, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, core.ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to read object: %w", err)
	}
	st, err := s.fs.Stat(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat object: %w", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return data, &core.ObjectInfo{
		Name:        name,
		Size:        uint64(st.Size()),
		ContentType: ct,
		ModTime:     st.ModTime(),
	}, nil
}

func (s *FSStore) Close() error { return nil }
