package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileStorage keeps each snapshot in <dir>/<area>/<key>.json with its meta in
// a sidecar <key>.meta.json. Writes are atomic renames, so other processes
// never read a partial snapshot.
type FileStorage struct {
	dir    string
	logger zerolog.Logger
}

type FileOption func(*FileStorage)

func WithFileLogger(logger zerolog.Logger) FileOption {
	return func(s *FileStorage) { s.logger = logger }
}

func NewFileStorage(dir string, opts ...FileOption) *FileStorage {
	s := &FileStorage{dir: dir, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FileStorage) paths(ref Ref) (data, meta string, err error) {
	if _, err := ref.Identifier(); err != nil {
		return "", "", err
	}
	base := filepath.Join(s.dir, string(ref.Area), ref.Key)
	return base + ".json", base + ".meta.json", nil
}

func (s *FileStorage) Load(ctx context.Context, ref Ref) ([]byte, Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, false, err
	}
	dataPath, metaPath, err := s.paths(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}

	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("store: read %s: %w", dataPath, err)
	}

	meta := Meta{ETag: ETagOf(data)}
	if raw, err := os.ReadFile(metaPath); err == nil {
		var recorded Meta
		if err := json.Unmarshal(raw, &recorded); err != nil {
			s.logger.Warn().Err(err).Str("path", metaPath).Msg("ignoring unreadable snapshot meta")
		} else if recorded.ETag == meta.ETag {
			meta = recorded
		}
	}
	return data, meta, true, nil
}

func (s *FileStorage) Save(ctx context.Context, ref Ref, data []byte, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	dataPath, metaPath, err := s.paths(ref)
	if err != nil {
		return Meta{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Meta{}, fmt.Errorf("store: create %s: %w", filepath.Dir(dataPath), err)
	}

	saved := stamp(meta, data, time.Now())
	if saved.SnapshotID == "" {
		saved.SnapshotID = uuid.NewString()
	}
	rawMeta, err := json.Marshal(saved)
	if err != nil {
		return Meta{}, fmt.Errorf("store: encode meta: %w", err)
	}
	// Meta first: a reader that sees the new data also finds its meta.
	if err := writeAtomic(metaPath, rawMeta); err != nil {
		return Meta{}, err
	}
	if err := writeAtomic(dataPath, data); err != nil {
		return Meta{}, err
	}
	return saved, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store: replace %s: %w", path, err)
	}
	return nil
}

// Watch calls changed whenever the snapshot file of ref is written or
// replaced, including by this process. It watches the area directory, which
// survives atomic renames.
func (s *FileStorage) Watch(ctx context.Context, ref Ref, changed func()) error {
	dataPath, _, err := s.paths(ref)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dataPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store: create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("store: watch %s: %w", dir, err)
	}

	filename := filepath.Base(dataPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("snapshot file changed")
				changed()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Msg("snapshot watcher error")
		}
	}
}
