package joblog

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/aatumaykin/chronos/internal/logger"
)

// Follow writes the current content of the log for name to w and then keeps
// writing whatever is appended until ctx is done. A truncated or recreated
// log is followed from its start again.
func (s *Store) Follow(ctx context.Context, name string, w io.Writer) error {
	path := s.Path(name)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer watcher.Close()

	// Watch the directory so that creation and replacement are seen too
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(path))
	}

	t := &tail{path: path, w: w}
	if err := t.copyNew(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				t.offset = 0
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := t.copyNew(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("log watcher error",
				logger.Field{Key: "path", Value: path},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}
}

type tail struct {
	path   string
	w      io.Writer
	offset int64
}

func (t *tail) copyNew() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.offset = 0
			return nil
		}
		return errors.Mark(errors.Wrapf(err, "open log %s", t.path), ErrRead)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "stat log %s", t.path), ErrRead)
	}
	if info.Size() < t.offset {
		t.offset = 0
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return errors.Mark(errors.Wrapf(err, "seek log %s", t.path), ErrRead)
	}
	n, err := io.Copy(t.w, f)
	t.offset += n
	if err != nil {
		return errors.Wrapf(err, "copy log %s", t.path)
	}
	return nil
}
