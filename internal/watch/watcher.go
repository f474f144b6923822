// Package watch re-runs the consistency audit when the mapping database or
// the issue exports change on disk.
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind says what happened to a tracked file.
type ChangeKind uint8

const (
	KindCreated ChangeKind = iota + 1
	KindWritten
	KindRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindWritten:
		return "written"
	case KindRemoved:
		return "removed"
	}
	return "unknown"
}

// Change is one filesystem change to a tracked file.
type Change struct {
	Path   string // may be a -wal or -journal sidecar of Target
	Target string
	Kind   ChangeKind
}

// sqliteSuffixes are the files SQLite writes next to a database.
var sqliteSuffixes = [...]string{"", "-wal", "-journal"}

var (
	errAlreadyRunning = errors.New("watcher already running")
	errClosed         = errors.New("watcher closed")
)

// FileWatcher reports changes to a fixed set of files. fsnotify cannot
// watch a path that does not exist yet, so the parent directories are
// watched and unrelated names are filtered out.
type FileWatcher struct {
	fsw     *fsnotify.Watcher
	changes chan Change
	errs    chan error
	quit    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	closed  bool
	tracked map[string]string // path or sidecar path -> target
}

// NewFileWatcher creates an idle watcher; call Start to begin.
func NewFileWatcher() (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		fsw:     fsw,
		changes: make(chan Change, 64),
		errs:    make(chan error, 8),
		quit:    make(chan struct{}),
		tracked: map[string]string{},
	}, nil
}

// Start tracks files, plus their SQLite sidecars. Empty names are ignored.
// Each file's directory must exist.
func (fw *FileWatcher) Start(files ...string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	switch {
	case fw.closed:
		return errClosed
	case fw.running:
		return errAlreadyRunning
	}

	tracked, dirs, err := expand(files)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return errors.New("no files to watch")
	}

	for i, dir := range dirs {
		if err := fw.fsw.Add(dir); err != nil {
			for _, d := range dirs[:i] {
				_ = fw.fsw.Remove(d)
			}
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	fw.tracked = tracked
	fw.running = true
	fw.wg.Add(1)
	go fw.forward()
	return nil
}

// expand resolves files to absolute paths and returns the tracked names
// and the distinct directories holding them.
func expand(files []string) (map[string]string, []string, error) {
	tracked := make(map[string]string, len(files)*len(sqliteSuffixes))
	seen := map[string]bool{}
	var dirs []string

	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		for _, suffix := range sqliteSuffixes {
			tracked[abs+suffix] = abs
		}
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return tracked, dirs, nil
}

// Stop releases the watcher and closes the Changes and Errors channels.
// It may be called more than once, and without Start.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return nil
	}
	fw.closed = true
	fw.running = false
	fw.mu.Unlock()

	close(fw.quit)
	err := fw.fsw.Close()
	fw.wg.Wait()

	close(fw.changes)
	close(fw.errs)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Changes delivers changes to tracked files until Stop.
func (fw *FileWatcher) Changes() <-chan Change { return fw.changes }

// Errors delivers fsnotify errors until Stop.
func (fw *FileWatcher) Errors() <-chan error { return fw.errs }

func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) forward() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.quit:
			return

		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			c, ok := fw.match(ev)
			if !ok {
				continue
			}
			select {
			case fw.changes <- c:
			case <-fw.quit:
				return
			}

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			select {
			case fw.errs <- err:
			case <-fw.quit:
				return
			}
		}
	}
}

func (fw *FileWatcher) match(ev fsnotify.Event) (Change, bool) {
	path, err := filepath.Abs(ev.Name)
	if err != nil {
		return Change{}, false
	}
	target, ok := fw.tracked[path]
	if !ok {
		return Change{}, false
	}
	kind, ok := classify(ev.Op)
	if !ok {
		return Change{}, false
	}
	return Change{Path: path, Target: target, Kind: kind}, true
}

// classify drops chmod-only events.
func classify(op fsnotify.Op) (ChangeKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreated, true
	case op.Has(fsnotify.Write):
		return KindWritten, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return KindRemoved, true
	}
	return 0, false
}
