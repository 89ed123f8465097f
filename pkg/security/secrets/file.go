package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource loads the signing secret from a single file.
//
// File permissions are validated to ensure the secret is properly protected
// (0600 or 0400 only). With watching enabled the parent directory is
// monitored so that both in-place writes and Kubernetes-style symlink swaps
// trigger a reload. A reload that fails validation keeps the previous secret.
type FileSource struct {
	path      string
	minLength int

	mu      sync.RWMutex
	value   []byte
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileSource reads the secret at path. If watch is true the file is
// reloaded whenever it changes.
func NewFileSource(path string, watch bool, minLength int) (*FileSource, error) {
	s := &FileSource{
		path:      path,
		minLength: minLength,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	value, err := readSecretFile(path)
	if err != nil {
		return nil, err
	}
	s.value = value

	if !watch {
		close(s.doneCh)
		slog.Info("file-based signing secret loaded without watching", "path", path)
		return s, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close() // Best effort close on error path
		return nil, fmt.Errorf("failed to watch secret directory: %w", err)
	}
	s.watcher = watcher
	go s.watchLoop()

	slog.Info("file-based signing secret loaded with watching", "path", path)
	return s, nil
}

// Secret returns the most recently loaded secret.
func (s *FileSource) Secret() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Provider returns "file".
func (s *FileSource) Provider() string {
	return "file"
}

// Reload re-reads the secret file. The current secret is kept when the file
// cannot be read or the new secret is too short.
func (s *FileSource) Reload() error {
	value, err := readSecretFile(s.path)
	if err != nil {
		return err
	}
	if err := checkLength(value, s.minLength); err != nil {
		return err
	}

	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
	return nil
}

// Close stops the file watcher and waits for the watch loop to exit.
func (s *FileSource) Close() error {
	if s.watcher == nil {
		return nil
	}
	select {
	case <-s.stopCh:
		return nil
	default:
	}
	close(s.stopCh)
	err := s.watcher.Close()
	<-s.doneCh
	return err
}

// watchLoop reloads the secret on changes to the watched directory.
func (s *FileSource) watchLoop() {
	defer close(s.doneCh)

	target := filepath.Clean(s.path)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			// Kubernetes mounts replace a ..data symlink rather than the file.
			name := filepath.Clean(event.Name)
			if name != target && !strings.Contains(filepath.Base(name), "..data") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := s.Reload(); err != nil {
				slog.Error("failed to reload signing secret, keeping previous value",
					"path", s.path,
					"error", err,
				)
				continue
			}
			slog.Info("signing secret reloaded",
				"path", s.path,
				"op", event.Op.String(),
			)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)

		case <-s.stopCh:
			return
		}
	}
}

// readSecretFile reads and trims a secret file after checking it is a
// regular file with 0600 or 0400 permissions.
func readSecretFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat secret file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("secret path is not a regular file: %s", path)
	}

	mode := info.Mode().Perm()
	if mode != 0600 && mode != 0400 {
		return nil, fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	return []byte(strings.TrimSpace(string(data))), nil
}
