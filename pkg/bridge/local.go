package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// localBridge implements FileBridge against the local filesystem.
type localBridge struct {
	watcher *watcher
	logger  *zap.Logger
}

// NewLocalBridge creates a FileBridge backed by the local filesystem.
// Saves are atomic temp-file renames; watching uses fsnotify with
// debounced events.
func NewLocalBridge(logger *zap.Logger) (FileBridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bridge")

	w, err := newWatcher(logger)
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &localBridge{
		watcher: w,
		logger:  logger,
	}, nil
}

var _ FileBridge = (*localBridge)(nil)

// ReadFileAsText reads the file at path and returns its contents.
func (b *localBridge) ReadFileAsText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

// SaveFile writes content to path atomically. The content lands in a
// temporary file in the target directory, is synced to disk, then renamed
// over the target so a crash leaves either the old file or the new one.
func (b *localBridge) SaveFile(ctx context.Context, path string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	// Temp file must live in the same directory so the rename stays on one
	// filesystem and therefore atomic.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	b.logger.Debug("file saved",
		zap.String("path", absPath),
		zap.Int("bytes", len(content)))
	return nil
}

// WatchFile registers path for change notification.
func (b *localBridge) WatchFile(path string) error {
	return b.watcher.watch(path)
}

// UnwatchFile stops change notification for path.
func (b *localBridge) UnwatchFile(path string) error {
	return b.watcher.unwatch(path)
}

// OnFileChange subscribes handler to change notifications.
func (b *localBridge) OnFileChange(handler ChangeHandler) func() {
	return b.watcher.subscribe(handler)
}

// Close stops the watcher and releases resources.
func (b *localBridge) Close() error {
	return b.watcher.close()
}
