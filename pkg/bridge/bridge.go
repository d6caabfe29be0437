// Package bridge abstracts file access for diagram editors. Controllers and
// viewers read, save, and watch files through FileBridge so the same code can
// run against the local filesystem or a host-provided transport.
package bridge

import "context"

// ChangeHandler receives the path of a watched file that changed on disk.
type ChangeHandler func(path string)

// FileBridge defines the interface for file access and change notification.
type FileBridge interface {
	// ReadFileAsText reads the file at path and returns its contents.
	ReadFileAsText(ctx context.Context, path string) (string, error)

	// SaveFile replaces the contents of path with content. The write is
	// atomic: readers never observe a partially written file.
	SaveFile(ctx context.Context, path string, content string) error

	// WatchFile registers path for change notification.
	WatchFile(path string) error

	// UnwatchFile stops change notification for path.
	UnwatchFile(path string) error

	// OnFileChange subscribes handler to change notifications for watched
	// paths. The returned function removes the subscription.
	OnFileChange(handler ChangeHandler) (unsubscribe func())

	// Close stops watching and releases resources.
	Close() error
}
