// Package workspace manages diagram projects on disk: the directory layout,
// a shared project registry, and per-project metadata carrying sealed
// connection secrets.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MetadataFile is the per-project metadata document.
	MetadataFile = "project_metadata.json"
	// RegistryFile is the workspace-wide project registry document.
	RegistryFile = "registry.json"
	// GeometrySuffix marks layout sidecars, which never appear in listings.
	GeometrySuffix = ".geometry.json"
)

// File kinds assigned by extension when listing project files.
const (
	FileKindDiagram     = "diagram"
	FileKindDocument    = "document"
	FileKindSource      = "source"
	FileKindSpreadsheet = "spreadsheet"
	FileKindUnsupported = "unsupported"
)

// projectSubdirs are the working directories every project root carries.
var projectSubdirs = []string{"input", "processed", "output"}

// ConnectionProfile names a database connection for schema import. Secret
// config fields are sealed before the profile reaches disk.
type ConnectionProfile struct {
	Driver string         `json:"driver"`
	Config map[string]any `json:"config"`
}

// Project is one workspace project on disk.
type Project struct {
	ID          uuid.UUID                    `json:"id"`
	Name        string                       `json:"name"`
	Root        string                       `json:"root"`
	CreatedAt   time.Time                    `json:"createdAt"`
	ModifiedAt  time.Time                    `json:"modifiedAt"`
	Connections map[string]ConnectionProfile `json:"connections,omitempty"`
}

// InputDir returns the directory for files the user brings in.
func (p *Project) InputDir() string { return filepath.Join(p.Root, "input") }

// ProcessedDir returns the directory for intermediate artifacts.
func (p *Project) ProcessedDir() string { return filepath.Join(p.Root, "processed") }

// OutputDir returns the directory for generated documents and diagrams.
func (p *Project) OutputDir() string { return filepath.Join(p.Root, "output") }

// MetadataPath returns the location of the project metadata document.
func (p *Project) MetadataPath() string { return filepath.Join(p.Root, MetadataFile) }

// EnsureLayout creates the project directory tree, restoring any
// subdirectory that went missing.
func (p *Project) EnsureLayout() error {
	for _, sub := range projectSubdirs {
		if err := os.MkdirAll(filepath.Join(p.Root, sub), 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", sub, err)
		}
	}
	return nil
}

// SaveMetadata writes the project document atomically next to its files.
func (p *Project) SaveMetadata() error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project metadata: %w", err)
	}

	tmp := p.MetadataPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project metadata: %w", err)
	}
	if err := os.Rename(tmp, p.MetadataPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit project metadata: %w", err)
	}
	return nil
}

// LoadProject reads project metadata from a project root. The stored root is
// replaced with the actual location, so moved workspaces still open.
func LoadProject(root string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(root, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("read project metadata: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project metadata: %w", err)
	}
	p.Root = root
	return &p, nil
}

// FileInfo describes one listed project file.
type FileInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Kind       string    `json:"kind"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ListFiles returns the files of one project subdirectory sorted by name.
// dir is "input", "processed", or "output". Geometry sidecars and nested
// directories are skipped.
func (p *Project) ListFiles(dir string) ([]FileInfo, error) {
	if !isProjectSubdir(dir) {
		return nil, fmt.Errorf("unknown project directory %q", dir)
	}

	entries, err := os.ReadDir(filepath.Join(p.Root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s files: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), GeometrySuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		files = append(files, FileInfo{
			Name:       name,
			Path:       filepath.Join(p.Root, dir, name),
			Kind:       ClassifyFile(name),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Files lists every project subdirectory keyed by its name.
func (p *Project) Files() (map[string][]FileInfo, error) {
	out := make(map[string][]FileInfo, len(projectSubdirs))
	for _, sub := range projectSubdirs {
		files, err := p.ListFiles(sub)
		if err != nil {
			return nil, err
		}
		out[sub] = files
	}
	return out, nil
}

// ClassifyFile assigns a file kind from the name's extension.
func ClassifyFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FileKindDiagram
	case ".md", ".txt", ".html", ".htm", ".pdf":
		return FileKindDocument
	case ".csv", ".png", ".jpg", ".jpeg", ".gif", ".svg":
		return FileKindSource
	case ".xlsx", ".xls":
		return FileKindSpreadsheet
	default:
		return FileKindUnsupported
	}
}

func isProjectSubdir(dir string) bool {
	for _, sub := range projectSubdirs {
		if dir == sub {
			return true
		}
	}
	return false
}
