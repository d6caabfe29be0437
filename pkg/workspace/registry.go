package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/crypto"
)

// RegistryEntry is one project pointer in the workspace registry.
type RegistryEntry struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// CacheEvictor drops live diagram controllers under a path root when their
// project goes away. The controller cache satisfies it.
type CacheEvictor interface {
	EvictUnder(root string) int
}

// secretConfigFields are the connection config keys that never reach disk
// in the clear.
var secretConfigFields = []string{"password"}

// Manager owns the workspace registry and the lifecycle of projects under
// one base directory.
type Manager struct {
	mu           sync.Mutex
	baseDir      string
	registryPath string
	cipher       *crypto.SecretCipher
	evictor      CacheEvictor
	logger       *zap.Logger
}

// NewManager creates a project manager rooted at baseDir, creating the
// directory if needed. The registry lives at baseDir/registry.json. evictor
// may be nil when no controller cache is in play.
func NewManager(baseDir string, cipher *crypto.SecretCipher, evictor CacheEvictor, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	return &Manager{
		baseDir:      baseDir,
		registryPath: filepath.Join(baseDir, RegistryFile),
		cipher:       cipher,
		evictor:      evictor,
		logger:       logger.Named("workspace"),
	}, nil
}

// Create makes a new project directory under the workspace and registers it.
func (m *Manager) Create(name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	now := time.Now().UTC()
	project := &Project{
		ID:         id,
		Name:       name,
		Root:       filepath.Join(m.baseDir, projectDirName(name, id)),
		CreatedAt:  now,
		ModifiedAt: now,
	}

	if err := project.EnsureLayout(); err != nil {
		return nil, err
	}
	if err := project.SaveMetadata(); err != nil {
		return nil, err
	}

	entries := m.loadRegistry()
	entries = append(entries, RegistryEntry{
		ID:         project.ID,
		Name:       project.Name,
		Path:       project.Root,
		CreatedAt:  project.CreatedAt,
		ModifiedAt: project.ModifiedAt,
	})
	if err := m.saveRegistry(entries); err != nil {
		return nil, err
	}

	m.logger.Info("project created",
		zap.String("project_id", id.String()),
		zap.String("name", name),
		zap.String("root", project.Root))
	return project, nil
}

// List returns the registered projects in registration order.
func (m *Manager) List() []RegistryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadRegistry()
}

// Find resolves a project reference, accepting a project id or an exact
// name. A name shared by several projects is rejected as ambiguous.
func (m *Manager) Find(ref string) (RegistryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.loadRegistry()

	if id, err := uuid.Parse(ref); err == nil {
		for _, entry := range entries {
			if entry.ID == id {
				return entry, nil
			}
		}
		return RegistryEntry{}, fmt.Errorf("%w: project %s", apperrors.ErrNotFound, ref)
	}

	var matches []RegistryEntry
	for _, entry := range entries {
		if entry.Name == ref {
			matches = append(matches, entry)
		}
	}
	switch len(matches) {
	case 0:
		return RegistryEntry{}, fmt.Errorf("%w: project %q", apperrors.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return RegistryEntry{}, fmt.Errorf("%w: multiple projects named %q, use the id", apperrors.ErrConflict, ref)
	}
}

// Open loads a registered project by id, restoring missing subdirectories.
func (m *Manager) Open(id uuid.UUID) (*Project, error) {
	m.mu.Lock()
	entry, err := m.findByID(id)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	project, err := LoadProject(entry.Path)
	if err != nil {
		return nil, err
	}
	if err := project.EnsureLayout(); err != nil {
		return nil, err
	}
	return project, nil
}

// Rename changes a project's name in the registry and its metadata. The
// directory keeps its original name so existing paths stay valid.
func (m *Manager) Rename(id uuid.UUID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("project name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.loadRegistry()
	idx := -1
	for i, entry := range entries {
		if entry.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: project %s", apperrors.ErrNotFound, id)
	}

	project, err := LoadProject(entries[idx].Path)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	project.Name = newName
	project.ModifiedAt = now
	if err := project.SaveMetadata(); err != nil {
		return err
	}

	entries[idx].Name = newName
	entries[idx].ModifiedAt = now
	return m.saveRegistry(entries)
}

// Delete unregisters a project, evicts its cached controllers, and removes
// its directory from disk.
func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.loadRegistry()
	idx := -1
	for i, entry := range entries {
		if entry.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: project %s", apperrors.ErrNotFound, id)
	}

	if m.evictor != nil {
		m.evictor.EvictUnder(entries[idx].Path)
	}
	if err := os.RemoveAll(entries[idx].Path); err != nil {
		return fmt.Errorf("remove project directory: %w", err)
	}

	root := entries[idx].Path
	entries = append(entries[:idx], entries[idx+1:]...)
	if err := m.saveRegistry(entries); err != nil {
		return err
	}

	m.logger.Info("project deleted",
		zap.String("project_id", id.String()),
		zap.String("root", root))
	return nil
}

// SetConnection seals the profile's secret fields and stores it in the
// project metadata under name.
func (m *Manager) SetConnection(project *Project, name string, profile ConnectionProfile) error {
	if m.cipher == nil {
		return fmt.Errorf("no credentials key configured")
	}

	sealed, err := m.cipher.EncryptFields(profile.Config, secretConfigFields...)
	if err != nil {
		return fmt.Errorf("seal connection %q: %w", name, err)
	}

	if project.Connections == nil {
		project.Connections = make(map[string]ConnectionProfile)
	}
	project.Connections[name] = ConnectionProfile{Driver: profile.Driver, Config: sealed}
	project.ModifiedAt = time.Now().UTC()
	return project.SaveMetadata()
}

// Connection returns the named profile with its secrets opened. A profile
// sealed under a different key surfaces as ErrCredentialsKeyMismatch.
func (m *Manager) Connection(project *Project, name string) (ConnectionProfile, error) {
	profile, ok := project.Connections[name]
	if !ok {
		return ConnectionProfile{}, fmt.Errorf("%w: connection %q", apperrors.ErrNotFound, name)
	}
	if m.cipher == nil {
		return ConnectionProfile{}, fmt.Errorf("no credentials key configured")
	}

	opened, err := m.cipher.DecryptFields(profile.Config, secretConfigFields...)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptFailed) {
			return ConnectionProfile{}, fmt.Errorf("%w: connection %q", apperrors.ErrCredentialsKeyMismatch, name)
		}
		return ConnectionProfile{}, fmt.Errorf("open connection %q: %w", name, err)
	}
	return ConnectionProfile{Driver: profile.Driver, Config: opened}, nil
}

func (m *Manager) findByID(id uuid.UUID) (RegistryEntry, error) {
	for _, entry := range m.loadRegistry() {
		if entry.ID == id {
			return entry, nil
		}
	}
	return RegistryEntry{}, fmt.Errorf("%w: project %s", apperrors.ErrNotFound, id)
}

// loadRegistry tolerates a missing or corrupt registry by starting empty.
func (m *Manager) loadRegistry() []RegistryEntry {
	data, err := os.ReadFile(m.registryPath)
	if err != nil {
		return nil
	}

	var entries []RegistryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		m.logger.Warn("registry unreadable, starting empty",
			zap.String("path", m.registryPath),
			zap.Error(err))
		return nil
	}
	return entries
}

func (m *Manager) saveRegistry(entries []RegistryEntry) error {
	if entries == nil {
		entries = []RegistryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp := m.registryPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, m.registryPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit registry: %w", err)
	}
	return nil
}

// projectDirName builds a filesystem-friendly directory name from the
// project name and the first id group, so two projects can share a name.
func projectDirName(name string, id uuid.UUID) string {
	sanitized := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return sanitized + "_" + id.String()[:8]
}
