package services

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ControllerCache keeps live diagram controllers keyed by their cache key so
// reopening a diagram restores unsaved visual state instead of re-deriving
// it from the file. One cache is created at application start and injected
// wherever controllers are opened; there is no package-global state. The
// cache assumes at most one active writer per key.
type ControllerCache interface {
	// Get returns the cached controller for key.
	Get(key string) (DiagramController, bool)

	// Put stores a controller under key, closing any controller it
	// replaces.
	Put(key string, ctrl DiagramController)

	// Evict closes and removes the controller for key.
	Evict(key string)

	// EvictUnder closes and removes every controller whose key is a path
	// under root, returning how many were evicted. Used on project close.
	EvictUnder(root string) int

	// Keys returns the cached keys.
	Keys() []string

	// Clear closes and removes every controller.
	Clear()
}

type controllerCache struct {
	mu      sync.Mutex
	entries map[string]DiagramController
	logger  *zap.Logger
}

// NewControllerCache creates an empty controller cache.
func NewControllerCache(logger *zap.Logger) ControllerCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &controllerCache{
		entries: make(map[string]DiagramController),
		logger:  logger.Named("controller-cache"),
	}
}

var _ ControllerCache = (*controllerCache)(nil)

func (c *controllerCache) Get(key string) (DiagramController, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctrl, ok := c.entries[key]
	return ctrl, ok
}

func (c *controllerCache) Put(key string, ctrl DiagramController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok && prev != ctrl {
		prev.Close()
	}
	c.entries[key] = ctrl
}

func (c *controllerCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctrl, ok := c.entries[key]; ok {
		ctrl.Close()
		delete(c.entries, key)
	}
}

func (c *controllerCache) EvictUnder(root string) int {
	cleanRoot := filepath.Clean(root)
	prefix := cleanRoot + string(filepath.Separator)

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, ctrl := range c.entries {
		cleanKey := filepath.Clean(key)
		if cleanKey != cleanRoot && !strings.HasPrefix(cleanKey, prefix) {
			continue
		}
		ctrl.Close()
		delete(c.entries, key)
		evicted++
	}
	if evicted > 0 {
		c.logger.Info("evicted controllers under root",
			zap.String("root", cleanRoot),
			zap.Int("count", evicted))
	}
	return evicted
}

func (c *controllerCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

func (c *controllerCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, ctrl := range c.entries {
		ctrl.Close()
		delete(c.entries, key)
	}
}
