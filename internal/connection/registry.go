package connection

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor creates a Connection. Implementations register themselves with
// the registry using Register().
type Constructor func() (Connection, error)

var (
	registry      = make(map[string]Constructor)
	registryMutex sync.RWMutex
)

// Register registers a connection type.
// This is called from init() functions in implementation packages.
func Register(typ string, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("connection: Register constructor is nil for type %s", typ))
	}

	if _, exists := registry[typ]; exists {
		panic(fmt.Sprintf("connection: Register called twice for type %s", typ))
	}

	registry[typ] = constructor
}

// New creates a Connection of a registered type.
func New(typ string) (Connection, error) {
	registryMutex.RLock()
	constructor := registry[typ]
	registryMutex.RUnlock()

	if constructor == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return constructor()
}

// IsRegistered returns true if a constructor is registered for the given type.
func IsRegistered(typ string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[typ]
	return exists
}

// RegisteredTypes returns all registered connection types, sorted.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// unregisterAll clears all registered constructors. Used by tests.
func unregisterAll() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry = make(map[string]Constructor)
}
