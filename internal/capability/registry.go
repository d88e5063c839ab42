package capability

import (
	"sort"
	"sync"

	"persona/internal/logging"
)

// Registry holds all active capabilities and provides lookup and execution.
// It is thread-safe and supports registration at runtime.
//
// Register is last-write-wins: callers that must not clobber a concurrent
// synthesis for the same name serialize through the synthesis pipeline's
// per-name flight group, not here. Unregister does not touch the deleted
// ledger; that is the delete workflow's concern, keeping the registry a pure
// lookup table.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]regEntry
}

type regEntry struct {
	cap    Capability
	origin Origin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]regEntry)}
}

// Register inserts or replaces the entry for cap.Name().
func (r *Registry) Register(cap Capability, origin Origin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := cap.Name()
	if _, exists := r.caps[name]; exists {
		logging.Capability("Replacing capability: %s", name)
	}
	r.caps[name] = regEntry{cap: cap, origin: origin}
	logging.CapabilityDebug("Registered capability: %s (origin=%s)", name, origin)
}

// Unregister removes the entry if present and reports whether it did.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.caps[name]; !ok {
		logging.CapabilityDebug("Unregister miss: %s", name)
		return false
	}
	delete(r.caps, name)
	logging.Capability("Unregistered capability: %s", name)
	return true
}

// Get returns a capability by name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.caps[name]
	if !ok {
		return nil, false
	}
	return e.cap, true
}

// Has reports whether a capability with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[name]
	return ok
}

// Origin returns the origin of a registered capability.
func (r *Registry) Origin(name string) (Origin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.caps[name]
	return e.origin, ok
}

// List returns a point-in-time snapshot of all active capabilities, sorted
// by name so prompt assembly is deterministic.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.caps))
	for name, e := range r.caps {
		infos = append(infos, Info{
			Name:        name,
			Description: e.cap.Description(),
			Origin:      e.origin,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Count returns the number of active capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caps)
}

// Execute runs a capability by name. An unknown name and any panic inside
// the capability both surface as a structured error Result; nothing escapes
// this boundary.
func (r *Registry) Execute(name string, args map[string]any) Result {
	cap, ok := r.Get(name)
	if !ok {
		logging.Capability("Execute miss: capability '%s' not found", name)
		return Errorf("capability '%s' not found", name)
	}

	logging.CapabilityDebug("Executing capability: %s", name)
	result := safeExecute(cap, args)

	if IsError(result) {
		logging.Capability("Capability %s returned error: %s", name, ErrorMessage(result))
	} else {
		logging.CapabilityDebug("Capability %s completed", name)
	}
	return result
}

// safeExecute converts a panicking capability into an error Result.
func safeExecute(cap Capability, args map[string]any) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Capability("Capability %s panicked: %v", cap.Name(), rec)
			result = Errorf("capability '%s' failed: %v", cap.Name(), rec)
		}
	}()

	result = cap.Execute(args)
	if result == nil {
		result = Errorf("capability '%s' returned no result", cap.Name())
	}
	return result
}
