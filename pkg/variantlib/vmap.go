package variantlib

import "sync"

// VMap is a thread-safe generic map with read-write mutex protection.
type VMap[kT comparable, vT any] struct {
	kv map[kT]vT
	mu sync.RWMutex
}

// NewVMap creates a new empty VMap with an initialized internal map.
func NewVMap[kT comparable, vT any]() *VMap[kT, vT] {
	return &VMap[kT, vT]{kv: make(map[kT]vT)}
}

// Set stores a value for the given key.
func (vm *VMap[kT, vT]) Set(key kT, val vT) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.kv[key] = val
}

// Get retrieves the value for the given key, reporting presence.
func (vm *VMap[kT, vT]) Get(key kT) (vT, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	val, ok := vm.kv[key]
	return val, ok
}

// Delete removes a key from the map. Missing keys are a no-op.
func (vm *VMap[kT, vT]) Delete(key kT) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	delete(vm.kv, key)
}

// Range iterates over all pairs under a read lock. If f returns false,
// iteration stops early. f must not modify the map.
func (vm *VMap[kT, vT]) Range(f func(key kT, val vT) bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for k, v := range vm.kv {
		if !f(k, v) {
			return
		}
	}
}
