package auth

import (
	"crypto/sha256"
	"sync"
)

type digest [sha256.Size]byte

// Validator is an in-memory KeyStore.
type Validator struct {
	mu   sync.RWMutex
	keys map[digest]*KeyInfo
}

// NewValidator creates a validator holding keys. Later duplicates win.
func NewValidator(keys []*KeyInfo) *Validator {
	v := &Validator{keys: make(map[digest]*KeyInfo, len(keys))}
	for _, k := range keys {
		v.keys[sha256.Sum256([]byte(k.Key))] = k
	}
	return v
}

// Validate returns the info for key, or ErrInvalidKey / ErrKeyDisabled.
func (v *Validator) Validate(key string) (*KeyInfo, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	v.mu.RLock()
	info, ok := v.keys[sha256.Sum256([]byte(key))]
	v.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrKeyDisabled
	}
	return info, nil
}

// List returns every configured key.
func (v *Validator) List() []*KeyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]*KeyInfo, 0, len(v.keys))
	for _, k := range v.keys {
		keys = append(keys, k)
	}
	return keys
}

// Add registers info, replacing any key with the same value.
func (v *Validator) Add(info *KeyInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[sha256.Sum256([]byte(info.Key))] = info
}

// Remove deletes key. Unknown keys are ignored.
func (v *Validator) Remove(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, sha256.Sum256([]byte(key)))
}
