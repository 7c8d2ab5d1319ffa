package auth

import (
	"errors"
	"time"
)

// Key validation errors.
var (
	ErrMissingKey  = errors.New("no API key found")
	ErrInvalidKey  = errors.New("invalid API key")
	ErrKeyDisabled = errors.New("API key disabled")
)

// KeyInfo is an API key with the client it identifies.
type KeyInfo struct {
	Key       string
	Client    string
	Enabled   bool
	CreatedAt time.Time
}

// KeyStore validates API keys.
type KeyStore interface {
	Validate(key string) (*KeyInfo, error)
	List() []*KeyInfo
}
