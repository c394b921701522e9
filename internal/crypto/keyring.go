package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "instacomment"
	keyringUser    = "session-key"
)

var (
	keyringGet = keyring.Get
	keyringSet = keyring.Set
)

// KeyringKey returns the session encryption key stored in the OS keyring,
// generating and storing a new one on first use.
func KeyringKey() ([]byte, error) {
	stored, err := keyringGet(keyringService, keyringUser)
	switch {
	case err == nil:
		key, err := hex.DecodeString(stored)
		if err != nil {
			return nil, fmt.Errorf("keyring entry is not hex: %w", err)
		}
		if len(key) != KeySize {
			return nil, ErrInvalidKey
		}
		return key, nil
	case errors.Is(err, keyring.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := keyringSet(keyringService, keyringUser, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to store key in keyring: %w", err)
	}
	return key, nil
}

// ResolveKey picks the encryption key: a configured secret wins, then the OS keyring
// when enabled. It returns nil, nil when neither is available.
func ResolveKey(secret string, useKeyring bool) ([]byte, error) {
	if secret != "" {
		return DeriveKey(secret)
	}
	if useKeyring {
		return KeyringKey()
	}
	return nil, nil
}
