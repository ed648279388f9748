package services

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"
)

const keyringService = "codevox"

// KeyringService stores the transport token and transcription key in the OS
// keychain, falling back to an environment variable when the keychain is
// unavailable (headless hosts).
type KeyringService struct{}

func NewKeyringService() *KeyringService {
	return &KeyringService{}
}

func (s *KeyringService) StoreSecret(name, value string) error {
	if name == "" {
		return errors.New("secret name is required")
	}
	if value == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(keyringService, name, value)
}

// GetSecret reads from the keychain first, then from envFallback. Returns ""
// when the secret is set nowhere.
func (s *KeyringService) GetSecret(name, envFallback string) string {
	if name != "" {
		if v, err := keyring.Get(keyringService, name); err == nil && v != "" {
			return v
		}
	}
	if envFallback != "" {
		return os.Getenv(envFallback)
	}
	return ""
}

func (s *KeyringService) DeleteSecret(name string) error {
	if name == "" {
		return errors.New("secret name is required")
	}
	return keyring.Delete(keyringService, name)
}
