package vault

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ServiceID is the secure-store service under which the single slot lives.
const ServiceID = "biometric_credentials"

const (
	slotAccount  = "default"
	probeAccount = "promoconsig-probe"
)

var (
	ErrSecureStoreUnavailable = errors.New("secure credential store unavailable")
	errSlotEmpty              = errors.New("slot empty")
)

// SecureStore is a platform secret store keyed by (service, account).
type SecureStore interface {
	Set(service, account, secret string) error
	// Get returns keyring.ErrNotFound for a missing secret.
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Keyring is the OS keyring (Secret Service, Keychain, Credential Manager).
type Keyring struct{}

func (Keyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (Keyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (Keyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// Probe reports whether s answers at all. A missing probe secret counts as a
// working store.
func Probe(s SecureStore) error {
	_, err := s.Get(ServiceID, probeAccount)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSecureStoreUnavailable, err)
}

func secureGet(s SecureStore, account string) (string, error) {
	v, err := s.Get(ServiceID, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errSlotEmpty
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecureStoreUnavailable, err)
	}
	return v, nil
}

func secureDelete(s SecureStore, account string) error {
	err := s.Delete(ServiceID, account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSecureStoreUnavailable, err)
}
