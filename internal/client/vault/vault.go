// Package vault is the single-slot, opt-in credential store used for
// biometric re-authentication.
//
// When a secure store is available the credentials go there and only the
// enabled flag is written to the key-value store. Otherwise the credentials
// are sealed with AES-GCM under a key derived from a per-install secret kept
// in the same key-value store. The fallback protects against casual reads of
// the store, not against an attacker holding the whole disk.
//
// The slot is shared by all users of the device: saving for a second user
// replaces the first user's entry.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/azfinis/promoconsig/internal/client/kvstore"
	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/cryptox"
	"github.com/azfinis/promoconsig/internal/logging"
	"github.com/google/uuid"
)

// Keys in the key-value store.
const (
	KeyEnabled   = "biometric_enabled"
	KeySealed    = "biometric_credentials"
	KeyInstallID = "install_id"
	KeySalt      = "install_salt"
)

const saltSize = 16

// Capability reports whether the device can run a biometric challenge.
type Capability interface {
	Available(ctx context.Context) bool
}

type Options struct {
	// Secure is used when non-nil; nil selects the sealed fallback.
	Secure     SecureStore
	Capability Capability
	Logger     logging.Logger
}

type Vault struct {
	kv     kvstore.Store
	secure SecureStore
	cap    Capability
	logger logging.Logger

	keyMu sync.Mutex
	key   []byte
}

func New(kv kvstore.Store, opts Options) *Vault {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Vault{kv: kv, secure: opts.Secure, cap: opts.Capability, logger: logger}
}

// Secure reports whether credentials go to the platform secure store.
func (v *Vault) Secure() bool { return v.secure != nil }

func (v *Vault) IsBiometricHardwareAvailable(ctx context.Context) bool {
	return v.cap != nil && v.cap.Available(ctx)
}

// SaveCredentials overwrites the slot and enables it.
func (v *Vault) SaveCredentials(ctx context.Context, username, password string) error {
	if prev, err := v.read(ctx); err == nil && prev != nil && prev.Username != username {
		v.logger.Warn(ctx, "replacing vault entry of another user", "previous", prev.Username, "username", username)
	}

	entry := models.VaultEntry{Username: username, Password: password}

	if v.secure != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode vault entry: %w", err)
		}
		if err := v.secure.Set(ServiceID, slotAccount, string(data)); err != nil {
			return fmt.Errorf("save credentials: %w: %v", ErrSecureStoreUnavailable, err)
		}
		if err := v.kv.Set(ctx, KeyEnabled, []byte("true")); err != nil {
			_ = secureDelete(v.secure, slotAccount)
			return fmt.Errorf("save credentials: %w", err)
		}
		return nil
	}

	key, batch, err := v.installKey(ctx)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	sealed, err := cryptox.SealJSON(entry, key)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	batch[KeySealed] = sealed
	batch[KeyEnabled] = []byte("true")

	if err := v.kv.SetMany(ctx, batch); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	v.cacheKey(key)
	return nil
}

// GetCredentials returns the stored entry, or nil when the vault is disabled
// or empty.
func (v *Vault) GetCredentials(ctx context.Context) (*models.VaultEntry, error) {
	enabled, err := v.enabled(ctx)
	if err != nil || !enabled {
		return nil, err
	}
	entry, err := v.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	if entry != nil {
		entry.Enabled = true
	}
	return entry, nil
}

// IsEnabled reports whether the vault is enabled and, when username is not
// empty, whether the slot belongs to that user.
func (v *Vault) IsEnabled(ctx context.Context, username string) (bool, error) {
	enabled, err := v.enabled(ctx)
	if err != nil || !enabled {
		return false, err
	}
	if username == "" {
		return true, nil
	}
	entry, err := v.read(ctx)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Username == username, nil
}

// Clear disables the vault and removes the credentials. The flag goes first
// so a failure halfway never leaves readable credentials behind it.
func (v *Vault) Clear(ctx context.Context) error {
	if v.secure != nil {
		if err := v.kv.Remove(ctx, KeyEnabled); err != nil {
			return fmt.Errorf("clear vault: %w", err)
		}
		if err := secureDelete(v.secure, slotAccount); err != nil {
			return fmt.Errorf("clear vault: %w", err)
		}
		return nil
	}

	if err := v.kv.Remove(ctx, KeyEnabled, KeySealed); err != nil {
		return fmt.Errorf("clear vault: %w", err)
	}
	return nil
}

func (v *Vault) enabled(ctx context.Context) (bool, error) {
	raw, err := v.kv.Get(ctx, KeyEnabled)
	if err != nil {
		return false, fmt.Errorf("read vault flag: %w", err)
	}
	return string(raw) == "true", nil
}

// read returns the slot content regardless of the enabled flag.
func (v *Vault) read(ctx context.Context) (*models.VaultEntry, error) {
	var entry models.VaultEntry

	if v.secure != nil {
		data, err := secureGet(v.secure, slotAccount)
		if errors.Is(err, errSlotEmpty) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("decode vault entry: %w", err)
		}
		return &entry, nil
	}

	sealed, err := v.kv.Get(ctx, KeySealed)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return nil, nil
	}
	key, pending, err := v.installKey(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return nil, errors.New("open vault entry: install secret missing")
	}
	if err := cryptox.OpenJSON(sealed, key, &entry); err != nil {
		return nil, fmt.Errorf("open vault entry: %w", err)
	}
	return &entry, nil
}

// installKey returns the fallback sealing key. When no per-install secret
// exists yet a new one is generated and returned in pending; the caller
// persists it together with the sealed entry and then calls cacheKey.
func (v *Vault) installKey(ctx context.Context) (key []byte, pending map[string][]byte, err error) {
	v.keyMu.Lock()
	defer v.keyMu.Unlock()

	pending = map[string][]byte{}
	if v.key != nil {
		return v.key, pending, nil
	}

	id, err := v.kv.Get(ctx, KeyInstallID)
	if err != nil {
		return nil, nil, err
	}
	salt, err := v.kv.Get(ctx, KeySalt)
	if err != nil {
		return nil, nil, err
	}

	if id != nil && salt != nil {
		v.key = cryptox.DeriveKey(id, salt)
		return v.key, pending, nil
	}

	id = []byte(uuid.NewString())
	if salt, err = cryptox.RandomBytes(saltSize); err != nil {
		return nil, nil, err
	}
	pending[KeyInstallID] = id
	pending[KeySalt] = salt
	return cryptox.DeriveKey(id, salt), pending, nil
}

func (v *Vault) cacheKey(key []byte) {
	v.keyMu.Lock()
	v.key = key
	v.keyMu.Unlock()
}
