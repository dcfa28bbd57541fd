// Package biometric turns a passed device challenge into a login with the
// credentials kept in the vault.
package biometric

import (
	"context"
	"errors"

	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/client/services"
	"github.com/azfinis/promoconsig/internal/logging"
)

// Vault is the credential slot consulted by the gate.
type Vault interface {
	IsBiometricHardwareAvailable(ctx context.Context) bool
	SaveCredentials(ctx context.Context, username, password string) error
	GetCredentials(ctx context.Context) (*models.VaultEntry, error)
	IsEnabled(ctx context.Context, username string) (bool, error)
	Clear(ctx context.Context) error
}

type Resolver interface {
	Resolve(ctx context.Context, creds models.Credentials) (*services.Outcome, error)
}

type Gate struct {
	vault    Vault
	platform Platform
	resolver Resolver
	logger   logging.Logger
	prompt   Prompt
}

func NewGate(v Vault, p Platform, r Resolver, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{vault: v, platform: p, resolver: r, logger: logger, prompt: DefaultPrompt}
}

// Offered reports whether a biometric login can be proposed, optionally for
// a specific username.
func (g *Gate) Offered(ctx context.Context, username string) bool {
	ok, err := g.vault.IsEnabled(ctx, username)
	if err != nil {
		g.logger.Warn(ctx, "vault check failed", "error", err)
		return false
	}
	return ok && g.platform.Available(ctx)
}

// Attempt runs the challenge and resolves with the vaulted credentials.
// It returns (nil, nil) when biometric login is not enabled.
func (g *Gate) Attempt(ctx context.Context) (*services.Outcome, error) {
	enabled, err := g.vault.IsEnabled(ctx, "")
	if err != nil {
		return nil, &services.AuthError{Kind: services.BiometricUnavailable, Err: err}
	}
	if !enabled {
		return nil, nil
	}
	if !g.platform.Available(ctx) {
		return nil, &services.AuthError{Kind: services.BiometricUnavailable, Err: ErrUnsupported}
	}

	if err := g.platform.Verify(ctx, g.prompt); err != nil {
		g.logger.Info(ctx, "biometric challenge not passed", "error", err)
		return nil, &services.AuthError{Kind: services.BiometricCancelled, Err: err}
	}

	entry, err := g.vault.GetCredentials(ctx)
	if err != nil || entry == nil {
		g.logger.Warn(ctx, "vault enabled but unreadable", "error", err)
		return nil, &services.AuthError{Kind: services.BiometricCancelled, Err: err}
	}

	out, err := g.resolver.Resolve(ctx, models.Credentials{Username: entry.Username, Password: entry.Password})
	if errors.Is(err, services.ErrInvalidCredentials) {
		g.logger.Info(ctx, "vaulted credentials rejected, clearing vault", "username", entry.Username)
		if cerr := g.vault.Clear(ctx); cerr != nil {
			g.logger.Error(ctx, "clear vault failed", "error", cerr)
		}
	}
	return out, err
}

// Enable stores creds for later biometric logins.
func (g *Gate) Enable(ctx context.Context, creds models.Credentials) error {
	if !g.vault.IsBiometricHardwareAvailable(ctx) {
		return &services.AuthError{Kind: services.BiometricUnavailable, Err: ErrUnsupported}
	}
	if err := g.vault.SaveCredentials(ctx, creds.Username, creds.Password); err != nil {
		return &services.AuthError{Kind: services.BiometricUnavailable, Err: err}
	}
	return nil
}

func (g *Gate) Disable(ctx context.Context) error {
	return g.vault.Clear(ctx)
}
