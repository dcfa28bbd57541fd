package biometric

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupported = errors.New("biometric authentication not supported")
	ErrNotVerified = errors.New("biometric verification not confirmed")
)

// Prompt carries the texts shown by the platform challenge.
type Prompt struct {
	Reason        string
	Title         string
	CancelTitle   string
	FallbackTitle string
}

var DefaultPrompt = Prompt{
	Reason:        "Confirme sua identidade para fazer login",
	Title:         "Login com Biometria",
	CancelTitle:   "Cancelar",
	FallbackTitle: "Usar senha",
}

// Platform is the device biometric facility.
type Platform interface {
	Available(ctx context.Context) bool
	// Verify returns nil only when the user passed the challenge.
	Verify(ctx context.Context, p Prompt) error
}

// Unsupported is the platform of devices without biometrics.
type Unsupported struct{}

func (Unsupported) Available(context.Context) bool { return false }

func (Unsupported) Verify(context.Context, Prompt) error { return ErrUnsupported }

// TerminalConfirm stands in for a biometric sensor in terminal builds: the
// challenge is an explicit yes/no answer. It proves presence, not identity,
// and is meant for development.
type TerminalConfirm struct {
	// Ask shows a question and returns the typed answer.
	Ask func(question string) (string, error)
}

func (t TerminalConfirm) Available(context.Context) bool { return t.Ask != nil }

func (t TerminalConfirm) Verify(ctx context.Context, p Prompt) error {
	if t.Ask == nil {
		return ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q := fmt.Sprintf("%s\n%s [s = confirmar, vazio = %s, f = %s]: ", p.Title, p.Reason, p.CancelTitle, p.FallbackTitle)
	answer, err := t.Ask(q)
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "sim", "y", "yes":
		return nil
	}
	return ErrNotVerified
}
