package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/client/services"
	"github.com/azfinis/promoconsig/internal/cryptox"
)

// Login prompts for credentials and resolves the session. The last username
// is offered as the default. After a successful login the user may opt into
// biometric login when the device supports it.
func (a *App) Login(ctx context.Context) error {
	last := a.store.Get(ctx).LastUsername
	prompt := "Usuário"
	if last != "" {
		prompt = fmt.Sprintf("Usuário [%s]", last)
	}

	username, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if username == "" {
		username = last
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	if username == "" || len(password) == 0 {
		printlnFn("Verifique os campos inválidos.")
		return errors.New("empty username or password")
	}

	creds := models.Credentials{Username: username, Password: string(password)}
	out, err := a.resolver.Resolve(ctx, creds)
	if err := a.handleOutcome(ctx, out, err); err != nil {
		return err
	}

	if a.resolver.State() == services.Resolved {
		a.offerBiometric(ctx, creds)
	}
	return nil
}

// Biometric runs the biometric gate. A disabled vault is reported, not an
// error.
func (a *App) Biometric(ctx context.Context) error {
	out, err := a.gate.Attempt(ctx)
	if out == nil && err == nil {
		printlnFn("Login por biometria não está ativado.")
		return nil
	}
	if errors.Is(err, services.ErrInvalidCredentials) {
		printlnFn("A senha salva não é mais válida; a biometria foi desativada. Entre com usuário e senha.")
		return err
	}
	if errors.Is(err, services.ErrBiometricCancelled) {
		printlnFn("Biometria cancelada. Use 'login' para entrar com senha.")
		return err
	}
	return a.handleOutcome(ctx, out, err)
}

// Select resumes a pending choice with code.
func (a *App) Select(ctx context.Context, code string) error {
	out, err := a.resolver.SelectRegistration(ctx, code)
	if errors.Is(err, services.ErrNothingPending) || errors.Is(err, services.ErrUnknownRegistration) {
		printlnFn(err.Error())
		return err
	}
	return a.handleOutcome(ctx, out, err)
}

func (a *App) Cancel(ctx context.Context) error {
	out, err := a.resolver.Cancel(ctx)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	return a.handleOutcome(ctx, out, nil)
}

// Logout clears the session but keeps the last username and the vault.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		a.logger.Error(ctx, "logout failed", "error", err)
		printlnFn(services.GenericMessage)
		return err
	}
	printlnFn("Sessão encerrada.")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	s := a.store.Get(ctx)

	printlnFn("Estado:", a.resolver.State().String())
	if s.LastUsername != "" {
		printlnFn("Último usuário:", s.LastUsername)
	}
	if s.User != nil {
		printlnFn("Usuário:", s.User.Name)
	}
	if s.Employment != nil {
		printlnFn("Matrícula:", s.Employment.RegistrationCode)
		if p := s.Employment.Payroll; p != nil {
			printlnFn(fmt.Sprintf("Margem cartão: %.2f  Margem empréstimo: %.2f", p.CardMargin, p.LoanMargin))
		}
	}
	if !s.TokenExpiry.IsZero() {
		printlnFn("Token expira em:", s.TokenExpiry.Local().Format(time.DateTime))
	}
	if !s.StartedAt.IsZero() {
		printlnFn("Sessão ativa há:", time.Since(s.StartedAt).Truncate(time.Second).String())
	}
	if pending := a.resolver.Pending(); len(pending) > 0 {
		printlnFn("Matrículas pendentes:", len(pending))
	}

	enabled, err := a.vault.IsEnabled(ctx, "")
	if err != nil {
		a.logger.Warn(ctx, "vault check failed", "error", err)
	}
	printlnFn("Biometria ativada:", enabled)
	return nil
}

// Vault turns biometric login on for the current user, asking for the
// password again and checking it with the Login API, or off.
func (a *App) Vault(ctx context.Context, on bool) error {
	if !on {
		if err := a.gate.Disable(ctx); err != nil {
			a.logger.Error(ctx, "disable vault failed", "error", err)
			printlnFn(services.GenericMessage)
			return err
		}
		printlnFn("Biometria desativada.")
		return nil
	}

	s := a.store.Get(ctx)
	if !s.Authenticated() {
		printlnFn("Entre primeiro com usuário e senha.")
		return errors.New("not logged in")
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	creds := models.Credentials{Username: s.LastUsername, Password: string(password)}
	if err := a.resolver.VerifyCredentials(ctx, creds); err != nil {
		a.logger.Warn(ctx, "vault password check failed", "error", err)
		printlnFn("Biometria não ativada:", services.UserMessage(err))
		return err
	}
	return a.enableBiometric(ctx, creds)
}

func (a *App) offerBiometric(ctx context.Context, creds models.Credentials) {
	if !a.vault.IsBiometricHardwareAvailable(ctx) {
		return
	}
	if enabled, err := a.vault.IsEnabled(ctx, creds.Username); err != nil || enabled {
		return
	}
	if confirm(a.reader, "Ativar login por biometria neste dispositivo?", a.out) {
		_ = a.enableBiometric(ctx, creds)
	}
}

func (a *App) enableBiometric(ctx context.Context, creds models.Credentials) error {
	if err := a.gate.Enable(ctx, creds); err != nil {
		a.logger.Warn(ctx, "enable biometric failed", "error", err)
		printlnFn(services.UserMessage(err))
		return err
	}
	printlnFn("Biometria ativada.")
	return nil
}

// handleOutcome reports a resolver result and drives the registration choice
// when one is pending.
func (a *App) handleOutcome(ctx context.Context, out *services.Outcome, err error) error {
	if err != nil {
		printlnFn("Erro no login:", services.UserMessage(err))
		return err
	}

	switch out.State {
	case services.AwaitingDisambiguation:
		code, ok, cerr := chooseRegistration(a.reader, a.out, out.Candidates)
		if cerr != nil {
			printlnFn("Use 'select <código>' ou 'cancel' para continuar.")
			return cerr
		}
		if !ok {
			return a.Cancel(ctx)
		}
		return a.Select(ctx, code)

	case services.Cancelled:
		printlnFn("Seleção de matrícula cancelada.")
		return nil

	case services.Resolved:
		name := ""
		if out.Session.User != nil {
			name = out.Session.User.Name
		}
		printlnFn("Bem-vindo,", name)
		if out.Session.Employment != nil {
			printlnFn("Matrícula:", out.Session.Employment.RegistrationCode)
		}
		if out.ConsentRequired() {
			printlnFn("Há termos de uso pendentes de aceite.")
		}
	}
	return nil
}
