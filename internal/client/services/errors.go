package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/azfinis/promoconsig/internal/client/apiclient"
)

// Kind classifies why an authentication attempt failed.
type Kind uint8

const (
	InvalidCredentials Kind = iota + 1
	TokenMissing
	ProfileFetchFailed
	NoRegistrationFound
	EmploymentFetchFailed
	BiometricCancelled
	BiometricUnavailable
	NetworkFailure
)

// Sentinels matched by errors.Is against any *AuthError of the same kind.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrTokenMissing          = errors.New("token missing")
	ErrProfileFetchFailed    = errors.New("profile fetch failed")
	ErrNoRegistrationFound   = errors.New("no registration found")
	ErrEmploymentFetchFailed = errors.New("employment fetch failed")
	ErrBiometricCancelled    = errors.New("biometric cancelled")
	ErrBiometricUnavailable  = errors.New("biometric unavailable")
	ErrNetworkFailure        = errors.New("network failure")
)

// Misuse of the resolver API, not authentication failures.
var (
	ErrNothingPending      = errors.New("no registration choice pending")
	ErrUnknownRegistration = errors.New("registration not among candidates")
)

// GenericMessage is shown when nothing more specific is known.
const GenericMessage = apiclient.GenericMessage

var kinds = map[Kind]struct {
	sentinel error
	message  string
}{
	InvalidCredentials:    {ErrInvalidCredentials, "Usuário ou senha inválidos"},
	TokenMissing:          {ErrTokenMissing, "Não foi possível obter o token de acesso"},
	ProfileFetchFailed:    {ErrProfileFetchFailed, "Não foi possível carregar os dados do usuário"},
	NoRegistrationFound:   {ErrNoRegistrationFound, "Nenhuma matrícula encontrada para este usuário"},
	EmploymentFetchFailed: {ErrEmploymentFetchFailed, "Não foi possível carregar os dados do colaborador"},
	BiometricCancelled:    {ErrBiometricCancelled, "Autenticação biométrica cancelada"},
	BiometricUnavailable:  {ErrBiometricUnavailable, "Biometria não disponível neste dispositivo"},
	NetworkFailure:        {ErrNetworkFailure, "Falha de conexão. Verifique sua internet e tente novamente"},
}

func (k Kind) String() string {
	if d, ok := kinds[k]; ok {
		return d.sentinel.Error()
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// AuthError is the only error type returned by the resolver and the
// biometric gate. Err keeps the underlying cause for logs.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	switch {
	case e.Message != "":
		return e.Kind.String() + ": " + e.Message
	case e.Err != nil:
		return e.Kind.String() + ": " + e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *AuthError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if d, ok := kinds[e.Kind]; ok {
		errs = append(errs, d.sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage is the text to show: the server's message when it gave a
// readable one, otherwise a fixed message for the kind.
func (e *AuthError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if d, ok := kinds[e.Kind]; ok {
		return d.message
	}
	return GenericMessage
}

func newAuthError(kind Kind, err error) *AuthError {
	return &AuthError{Kind: kind, Message: readable(apiclient.MessageOf(err)), Err: err}
}

// readable drops placeholders that say nothing to a user.
func readable(msg string) string {
	if msg == GenericMessage || strings.HasPrefix(msg, "HTTP ") {
		return ""
	}
	return msg
}

// KindOf returns the kind of the first *AuthError in err's chain, or 0.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// UserMessage renders any error for display.
func UserMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	return GenericMessage
}
