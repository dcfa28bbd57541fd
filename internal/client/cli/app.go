package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/azfinis/promoconsig/internal/client/apiclient"
	"github.com/azfinis/promoconsig/internal/client/biometric"
	"github.com/azfinis/promoconsig/internal/client/config"
	"github.com/azfinis/promoconsig/internal/client/kvstore"
	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/client/services"
	"github.com/azfinis/promoconsig/internal/client/session"
	"github.com/azfinis/promoconsig/internal/client/vault"
	"github.com/azfinis/promoconsig/internal/logging"
	"github.com/azfinis/promoconsig/internal/netx"
)

// resolver is the part of services.Resolver the CLI drives.
type resolver interface {
	Resolve(ctx context.Context, creds models.Credentials) (*services.Outcome, error)
	SelectRegistration(ctx context.Context, code string) (*services.Outcome, error)
	Cancel(ctx context.Context) (*services.Outcome, error)
	VerifyCredentials(ctx context.Context, creds models.Credentials) error
	State() services.State
	Pending() []models.CandidateRegistration
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	kv       kvstore.Store
	store    session.Store
	resolver resolver
	vault    biometric.Vault
	gate     *biometric.Gate
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp opens local storage and wires the API client, session store,
// resolver, vault and biometric gate according to c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	policy, err := services.ParseCancelPolicy(c.CancelPolicy)
	if err != nil {
		return nil, err
	}

	kv, err := kvstore.Open(ctx, kvstore.Options{
		Backend:       c.StorageBackend,
		DSN:           c.StorageDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisPrefix:   c.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := session.New(kv, logger)
	if err := store.Load(ctx); err != nil {
		_ = kv.Close()
		return nil, err
	}

	clientIP, err := netx.ResolveClientIP(c.ClientIP)
	if err != nil {
		logger.Warn(ctx, "client ip lookup failed, not forwarding", "error", err)
		clientIP = ""
	}

	api := apiclient.NewREST(apiclient.Options{
		APIURL:       c.APIURL,
		ConsigAPIURL: c.ConsigAPIURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Timeout:      c.RequestTimeout,
		ClientIP:     clientIP,
	})

	a := &App{
		config: c,
		logger: logger,
		kv:     kv,
		store:  store,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	platform := biometric.TerminalConfirm{Ask: a.ask}
	a.resolver = services.NewResolver(api, store, services.ResolverOptions{CancelPolicy: policy, Logger: logger})
	a.vault = vault.New(kv, vault.Options{
		Secure:     secureStore(ctx, c.UseKeyring, logger),
		Capability: platform,
		Logger:     logger,
	})
	a.gate = biometric.NewGate(a.vault, platform, a.resolver, logger)

	return a, nil
}

func secureStore(ctx context.Context, enabled bool, logger logging.Logger) vault.SecureStore {
	if !enabled {
		return nil
	}
	if err := vault.Probe(vault.Keyring{}); err != nil {
		logger.Warn(ctx, "OS keyring not usable, vault falls back to sealed local storage", "error", err)
		return nil
	}
	return vault.Keyring{}
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("PromoConsig CLI (type 'help' for commands)")
	if a.gate.Offered(ctx, "") {
		_ = a.Biometric(ctx)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Error(context.Background(), "close storage", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.store.Get(context.Background()).Authenticated()
}

func (a *App) getStatus() string {
	s := a.store.Get(context.Background())
	switch {
	case a.resolver.State() == services.AwaitingDisambiguation:
		return "(escolha pendente)"
	case !s.Authenticated():
		return ""
	case s.Employment != nil:
		return fmt.Sprintf("(%s %s)", s.LastUsername, s.Employment.RegistrationCode)
	default:
		return fmt.Sprintf("(%s)", s.LastUsername)
	}
}

// ask implements the terminal stand-in for a biometric challenge.
func (a *App) ask(question string) (string, error) {
	return getSimpleText(a.reader, question, a.out)
}
