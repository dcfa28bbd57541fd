package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/logging"
	"github.com/azfinis/promoconsig/internal/stubapi"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStub(t *testing.T, fx stubapi.Fixtures) *RESTClient {
	t.Helper()
	cfg := &stubapi.Config{}
	cfg.LoadDefaults()

	r, err := stubapi.NewRouter(cfg, fx, logging.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewREST(Options{
		APIURL:       srv.URL,
		ConsigAPIURL: srv.URL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Timeout:      5 * time.Second,
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	c := newStub(t, stubapi.DefaultFixtures())

	tok, err := c.Login(ctx, models.Credentials{Username: "single", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.Expiry, time.Minute)

	_, err = c.Login(ctx, models.Credentials{Username: "single", Password: "wrong"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "Usuário ou senha inválidos", MessageOf(err))
}

func TestLogin_TokenMissing(t *testing.T) {
	fx := stubapi.Fixtures{Users: []stubapi.User{{ID: "1", Username: "u", Password: "p", OmitToken: true}}}
	c := newStub(t, fx)

	_, err := c.Login(context.Background(), models.Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestLogin_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := NewREST(Options{APIURL: srv.URL, ClientID: "a", ClientSecret: "b"})

	_, err := c.Login(context.Background(), models.Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = c.Login(context.Background(), models.Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	c := newStub(t, stubapi.DefaultFixtures())

	tok, err := c.Login(ctx, models.Credentials{Username: "single", Password: "secret"})
	require.NoError(t, err)

	p, err := c.Me(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "ANA SOUZA", p.Name)
	assert.True(t, p.TermsAccepted)
	assert.Equal(t, "123.456.789-00", p.DocumentNumber)

	_, err = c.Me(ctx, &Token{AccessToken: "forged", TokenType: "bearer"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestRegistrationsAndEmployment(t *testing.T) {
	ctx := context.Background()
	c := newStub(t, stubapi.DefaultFixtures())

	tok, err := c.Login(ctx, models.Credentials{Username: "multi", Password: "secret"})
	require.NoError(t, err)

	list, err := c.ListRegistrations(ctx, tok, "98765432100")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B1", list[0].RegistrationCode)

	list, err = c.ListRegistrations(ctx, tok, "00000000000")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	rec, err := c.GetEmployment(ctx, tok, "98765432100", "B2")
	require.NoError(t, err)
	assert.Equal(t, "B2", rec.RegistrationCode)
	require.NotNil(t, rec.Payroll)
	assert.Equal(t, 300.0, rec.Payroll.LoanMargin)

	_, err = c.GetEmployment(ctx, tok, "98765432100", "nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `Matrícula "nope" não encontrada`, MessageOf(err))
}

func TestForwardedHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("null"))
	}))
	t.Cleanup(srv.Close)

	c := NewREST(Options{APIURL: srv.URL, ConsigAPIURL: srv.URL, ClientIP: "10.0.0.7"})
	list, err := c.ListRegistrations(context.Background(), &Token{AccessToken: "t", TokenType: "bearer"}, "1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, "10.0.0.7", got.Get("X-Forwarded-For"))
	assert.Equal(t, "10.0.0.7", got.Get("X-Forwarded-For-Private"))
	assert.Equal(t, "Bearer t", got.Get("Authorization"))
}

func TestJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("unknown to client"))
	require.NoError(t, err)

	assert.True(t, exp.Equal(jwtExpiry(raw)))
	assert.True(t, jwtExpiry("opaque-token").IsZero())
}
