package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const maxBodySize = 1 << 20

// Options configures a RESTClient.
type Options struct {
	APIURL       string
	ConsigAPIURL string
	ClientID     string
	ClientSecret string
	// Timeout bounds every HTTP exchange; the resolver imposes none itself.
	Timeout time.Duration
	// ClientIP, when set, is forwarded in X-Forwarded-For on consig calls.
	ClientIP string
	// HTTPClient replaces the default client (Timeout is then ignored).
	HTTPClient *http.Client
}

type RESTClient struct {
	apiURL    string
	consigURL string
	clientIP  string
	http      *http.Client
	oauth     *oauth2.Config
}

var _ API = (*RESTClient)(nil)

func NewREST(opts Options) *RESTClient {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	apiURL := strings.TrimRight(opts.APIURL, "/")

	return &RESTClient{
		apiURL:    apiURL,
		consigURL: strings.TrimRight(opts.ConsigAPIURL, "/"),
		clientIP:  opts.ClientIP,
		http:      hc,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  apiURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: []string{"read", "write"},
		},
	}
}

// Login performs the password grant.
func (c *RESTClient) Login(ctx context.Context, creds models.Credentials) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauth.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = jwtExpiry(tok.AccessToken)
	}
	return &Token{AccessToken: tok.AccessToken, TokenType: tok.Type(), Expiry: expiry}, nil
}

func (c *RESTClient) Me(ctx context.Context, token *Token) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.getJSON(ctx, token, c.apiURL+"/user/me", false, &p); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &p, nil
}

// ListRegistrations returns an empty slice when the document has no
// registrations, including a 404 or a null body.
func (c *RESTClient) ListRegistrations(ctx context.Context, token *Token, document string) ([]models.CandidateRegistration, error) {
	endpoint := c.consigURL + "/colaborador/buscarPorMatricula/" + url.PathEscape(document)

	var list []models.CandidateRegistration
	err := c.getJSON(ctx, token, endpoint, true, &list)
	if errors.Is(err, ErrNotFound) {
		return []models.CandidateRegistration{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if list == nil {
		list = []models.CandidateRegistration{}
	}
	return list, nil
}

func (c *RESTClient) GetEmployment(ctx context.Context, token *Token, document, registrationCode string) (*models.EmploymentRecord, error) {
	endpoint := c.consigURL + "/colaborador/buscarColaborador/" +
		url.PathEscape(document) + "/" + url.PathEscape(registrationCode)

	var rec *models.EmploymentRecord
	if err := c.getJSON(ctx, token, endpoint, true, &rec); err != nil {
		return nil, fmt.Errorf("fetch employment %s: %w", registrationCode, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("fetch employment %s: %w", registrationCode, ErrNotFound)
	}
	return rec, nil
}

func (c *RESTClient) getJSON(ctx context.Context, token *Token, endpoint string, forward bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if forward && c.clientIP != "" {
		req.Header.Set("X-Forwarded-For", c.clientIP)
		req.Header.Set("X-Forwarded-For-Private", c.clientIP)
	}

	resp, err := c.bearerClient(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: ExtractMessage(body, resp.StatusCode)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *RESTClient) bearerClient(ctx context.Context, token *Token) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.AccessToken, TokenType: token.TokenType})
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = c.http.Timeout
	return hc
}

func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		msg := ExtractMessage(re.Body, status)
		if status < 400 && re.ErrorDescription != "" {
			msg = re.ErrorDescription
		}
		if status < 400 {
			// RFC 6749 error carried in a 2xx body.
			status = http.StatusBadRequest
		}
		return &APIError{Status: status, Message: msg}
	}
	// oauth2 reports an empty access_token as a plain error.
	if strings.Contains(err.Error(), "missing access_token") {
		return ErrTokenMissing
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// jwtExpiry reads the exp claim without verifying the signature; the client
// does not hold the server's key.
func jwtExpiry(raw string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
