// Package stubapi is a development backend implementing the login and
// consignment REST contracts the client consumes, driven by fixtures.
package stubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/azfinis/promoconsig/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const usernameKey = "stubapi.username"

type handler struct {
	cfg      *Config
	fixtures Fixtures
	logger   logging.Logger
}

// NewRouter builds the gin engine serving both the login API and the
// consignment API on one origin.
func NewRouter(cfg *Config, fixtures Fixtures, logger logging.Logger) (*gin.Engine, error) {
	if err := fixtures.hashPasswords(); err != nil {
		return nil, err
	}
	h := &handler{cfg: cfg, fixtures: fixtures, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog)

	r.POST("/oauth/token", h.token)

	authed := r.Group("/", h.bearer)
	authed.GET("/user/me", h.me)
	authed.GET("/colaborador/buscarPorMatricula/:document", h.registrations)
	authed.GET("/colaborador/buscarColaborador/:document/:code", h.employment)

	return r, nil
}

func (h *handler) requestLog(c *gin.Context) {
	id := uuid.NewString()
	c.Header("X-Request-ID", id)
	start := time.Now()

	c.Next()

	h.logger.Info(c.Request.Context(), "request",
		"id", id,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (h *handler) token(c *gin.Context) {
	id, secret, ok := c.Request.BasicAuth()
	if !ok || id != h.cfg.ClientID || secret != h.cfg.ClientSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client", "error_description": "Cliente n&atilde;o autorizado"})
		return
	}
	if c.PostForm("grant_type") != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}

	u, found := h.fixtures.byUsername(c.PostForm("username"))
	if !found || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.PostForm("password"))) != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_grant",
			"error_description": "Usu&aacute;rio ou senha inv&aacute;lidos",
		})
		return
	}

	if u.OmitToken {
		c.JSON(http.StatusOK, gin.H{"token_type": "bearer", "scope": "read write"})
		return
	}

	tok, err := issueToken(u.Username, []byte(h.cfg.SecretKey), h.cfg.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok,
		"token_type":   "bearer",
		"expires_in":   int(h.cfg.TokenTTL.Seconds()),
		"scope":        "read write",
	})
}

func (h *handler) bearer(c *gin.Context) {
	raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !found {
		raw, found = strings.CutPrefix(c.GetHeader("Authorization"), "bearer ")
	}
	if !found || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "error_description": "Token ausente"})
		return
	}

	username, err := usernameFromToken(raw, []byte(h.cfg.SecretKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Token inv&aacute;lido"})
		return
	}
	c.Set(usernameKey, username)
	c.Next()
}

func (h *handler) currentUser(c *gin.Context) (User, bool) {
	return h.fixtures.byUsername(c.GetString(usernameKey))
}

func (h *handler) me(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}
	if u.ProfileFails {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Servi&ccedil;o indispon&iacute;vel"})
		return
	}

	body := gin.H{
		"id":             u.ID,
		"nome":           u.Name,
		"email":          u.Email,
		"isAceiteValido": u.TermsAccepted,
	}
	if u.Document != "" {
		body["pessoaFisica"] = gin.H{"pessoa": gin.H{"documentoFederal": u.Document}}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) registrations(c *gin.Context) {
	var list []gin.H
	for _, u := range h.fixtures.byDocument(c.Param("document")) {
		for _, e := range u.Employments {
			list = append(list, gin.H{"codigoMatricula": e.Code})
		}
	}
	if len(list) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Colaborador n&atilde;o encontrado"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) employment(c *gin.Context) {
	code := c.Param("code")
	for _, u := range h.fixtures.byDocument(c.Param("document")) {
		for _, e := range u.Employments {
			if e.Code != code {
				continue
			}
			if u.DetailFails {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Falha ao consultar colaborador"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"id":        u.ID + "-" + e.Code,
				"nome":      e.Name,
				"matricula": e.Code,
				"cpf":       digitsOnly(u.Document),
				"folhaColaborador": gin.H{
					"valorMargemCartao":     e.CardMargin,
					"valorMargemEmprestimo": e.LoanMargin,
				},
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Matr&iacute;cula " + strconv.Quote(code) + " n&atilde;o encontrada"})
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(cfg *Config, fixtures Fixtures, logger logging.Logger) (*Server, error) {
	r, err := NewRouter(cfg, fixtures, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv:    &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "stub api listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info(ctx, "stub api shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
