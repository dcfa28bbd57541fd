// Package session holds the authenticated session of the current user and
// persists it to a durable key-value store so it survives restarts.
//
// The Store is injected wherever session state is read or written; there is
// no package-level session. Each update is one atomic kvstore.Apply, and the
// in-memory mirror changes only after it succeeds, so a failed write leaves
// both untouched.
// Subscribers receive a deep copy after every successful write.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/azfinis/promoconsig/internal/client/kvstore"
	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/logging"
)

// Keys in the durable store.
const (
	KeyToken        = "authToken"
	KeyUser         = "userData"
	KeyEmployment   = "colaborador"
	KeyLastUsername = "lastLogin"
	KeyStartedAt    = "sessionStartTime"
)

// Store is the session context consumed by the resolver and the UI.
type Store interface {
	Get(ctx context.Context) models.Session
	SetToken(ctx context.Context, token, tokenType string, expiry time.Time) error
	SetUser(ctx context.Context, user *models.UserProfile) error
	SetEmployment(ctx context.Context, rec *models.EmploymentRecord) error
	// BindEmployment stores rec and, when it carries a name, renames the
	// current profile in the same write.
	BindEmployment(ctx context.Context, rec *models.EmploymentRecord) error
	SetLastUsername(ctx context.Context, username string) error
	// SetAuthenticated writes token, profile and last username in one step.
	SetAuthenticated(ctx context.Context, auth Auth) error
	// ClearAuthentication drops token, profile and employment but keeps
	// the last username and does not count as a logout.
	ClearAuthentication(ctx context.Context) error
	Logout(ctx context.Context) error
	Subscribe(fn func(models.Session)) (cancel func())
}

// Auth is the result of a successful login plus profile fetch.
type Auth struct {
	Token     string
	TokenType string
	Expiry    time.Time
	User      *models.UserProfile
	Username  string
}

type storedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
}

// KVStore is a Store backed by a kvstore.Store.
type KVStore struct {
	kv     kvstore.Store
	logger logging.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current models.Session

	subMu  sync.Mutex
	subs   map[int]func(models.Session)
	nextID int
}

var _ Store = (*KVStore)(nil)

func New(kv kvstore.Store, logger logging.Logger) *KVStore {
	return &KVStore{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(models.Session)),
	}
}

// Load hydrates the in-memory mirror from the durable store. Undecodable
// entries are dropped and logged rather than failing the start-up.
func (s *KVStore) Load(ctx context.Context) error {
	var sess models.Session

	raw, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if raw != nil {
		var tok storedToken
		if err := json.Unmarshal(raw, &tok); err != nil {
			s.logger.Warn(ctx, "discarding unreadable stored token", "error", err)
		} else {
			sess.BearerToken, sess.TokenType, sess.TokenExpiry = tok.AccessToken, tok.TokenType, tok.Expiry
		}
	}

	if err := s.loadJSON(ctx, KeyUser, &sess.User); err != nil {
		return err
	}
	if err := s.loadJSON(ctx, KeyEmployment, &sess.Employment); err != nil {
		return err
	}
	if err := s.loadJSON(ctx, KeyStartedAt, &sess.StartedAt); err != nil {
		return err
	}

	raw, err = s.kv.Get(ctx, KeyLastUsername)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.LastUsername = string(raw)

	// A token without its profile is not a usable session.
	if sess.BearerToken != "" && sess.User == nil {
		s.logger.Warn(ctx, "stored token has no profile, ignoring it")
		sess.BearerToken, sess.TokenType, sess.TokenExpiry = "", "", time.Time{}
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return nil
}

func (s *KVStore) loadJSON(ctx context.Context, key string, dst any) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn(ctx, "discarding unreadable session entry", "key", key, "error", err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context) models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *KVStore) SetToken(ctx context.Context, token, tokenType string, expiry time.Time) error {
	w := writes{}
	if err := w.token(token, tokenType, expiry); err != nil {
		return err
	}
	return s.apply(ctx, w, func(sess *models.Session) {
		sess.BearerToken, sess.TokenType, sess.TokenExpiry = token, tokenType, expiry
	})
}

// SetUser stores the profile. A non-nil profile starts a new session timer.
func (s *KVStore) SetUser(ctx context.Context, user *models.UserProfile) error {
	w := writes{}
	startedAt := time.Time{}
	if user != nil {
		startedAt = s.now()
	}
	if err := w.user(user, startedAt); err != nil {
		return err
	}
	return s.apply(ctx, w, func(sess *models.Session) {
		sess.User = cloneUser(user)
		sess.StartedAt = startedAt
	})
}

func (s *KVStore) SetEmployment(ctx context.Context, rec *models.EmploymentRecord) error {
	w := writes{}
	if err := w.json(KeyEmployment, rec); err != nil {
		return err
	}
	return s.apply(ctx, w, func(sess *models.Session) {
		sess.Employment = cloneEmployment(rec)
	})
}

func (s *KVStore) BindEmployment(ctx context.Context, rec *models.EmploymentRecord) error {
	s.mu.RLock()
	user := cloneUser(s.current.User)
	s.mu.RUnlock()

	w := writes{}
	if err := w.json(KeyEmployment, rec); err != nil {
		return err
	}
	renamed := user != nil && rec != nil && rec.Name != ""
	if renamed {
		user.Name = rec.Name
		if err := w.json(KeyUser, user); err != nil {
			return err
		}
	}
	return s.apply(ctx, w, func(sess *models.Session) {
		sess.Employment = cloneEmployment(rec)
		if renamed && sess.User != nil {
			sess.User.Name = rec.Name
		}
	})
}

func (s *KVStore) SetLastUsername(ctx context.Context, username string) error {
	w := writes{}
	w.raw(KeyLastUsername, username)
	return s.apply(ctx, w, func(sess *models.Session) {
		sess.LastUsername = username
	})
}

func (s *KVStore) SetAuthenticated(ctx context.Context, auth Auth) error {
	startedAt := s.now()
	w := writes{}
	if err := w.token(auth.Token, auth.TokenType, auth.Expiry); err != nil {
		return err
	}
	if err := w.user(auth.User, startedAt); err != nil {
		return err
	}
	w.raw(KeyLastUsername, auth.Username)
	// A fresh login never inherits the previous employment.
	w.del = append(w.del, KeyEmployment)

	return s.apply(ctx, w, func(sess *models.Session) {
		sess.BearerToken, sess.TokenType, sess.TokenExpiry = auth.Token, auth.TokenType, auth.Expiry
		sess.User = cloneUser(auth.User)
		sess.Employment = nil
		sess.StartedAt = startedAt
		sess.LastUsername = auth.Username
	})
}

func (s *KVStore) ClearAuthentication(ctx context.Context) error {
	w := writes{del: []string{KeyToken, KeyUser, KeyEmployment, KeyStartedAt}}
	return s.apply(ctx, w, func(sess *models.Session) {
		*sess = models.Session{LastUsername: sess.LastUsername}
	})
}

// Logout clears everything except the last username.
func (s *KVStore) Logout(ctx context.Context) error {
	if err := s.ClearAuthentication(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Subscribe registers fn for change notifications. The returned function
// unregisters it.
func (s *KVStore) Subscribe(fn func(models.Session)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *KVStore) apply(ctx context.Context, w writes, mutate func(*models.Session)) error {
	s.mu.Lock()
	if err := s.kv.Apply(ctx, w.set, w.del); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	mutate(&s.current)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *KVStore) notify(snapshot models.Session) {
	s.subMu.Lock()
	fns := make([]func(models.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snapshot.Clone())
	}
}

// writes collects the keys to set and remove for one logical update.
type writes struct {
	set map[string][]byte
	del []string
}

func (w *writes) raw(key, value string) {
	if value == "" {
		w.del = append(w.del, key)
		return
	}
	if w.set == nil {
		w.set = make(map[string][]byte)
	}
	w.set[key] = []byte(value)
}

func (w *writes) json(key string, v any) error {
	if isNil(v) {
		w.del = append(w.del, key)
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if w.set == nil {
		w.set = make(map[string][]byte)
	}
	w.set[key] = data
	return nil
}

func (w *writes) token(token, tokenType string, expiry time.Time) error {
	if token == "" {
		w.del = append(w.del, KeyToken)
		return nil
	}
	return w.json(KeyToken, storedToken{AccessToken: token, TokenType: tokenType, Expiry: expiry})
}

func (w *writes) user(user *models.UserProfile, startedAt time.Time) error {
	if user == nil {
		w.del = append(w.del, KeyUser, KeyStartedAt)
		return nil
	}
	if err := w.json(KeyUser, user); err != nil {
		return err
	}
	return w.json(KeyStartedAt, startedAt)
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *models.UserProfile:
		return x == nil
	case *models.EmploymentRecord:
		return x == nil
	}
	return false
}

func cloneUser(u *models.UserProfile) *models.UserProfile {
	return models.Session{User: u}.Clone().User
}

func cloneEmployment(e *models.EmploymentRecord) *models.EmploymentRecord {
	return models.Session{Employment: e}.Clone().Employment
}
