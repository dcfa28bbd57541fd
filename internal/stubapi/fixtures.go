package stubapi

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Employment is one registration of a fixture user.
type Employment struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	CardMargin float64 `json:"card_margin"`
	LoanMargin float64 `json:"loan_margin"`
}

// User is a fixture account served by the stub.
type User struct {
	ID            string       `json:"id"`
	Username      string       `json:"username"`
	Password      string       `json:"password,omitempty"`
	PasswordHash  string       `json:"password_hash,omitempty"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Document      string       `json:"document"`
	TermsAccepted bool         `json:"terms_accepted"`
	Employments   []Employment `json:"employments"`

	// Failure switches for exercising client error paths.
	OmitToken    bool `json:"omit_token,omitempty"`
	ProfileFails bool `json:"profile_fails,omitempty"`
	DetailFails  bool `json:"detail_fails,omitempty"`
}

type Fixtures struct {
	Users []User `json:"users"`
}

// DefaultFixtures covers the three registration cardinalities plus an account
// without a document.
func DefaultFixtures() Fixtures {
	return Fixtures{Users: []User{
		{
			ID: "1", Username: "single", Password: "secret", Name: "ANA SOUZA", Email: "ana@example.com",
			Document: "123.456.789-00", TermsAccepted: true,
			Employments: []Employment{{Code: "A1", Name: "Ana Souza", CardMargin: 250.5, LoanMargin: 1200}},
		},
		{
			ID: "2", Username: "multi", Password: "secret", Name: "BRUNO LIMA", Email: "bruno@example.com",
			Document: "987.654.321-00", TermsAccepted: true,
			Employments: []Employment{
				{Code: "B1", Name: "Bruno Lima", CardMargin: 100, LoanMargin: 800},
				{Code: "B2", Name: "Bruno Lima (2)", CardMargin: 50, LoanMargin: 300},
			},
		},
		{
			ID: "3", Username: "none", Password: "secret", Name: "CARLA DIAS", Email: "carla@example.com",
			Document: "111.222.333-44",
		},
		{
			ID: "4", Username: "nodoc", Password: "secret", Name: "DIEGO ALVES", Email: "diego@example.com",
		},
	}}
}

// LoadFixtures reads a JSON fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	var f Fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read fixtures: %w", err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// hashPasswords replaces plain passwords with bcrypt hashes so the stub never
// compares secrets in clear.
func (f *Fixtures) hashPasswords() error {
	for i := range f.Users {
		u := &f.Users[i]
		if u.PasswordHash != "" || u.Password == "" {
			u.Password = ""
			continue
		}
		h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		u.PasswordHash = string(h)
		u.Password = ""
	}
	return nil
}

func (f Fixtures) byUsername(username string) (User, bool) {
	for _, u := range f.Users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return User{}, false
}

func (f Fixtures) byDocument(document string) []User {
	var out []User
	for _, u := range f.Users {
		if u.Document != "" && digitsOnly(u.Document) == digitsOnly(document) {
			out = append(out, u)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
