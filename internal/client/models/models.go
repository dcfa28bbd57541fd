// Package models holds the records exchanged between the consignment APIs,
// the identity resolver and the session store.
//
// API payloads are decoded into explicit structs; fields the client does not
// model are kept verbatim in Extra so a record survives a persist/load cycle
// unchanged.
package models

import (
	"encoding/json"
	"time"
)

// Credentials is a username/password pair typed by the user or recovered
// from the vault. It lives in memory for the duration of one attempt.
type Credentials struct {
	Username string
	Password string
}

// UserProfile is the "who am I" payload of the login API.
type UserProfile struct {
	ID    string
	Name  string
	Email string
	// TermsAccepted mirrors isAceiteValido and gates the consent flow.
	TermsAccepted bool
	// DocumentNumber is pessoaFisica.pessoa.documentoFederal, unnormalized.
	DocumentNumber string

	Extra map[string]json.RawMessage
}

// PayrollMargins are the margin figures of one employment relationship.
type PayrollMargins struct {
	CardMargin float64 `json:"valorMargemCartao"`
	LoanMargin float64 `json:"valorMargemEmprestimo"`
}

// EmploymentRecord is the resolved colaborador for one registration.
type EmploymentRecord struct {
	ID               string
	Name             string
	RegistrationCode string
	Document         string
	Payroll          *PayrollMargins

	Extra map[string]json.RawMessage
}

// CandidateRegistration is one entry of the registration enumeration.
type CandidateRegistration struct {
	RegistrationCode string

	Extra map[string]json.RawMessage
}

// VaultEntry is the single credential slot of the vault.
type VaultEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  bool   `json:"-"`
}

// Session is a snapshot of the session store.
type Session struct {
	BearerToken  string
	TokenType    string
	TokenExpiry  time.Time
	User         *UserProfile
	Employment   *EmploymentRecord
	LastUsername string
	// StartedAt seeds the session-duration timer; zero when logged out.
	StartedAt time.Time
}

// Authenticated reports whether the snapshot carries a token and a profile.
func (s Session) Authenticated() bool {
	return s.BearerToken != "" && s.User != nil
}

// Clone returns a deep copy so subscribers cannot mutate store state.
func (s Session) Clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		u.Extra = cloneExtra(s.User.Extra)
		out.User = &u
	}
	if s.Employment != nil {
		e := *s.Employment
		e.Extra = cloneExtra(s.Employment.Extra)
		if s.Employment.Payroll != nil {
			p := *s.Employment.Payroll
			e.Payroll = &p
		}
		out.Employment = &e
	}
	return out
}

func cloneExtra(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
