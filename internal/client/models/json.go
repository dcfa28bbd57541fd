package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type profileWire struct {
	ID            flexString `json:"id"`
	Name          string     `json:"nome"`
	Email         string     `json:"email"`
	TermsAccepted bool       `json:"isAceiteValido"`
}

type personWire struct {
	Pessoa *struct {
		DocumentoFederal *string `json:"documentoFederal"`
	} `json:"pessoa"`
}

var profileKnown = []string{"id", "nome", "email", "isAceiteValido"}

func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var w profileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode user profile: %w", err)
	}
	extra, err := extraFields(data, profileKnown...)
	if err != nil {
		return err
	}

	*p = UserProfile{
		ID:            string(w.ID),
		Name:          w.Name,
		Email:         w.Email,
		TermsAccepted: w.TermsAccepted,
		Extra:         extra,
	}

	// pessoaFisica stays in Extra so its other fields round-trip.
	if raw, ok := extra["pessoaFisica"]; ok && !isNull(raw) {
		var pf personWire
		if err := json.Unmarshal(raw, &pf); err == nil && pf.Pessoa != nil && pf.Pessoa.DocumentoFederal != nil {
			p.DocumentNumber = *pf.Pessoa.DocumentoFederal
		}
	}
	return nil
}

func (p UserProfile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["id"] = p.ID
	out["nome"] = p.Name
	out["email"] = p.Email
	out["isAceiteValido"] = p.TermsAccepted
	if _, ok := p.Extra["pessoaFisica"]; !ok && p.DocumentNumber != "" {
		out["pessoaFisica"] = map[string]any{
			"pessoa": map[string]any{"documentoFederal": p.DocumentNumber},
		}
	}
	return json.Marshal(out)
}

type employmentWire struct {
	ID               flexString      `json:"id"`
	Name             string          `json:"nome"`
	RegistrationCode flexString      `json:"matricula"`
	Document         string          `json:"cpf"`
	Payroll          *PayrollMargins `json:"folhaColaborador"`
}

var employmentKnown = []string{"id", "nome", "matricula", "cpf", "folhaColaborador"}

func (e *EmploymentRecord) UnmarshalJSON(data []byte) error {
	var w employmentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode employment record: %w", err)
	}
	extra, err := extraFields(data, employmentKnown...)
	if err != nil {
		return err
	}
	*e = EmploymentRecord{
		ID:               string(w.ID),
		Name:             w.Name,
		RegistrationCode: string(w.RegistrationCode),
		Document:         w.Document,
		Payroll:          w.Payroll,
		Extra:            extra,
	}
	return nil
}

func (e EmploymentRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+5)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["id"] = e.ID
	out["nome"] = e.Name
	out["matricula"] = e.RegistrationCode
	out["cpf"] = e.Document
	if e.Payroll != nil {
		out["folhaColaborador"] = e.Payroll
	}
	return json.Marshal(out)
}

func (c *CandidateRegistration) UnmarshalJSON(data []byte) error {
	var w struct {
		Code flexString `json:"codigoMatricula"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode registration: %w", err)
	}
	extra, err := extraFields(data, "codigoMatricula")
	if err != nil {
		return err
	}
	*c = CandidateRegistration{RegistrationCode: string(w.Code), Extra: extra}
	return nil
}

func (c CandidateRegistration) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+1)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["codigoMatricula"] = c.RegistrationCode
	return json.Marshal(out)
}

// flexString accepts both JSON strings and numbers; the APIs are not
// consistent about identifier types.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func extraFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
