package apiclient

import (
	"context"
	"time"

	"github.com/azfinis/promoconsig/internal/client/models"
)

// Token is the outcome of a successful password grant.
type Token struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

// API is the contract the identity resolver consumes.
type API interface {
	Login(ctx context.Context, creds models.Credentials) (*Token, error)
	Me(ctx context.Context, token *Token) (*models.UserProfile, error)
	ListRegistrations(ctx context.Context, token *Token, document string) ([]models.CandidateRegistration, error)
	GetEmployment(ctx context.Context, token *Token, document, registrationCode string) (*models.EmploymentRecord, error)
}
