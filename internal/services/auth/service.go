package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"golang.org/x/crypto/bcrypt"

	"github.com/ouarsenis/thawra-api/pkg/auth"
	"github.com/ouarsenis/thawra-api/pkg/models"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	StampLastLogin(ctx context.Context, id string, at time.Time) error
}

// Service handles credential verification and token issuance.
type Service struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	logger ectologger.Logger
}

func NewService(users UserRepository, tokens *auth.TokenIssuer, logger ectologger.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Login verifies the credentials and returns a signed access token with the
// sanitized user. Unknown email and wrong password produce the same message
// so the response does not leak which emails exist.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "auth.Service.Login")
	defer span.End()

	invalid := httperror.NewHTTPError(http.StatusUnauthorized, "invalid credentials")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithContext(ctx).WithFields(map[string]any{"email": req.Email}).Warn("Login attempt with wrong password")
		return nil, invalid
	}

	if !user.Active {
		return nil, httperror.NewHTTPError(http.StatusUnauthorized, "account is deactivated")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to issue access token")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue access token")
	}

	now := time.Now().UTC()
	if err := s.users.StampLastLogin(ctx, user.ID, now); err != nil {
		// Login still succeeds; the stamp is bookkeeping.
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to stamp last login")
	}
	user.LastLogin = &now

	return &models.LoginResponse{
		AccessToken: token,
		User:        *user,
	}, nil
}
