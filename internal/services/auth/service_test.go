package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ouarsenis/thawra-api/pkg/auth"
	"github.com/ouarsenis/thawra-api/pkg/models"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	stamped []string
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	f.stamped = append(f.stamped, id)
	return nil
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "editor@example.org",
		PasswordHash: string(hash),
		Name:         "Amina",
		Role:         models.RoleEditor,
		Active:       true,
	}
}

func newTestService(repo *fakeUserRepo) *Service {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	tokens := auth.NewTokenIssuer("test-secret", "thawra-api", time.Hour)
	return NewService(repo, tokens, logger)
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(t, "correct horse")
	repo := &fakeUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotNil(t, resp.User.LastLogin)
	assert.Equal(t, []string{"user-1"}, repo.stamped)

	// The token round-trips through the verifier.
	tokens := auth.NewTokenIssuer("test-secret", "thawra-api", time.Hour)
	subject, err := tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestLoginWrongPassword(t *testing.T) {
	user := testUser(t, "correct horse")
	repo := &fakeUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "wrong horse",
	})
	require.Error(t, err)
	assert.Equal(t, 401, httperror.GetStatusCode(err))
	assert.Empty(t, repo.stamped)
}

func TestLoginUnknownEmailSameMessage(t *testing.T) {
	user := testUser(t, "correct horse")
	repo := &fakeUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(repo)

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.org",
		Password: "whatever",
	})
	_, wrongErr := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	// Same status, same message: the caller cannot probe for valid emails.
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginDeactivatedAccount(t *testing.T) {
	user := testUser(t, "correct horse")
	user.Active = false
	repo := &fakeUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.Error(t, err)
	assert.Equal(t, 401, httperror.GetStatusCode(err))
}
