package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sgacad/sgacad-api/internal/models"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

type fakeUserRepo struct {
	users         map[string]*models.User
	usersByEmail  map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	registered    *models.User
	auditLogs     []models.AuditLog
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:         make(map[string]*models.User),
		usersByEmail:  make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (f *fakeUserRepo) add(user *models.User) {
	f.users[user.ID] = user
	f.usersByEmail[user.Email] = user
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	u, ok := f.usersByEmail[email]
	return ok && u.ID != excludeID, nil
}

func (f *fakeUserRepo) Register(ctx context.Context, user *models.User, siape, ra string) error {
	f.add(user)
	f.registered = user
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	f.refreshTokens[token.Token] = token
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range f.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (f *fakeUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.auditLogs = append(f.auditLogs, *log)
	return nil
}

type fakeSIAPEChecker struct{ taken map[string]bool }

func (f *fakeSIAPEChecker) SIAPEExists(ctx context.Context, siape, excludeID string) (bool, error) {
	return f.taken[siape], nil
}

type fakeRAChecker struct{ taken map[string]bool }

func (f *fakeRAChecker) RAExists(ctx context.Context, ra, excludeID string) (bool, error) {
	return f.taken[ra], nil
}

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, &fakeSIAPEChecker{taken: map[string]bool{"taken-siape": true}},
		&fakeRAChecker{taken: map[string]bool{"taken-ra": true}}, nil, zap.NewNop(), AuthConfig{
			AccessTokenSecret:  "test-secret",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
			Issuer:             "sgacad-test",
		})
	return svc, repo
}

func seedUser(repo *fakeUserRepo, id, email, password string, roles ...models.UserRole) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.add(&models.User{ID: id, Name: "User " + id, Email: email, PasswordHash: string(hash), Roles: roles})
}

func TestAuthServiceRegisterStudent(t *testing.T) {
	svc, repo := newAuthFixture()

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Ana Souza",
		Email:    "ana@example.com",
		Password: "secret-pass",
		Roles:    []models.UserRole{models.RoleStudent},
		RA:       "20260001",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", info.Email)
	require.NotNil(t, repo.registered)
	assert.NotEqual(t, "secret-pass", repo.registered.PasswordHash)
}

func TestAuthServiceRegisterStudentRequiresRA(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Ana Souza",
		Email:    "ana@example.com",
		Password: "secret-pass",
		Roles:    []models.UserRole{models.RoleStudent},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceRegisterProfessorRequiresSIAPE(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Bruno Lima",
		Email:    "bruno@example.com",
		Password: "secret-pass",
		Roles:    []models.UserRole{models.RoleProfessor},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "u1", "ana@example.com", "whatever", models.RoleStudent)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Ana Souza",
		Email:    "ana@example.com",
		Password: "secret-pass",
		Roles:    []models.UserRole{models.RoleStudent},
		RA:       "20260001",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceRegisterDuplicateRA(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Ana Souza",
		Email:    "ana@example.com",
		Password: "secret-pass",
		Roles:    []models.UserRole{models.RoleStudent},
		RA:       "taken-ra",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "u1", "ana@example.com", "secret-pass", models.RoleStudent, models.RoleAdmin)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.ElementsMatch(t, []models.UserRole{models.RoleStudent, models.RoleAdmin}, res.User.Roles)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.HasRole(models.RoleAdmin))
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "u1", "ana@example.com", "secret-pass", models.RoleStudent)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, 401, appErr.Status)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "u1", "ana@example.com", "secret-pass", models.RoleStudent)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used refresh token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogoutRevokesToken(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "u1", "ana@example.com", "secret-pass", models.RoleStudent)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1", "", ""))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	svc, repo := newAuthFixture()
	seedUser(repo, "u1", "ana@example.com", "secret-pass", models.RoleStudent)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "u2", "", "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
