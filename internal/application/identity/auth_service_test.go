package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khata/backend/internal/domain/identity"
	"github.com/khata/backend/internal/domain/shared"
	"github.com/khata/backend/internal/infrastructure/auth"
	"github.com/khata/backend/internal/infrastructure/config"
)

// MockMerchantRepository is a mock implementation of identity.MerchantRepository
type MockMerchantRepository struct {
	mock.Mock
}

var _ identity.MerchantRepository = (*MockMerchantRepository)(nil)

func (m *MockMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) FindByUsername(ctx context.Context, username string) (*identity.Merchant, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockMerchantRepository) Save(ctx context.Context, merchant *identity.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

func newTestAuthService(repo identity.MerchantRepository) *AuthService {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-at-least-32-char",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "khata-test",
		MaxRefreshCount:        3,
	})
	return NewAuthService(repo, jwtService, auth.NewInMemoryTokenBlacklist(), DefaultAuthServiceConfig(), zap.NewNop())
}

func newTestMerchant(t *testing.T, password string) *identity.Merchant {
	merchant, err := identity.NewMerchant("rahim_store", "Rahim General Store", password)
	require.NoError(t, err)
	return merchant
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)

	repo.On("ExistsByUsername", mock.Anything, "newshop").Return(false, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*identity.Merchant")).Return(nil)

	info, err := svc.Register(context.Background(), RegisterInput{
		Username: "newshop",
		ShopName: "New Shop",
		Password: "supersecret1",
	})

	require.NoError(t, err)
	assert.Equal(t, "newshop", info.Username)
	assert.Equal(t, "New Shop", info.ShopName)
	assert.Equal(t, "active", info.Status)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)

	repo.On("ExistsByUsername", mock.Anything, "taken").Return(true, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "taken",
		ShopName: "Shop",
		Password: "supersecret1",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "USERNAME_TAKEN", domainErr.Code)
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByUsername", mock.Anything, "rahim_store").Return(merchant, nil)
	repo.On("Save", mock.Anything, merchant).Return(nil)

	result, err := svc.Login(context.Background(), LoginInput{
		Username: "rahim_store",
		Password: "supersecret1",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, merchant.ID, result.Merchant.ID)
	assert.NotNil(t, merchant.LastLoginAt)
}

func TestAuthService_Login_UnknownUsername(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)

	repo.On("FindByUsername", mock.Anything, "ghost").Return(nil, shared.ErrNotFound)

	_, err := svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "whatever123"})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByUsername", mock.Anything, "rahim_store").Return(merchant, nil)
	repo.On("Save", mock.Anything, merchant).Return(nil)

	_, err := svc.Login(context.Background(), LoginInput{
		Username: "rahim_store",
		Password: "wrongpassword",
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	assert.Equal(t, 1, merchant.FailedAttempts)
}

func TestAuthService_Login_LocksAfterMaxAttempts(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByUsername", mock.Anything, "rahim_store").Return(merchant, nil)
	repo.On("Save", mock.Anything, merchant).Return(nil)

	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), LoginInput{Username: "rahim_store", Password: "wrong"})
		require.Error(t, err)
	}

	_, err := svc.Login(context.Background(), LoginInput{Username: "rahim_store", Password: "wrong"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
	assert.Equal(t, identity.MerchantStatusLocked, merchant.Status)

	// Even the correct password is rejected while locked
	_, err = svc.Login(context.Background(), LoginInput{Username: "rahim_store", Password: "supersecret1"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
}

func TestAuthService_RefreshToken_Success(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByUsername", mock.Anything, "rahim_store").Return(merchant, nil)
	repo.On("FindByID", mock.Anything, merchant.ID).Return(merchant, nil)
	repo.On("Save", mock.Anything, merchant).Return(nil)

	login, err := svc.Login(context.Background(), LoginInput{Username: "rahim_store", Password: "supersecret1"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
}

func TestAuthService_RefreshToken_Invalid(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "garbage"})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
}

func TestAuthService_Logout_RevokesAccessToken(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByUsername", mock.Anything, "rahim_store").Return(merchant, nil)
	repo.On("Save", mock.Anything, merchant).Return(nil)

	login, err := svc.Login(context.Background(), LoginInput{Username: "rahim_store", Password: "supersecret1"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), LogoutInput{MerchantID: merchant.ID, AccessToken: login.AccessToken})
	require.NoError(t, err)

	claims, err := svc.jwtService.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)
	assert.True(t, svc.IsTokenRevoked(context.Background(), claims))
}

func TestAuthService_ChangePassword(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByID", mock.Anything, merchant.ID).Return(merchant, nil)
	repo.On("Save", mock.Anything, merchant).Return(nil)

	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		MerchantID:  merchant.ID,
		OldPassword: "supersecret1",
		NewPassword: "evenmoresecret2",
	})

	require.NoError(t, err)
	assert.True(t, merchant.VerifyPassword("evenmoresecret2"))
}

func TestAuthService_ChangePassword_WrongOldPassword(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := newTestAuthService(repo)
	merchant := newTestMerchant(t, "supersecret1")

	repo.On("FindByID", mock.Anything, merchant.ID).Return(merchant, nil)

	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		MerchantID:  merchant.ID,
		OldPassword: "notthepassword",
		NewPassword: "evenmoresecret2",
	})

	require.Error(t, err)
	assert.True(t, merchant.VerifyPassword("supersecret1"))
}
