package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khata/backend/internal/domain/identity"
	"github.com/khata/backend/internal/domain/shared"
	"github.com/khata/backend/internal/infrastructure/auth"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles merchant authentication operations
type AuthService struct {
	merchantRepo identity.MerchantRepository
	jwtService   *auth.JWTService
	blacklist    auth.TokenBlacklist
	config       AuthServiceConfig
	logger       *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	merchantRepo identity.MerchantRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		merchantRepo: merchantRepo,
		jwtService:   jwtService,
		blacklist:    blacklist,
		config:       config,
		logger:       logger,
	}
}

// Register creates a new merchant account
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*MerchantInfo, error) {
	exists, err := s.merchantRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error("Failed to check username availability", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create account")
	}
	if exists {
		return nil, shared.NewDomainError("USERNAME_TAKEN", "Username is already taken")
	}

	merchant, err := identity.NewMerchant(input.Username, input.ShopName, input.Password)
	if err != nil {
		return nil, err
	}
	merchant.Phone = input.Phone

	if err := s.merchantRepo.Save(ctx, merchant); err != nil {
		s.logger.Error("Failed to save merchant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create account")
	}

	s.logger.Info("Merchant registered",
		zap.String("merchant_id", merchant.ID.String()),
		zap.String("username", merchant.Username))

	info := ToMerchantInfo(merchant)
	return &info, nil
}

// Login authenticates a merchant and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("username", input.Username))

	merchant, err := s.merchantRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Warn("Merchant not found during login", zap.String("username", input.Username))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	if !merchant.CanLogin() {
		if merchant.Status == identity.MerchantStatusDeactivated {
			s.logger.Warn("Login attempt for deactivated account", zap.String("username", input.Username))
			return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
		}
		s.logger.Warn("Login attempt for locked account", zap.String("username", input.Username))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}

	if !merchant.VerifyPassword(input.Password) {
		locked := merchant.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.merchantRepo.Save(ctx, merchant); err != nil {
			s.logger.Error("Failed to update merchant after login failure", zap.Error(err))
		}

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("username", input.Username),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		s.logger.Warn("Invalid password attempt",
			zap.String("username", input.Username),
			zap.Int("failed_attempts", merchant.FailedAttempts))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(merchant.ID, merchant.Username)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	merchant.RecordLoginSuccess()
	if err := s.merchantRepo.Save(ctx, merchant); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to update merchant after successful login", zap.Error(err))
	}

	s.logger.Info("Merchant logged in successfully",
		zap.String("username", merchant.Username),
		zap.String("merchant_id", merchant.ID.String()))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		Merchant:              ToMerchantInfo(merchant),
	}, nil
}

// RefreshToken refreshes the access token using a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	refreshClaims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	merchantID, err := refreshClaims.GetMerchantUUID()
	if err != nil {
		s.logger.Error("Invalid merchant ID in refresh token", zap.Error(err))
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid merchant ID in token")
	}

	blocked, err := s.blacklist.IsBlacklisted(ctx, refreshClaims.ID)
	if err != nil {
		s.logger.Error("Failed to check token blacklist", zap.Error(err))
	} else if blocked {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Refresh token has been revoked")
	}

	merchant, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		s.logger.Warn("Merchant not found during token refresh", zap.String("merchant_id", merchantID.String()))
		return nil, shared.NewDomainError("MERCHANT_NOT_FOUND", "Merchant not found")
	}

	if !merchant.CanLogin() {
		s.logger.Warn("Token refresh for inactive merchant", zap.String("merchant_id", merchantID.String()))
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	tokenPair, err := s.jwtService.RefreshTokenPair(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	s.logger.Info("Token refreshed successfully", zap.String("merchant_id", merchantID.String()))

	return &RefreshTokenResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
	}, nil
}

// Logout revokes the current access token by adding its jti to the
// blacklist until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	claims, err := s.jwtService.ValidateAccessToken(input.AccessToken)
	if err != nil {
		// An invalid or expired token needs no revocation
		s.logger.Debug("Logout with invalid token", zap.Error(err))
		return nil
	}

	ttl := claims.GetRemainingTTL()
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("Failed to blacklist token on logout", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to log out")
	}

	s.logger.Info("Merchant logged out", zap.String("merchant_id", input.MerchantID.String()))
	return nil
}

// GetCurrentMerchant retrieves the authenticated merchant's profile
func (s *AuthService) GetCurrentMerchant(ctx context.Context, merchantID string) (*MerchantInfo, error) {
	id, err := parseMerchantID(merchantID)
	if err != nil {
		return nil, err
	}

	merchant, err := s.merchantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, shared.NewDomainError("MERCHANT_NOT_FOUND", "Merchant not found")
	}

	info := ToMerchantInfo(merchant)
	return &info, nil
}

// ChangePassword changes a merchant's password
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	merchant, err := s.merchantRepo.FindByID(ctx, input.MerchantID)
	if err != nil {
		return shared.NewDomainError("MERCHANT_NOT_FOUND", "Merchant not found")
	}

	if err := merchant.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}

	if err := s.merchantRepo.Save(ctx, merchant); err != nil {
		s.logger.Error("Failed to update merchant after password change", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update password")
	}

	s.logger.Info("Merchant password changed", zap.String("merchant_id", input.MerchantID.String()))
	return nil
}

// IsTokenRevoked reports whether the given claims have been blacklisted.
// Used by the auth middleware on every authenticated request.
func (s *AuthService) IsTokenRevoked(ctx context.Context, claims *auth.Claims) bool {
	blocked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		// Fail open: a blacklist outage must not lock every merchant out
		s.logger.Error("Failed to check token blacklist", zap.Error(err))
		return false
	}
	return blocked
}

func parseMerchantID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_INPUT", "Invalid merchant ID")
	}
	return id, nil
}

func mapTokenError(err error) error {
	switch err {
	case auth.ErrExpiredToken:
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case auth.ErrInvalidToken:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	case auth.ErrMaxRefreshExceeded:
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}
