package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/khata/backend/internal/domain/identity"
)

// RegisterInput contains the data for creating a merchant account
type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	ShopName string `json:"shop_name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginInput contains login credentials
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenInput contains the refresh token
type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutInput identifies the session being terminated
type LogoutInput struct {
	MerchantID  uuid.UUID
	AccessToken string
}

// ChangePasswordInput contains the data for a password change
type ChangePasswordInput struct {
	MerchantID  uuid.UUID
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// MerchantInfo is the merchant data returned to clients
type MerchantInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	ShopName string    `json:"shop_name"`
	Phone    string    `json:"phone,omitempty"`
	Status   string    `json:"status"`
}

// LoginResult is the outcome of a successful login
type LoginResult struct {
	AccessToken           string       `json:"access_token"`
	RefreshToken          string       `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time    `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time    `json:"refresh_token_expires_at"`
	TokenType             string       `json:"token_type"`
	Merchant              MerchantInfo `json:"merchant"`
}

// RefreshTokenResult is the outcome of a successful token refresh
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// ToMerchantInfo converts a domain merchant into the client-facing shape
func ToMerchantInfo(m *identity.Merchant) MerchantInfo {
	return MerchantInfo{
		ID:       m.ID,
		Username: m.Username,
		ShopName: m.ShopName,
		Phone:    m.Phone,
		Status:   string(m.Status),
	}
}
