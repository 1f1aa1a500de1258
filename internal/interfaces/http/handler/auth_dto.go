package handler

import "time"

// =====================
// Auth Request DTOs
// =====================

// RegisterRequest represents the request body for merchant signup
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	ShopName string `json:"shop_name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest represents the request body for merchant login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// MerchantResponse represents merchant data in auth responses
type MerchantResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	ShopName string `json:"shop_name"`
	Phone    string `json:"phone,omitempty"`
	Status   string `json:"status"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token    TokenResponse    `json:"token"`
	Merchant MerchantResponse `json:"merchant"`
}

// RefreshTokenResponse represents the response body for successful token refresh
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// CurrentMerchantResponse represents the response body for the merchant profile
type CurrentMerchantResponse struct {
	Merchant MerchantResponse `json:"merchant"`
}

// LogoutResponse represents the response body for logout
type LogoutResponse struct {
	Message string `json:"message"`
}
