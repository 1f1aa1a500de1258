package identity

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/khata/backend/internal/domain/shared"
)

// MerchantStatus represents the status of a merchant account
type MerchantStatus string

const (
	MerchantStatusActive      MerchantStatus = "active"
	MerchantStatusLocked      MerchantStatus = "locked"
	MerchantStatusDeactivated MerchantStatus = "deactivated"
)

// Password cost for bcrypt
const bcryptCost = 12

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,49}$`)

// Merchant is an account holder. Each merchant owns exactly one ledger
// tenant: the merchant ID is the tenant ID for all ledger data.
type Merchant struct {
	shared.BaseAggregateRoot
	Username       string
	ShopName       string
	Phone          string
	PasswordHash   string
	Status         MerchantStatus
	LastLoginAt    *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
}

// NewMerchant creates an active merchant account
func NewMerchant(username, shopName, password string) (*Merchant, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Username must be 3-50 characters of lowercase letters, digits, underscore, dot or hyphen")
	}
	if strings.TrimSpace(shopName) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Shop name is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to hash password")
	}

	return &Merchant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		ShopName:          strings.TrimSpace(shopName),
		PasswordHash:      string(hash),
		Status:            MerchantStatusActive,
	}, nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (m *Merchant) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) == nil
}

// ChangePassword verifies the old password and replaces it
func (m *Merchant) ChangePassword(oldPassword, newPassword string) error {
	if !m.VerifyPassword(oldPassword) {
		return shared.NewDomainError("UNAUTHORIZED", "Current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to hash password")
	}
	m.PasswordHash = string(hash)
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
	return nil
}

// RecordLoginSuccess clears failure counters and stamps the login time
func (m *Merchant) RecordLoginSuccess() {
	now := time.Now()
	m.LastLoginAt = &now
	m.FailedAttempts = 0
	m.LockedUntil = nil
	if m.Status == MerchantStatusLocked {
		m.Status = MerchantStatusActive
	}
	m.UpdatedAt = now
	m.IncrementVersion()
}

// RecordLoginFailure counts a failed attempt and locks the account
// once maxAttempts is reached. Returns true when this attempt caused
// the lock.
func (m *Merchant) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	m.FailedAttempts++
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	if m.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		m.LockedUntil = &until
		m.Status = MerchantStatusLocked
		return true
	}
	return false
}

// CanLogin reports whether the account accepts logins right now
func (m *Merchant) CanLogin() bool {
	if m.Status == MerchantStatusDeactivated {
		return false
	}
	if m.Status == MerchantStatusLocked {
		if m.LockedUntil != nil && time.Now().After(*m.LockedUntil) {
			return true
		}
		return false
	}
	return true
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_INPUT", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return shared.NewDomainError("INVALID_INPUT", "Password must not exceed 72 characters")
	}
	return nil
}
