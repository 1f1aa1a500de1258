package models

import (
	"time"

	"github.com/khata/backend/internal/domain/identity"
)

// MerchantModel is the persistence model for the Merchant aggregate.
type MerchantModel struct {
	AggregateModel
	Username       string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	ShopName       string                  `gorm:"type:varchar(200);not null"`
	Phone          string                  `gorm:"type:varchar(50)"`
	PasswordHash   string                  `gorm:"type:varchar(255);not null"`
	Status         identity.MerchantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastLoginAt    *time.Time
	FailedAttempts int `gorm:"not null;default:0"`
	LockedUntil    *time.Time
}

// TableName returns the table name for GORM
func (MerchantModel) TableName() string {
	return "merchants"
}

// ToDomain converts the persistence model to a domain Merchant
func (m *MerchantModel) ToDomain() *identity.Merchant {
	merchant := &identity.Merchant{
		Username:       m.Username,
		ShopName:       m.ShopName,
		Phone:          m.Phone,
		PasswordHash:   m.PasswordHash,
		Status:         m.Status,
		LastLoginAt:    m.LastLoginAt,
		FailedAttempts: m.FailedAttempts,
		LockedUntil:    m.LockedUntil,
	}
	m.PopulateAggregateRoot(&merchant.BaseAggregateRoot)
	return merchant
}

// MerchantModelFromDomain builds a persistence model from a domain Merchant
func MerchantModelFromDomain(merchant *identity.Merchant) *MerchantModel {
	m := &MerchantModel{
		Username:       merchant.Username,
		ShopName:       merchant.ShopName,
		Phone:          merchant.Phone,
		PasswordHash:   merchant.PasswordHash,
		Status:         merchant.Status,
		LastLoginAt:    merchant.LastLoginAt,
		FailedAttempts: merchant.FailedAttempts,
		LockedUntil:    merchant.LockedUntil,
	}
	m.FromDomainAggregateRoot(merchant.BaseAggregateRoot)
	return m
}
