package repository

import (
	"time"

	"github.com/openpayroll/batchpay/internal/domain"
)

// BlobModel is the persistence model for the storage_blobs key/value table.
type BlobModel struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Raw       []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (BlobModel) TableName() string {
	return "storage_blobs"
}

// UserModel is the persistence model for the payee templates table.
type UserModel struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Name          string `gorm:"type:varchar(255);not null"`
	Wallet        string `gorm:"type:varchar(42);not null"`
	DefaultAmount string `gorm:"type:varchar(64)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func userModelFromDomain(u *domain.User) *UserModel {
	if u == nil {
		return nil
	}
	return &UserModel{
		ID:            u.ID,
		Name:          u.Name,
		Wallet:        u.Wallet,
		DefaultAmount: u.DefaultAmount,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func userModelToDomain(m *UserModel) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:            m.ID,
		Name:          m.Name,
		Wallet:        m.Wallet,
		DefaultAmount: m.DefaultAmount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
