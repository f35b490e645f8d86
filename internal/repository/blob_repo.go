package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openpayroll/batchpay/internal/domain"
)

// GormBlobStore is the database-backed storage.BlobStore implementation,
// selected when the service runs with the postgres storage backend.
type GormBlobStore struct {
	db *gorm.DB
}

func NewGormBlobStore(db *gorm.DB) *GormBlobStore {
	return &GormBlobStore{db: db}
}

func (s *GormBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	var model BlobModel
	err := s.db.WithContext(ctx).First(&model, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.Raw, nil
}

func (s *GormBlobStore) Save(ctx context.Context, key string, raw []byte) error {
	model := BlobModel{Key: key, Raw: raw}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"raw", "updated_at"}),
		}).
		Create(&model).Error
}

func (s *GormBlobStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("key = ?", key).
		Delete(&BlobModel{}).Error
}
