package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/storage"
)

// BlobUserRepo keeps payee templates inside the users blob. It serves
// deployments running on the redis backend without a relational database;
// semantics match GormUserRepo.
type BlobUserRepo struct {
	mu    sync.Mutex
	blobs storage.BlobStore
}

func NewBlobUserRepo(blobs storage.BlobStore) *BlobUserRepo {
	return &BlobUserRepo{blobs: blobs}
}

func (r *BlobUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *BlobUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.ID == id {
			copied := user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *BlobUserRepo) Create(ctx context.Context, u *domain.User) error {
	if u == nil {
		return fmt.Errorf("%w: user is required", domain.ErrValidation)
	}

	u.Name = strings.TrimSpace(u.Name)
	u.Wallet = strings.TrimSpace(u.Wallet)
	if u.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if u.Wallet == "" {
		return fmt.Errorf("%w: wallet is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return err
	}

	u.ID = uuid.NewString()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	return r.save(ctx, append(users, *u))
}

func (r *BlobUserRepo) Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].ID != id {
			continue
		}
		if patch.Name != nil {
			users[i].Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Wallet != nil {
			users[i].Wallet = strings.TrimSpace(*patch.Wallet)
		}
		if patch.DefaultAmount != nil {
			users[i].DefaultAmount = strings.TrimSpace(*patch.DefaultAmount)
		}
		users[i].UpdatedAt = time.Now().UTC()

		if err := r.save(ctx, users); err != nil {
			return nil, err
		}
		copied := users[i]
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (r *BlobUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return err
	}

	for i := range users {
		if users[i].ID == id {
			return r.save(ctx, append(users[:i], users[i+1:]...))
		}
	}
	return domain.ErrNotFound
}

func (r *BlobUserRepo) load(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := storage.LoadJSON(ctx, r.blobs, storage.KeyUsers, &users)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *BlobUserRepo) save(ctx context.Context, users []domain.User) error {
	return storage.SaveJSON(ctx, r.blobs, storage.KeyUsers, users)
}
