package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/notifier"
	"github.com/openpayroll/batchpay/internal/repository"
	"github.com/openpayroll/batchpay/internal/storage"
)

// provisionalIDPrefix marks a user row that exists locally but has not been
// acknowledged by the repository yet.
const provisionalIDPrefix = "tmp-"

// CreateUserInput is the caller-facing shape for staging a new saved payee.
type CreateUserInput struct {
	Name          string
	Wallet        string
	DefaultAmount string
}

// UserStore keeps the saved payee templates. Writes are optimistic: the local
// list changes immediately and is reconciled or rolled back once the
// repository answers.
type UserStore struct {
	mu    sync.RWMutex
	items []domain.User

	repo     repository.UserRepository
	blobs    storage.BlobStore
	notifier notifier.Notifier
	logger   *zap.Logger

	// snapshots is false when the repository already persists through the
	// users blob; the store then never writes the key itself, so the blob has
	// exactly one writer.
	snapshots bool
}

func NewUserStore(repo repository.UserRepository, blobs storage.BlobStore, n notifier.Notifier, logger *zap.Logger) *UserStore {
	if n == nil {
		n = notifier.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_, blobBacked := repo.(*repository.BlobUserRepo)
	return &UserStore{
		repo:      repo,
		blobs:     blobs,
		notifier:  n,
		logger:    logger,
		snapshots: !blobBacked,
	}
}

// Load refreshes the local list from the repository. When the repository is
// unreachable the last persisted snapshot is served instead; an unparsable
// blob on either path triggers the corruption fail-safe.
func (s *UserStore) Load(ctx context.Context) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptedStorage) {
			s.logger.Warn("user snapshot is unparsable, resetting", zap.Error(err))
			s.reset(ctx)
			return nil
		}
		s.logger.Warn("user list refresh failed, serving snapshot", zap.Error(err))

		var snapshot []domain.User
		snapErr := storage.LoadJSON(ctx, s.blobs, storage.KeyUsers, &snapshot)
		switch {
		case errors.Is(snapErr, domain.ErrCorruptedStorage):
			s.logger.Warn("user snapshot is unparsable, resetting", zap.Error(snapErr))
			s.reset(ctx)
			return nil
		case snapErr != nil && !errors.Is(snapErr, domain.ErrNotFound):
			return err
		}

		s.mu.Lock()
		s.items = snapshot
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.items = users
	s.mu.Unlock()
	s.persist(ctx)
	return nil
}

// Items returns the current payee templates.
func (s *UserStore) Items() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.User, len(s.items))
	copy(items, s.items)
	return items
}

// Create stages the payee under a provisional id, then swaps in the
// repository's authoritative row. On failure the provisional row is removed
// and an error notice raised; a provisional id is never persisted.
func (s *UserStore) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	provisional := domain.User{
		ID:            provisionalIDPrefix + uuid.NewString(),
		Name:          strings.TrimSpace(input.Name),
		Wallet:        strings.TrimSpace(input.Wallet),
		DefaultAmount: strings.TrimSpace(input.DefaultAmount),
	}

	s.mu.Lock()
	s.items = append([]domain.User{provisional}, s.items...)
	s.mu.Unlock()

	created := domain.User{
		Name:          provisional.Name,
		Wallet:        provisional.Wallet,
		DefaultAmount: provisional.DefaultAmount,
	}
	if err := s.repo.Create(ctx, &created); err != nil {
		s.dropLocal(provisional.ID)
		s.notifier.Notify(ctx, notifier.Event{
			Level:   notifier.LevelError,
			Message: "Não foi possível salvar o usuário.",
		})
		return nil, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == provisional.ID {
			s.items[i] = created
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
	return &created, nil
}

// Update applies the patch through the repository first and mirrors the
// accepted row locally.
func (s *UserStore) Update(ctx context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = *updated
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
	return updated, nil
}

// Remove deletes optimistically and restores the snapshot if the repository
// refuses.
func (s *UserStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	snapshot := make([]domain.User, len(s.items))
	copy(snapshot, s.items)

	kept := s.items[:0]
	for _, user := range s.items {
		if user.ID != id {
			kept = append(kept, user)
		}
	}
	s.items = kept
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.mu.Lock()
		s.items = snapshot
		s.mu.Unlock()

		s.notifier.Notify(ctx, notifier.Event{
			Level:   notifier.LevelError,
			Message: "Não foi possível remover o usuário.",
		})
		return err
	}

	s.persist(ctx)
	return nil
}

func (s *UserStore) dropLocal(id string) {
	s.mu.Lock()
	kept := s.items[:0]
	for _, user := range s.items {
		if user.ID != id {
			kept = append(kept, user)
		}
	}
	s.items = kept
	s.mu.Unlock()
}

// reset mirrors the payment store fail-safe: the corrupted blob is dropped
// whole, the list restarts empty and a single notice is raised.
func (s *UserStore) reset(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	if err := s.blobs.Delete(ctx, storage.KeyUsers); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to drop corrupted user snapshot", zap.Error(err))
	}
	s.notifier.Notify(ctx, notifier.Event{
		Level:   notifier.LevelError,
		Message: "Dados de usuários corrompidos foram removidos. Cadastre os usuários novamente.",
	})
}

func (s *UserStore) persist(ctx context.Context) {
	if !s.snapshots {
		return
	}
	items := s.Items()
	if err := storage.SaveJSON(ctx, s.blobs, storage.KeyUsers, items); err != nil {
		s.logger.Error("failed to persist user snapshot", zap.Error(err))
	}
}
