// Package storage persists named JSON blobs wrapped in a versioned envelope.
// Each blob key is owned by exactly one store; no two components write the
// same key.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openpayroll/batchpay/internal/domain"
)

// SchemaVersion tags every saved blob. An incompatible version on load
// triggers a full reset of that blob instead of a silent misread.
const SchemaVersion = 1

// Persisted blob keys.
const (
	KeyPayments = "payments-storage"
	KeyHistory  = "history-storage"
	KeyUsers    = "users-storage"
)

// AllKeys lists every persisted blob key, for data-reset tooling.
func AllKeys() []string {
	return []string{KeyPayments, KeyHistory, KeyUsers}
}

// ErrVersionMismatch reports a blob saved under an incompatible schema
// version.
var ErrVersionMismatch = errors.New("blob schema version mismatch")

// BlobStore loads and saves raw blob bytes under a key. Load returns
// domain.ErrNotFound when the key is absent.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, raw []byte) error
	Delete(ctx context.Context, key string) error
}

type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Encode wraps a state value in the versioned envelope.
func Encode(state any) ([]byte, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode blob state: %w", err)
	}
	raw, err := json.Marshal(envelope{Version: SchemaVersion, State: payload})
	if err != nil {
		return nil, fmt.Errorf("encode blob envelope: %w", err)
	}
	return raw, nil
}

// Decode unwraps a versioned envelope into out. Unparsable bytes map to
// domain.ErrCorruptedStorage; an unexpected version maps to
// ErrVersionMismatch.
func Decode(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCorruptedStorage, err)
	}
	if env.Version != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, env.Version, SchemaVersion)
	}
	if err := json.Unmarshal(env.State, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCorruptedStorage, err)
	}
	return nil
}

// LoadJSON loads and decodes the blob at key into out. Version mismatches
// reset the blob and report absence, per the envelope contract.
func LoadJSON(ctx context.Context, store BlobStore, key string, out any) error {
	raw, err := store.Load(ctx, key)
	if err != nil {
		return err
	}

	err = Decode(raw, out)
	if errors.Is(err, ErrVersionMismatch) {
		if delErr := store.Delete(ctx, key); delErr != nil {
			return delErr
		}
		return domain.ErrNotFound
	}
	return err
}

// SaveJSON encodes state into the versioned envelope and saves it at key.
func SaveJSON(ctx context.Context, store BlobStore, key string, state any) error {
	raw, err := Encode(state)
	if err != nil {
		return err
	}
	return store.Save(ctx, key, raw)
}
