package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"orchboard/internal/domain"
	"orchboard/internal/repo"
)

// CreatedAPIKey carries the plaintext key, which is only available at creation.
type CreatedAPIKey struct {
	domain.APIKey
	Key string `json:"key"`
}

func (e Engine) CreateAPIKey(ctx context.Context, name string) (CreatedAPIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return CreatedAPIKey{}, err
	}
	secret := "ob_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.timestamp(),
	}
	if err := e.Store.InsertAPIKey(ctx, key); err != nil {
		return CreatedAPIKey{}, writeErr("insert api key", err)
	}
	return CreatedAPIKey{APIKey: key, Key: secret}, nil
}

func (e Engine) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	keys, err := e.Store.ListAPIKeys(ctx)
	if err != nil {
		return nil, readErr("list api keys", err)
	}
	if keys == nil {
		keys = []domain.APIKey{}
	}
	return keys, nil
}

func (e Engine) DeleteAPIKey(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("id", "is required")
	}
	if err := e.Store.DeleteAPIKey(ctx, id); err != nil {
		return notFoundOrWrite("delete api key", err)
	}
	return nil
}

// LookupAPIKey resolves a presented key against the stored hashes.
func (e Engine) LookupAPIKey(ctx context.Context, presented string) (domain.APIKey, bool, error) {
	key, err := e.Store.GetAPIKeyByHash(ctx, repo.HashAPIKey(presented))
	if errors.Is(err, repo.ErrNotFound) {
		return domain.APIKey{}, false, nil
	}
	if err != nil {
		return domain.APIKey{}, false, readErr("get api key", err)
	}
	return key, true, nil
}

func (e Engine) RecentEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	list, err := e.Store.ListEvents(ctx, f)
	if err != nil {
		return nil, readErr("list events", err)
	}
	if list == nil {
		list = []domain.Event{}
	}
	return list, nil
}
