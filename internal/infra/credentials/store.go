// Package credentials keeps provider API keys in the task database so a
// deployment can be configured once from the CLI instead of per process.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"productstudio/internal/domain"
)

const (
	ProviderGemini = "gemini"

	keyPrefix = "credentials/"
)

// Credential is one stored provider key.
type Credential struct {
	Provider  string    `json:"provider"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	kv  domain.KeyValueStore
	now func() time.Time
}

func NewStore(kv domain.KeyValueStore) *Store {
	return &Store{kv: kv, now: time.Now}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	cred, err := s.Get(ctx, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

func (s *Store) Get(ctx context.Context, provider string) (Credential, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+provider)
	if err != nil {
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Credential{}, fmt.Errorf("%w: decode %s credential: %v", domain.ErrStorage, provider, err)
	}
	cred.Token = strings.TrimSpace(cred.Token)
	return cred, nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	return s.Set(ctx, ProviderGemini, key)
}

func (s *Store) Set(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: %s api key is required", domain.ErrInvalidInput, provider)
	}
	raw, err := json.Marshal(Credential{Provider: provider, Token: token, UpdatedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, keyPrefix+provider, raw)
}

func (s *Store) Delete(ctx context.Context, provider string) error {
	return s.kv.Delete(ctx, keyPrefix+provider)
}

// Resolve prefers an explicitly configured key over the stored one.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, nil
	}
	return s.Token(ctx, provider)
}
