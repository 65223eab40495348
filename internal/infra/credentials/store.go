// Package credentials persists provider API keys in Postgres so deployments
// can rotate them without editing the environment.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/sqlinline"
)

const (
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
)

// Supported reports whether provider names a credential this service reads.
func Supported(provider string) bool {
	switch provider {
	case ProviderGemini, ProviderHuggingFace:
		return true
	}
	return false
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored credential for provider, or "" when none is set.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the explicit value (usually from the environment) and falls
// back to the store. A nil store resolves to the explicit value.
func (s *Store) Resolve(ctx context.Context, provider, explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	if s == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

// Set stores token for provider, replacing any previous value.
func (s *Store) Set(ctx context.Context, provider, token string, props map[string]any) error {
	if !Supported(provider) {
		return fmt.Errorf("credentials: unsupported provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: %s token is required", provider)
	}
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// Delete removes the stored credential for provider. Deleting a provider
// that has no stored key reports domain.ErrNotFound.
func (s *Store) Delete(ctx context.Context, provider string) error {
	if !Supported(provider) {
		return fmt.Errorf("credentials: unsupported provider %q", provider)
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider)
	if err != nil {
		return fmt.Errorf("credentials: delete %s: %w", provider, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credentials: %s: %w", provider, domain.ErrNotFound)
	}
	return nil
}
