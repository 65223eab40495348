package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tryon/internal/domain"
	"tryon/internal/sqlinline"
)

type stubExecutor struct {
	token    string
	err      error
	affected int64
	queried  int
	exec     struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", s.affected)), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queried++
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.Token(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestTokenNoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.Token(context.Background(), ProviderHuggingFace)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestResolvePrefersExplicit(t *testing.T) {
	exec := &stubExecutor{token: "stored"}
	store := NewStore(exec)
	key, err := store.Resolve(context.Background(), ProviderGemini, " from-env ")
	if err != nil || key != "from-env" {
		t.Fatalf("Resolve = %q, %v", key, err)
	}
	if exec.queried != 0 {
		t.Fatal("store should not be queried when explicit value is set")
	}
	key, err = store.Resolve(context.Background(), ProviderGemini, "")
	if err != nil || key != "stored" {
		t.Fatalf("Resolve fallback = %q, %v", key, err)
	}
	var nilStore *Store
	if key, err := nilStore.Resolve(context.Background(), ProviderGemini, ""); err != nil || key != "" {
		t.Fatalf("nil store Resolve = %q, %v", key, err)
	}
}

func TestSet(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.Set(context.Background(), ProviderHuggingFace, "hf_secret", nil); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "hf_secret" {
		t.Fatalf("expected hf_secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetRejectsInvalid(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.Set(context.Background(), ProviderGemini, " ", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.Set(context.Background(), "openai", "sk", nil); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestDelete(t *testing.T) {
	exec := &stubExecutor{affected: 1}
	store := NewStore(exec)
	if err := store.Delete(context.Background(), ProviderGemini); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if exec.exec.query != sqlinline.QDeleteIntegrationToken || exec.exec.args[0] != ProviderGemini {
		t.Fatalf("unexpected exec %+v", exec.exec)
	}

	exec.affected = 0
	if err := store.Delete(context.Background(), ProviderGemini); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(context.Background(), "openai"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
