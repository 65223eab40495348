package infra

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestNewDBPoolWithoutURL(t *testing.T) {
	pool, err := NewDBPool(context.Background(), &Config{})
	if err != nil || pool != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", pool, err)
	}
	if _, err := NewDBPool(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewDBPool(context.Background(), &Config{DatabaseURL: "postgres://%zz"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("load: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("other")) {
		t.Fatal("unexpected match")
	}
}
