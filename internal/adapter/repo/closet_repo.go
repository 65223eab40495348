package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/sqlinline"
)

// ClosetRepositoryPG implements domain.ClosetRepository on the audited SQL
// runner.
type ClosetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewClosetRepository constructs a closet repository.
func NewClosetRepository(sql infra.SQLExecutor) *ClosetRepositoryPG {
	return &ClosetRepositoryPG{sql: sql}
}

// Insert stores item, assigning an id when it has none, and returns it with
// its creation time.
func (r *ClosetRepositoryPG) Insert(ctx context.Context, item domain.ClosetItem) (domain.ClosetItem, error) {
	if strings.TrimSpace(item.UserID) == "" {
		return domain.ClosetItem{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	err := r.sql.QueryRow(ctx, sqlinline.QInsertClosetItem,
		item.ID,
		item.UserID,
		string(item.Category),
		string(item.Style),
		item.StorageKey,
		item.MIME,
		item.Bytes,
		item.BackgroundRemoved,
	).Scan(&item.CreatedAt)
	if err != nil {
		return domain.ClosetItem{}, fmt.Errorf("insert closet item: %w", err)
	}
	item.IsFavorite = false
	return item, nil
}

// List returns the user's items newest first. An empty category lists all.
func (r *ClosetRepositoryPG) List(ctx context.Context, userID string, category domain.ClosetCategory) ([]domain.ClosetItem, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListClosetItems, userID, string(category))
	if err != nil {
		return nil, fmt.Errorf("list closet items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ClosetItem, 0)
	for rows.Next() {
		item, err := scanClosetItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closet item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ClosetRepositoryPG) Get(ctx context.Context, userID, id string) (domain.ClosetItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ClosetItem{}, fmt.Errorf("%w: closet item %s", domain.ErrNotFound, id)
	}
	item, err := scanClosetItem(r.sql.QueryRow(ctx, sqlinline.QSelectClosetItem, userID, id))
	if err != nil {
		return domain.ClosetItem{}, notFound(err, id)
	}
	return item, nil
}

func (r *ClosetRepositoryPG) SetFavorite(ctx context.Context, userID, id string, favorite bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: closet item %s", domain.ErrNotFound, id)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateClosetFavorite, userID, id, favorite)
	if err != nil {
		return fmt.Errorf("update closet favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: closet item %s", domain.ErrNotFound, id)
	}
	return nil
}

// Delete removes the item and returns what was stored so the caller can
// drop its image.
func (r *ClosetRepositoryPG) Delete(ctx context.Context, userID, id string) (domain.ClosetItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ClosetItem{}, fmt.Errorf("%w: closet item %s", domain.ErrNotFound, id)
	}
	item, err := scanClosetItem(r.sql.QueryRow(ctx, sqlinline.QDeleteClosetItem, userID, id))
	if err != nil {
		return domain.ClosetItem{}, notFound(err, id)
	}
	return item, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClosetItem(row scanner) (domain.ClosetItem, error) {
	var (
		item     domain.ClosetItem
		category string
		style    string
	)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&category,
		&style,
		&item.StorageKey,
		&item.MIME,
		&item.Bytes,
		&item.IsFavorite,
		&item.BackgroundRemoved,
		&item.CreatedAt,
	)
	if err != nil {
		return domain.ClosetItem{}, err
	}
	item.Category = domain.ClosetCategory(category)
	item.Style = domain.ClosetStyle(style)
	return item, nil
}

func notFound(err error, id string) error {
	if infra.IsNoRows(err) {
		return fmt.Errorf("%w: closet item %s", domain.ErrNotFound, id)
	}
	return fmt.Errorf("closet item %s: %w", id, err)
}

var _ domain.ClosetRepository = (*ClosetRepositoryPG)(nil)
