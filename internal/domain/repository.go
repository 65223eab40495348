package domain

import "context"

// ClosetRepository persists closet metadata keyed by user.
type ClosetRepository interface {
	Insert(ctx context.Context, item ClosetItem) (ClosetItem, error)
	List(ctx context.Context, userID string, category ClosetCategory) ([]ClosetItem, error)
	Get(ctx context.Context, userID, id string) (ClosetItem, error)
	SetFavorite(ctx context.Context, userID, id string, favorite bool) error
	Delete(ctx context.Context, userID, id string) (ClosetItem, error)
}

// ImageStore accepts an image blob and returns a stable key and retrieval URL.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
