package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tryon/internal/codec"
	"tryon/internal/domain"
	"tryon/pkg/zip"
)

type closetCreateRequest struct {
	Image            string `json:"image"`
	Category         string `json:"category"`
	Style            string `json:"style"`
	RemoveBackground *bool  `json:"removeBackground"`
}

type closetItemResponse struct {
	ID                string    `json:"id"`
	Category          string    `json:"category"`
	Style             string    `json:"style"`
	URL               string    `json:"url"`
	MIME              string    `json:"mime"`
	Bytes             int64     `json:"bytes"`
	IsFavorite        bool      `json:"isFavorite"`
	BackgroundRemoved bool      `json:"backgroundRemoved"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (a *App) closetItem(item domain.ClosetItem) closetItemResponse {
	return closetItemResponse{
		ID:                item.ID,
		Category:          string(item.Category),
		Style:             string(item.Style),
		URL:               a.Images.URL(item.StorageKey),
		MIME:              item.MIME,
		Bytes:             item.Bytes,
		IsFavorite:        item.IsFavorite,
		BackgroundRemoved: item.BackgroundRemoved,
		CreatedAt:         item.CreatedAt,
	}
}

// closetReady reports 503 when the closet has no backing store.
func (a *App) closetReady(w http.ResponseWriter, r *http.Request) bool {
	if a.Closet == nil || a.Images == nil {
		a.fail(w, r, fmt.Errorf("%w: closet storage is not configured", domain.ErrUnavailable))
		return false
	}
	return true
}

// ClosetCreate stores a garment. Background removal is lenient: when every
// remover fails the original image is kept.
func (a *App) ClosetCreate(w http.ResponseWriter, r *http.Request) {
	if !a.closetReady(w, r) {
		return
	}
	userID := a.currentUserID(r)
	var req closetCreateRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := domain.ParseClosetCategory(req.Category)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	style, err := domain.ParseClosetStyle(req.Style)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	img, err := parseImage("image", req.Image, codec.DefaultGarmentMIME)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	removed := false
	if req.RemoveBackground == nil || *req.RemoveBackground {
		res := a.Background.RemoveOrOriginal(r.Context(), img)
		img = res.Image
		removed = !res.Fallback
	}
	data, err := codec.Decode(img)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	mime := codec.SniffMIME(data, img.MIME)

	id := uuid.NewString()
	key := fmt.Sprintf("users/%s/closet/%s-%s%s", storageSegment(userID), category, id, extensionFor(mime))
	key, err = a.Images.Put(r.Context(), key, data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	item, err := a.Closet.Insert(r.Context(), domain.ClosetItem{
		ID:                id,
		UserID:            userID,
		Category:          category,
		Style:             style,
		StorageKey:        key,
		MIME:              mime,
		Bytes:             int64(len(data)),
		BackgroundRemoved: removed,
	})
	if err != nil {
		if delErr := a.Images.Delete(r.Context(), key); delErr != nil {
			a.requestLogger(r).Warn().Err(delErr).Str("key", key).Msg("closet: orphaned image not removed")
		}
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, a.closetItem(item))
}

func (a *App) ClosetList(w http.ResponseWriter, r *http.Request) {
	if !a.closetReady(w, r) {
		return
	}
	var category domain.ClosetCategory
	if v := strings.TrimSpace(r.URL.Query().Get("category")); v != "" {
		c, err := domain.ParseClosetCategory(v)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		category = c
	}
	items, err := a.Closet.List(r.Context(), a.currentUserID(r), category)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]closetItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, a.closetItem(item))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

func (a *App) ClosetFavorite(w http.ResponseWriter, r *http.Request) {
	if !a.closetReady(w, r) {
		return
	}
	var req favoriteRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Favorite == nil {
		a.fail(w, r, fmt.Errorf("%w: favorite is required", domain.ErrInvalidInput))
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Closet.SetFavorite(r.Context(), a.currentUserID(r), id, *req.Favorite); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "isFavorite": *req.Favorite})
}

func (a *App) ClosetDelete(w http.ResponseWriter, r *http.Request) {
	if !a.closetReady(w, r) {
		return
	}
	item, err := a.Closet.Delete(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Images.Delete(r.Context(), item.StorageKey); err != nil {
		a.requestLogger(r).Warn().Err(err).Str("key", item.StorageKey).Msg("closet: image not removed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClosetExport streams the user's closet images as a zip archive. Items
// whose image is missing from storage are skipped.
func (a *App) ClosetExport(w http.ResponseWriter, r *http.Request) {
	if !a.closetReady(w, r) {
		return
	}
	items, err := a.Closet.List(r.Context(), a.currentUserID(r), "")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	assets := make([]zip.Asset, 0, len(items))
	for _, item := range items {
		data, err := a.Images.Read(r.Context(), item.StorageKey)
		if err != nil {
			a.requestLogger(r).Warn().Err(err).Str("key", item.StorageKey).Msg("closet: export skipped item")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("%s-%s", item.Category, item.ID),
			MIME:     item.MIME,
			Data:     data,
			Modified: item.CreatedAt,
		})
	}
	var buf bytes.Buffer
	if err := zip.WriteArchive(&buf, assets); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=closet.zip")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// storageSegment makes an opaque user id safe as one path segment.
func storageSegment(userID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, userID)
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
