package domain

import (
	"fmt"
	"strings"
	"time"
)

type ClosetCategory string

const (
	CategoryTop     ClosetCategory = "top"
	CategoryBottoms ClosetCategory = "bottoms"
	CategoryDress   ClosetCategory = "dress"
	CategoryShoes   ClosetCategory = "shoes"
)

type ClosetStyle string

const (
	StyleWork    ClosetStyle = "work"
	StyleWeekend ClosetStyle = "weekend"
	StyleBoth    ClosetStyle = "both"
)

func ParseClosetCategory(v string) (ClosetCategory, error) {
	switch c := ClosetCategory(strings.ToLower(strings.TrimSpace(v))); c {
	case CategoryTop, CategoryBottoms, CategoryDress, CategoryShoes:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, v)
}

// ParseClosetStyle defaults to weekend when v is empty.
func ParseClosetStyle(v string) (ClosetStyle, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return StyleWeekend, nil
	}
	switch s := ClosetStyle(v); s {
	case StyleWork, StyleWeekend, StyleBoth:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown style %q", ErrInvalidInput, v)
}

// GarmentRole maps a closet category onto the try-on slot it fills.
// Shoes have no slot.
func (c ClosetCategory) GarmentRole() (GarmentRole, bool) {
	switch c {
	case CategoryTop:
		return RoleTop, true
	case CategoryBottoms:
		return RoleBottom, true
	case CategoryDress:
		return RoleDress, true
	}
	return "", false
}

// ClosetItem is a stored garment in a user's wardrobe.
type ClosetItem struct {
	ID                string
	UserID            string
	Category          ClosetCategory
	Style             ClosetStyle
	StorageKey        string
	MIME              string
	Bytes             int64
	IsFavorite        bool
	BackgroundRemoved bool
	CreatedAt         time.Time
}
