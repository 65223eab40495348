package domain

import (
	"fmt"
	"strings"
)

type GarmentRole string

const (
	RoleTop    GarmentRole = "top"
	RoleBottom GarmentRole = "bottom"
	RoleDress  GarmentRole = "dress"
)

// ParseGarmentRole maps loose client input onto a role.
func ParseGarmentRole(v string) (GarmentRole, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "top", "tops", "shirt":
		return RoleTop, nil
	case "bottom", "bottoms", "pants":
		return RoleBottom, nil
	case "dress":
		return RoleDress, nil
	default:
		return "", fmt.Errorf("%w: unknown garment role %q", ErrInvalidInput, v)
	}
}

type Garment struct {
	Role  GarmentRole
	Image Image
}

// GarmentSelection is the set of garments for one try-on. Either a single
// dress, or a top and a bottom.
type GarmentSelection []Garment

// Validate enforces the dress-xor-outfit rule.
func (s GarmentSelection) Validate() error {
	var tops, bottoms, dresses int
	for _, g := range s {
		if g.Image.IsZero() {
			return fmt.Errorf("%w: garment %q has no image", ErrInvalidInput, g.Role)
		}
		switch g.Role {
		case RoleTop:
			tops++
		case RoleBottom:
			bottoms++
		case RoleDress:
			dresses++
		default:
			return fmt.Errorf("%w: unknown garment role %q", ErrInvalidInput, g.Role)
		}
	}
	switch {
	case dresses == 1 && tops == 0 && bottoms == 0:
		return nil
	case dresses == 0 && tops == 1 && bottoms == 1:
		return nil
	case dresses > 0:
		return fmt.Errorf("%w: a dress cannot be combined with other garments", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: select a dress, or both a top and a bottom", ErrInvalidInput)
	}
}

// Images returns the garment images in dispatch order: top before bottom.
func (s GarmentSelection) Images() []Image {
	out := make([]Image, 0, len(s))
	for _, role := range []GarmentRole{RoleDress, RoleTop, RoleBottom} {
		for _, g := range s {
			if g.Role == role {
				out = append(out, g.Image)
			}
		}
	}
	return out
}
