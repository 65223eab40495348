package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"tryon/internal/codec"
	"tryon/internal/domain"
)

const defaultOutfitPrompt = "Professional fashion photography."

type paramsRequest struct {
	DenoiseSteps *int  `json:"denoiseSteps"`
	Seed         *int  `json:"seed"`
	Crop         *bool `json:"crop"`
}

func (p paramsRequest) params() domain.Params {
	out := domain.Params{Seed: p.Seed, Crop: p.Crop}
	if p.DenoiseSteps != nil {
		out.DenoiseSteps = *p.DenoiseSteps
	}
	return out.Normalize()
}

type tryOnRequest struct {
	PersonImage  string `json:"personImage"`
	GarmentImage string `json:"garmentImage"`
	Prompt       string `json:"prompt"`
	paramsRequest
}

type tryOnResponse struct {
	ImageBase64 string `json:"imageBase64"`
}

// TryOn renders one garment on the Space backend.
func (a *App) TryOn(w http.ResponseWriter, r *http.Request) {
	var req tryOnRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	person, err := parseImage("personImage", req.PersonImage, codec.DefaultModelMIME)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	garment, err := parseImage("garmentImage", req.GarmentImage, codec.DefaultGarmentMIME)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Orchestrator.Run(r.Context(), a.Orchestrator.Space(), domain.TryOnRequest{
		Person:   person,
		Garments: []domain.Image{garment},
		Prompt:   strings.TrimSpace(req.Prompt),
		Params:   req.params(),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, tryOnResponse{ImageBase64: res.Image.Base64})
}

type garmentInput struct {
	Role  string `json:"role"`
	Image string `json:"image"`
}

type hybridRequest struct {
	PersonImage string         `json:"personImage"`
	Garments    []garmentInput `json:"garments"`
	Prompt      string         `json:"prompt"`
	paramsRequest
}

type hybridResponse struct {
	ImageBase64 string `json:"imageBase64"`
	DataURL     string `json:"dataUrl"`
	Provider    string `json:"provider"`
}

// HybridTryOn validates the outfit and runs the fallback policy for the
// caller's session.
func (a *App) HybridTryOn(w http.ResponseWriter, r *http.Request) {
	var req hybridRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	person, err := parseImage("personImage", req.PersonImage, codec.DefaultModelMIME)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	selection := make(domain.GarmentSelection, 0, len(req.Garments))
	for i, g := range req.Garments {
		role, err := domain.ParseGarmentRole(g.Role)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		img, err := parseImage(fmt.Sprintf("garments[%d]", i), g.Image, codec.DefaultGarmentMIME)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		selection = append(selection, domain.Garment{Role: role, Image: img})
	}
	if err := selection.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}

	sess := a.Sessions.Get(sessionKey(r))
	res, err := a.Fallback.TryOn(r.Context(), sess, domain.TryOnRequest{
		Person:   person,
		Garments: selection.Images(),
		Prompt:   outfitPrompt(req.Prompt),
		Params:   req.params(),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, hybridResponse{ImageBase64: res.Image.Base64, DataURL: res.DataURL, Provider: res.Provider})
}

func outfitPrompt(userPrompt string) string {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		userPrompt = defaultOutfitPrompt
	}
	return "Person wearing outfit. " + userPrompt
}

// parseImage accepts a data URL or bare base64 for field.
func parseImage(field, value, fallbackMIME string) (domain.Image, error) {
	if strings.TrimSpace(value) == "" {
		return domain.Image{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	img, err := codec.Parse(value, fallbackMIME)
	if err != nil {
		return domain.Image{}, fmt.Errorf("%s: %w", field, err)
	}
	return img, nil
}
