package handlers

import (
	"net/http"

	"tryon/internal/codec"
)

type removeBGRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type removeBGResponse struct {
	ProcessedBase64 string `json:"processedBase64"`
	Method          string `json:"method,omitempty"`
}

// RemoveBackground runs the removal chain strictly: when every remover
// fails the request fails.
func (a *App) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	var req removeBGRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	img, err := parseImage("imageBase64", req.ImageBase64, codec.DefaultGarmentMIME)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Background.Remove(r.Context(), img)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, removeBGResponse{ProcessedBase64: codec.StripHeader(res.Image.Base64), Method: res.Method})
}
