package handlers

import (
	"net/http"

	"avatarstudio/internal/domain"
)

// Avatars lists the vendor avatar catalog. Vendor failures degrade to an
// empty list so the picker UI renders instead of breaking.
func (a *App) Avatars(w http.ResponseWriter, r *http.Request) {
	avatars, err := a.Vendor.Avatars(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("avatar catalog fetch failed")
		avatars = []domain.Avatar{}
	}
	if avatars == nil {
		avatars = []domain.Avatar{}
	}
	a.json(w, http.StatusOK, avatars)
}

// Voices lists the vendor voice catalog with the same degrade behavior.
func (a *App) Voices(w http.ResponseWriter, r *http.Request) {
	voices, err := a.Vendor.Voices(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("voice catalog fetch failed")
		voices = []domain.Voice{}
	}
	if voices == nil {
		voices = []domain.Voice{}
	}
	a.json(w, http.StatusOK, voices)
}
