package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"avatarstudio/internal/collab"
	"avatarstudio/internal/domain"
	"avatarstudio/internal/infra"
	"avatarstudio/internal/metrics"
	"avatarstudio/internal/orchestrator"
	"avatarstudio/internal/providers/avatar"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Logger    infra.Logger
	Vendor    *avatar.Client
	Jobs      *orchestrator.Orchestrator
	Projects  domain.ProjectRepository
	Hub       *collab.Hub
	Metrics   *metrics.Metrics
	StartedAt time.Time

	// WatchCtx bounds background job watches. Defaults to the process
	// lifetime when nil.
	WatchCtx context.Context
}

func (a *App) watchContext() context.Context {
	if a.WatchCtx != nil {
		return a.WatchCtx
	}
	return context.Background()
}

func (a *App) json(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

func (a *App) fail(w http.ResponseWriter, code int, errCode, message string, details any) {
	body := map[string]any{
		"success": false,
		"error":   errCode,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// failFor maps domain errors onto the response envelope.
func (a *App) failFor(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		a.fail(w, http.StatusBadRequest, "validation_error", validation.Reason, map[string]string{
			"field": validation.Field,
		})
		return
	}

	var vendor *domain.VendorError
	if errors.As(err, &vendor) {
		if a.Metrics != nil {
			a.Metrics.VendorError()
		}
		switch vendor.Kind {
		case domain.VendorValidation:
			a.fail(w, http.StatusUnprocessableEntity, "vendor_validation", vendor.Message, nil)
		case domain.VendorNotFound:
			a.fail(w, http.StatusNotFound, "not_found", vendor.Message, nil)
		default:
			a.fail(w, http.StatusInternalServerError, "vendor_error", vendor.Message, nil)
		}
		return
	}

	var auth *domain.AuthError
	if errors.As(err, &auth) || errors.Is(err, domain.ErrMissingCredentials) {
		a.fail(w, http.StatusInternalServerError, "auth_error", "vendor authentication failed", nil)
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		a.fail(w, http.StatusNotFound, "not_found", "resource not found", nil)
		return
	}

	a.fail(w, http.StatusInternalServerError, "internal", "internal server error", nil)
}

// currentUserID reads the caller identity header. There is no auth layer in
// front of this service yet, so the frontend passes its session user through.
func currentUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
