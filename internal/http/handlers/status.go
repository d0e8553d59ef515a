package handlers

import (
	"net/http"
	"time"
)

// Status reports service health for the frontend settings page. The vendor
// entry reflects configuration only; it never makes a network call.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	vendorState := "operational"
	if !a.Vendor.HasCredentials() {
		vendorState = "unconfigured"
	}

	a.json(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(a.StartedAt).Round(time.Second).String(),
		"services": map[string]string{
			"avatar-generation": vendorState,
			"projects":          "operational",
			"collaboration":     "operational",
		},
	})
}
