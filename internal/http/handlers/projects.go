package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"avatarstudio/internal/adapter/repo"
	"avatarstudio/internal/domain"

	"github.com/go-chi/chi/v5"
)

type projectCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template"`
	UserID      string `json:"userId"`
}

type projectUpdateRequest struct {
	Name          *string                 `json:"name"`
	Description   *string                 `json:"description"`
	Settings      *domain.ProjectSettings `json:"settings"`
	Collaborators *[]string               `json:"collaborators"`
}

func (a *App) ProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req projectCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, http.StatusBadRequest, "bad_request", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.fail(w, http.StatusBadRequest, "validation_error", "name is required", map[string]string{"field": "name"})
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = currentUserID(r)
	}
	if userID == "" {
		a.fail(w, http.StatusBadRequest, "validation_error", "userId is required", map[string]string{"field": "userId"})
		return
	}

	project := &domain.Project{
		ID:          repo.NewProjectID(),
		Name:        req.Name,
		Description: req.Description,
		Template:    req.Template,
		UserID:      userID,
	}
	if err := a.Projects.Create(r.Context(), project); err != nil {
		a.Logger.Error().Err(err).Msg("project create failed")
		a.failFor(w, err)
		return
	}
	a.json(w, http.StatusCreated, project)
}

// ProjectIndex serves both list-by-user and lookup-by-id queries, matching
// the shape the studio frontend already sends.
func (a *App) ProjectIndex(w http.ResponseWriter, r *http.Request) {
	if projectID := r.URL.Query().Get("projectId"); projectID != "" {
		project, err := a.Projects.GetByID(r.Context(), projectID)
		if err != nil {
			a.failFor(w, err)
			return
		}
		a.json(w, http.StatusOK, project)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = currentUserID(r)
	}
	if userID == "" {
		a.fail(w, http.StatusBadRequest, "bad_request", "userId or projectId is required", nil)
		return
	}
	projects, err := a.Projects.ListForUser(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("project list failed")
		a.failFor(w, err)
		return
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	a.json(w, http.StatusOK, projects)
}

func (a *App) ProjectGet(w http.ResponseWriter, r *http.Request) {
	project, err := a.Projects.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.failFor(w, err)
		return
	}
	a.json(w, http.StatusOK, project)
}

func (a *App) ProjectUpdate(w http.ResponseWriter, r *http.Request) {
	var req projectUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, http.StatusBadRequest, "bad_request", "invalid payload", nil)
		return
	}
	project, err := a.Projects.Update(r.Context(), chi.URLParam(r, "id"), domain.ProjectUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Settings:      req.Settings,
		Collaborators: req.Collaborators,
	})
	if err != nil {
		a.failFor(w, err)
		return
	}
	a.json(w, http.StatusOK, project)
}

func (a *App) ProjectDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Projects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.failFor(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (a *App) CollaboratorAdd(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")
	project, err := a.Projects.AddCollaborator(r.Context(), projectID, userID)
	if err != nil {
		a.failFor(w, err)
		return
	}
	if a.Hub != nil {
		a.Hub.Broadcast(projectID, "project-shared", map[string]any{
			"projectId": projectID,
			"userId":    userID,
		})
	}
	a.json(w, http.StatusOK, project)
}

func (a *App) CollaboratorRemove(w http.ResponseWriter, r *http.Request) {
	project, err := a.Projects.RemoveCollaborator(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		a.failFor(w, err)
		return
	}
	a.json(w, http.StatusOK, project)
}
