package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"avatarstudio/internal/domain"
)

// ProjectRepositoryMemory is a process-local project store. It is the
// default when no database is configured; contents do not survive a
// restart. All operations are mutex-guarded.
type ProjectRepositoryMemory struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

// NewProjectRepositoryMemory creates an empty in-memory project store.
func NewProjectRepositoryMemory() *ProjectRepositoryMemory {
	return &ProjectRepositoryMemory{projects: make(map[string]*domain.Project)}
}

// NewProjectID returns a fresh project identifier.
func NewProjectID() string {
	return fmt.Sprintf("proj_%s", uuid.NewString())
}

// Create stores a new project, assigning ID, timestamps, and defaults when
// the caller left them empty.
func (r *ProjectRepositoryMemory) Create(ctx context.Context, project *domain.Project) error {
	prepareNewProject(project)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = cloneProject(project)
	return nil
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryMemory) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProject(project), nil
}

// Update applies the non-nil fields of the update and bumps UpdatedAt.
func (r *ProjectRepositoryMemory) Update(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	applyUpdate(project, update)
	return cloneProject(project), nil
}

// Delete removes a project.
func (r *ProjectRepositoryMemory) Delete(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.projects, projectID)
	return nil
}

// ListForUser returns projects the user owns or collaborates on.
func (r *ProjectRepositoryMemory) ListForUser(ctx context.Context, userID string) ([]*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var projects []*domain.Project
	for _, project := range r.projects {
		if project.HasMember(userID) {
			projects = append(projects, cloneProject(project))
		}
	}
	return projects, nil
}

// AddCollaborator grants a user access to the project. Adding an existing
// collaborator is a no-op.
func (r *ProjectRepositoryMemory) AddCollaborator(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !containsString(project.Collaborators, userID) {
		project.Collaborators = append(project.Collaborators, userID)
		project.UpdatedAt = time.Now().UTC()
	}
	return cloneProject(project), nil
}

// RemoveCollaborator revokes a user's access to the project.
func (r *ProjectRepositoryMemory) RemoveCollaborator(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	filtered := project.Collaborators[:0]
	for _, id := range project.Collaborators {
		if id != userID {
			filtered = append(filtered, id)
		}
	}
	project.Collaborators = filtered
	project.UpdatedAt = time.Now().UTC()
	return cloneProject(project), nil
}

func prepareNewProject(project *domain.Project) {
	now := time.Now().UTC()
	if project.ID == "" {
		project.ID = NewProjectID()
	}
	if project.Template == "" {
		project.Template = "blank"
	}
	if project.Status == "" {
		project.Status = "active"
	}
	if project.Settings == (domain.ProjectSettings{}) {
		project.Settings = domain.DefaultProjectSettings()
	}
	if project.Collaborators == nil {
		project.Collaborators = []string{}
	}
	project.CreatedAt = now
	project.UpdatedAt = now
}

func applyUpdate(project *domain.Project, update domain.ProjectUpdate) {
	if update.Name != nil {
		project.Name = *update.Name
	}
	if update.Description != nil {
		project.Description = *update.Description
	}
	if update.Settings != nil {
		project.Settings = *update.Settings
	}
	if update.Collaborators != nil {
		project.Collaborators = append([]string(nil), (*update.Collaborators)...)
	}
	project.UpdatedAt = time.Now().UTC()
}

func cloneProject(project *domain.Project) *domain.Project {
	clone := *project
	clone.Collaborators = append([]string(nil), project.Collaborators...)
	return &clone
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

var _ domain.ProjectRepository = (*ProjectRepositoryMemory)(nil)
