package domain

import "context"

// ProjectRepository abstracts project persistence. Implementations exist for
// an in-process store and for PostgreSQL.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, projectID string) (*Project, error)
	Update(ctx context.Context, projectID string, update ProjectUpdate) (*Project, error)
	Delete(ctx context.Context, projectID string) error
	ListForUser(ctx context.Context, userID string) ([]*Project, error)
	AddCollaborator(ctx context.Context, projectID, userID string) (*Project, error)
	RemoveCollaborator(ctx context.Context, projectID, userID string) (*Project, error)
}
