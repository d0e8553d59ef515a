package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"avatarstudio/internal/domain"
)

// ProjectRepositoryPG implements domain.ProjectRepository backed by
// PostgreSQL. It is used when a DATABASE_URL is configured.
type ProjectRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository backed by PostgreSQL.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{pool: pool}
}

// Create inserts a new project record.
func (r *ProjectRepositoryPG) Create(ctx context.Context, project *domain.Project) error {
	prepareNewProject(project)
	query := `
INSERT INTO projects (id, name, description, template, user_id, collaborators, resolution, frame_rate, duration, background_color, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`
	_, err := r.pool.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.Template,
		project.UserID,
		project.Collaborators,
		project.Settings.Resolution,
		project.Settings.FrameRate,
		project.Settings.Duration,
		project.Settings.BackgroundColor,
		project.Status,
		project.CreatedAt,
		project.UpdatedAt,
	)
	return err
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	query := selectProject + ` WHERE id = $1;`
	return scanProject(r.pool.QueryRow(ctx, query, projectID))
}

// Update applies the non-nil fields of the update inside a transaction and
// returns the refreshed row.
func (r *ProjectRepositoryPG) Update(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	project, err := scanProject(tx.QueryRow(ctx, selectProject+` WHERE id = $1 FOR UPDATE;`, projectID))
	if err != nil {
		return nil, err
	}
	applyUpdate(project, update)

	query := `
UPDATE projects
SET name = $2,
    description = $3,
    collaborators = $4,
    resolution = $5,
    frame_rate = $6,
    duration = $7,
    background_color = $8,
    updated_at = $9
WHERE id = $1;
`
	if _, err := tx.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.Collaborators,
		project.Settings.Resolution,
		project.Settings.FrameRate,
		project.Settings.Duration,
		project.Settings.BackgroundColor,
		project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project.
func (r *ProjectRepositoryPG) Delete(ctx context.Context, projectID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1;`, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListForUser returns projects the user owns or collaborates on.
func (r *ProjectRepositoryPG) ListForUser(ctx context.Context, userID string) ([]*domain.Project, error) {
	query := selectProject + ` WHERE user_id = $1 OR $1 = ANY(collaborators) ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// AddCollaborator grants a user access to the project.
func (r *ProjectRepositoryPG) AddCollaborator(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	query := `
UPDATE projects
SET collaborators = array_append(collaborators, $2),
    updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(collaborators));
`
	if _, err := r.pool.Exec(ctx, query, projectID, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, projectID)
}

// RemoveCollaborator revokes a user's access to the project.
func (r *ProjectRepositoryPG) RemoveCollaborator(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	query := `
UPDATE projects
SET collaborators = array_remove(collaborators, $2),
    updated_at = $3
WHERE id = $1;
`
	if _, err := r.pool.Exec(ctx, query, projectID, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, projectID)
}

const selectProject = `
SELECT id, name, description, template, user_id, collaborators, resolution, frame_rate, duration, background_color, status, created_at, updated_at
FROM projects`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var project domain.Project
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.Template,
		&project.UserID,
		&project.Collaborators,
		&project.Settings.Resolution,
		&project.Settings.FrameRate,
		&project.Settings.Duration,
		&project.Settings.BackgroundColor,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
