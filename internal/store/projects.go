package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/billlzzz10/unicornxos/internal/domain"
)

const projectColumns = "id, name, description, created_at, updated_at"

// tables whose rows may point at a project
var projectScoped = []string{"notes", "tasks", "dictionary", "plot_points", "world_elements"}

// CreateProject inserts p with a fresh id. An empty name becomes
// domain.DefaultProjectName.
func (s *Store) CreateProject(ctx context.Context, p domain.Project) (*domain.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = domain.DefaultProjectName
	}
	now := s.now()
	p.ID = s.newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (:id, :name, :description, :created_at, :updated_at)",
		&p,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return &p, nil
}

// GetProject retrieves a project by id or unique id prefix
func (s *Store) GetProject(ctx context.Context, idOrPrefix string) (*domain.Project, error) {
	id, err := s.resolveID(ctx, "projects", idOrPrefix)
	if err != nil {
		return nil, err
	}
	var p domain.Project
	if err := getRow(ctx, s.db, &p, "projects", projectColumns, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns every project, oldest first
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects := []domain.Project{}
	err := s.db.SelectContext(ctx, &projects,
		"SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// UpdateProject overwrites the name and description of p.ID
func (s *Store) UpdateProject(ctx context.Context, p domain.Project) (*domain.Project, error) {
	id, err := s.resolveID(ctx, "projects", p.ID)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalid)
	}
	p.UpdatedAt = s.now()

	_, err = s.db.NamedExecContext(ctx,
		"UPDATE projects SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id", &p)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project. Its notes, tasks and lore are kept and
// no longer belong to any project.
func (s *Store) DeleteProject(ctx context.Context, idOrPrefix string) error {
	id, err := s.resolveID(ctx, "projects", idOrPrefix)
	if err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, table := range projectScoped {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("UPDATE %s SET project_id = NULL WHERE project_id = ?", table), id,
			); err != nil {
				return fmt.Errorf("detach %s: %w", table, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}

// EnsureProject returns the oldest project, creating the default one
// when there is none
func (s *Store) EnsureProject(ctx context.Context) (*domain.Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) > 0 {
		return &projects[0], nil
	}
	return s.CreateProject(ctx, domain.Project{Description: "Your first writing project"})
}
