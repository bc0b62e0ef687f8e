package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/planweave/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CreateProject creates a new project.
func (db *DB) CreateProject(name, description string) (*models.Project, error) {
	project := &models.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(`
		INSERT INTO projects (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, project.ID, project.Name, project.Description, formatTime(project.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	return project, nil
}

// GetProject loads a project by id.
func (db *DB) GetProject(id string) (*models.Project, error) {
	row := db.QueryRow(`
		SELECT id, name, COALESCE(description, ''), created_at
		FROM projects WHERE id = ?
	`, id)

	var p models.Project
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse project created_at: %w", err)
	}
	p.CreatedAt = t

	return &p, nil
}

// FindProjectByName returns the first project with the given name, or
// ErrNotFound.
func (db *DB) FindProjectByName(name string) (*models.Project, error) {
	row := db.QueryRow(`
		SELECT id FROM projects WHERE name = ? ORDER BY created_at LIMIT 1
	`, name)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("find project: %w", err)
	}

	return db.GetProject(id)
}

// EnsureProject returns the project with the given name, creating it if
// absent.
func (db *DB) EnsureProject(name string) (*models.Project, error) {
	project, err := db.FindProjectByName(name)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return db.CreateProject(name, "")
}
