package authz

import (
	"context"
	"database/sql"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. All queries are read-only; the
// engine never mutates resources.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindMembership(ctx context.Context, teamID, userID string) (*Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`select team_id, user_id, role, created_at from team_memberships where team_id = $1 and user_id = $2`,
		teamID, userID)
	var m Membership
	if err := row.Scan(&m.TeamID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *PGStore) FindTeam(ctx context.Context, id string) (*Team, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at, updated_at from teams where id = $1`, id)
	var t Team
	if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) FindProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, team_id, name, created_at, updated_at from projects where id = $1`, id)
	var p Project
	if err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) FindTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, project_id, title, status, assignee_id, created_at, updated_at from tasks where id = $1`, id)
	var (
		t        Task
		assignee sql.NullString
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if assignee.Valid {
		v := assignee.String
		t.AssigneeID = &v
	}
	return &t, nil
}
