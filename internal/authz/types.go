// Package authz decides, per request and per resource instance, whether an
// actor may perform an operation on a team, project or task. Decisions
// combine three independent axes: the actor's system role, their team-scoped
// role, and their relationship to the resource itself.
package authz

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("authz: not found")
)

// ResourceType identifies which policy evaluator applies.
type ResourceType string

const (
	ResourceTeam    ResourceType = "team"
	ResourceProject ResourceType = "project"
	ResourceTask    ResourceType = "task"
)

// Operation is the closed set of actions the policy tables know about.
// Using a typed constant set instead of request strings keeps the rule
// switches exhaustive at compile time.
type Operation string

const (
	OpRead          Operation = "read"
	OpCreate        Operation = "create"
	OpUpdate        Operation = "update"
	OpDelete        Operation = "delete"
	OpManageMembers Operation = "manage_members"
	OpManageTasks   Operation = "manage_tasks"
	OpAssign        Operation = "assign"
	OpUpdateStatus  Operation = "update_status"
	OpAddComment    Operation = "add_comment"
)

// TeamRole is the team-scoped role, distinct from the global system role.
type TeamRole string

const (
	TeamRoleMember TeamRole = "member"
	TeamRoleLeader TeamRole = "leader"
)

// Team is a read-only input to authorization; the engine never mutates it.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project carries the owning team through which membership is resolved.
type Project struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task carries the owning project and an optional assignee. The assignee
// relationship widens Update and UpdateStatus for that one actor.
type Task struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	AssigneeID *string   `json:"assignee_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Membership is the (team, user) pair with its team-scoped role. At most one
// row exists per pair.
type Membership struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Role      TeamRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
