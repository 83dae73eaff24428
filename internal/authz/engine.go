package authz

import (
	"context"
	"errors"

	"taskera.org/internal/auth"
	"taskera.org/internal/obs"
)

// Engine evaluates per-resource authorization. Evaluation is pure given the
// fetched facts: the same (actor, resource, operation) against unchanged
// state always yields the same decision, and nothing is mutated.
type Engine struct {
	store Store
}

// NewEngine constructs an Engine.
func NewEngine(store Store) (*Engine, error) {
	if store == nil {
		return nil, errors.New("authz: store is required")
	}
	return &Engine{store: store}, nil
}

// Authorize decides whether the actor may perform op on the identified
// resource instance. For OpCreate the id names the parent container: the
// team when creating a project, the project when creating a task.
//
// Any error while loading resource facts denies the request; the engine
// never fails open.
func (e *Engine) Authorize(ctx context.Context, actor auth.Principal, resource ResourceType, resourceID string, op Operation) bool {
	allowed := e.evaluate(ctx, actor, resource, resourceID, op)
	obs.ObserveAuthzDecision(string(resource), string(op), allowed)
	return allowed
}

func (e *Engine) evaluate(ctx context.Context, actor auth.Principal, resource ResourceType, resourceID string, op Operation) bool {
	if actor.UserID == "" || resourceID == "" {
		return false
	}

	// Admins short-circuit every rule, for every operation.
	if actor.IsAdmin() {
		return true
	}

	teamID, task, err := e.resolveOwnership(ctx, resource, resourceID, op)
	if err != nil {
		return false
	}

	membership, err := e.store.FindMembership(ctx, teamID, actor.UserID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return false
		}
		membership = nil
	}
	if membership == nil {
		// Managers may read resources of teams they do not belong to.
		return op == OpRead && actor.HasRole(auth.RoleManager)
	}

	isAssignee := task != nil && task.AssigneeID != nil && *task.AssigneeID == actor.UserID
	leaderOrManager := membership.Role == TeamRoleLeader || actor.HasRole(auth.RoleManager)

	return decide(resource, op, leaderOrManager, isAssignee)
}

// resolveOwnership walks the resource to its owning team: directly for a
// team, via the project for a project, via project and task for a task. The
// task row is returned alongside so the assignee relationship can be checked
// without a second load.
func (e *Engine) resolveOwnership(ctx context.Context, resource ResourceType, resourceID string, op Operation) (string, *Task, error) {
	switch resource {
	case ResourceTeam:
		return resourceID, nil, nil
	case ResourceProject:
		if op == OpCreate {
			// Creating a project: the id is the target team.
			return resourceID, nil, nil
		}
		project, err := e.store.FindProject(ctx, resourceID)
		if err != nil {
			return "", nil, err
		}
		return project.TeamID, nil, nil
	case ResourceTask:
		if op == OpCreate {
			// Creating a task: the id is the target project.
			project, err := e.store.FindProject(ctx, resourceID)
			if err != nil {
				return "", nil, err
			}
			return project.TeamID, nil, nil
		}
		task, err := e.store.FindTask(ctx, resourceID)
		if err != nil {
			return "", nil, err
		}
		project, err := e.store.FindProject(ctx, task.ProjectID)
		if err != nil {
			return "", nil, err
		}
		return project.TeamID, task, nil
	default:
		return "", nil, ErrNotFound
	}
}

// decide is the operation rule table for members of the owning team.
func decide(resource ResourceType, op Operation, leaderOrManager, isAssignee bool) bool {
	switch resource {
	case ResourceTeam:
		switch op {
		case OpRead:
			return true
		case OpUpdate, OpDelete, OpManageMembers, OpManageTasks, OpAssign:
			return leaderOrManager
		case OpCreate, OpUpdateStatus, OpAddComment:
			return false
		}
	case ResourceProject:
		switch op {
		case OpRead:
			return true
		case OpCreate, OpUpdate, OpDelete, OpManageMembers, OpManageTasks, OpAssign:
			return leaderOrManager
		case OpUpdateStatus, OpAddComment:
			return false
		}
	case ResourceTask:
		switch op {
		case OpRead, OpAddComment:
			return true
		case OpUpdate, OpUpdateStatus:
			return isAssignee || leaderOrManager
		case OpCreate, OpDelete, OpManageMembers, OpManageTasks, OpAssign:
			return leaderOrManager
		}
	}
	return false
}
