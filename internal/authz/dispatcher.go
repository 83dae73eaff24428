package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"taskera.org/internal/auth"
)

// Policy is a static role check used for requests that target no resource
// instance (collection listings, top-level creates).
type Policy func(actor auth.Principal) bool

// AllowAuthenticated admits any request with a validated principal.
func AllowAuthenticated(actor auth.Principal) bool { return actor.UserID != "" }

// RequireManager admits managers and admins.
func RequireManager(actor auth.Principal) bool {
	return actor.IsAdmin() || actor.HasRole(auth.RoleManager)
}

// RequireAdmin admits admins only.
func RequireAdmin(actor auth.Principal) bool { return actor.IsAdmin() }

type policyKey struct {
	class  string
	method string
}

// Dispatcher resolves which resource instance and operation an inbound
// request targets and routes the decision to the matching engine evaluator.
// Requests with no resolvable resource fall back to a static per-collection
// policy table; anything absent from that table is denied. Unknown routes
// never fail open.
type Dispatcher struct {
	engine   *Engine
	policies map[policyKey]Policy
}

// NewDispatcher constructs a Dispatcher with the default static policy
// table.
func NewDispatcher(engine *Engine) (*Dispatcher, error) {
	if engine == nil {
		return nil, errors.New("authz: engine is required")
	}
	return &Dispatcher{
		engine: engine,
		policies: map[policyKey]Policy{
			{"teams", http.MethodGet}:    AllowAuthenticated,
			{"teams", http.MethodPost}:   RequireManager,
			{"projects", http.MethodGet}: AllowAuthenticated,
			{"tasks", http.MethodGet}:    AllowAuthenticated,
			{"users", http.MethodGet}:    RequireAdmin,
			{"users", http.MethodPost}:   RequireAdmin,
			{"users", http.MethodPut}:    RequireAdmin,
			{"users", http.MethodDelete}: RequireAdmin,
		},
	}, nil
}

// Authorize resolves the request target and evaluates the decision.
func (d *Dispatcher) Authorize(ctx context.Context, actor auth.Principal, r *http.Request) bool {
	if resource, id, op, ok := resolveTarget(r); ok {
		return d.engine.Authorize(ctx, actor, resource, id, op)
	}
	if policy, ok := d.policies[policyKey{class: resourceClass(r.URL.Path), method: r.Method}]; ok {
		return policy(actor)
	}
	return false
}

// resolveTarget extracts the targeted resource and operation. Route
// parameters win over query parameters, and a task id outranks a project id
// outranks a team id when several are present. The HTTP verb supplies the
// base operation; a handful of route suffixes refine it.
func resolveTarget(r *http.Request) (ResourceType, string, Operation, bool) {
	taskID := requestParam(r, "taskID", "task_id")
	projectID := requestParam(r, "projectID", "project_id")
	teamID := requestParam(r, "teamID", "team_id")

	op := operationForMethod(r.Method)
	path := strings.TrimRight(r.URL.Path, "/")

	switch {
	case taskID != "":
		switch {
		case strings.HasSuffix(path, "/assign"):
			op = OpAssign
		case strings.HasSuffix(path, "/status") && r.Method != http.MethodGet:
			op = OpUpdateStatus
		case strings.HasSuffix(path, "/comments") && r.Method == http.MethodPost:
			op = OpAddComment
		}
		return ResourceTask, taskID, op, true
	case projectID != "":
		if strings.HasSuffix(path, "/tasks") && r.Method == http.MethodPost {
			return ResourceTask, projectID, OpCreate, true
		}
		return ResourceProject, projectID, op, true
	case teamID != "":
		if strings.HasSuffix(path, "/projects") && r.Method == http.MethodPost {
			return ResourceProject, teamID, OpCreate, true
		}
		if strings.HasSuffix(path, "/members") && r.Method != http.MethodGet {
			return ResourceTeam, teamID, OpManageMembers, true
		}
		return ResourceTeam, teamID, op, true
	}
	return "", "", "", false
}

func requestParam(r *http.Request, routeName, queryName string) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if v := rctx.URLParam(routeName); v != "" {
			return v
		}
	}
	return strings.TrimSpace(r.URL.Query().Get(queryName))
}

func operationForMethod(method string) Operation {
	switch method {
	case http.MethodGet:
		return OpRead
	case http.MethodPost:
		return OpCreate
	case http.MethodPut, http.MethodPatch:
		return OpUpdate
	case http.MethodDelete:
		return OpDelete
	default:
		return OpRead
	}
}

// resourceClass returns the collection segment of a versioned API path,
// e.g. "teams" for /v1/teams.
func resourceClass(path string) string {
	path = strings.TrimPrefix(path, "/v1/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
