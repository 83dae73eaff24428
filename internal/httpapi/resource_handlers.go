package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"taskera.org/internal/authz"
)

// ResourceService is the entity-persistence collaborator behind the resource
// routes. The authorization subsystem only reads resource facts; writes are
// delegated here.
type ResourceService interface {
	ListTeams(ctx context.Context, userID string) ([]*authz.Team, error)
	CreateTeam(ctx context.Context, name, creatorID string) (*authz.Team, error)
	UpdateTeam(ctx context.Context, id, name string) (*authz.Team, error)
	DeleteTeam(ctx context.Context, id string) error
	SetMembership(ctx context.Context, teamID, userID string, role authz.TeamRole) error
	RemoveMembership(ctx context.Context, teamID, userID string) error

	CreateProject(ctx context.Context, teamID, name string) (*authz.Project, error)
	UpdateProject(ctx context.Context, id, name string) (*authz.Project, error)
	DeleteProject(ctx context.Context, id string) error

	CreateTask(ctx context.Context, projectID, title string) (*authz.Task, error)
	UpdateTask(ctx context.Context, id, title string) (*authz.Task, error)
	UpdateTaskStatus(ctx context.Context, id, status string) (*authz.Task, error)
	AssignTask(ctx context.Context, id string, assigneeID *string) (*authz.Task, error)
	DeleteTask(ctx context.Context, id string) error
	AddComment(ctx context.Context, taskID, authorID, body string) error

	FindTeam(ctx context.Context, id string) (*authz.Team, error)
	FindProject(ctx context.Context, id string) (*authz.Project, error)
	FindTask(ctx context.Context, id string) (*authz.Task, error)
}

func (a *API) requireResources(w http.ResponseWriter, r *http.Request) bool {
	if a.resources == nil {
		writeError(w, r, http.StatusServiceUnavailable, "resource service unavailable")
		return false
	}
	return true
}

type nameRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type taskRequest struct {
	Title string `json:"title"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

type commentRequest struct {
	Body string `json:"body"`
}

func (a *API) handleListTeams(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	principal, _ := authPrincipal(r)
	teams, err := a.resources.ListTeams(r.Context(), principal.UserID)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (a *API) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	principal, _ := authPrincipal(r)
	team, err := a.resources.CreateTeam(r.Context(), req.Name, principal.UserID)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (a *API) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	team, err := a.resources.FindTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (a *API) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	team, err := a.resources.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), req.Name)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (a *API) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	if err := a.resources.DeleteTeam(r.Context(), chi.URLParam(r, "teamID")); err != nil {
		handleResourceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSetMember(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := authz.TeamRole(strings.TrimSpace(strings.ToLower(req.Role)))
	if role == "" {
		role = authz.TeamRoleMember
	}
	if role != authz.TeamRoleMember && role != authz.TeamRoleLeader {
		writeError(w, r, http.StatusBadRequest, "unsupported team role")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := a.resources.SetMembership(r.Context(), chi.URLParam(r, "teamID"), req.UserID, role); err != nil {
		handleResourceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := a.resources.RemoveMembership(r.Context(), chi.URLParam(r, "teamID"), req.UserID); err != nil {
		handleResourceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	project, err := a.resources.CreateProject(r.Context(), chi.URLParam(r, "teamID"), req.Name)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	project, err := a.resources.FindProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	project, err := a.resources.UpdateProject(r.Context(), chi.URLParam(r, "projectID"), req.Name)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	if err := a.resources.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		handleResourceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	task, err := a.resources.CreateTask(r.Context(), chi.URLParam(r, "projectID"), req.Title)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	task, err := a.resources.FindTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	task, err := a.resources.UpdateTask(r.Context(), chi.URLParam(r, "taskID"), req.Title)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	task, err := a.resources.UpdateTaskStatus(r.Context(), chi.URLParam(r, "taskID"), req.Status)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	if err := a.resources.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		handleResourceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	task, err := a.resources.AssignTask(r.Context(), chi.URLParam(r, "taskID"), req.AssigneeID)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleAddComment(w http.ResponseWriter, r *http.Request) {
	if !a.requireResources(w, r) {
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, r, http.StatusBadRequest, "body is required")
		return
	}
	principal, _ := authPrincipal(r)
	if err := a.resources.AddComment(r.Context(), chi.URLParam(r, "taskID"), principal.UserID, req.Body); err != nil {
		handleResourceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func handleResourceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
