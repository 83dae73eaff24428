package authz

import (
	"context"
	"errors"
	"testing"

	"taskera.org/internal/auth"
)

type fakeStore struct {
	memberships map[string]*Membership
	teams       map[string]*Team
	projects    map[string]*Project
	tasks       map[string]*Task
	err         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memberships: make(map[string]*Membership),
		teams:       make(map[string]*Team),
		projects:    make(map[string]*Project),
		tasks:       make(map[string]*Task),
	}
}

func (s *fakeStore) addMembership(teamID, userID string, role TeamRole) {
	s.memberships[teamID+"/"+userID] = &Membership{TeamID: teamID, UserID: userID, Role: role}
}

func (s *fakeStore) FindMembership(_ context.Context, teamID, userID string) (*Membership, error) {
	if s.err != nil {
		return nil, s.err
	}
	if m, ok := s.memberships[teamID+"/"+userID]; ok {
		return m, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindTeam(_ context.Context, id string) (*Team, error) {
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.teams[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindProject(_ context.Context, id string) (*Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.projects[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindTask(_ context.Context, id string) (*Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.tasks[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

// fixtureStore builds one team with a leader, a member and an assigned task.
func fixtureStore() *fakeStore {
	s := newFakeStore()
	s.teams["team-1"] = &Team{ID: "team-1", Name: "Platform"}
	s.projects["proj-1"] = &Project{ID: "proj-1", TeamID: "team-1", Name: "Rollout"}
	assignee := "member-1"
	s.tasks["task-1"] = &Task{ID: "task-1", ProjectID: "proj-1", AssigneeID: &assignee}
	s.tasks["task-2"] = &Task{ID: "task-2", ProjectID: "proj-1"}
	s.addMembership("team-1", "leader-1", TeamRoleLeader)
	s.addMembership("team-1", "member-1", TeamRoleMember)
	s.addMembership("team-1", "member-2", TeamRoleMember)
	return s
}

func testEngine(t *testing.T, store Store) *Engine {
	t.Helper()
	e, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func principal(userID string, roles ...auth.SystemRole) auth.Principal {
	return auth.Principal{UserID: userID, Roles: roles}
}

var allOperations = []Operation{
	OpRead, OpCreate, OpUpdate, OpDelete,
	OpManageMembers, OpManageTasks, OpAssign, OpUpdateStatus, OpAddComment,
}

func TestEngineAdminAllowsEverything(t *testing.T) {
	e := testEngine(t, fixtureStore())
	admin := principal("admin-1", auth.RoleAdmin)
	ctx := context.Background()

	for _, resource := range []ResourceType{ResourceTeam, ResourceProject, ResourceTask} {
		for _, op := range allOperations {
			if !e.Authorize(ctx, admin, resource, "team-1", op) {
				t.Fatalf("admin denied %s on %s", op, resource)
			}
		}
	}
}

func TestEngineRejectsEmptyInputs(t *testing.T) {
	e := testEngine(t, fixtureStore())
	ctx := context.Background()

	if e.Authorize(ctx, auth.Principal{}, ResourceTeam, "team-1", OpRead) {
		t.Fatal("empty actor must be denied")
	}
	if e.Authorize(ctx, principal("member-1"), ResourceTeam, "", OpRead) {
		t.Fatal("empty resource id must be denied")
	}
}

func TestEngineNonMemberDeniedEverything(t *testing.T) {
	e := testEngine(t, fixtureStore())
	outsider := principal("outsider-1", auth.RoleDeveloper)
	ctx := context.Background()

	for _, op := range allOperations {
		if e.Authorize(ctx, outsider, ResourceTeam, "team-1", op) {
			t.Fatalf("outsider allowed %s on team", op)
		}
		if e.Authorize(ctx, outsider, ResourceTask, "task-1", op) {
			t.Fatalf("outsider allowed %s on task", op)
		}
	}
}

func TestEngineNonMemberManagerReadsOnly(t *testing.T) {
	e := testEngine(t, fixtureStore())
	manager := principal("manager-1", auth.RoleManager)
	ctx := context.Background()

	for _, resource := range []ResourceType{ResourceTeam, ResourceProject, ResourceTask} {
		id := map[ResourceType]string{ResourceTeam: "team-1", ResourceProject: "proj-1", ResourceTask: "task-1"}[resource]
		if !e.Authorize(ctx, manager, resource, id, OpRead) {
			t.Fatalf("non-member manager denied read on %s", resource)
		}
		for _, op := range []Operation{OpUpdate, OpDelete, OpManageMembers} {
			if e.Authorize(ctx, manager, resource, id, op) {
				t.Fatalf("non-member manager allowed %s on %s", op, resource)
			}
		}
	}
}

func TestEngineMemberTeamRules(t *testing.T) {
	e := testEngine(t, fixtureStore())
	ctx := context.Background()
	member := principal("member-2", auth.RoleDeveloper)
	leader := principal("leader-1", auth.RoleDeveloper)

	if !e.Authorize(ctx, member, ResourceTeam, "team-1", OpRead) {
		t.Fatal("member denied team read")
	}
	for _, op := range []Operation{OpUpdate, OpDelete, OpManageMembers} {
		if e.Authorize(ctx, member, ResourceTeam, "team-1", op) {
			t.Fatalf("plain member allowed %s on team", op)
		}
		if !e.Authorize(ctx, leader, ResourceTeam, "team-1", op) {
			t.Fatalf("leader denied %s on team", op)
		}
	}
}

func TestEngineMemberProjectRules(t *testing.T) {
	e := testEngine(t, fixtureStore())
	ctx := context.Background()
	member := principal("member-2", auth.RoleDeveloper)
	leader := principal("leader-1", auth.RoleDeveloper)

	if !e.Authorize(ctx, member, ResourceProject, "proj-1", OpRead) {
		t.Fatal("member denied project read")
	}
	if e.Authorize(ctx, member, ResourceProject, "proj-1", OpUpdate) {
		t.Fatal("plain member allowed project update")
	}

	// Creating a project targets the parent team.
	if e.Authorize(ctx, member, ResourceProject, "team-1", OpCreate) {
		t.Fatal("plain member allowed project create")
	}
	if !e.Authorize(ctx, leader, ResourceProject, "team-1", OpCreate) {
		t.Fatal("leader denied project create")
	}
}

func TestEngineTaskAssigneeRules(t *testing.T) {
	e := testEngine(t, fixtureStore())
	ctx := context.Background()
	assignee := principal("member-1", auth.RoleDeveloper)
	other := principal("member-2", auth.RoleDeveloper)
	leader := principal("leader-1", auth.RoleDeveloper)

	// Resolution is transitive: task -> project -> team membership.
	if !e.Authorize(ctx, other, ResourceTask, "task-1", OpRead) {
		t.Fatal("member denied task read")
	}
	if !e.Authorize(ctx, other, ResourceTask, "task-1", OpAddComment) {
		t.Fatal("member denied task comment")
	}

	for _, op := range []Operation{OpUpdate, OpUpdateStatus} {
		if !e.Authorize(ctx, assignee, ResourceTask, "task-1", op) {
			t.Fatalf("assignee denied %s on own task", op)
		}
		if e.Authorize(ctx, other, ResourceTask, "task-1", op) {
			t.Fatalf("non-assignee member allowed %s", op)
		}
		if !e.Authorize(ctx, leader, ResourceTask, "task-1", op) {
			t.Fatalf("leader denied %s", op)
		}
	}

	// Assignment alone grants no delete or assign rights.
	for _, op := range []Operation{OpDelete, OpAssign} {
		if e.Authorize(ctx, assignee, ResourceTask, "task-1", op) {
			t.Fatalf("assignee allowed %s", op)
		}
		if !e.Authorize(ctx, leader, ResourceTask, "task-1", op) {
			t.Fatalf("leader denied %s", op)
		}
	}

	// An unassigned task falls back to the plain member rules.
	if e.Authorize(ctx, assignee, ResourceTask, "task-2", OpUpdateStatus) {
		t.Fatal("assignee of another task allowed status update on unassigned task")
	}

	// Creating a task targets the parent project.
	if e.Authorize(ctx, other, ResourceTask, "proj-1", OpCreate) {
		t.Fatal("plain member allowed task create")
	}
	if !e.Authorize(ctx, leader, ResourceTask, "proj-1", OpCreate) {
		t.Fatal("leader denied task create")
	}
}

func TestEngineUnknownResourceDenied(t *testing.T) {
	e := testEngine(t, fixtureStore())
	member := principal("member-1", auth.RoleDeveloper)

	if e.Authorize(context.Background(), member, ResourceTask, "missing-task", OpRead) {
		t.Fatal("missing task must be denied")
	}
	if e.Authorize(context.Background(), member, ResourceType("widget"), "w-1", OpRead) {
		t.Fatal("unknown resource type must be denied")
	}
}

func TestEngineFailsClosedOnStoreError(t *testing.T) {
	store := fixtureStore()
	store.err = errors.New("connection reset")
	e := testEngine(t, store)
	member := principal("member-1", auth.RoleDeveloper)

	for _, resource := range []ResourceType{ResourceTeam, ResourceProject, ResourceTask} {
		if e.Authorize(context.Background(), member, resource, "team-1", OpRead) {
			t.Fatalf("store error must deny %s read", resource)
		}
	}
}

func TestEngineDecisionIsRepeatable(t *testing.T) {
	e := testEngine(t, fixtureStore())
	member := principal("member-1", auth.RoleDeveloper)
	ctx := context.Background()

	first := e.Authorize(ctx, member, ResourceTask, "task-1", OpUpdateStatus)
	for i := 0; i < 5; i++ {
		if got := e.Authorize(ctx, member, ResourceTask, "task-1", OpUpdateStatus); got != first {
			t.Fatalf("decision flapped on call %d", i)
		}
	}
}
