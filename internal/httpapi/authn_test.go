package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taskera.org/internal/auth"
)

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(t, http.MethodGet, "/v1/teams", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate challenge")
	}

	w = f.do(t, http.MethodGet, "/v1/teams", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/v1/teams", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if w := serve(f, r); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong scheme: expected 401, got %d", w.Code)
	}
}

func TestAuthorizedResourceAccess(t *testing.T) {
	f := newAPIFixture(t, nil)
	member := f.login(t, "member@example.com").AccessToken
	leader := f.login(t, "leader@example.com").AccessToken
	lurker := f.login(t, "lurker@example.com").AccessToken
	admin := f.login(t, "admin@example.com").AccessToken

	// Any authenticated user may list; membership gates instance reads.
	if w := f.do(t, http.MethodGet, "/v1/teams", member, nil); w.Code != http.StatusOK {
		t.Fatalf("member list teams: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/teams/team-1", member, nil); w.Code != http.StatusOK {
		t.Fatalf("member get team: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v1/teams/team-1", lurker, nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-member get team: expected 403, got %d", w.Code)
	}

	// Mutations need the leader role on the owning team.
	update := map[string]string{"name": "Platform 2"}
	if w := f.do(t, http.MethodPut, "/v1/teams/team-1", member, update); w.Code != http.StatusForbidden {
		t.Fatalf("member update team: expected 403, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPut, "/v1/teams/team-1", leader, update); w.Code != http.StatusOK {
		t.Fatalf("leader update team: %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodPut, "/v1/teams/team-1", admin, update); w.Code != http.StatusOK {
		t.Fatalf("admin update team: %d", w.Code)
	}
}

func TestAuthorizedTaskRules(t *testing.T) {
	f := newAPIFixture(t, nil)
	assignee := f.login(t, "member@example.com").AccessToken
	leader := f.login(t, "leader@example.com").AccessToken

	status := map[string]string{"status": "in_progress"}
	if w := f.do(t, http.MethodPut, "/v1/tasks/task-1/status", assignee, status); w.Code != http.StatusOK {
		t.Fatalf("assignee status update: %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodDelete, "/v1/tasks/task-1", assignee, nil); w.Code != http.StatusForbidden {
		t.Fatalf("assignee delete task: expected 403, got %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/v1/tasks/task-1", leader, nil); w.Code != http.StatusNoContent {
		t.Fatalf("leader delete task: %d", w.Code)
	}

	comment := map[string]string{"body": "looks good"}
	if w := f.do(t, http.MethodPost, "/v1/tasks/task-1/comments", assignee, comment); w.Code != http.StatusCreated {
		t.Fatalf("member comment: %d", w.Code)
	}
}

func TestResourceServiceUnavailable(t *testing.T) {
	f := newAPIFixture(t, func(o *Options) { o.Resources = nil })
	member := f.login(t, "member@example.com").AccessToken

	if w := f.do(t, http.MethodGet, "/v1/teams", member, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: expected 401, got %d", w.Code)
	}

	ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{UserID: "u1", Roles: []auth.SystemRole{auth.RoleManager}})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r.WithContext(ctx))
	if w.Code != http.StatusForbidden {
		t.Fatalf("manager: expected 403, got %d", w.Code)
	}

	ctx = auth.ContextWithPrincipal(r.Context(), auth.Principal{UserID: "u1", Roles: []auth.SystemRole{auth.RoleAdmin}})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r.WithContext(ctx))
	if w.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", w.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"Bearer  abc123 ", "abc123", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Basic abc123", "", false},
		{"abc123", "", false},
	}
	for _, c := range cases {
		got, err := extractBearerToken(c.header)
		if c.ok && (err != nil || got != c.want) {
			t.Fatalf("%q: got %q, %v", c.header, got, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("%q: expected error", c.header)
		}
	}
}
