package authz

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/shared"
)

func newTestRouter(store *memoryStore) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewResolver(store))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doAs(t *testing.T, router http.Handler, userID uuid.UUID, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess := &shared.Session{}
	sess.SetUser(userID)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckEndpointAnswersOrgScope(t *testing.T) {
	store := newMemoryStore()
	user := uuid.New()
	org := uuid.New()
	store.orgMembers[memberKey{user, org}] = &Membership{
		RoleName:    "VIEWER",
		Permissions: permSet(permissions.ViewProject),
	}
	router := newTestRouter(store)

	rec := doAs(t, router, user, "/permissions/check?permission="+permissions.ViewProject+"&orgId="+org.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body["hasPermission"])

	rec = doAs(t, router, user, "/permissions/check?permission="+permissions.DeleteProject+"&orgId="+org.String())
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body["hasPermission"])
}

func TestCheckEndpointPrefersProjectScope(t *testing.T) {
	store := newMemoryStore()
	user := uuid.New()
	org := uuid.New()
	project := uuid.New()
	store.projectOrg[project] = org
	store.orgMembers[memberKey{user, org}] = &Membership{
		RoleName:    "ORG_ADMIN",
		Permissions: permSet(permissions.EditProject),
	}
	store.projMembers[memberKey{user, project}] = &ProjectMembership{
		Membership: Membership{RoleName: "VIEWER", Permissions: permSet(permissions.ViewProject)},
	}
	router := newTestRouter(store)

	rec := doAs(t, router, user, "/permissions/check?permission="+permissions.EditProject+"&orgId="+org.String()+"&projectId="+project.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body["hasPermission"], "explicit project membership answers, not the org role")
}

func TestCheckEndpointRequiresScope(t *testing.T) {
	router := newTestRouter(newMemoryStore())
	rec := doAs(t, router, uuid.New(), "/permissions/check?permission="+permissions.ViewProject)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckEndpointRejectsAnonymous(t *testing.T) {
	router := newTestRouter(newMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/permissions/check?permission=X&orgId="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessEndpointReachesTasks(t *testing.T) {
	store := newMemoryStore()
	creator := uuid.New()
	task := uuid.New()
	project := uuid.New()
	store.tasks[task] = TaskRef{ProjectID: project, CreatorID: creator}
	router := newTestRouter(store)

	rec := doAs(t, router, creator, "/permissions/access?resourceType=task&resourceId="+task.String()+"&permission="+permissions.DeleteTask)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body["canAccess"])
}

func TestAccessEndpointRejectsUnknownType(t *testing.T) {
	router := newTestRouter(newMemoryStore())
	rec := doAs(t, router, uuid.New(), "/permissions/access?resourceType=workspace&resourceId="+uuid.NewString()+"&permission=X")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleEndpoint(t *testing.T) {
	store := newMemoryStore()
	user := uuid.New()
	org := uuid.New()
	store.orgMembers[memberKey{user, org}] = &Membership{RoleName: "MEMBER", Permissions: permSet()}
	router := newTestRouter(store)

	rec := doAs(t, router, user, "/permissions/role?orgId="+org.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]*string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body["role"])
	require.Equal(t, "MEMBER", *body["role"])

	rec = doAs(t, router, uuid.New(), "/permissions/role?orgId="+org.String())
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body["role"])
}

func TestEffectiveEndpointAppliesOverrides(t *testing.T) {
	store := newMemoryStore()
	user := uuid.New()
	org := uuid.New()
	project := uuid.New()
	store.projectOrg[project] = org
	store.orgMembers[memberKey{user, org}] = &Membership{
		RoleName:    "MEMBER",
		Permissions: permSet(permissions.ViewProject, permissions.CommentTask),
	}
	store.projMembers[memberKey{user, project}] = &ProjectMembership{
		Membership: Membership{RoleName: "VIEWER", Permissions: permSet(permissions.ViewProject)},
		Overrides:  map[string]bool{permissions.CommentTask: false, permissions.EditProject: true},
	}
	router := newTestRouter(store)

	rec := doAs(t, router, user, "/permissions/effective?orgId="+org.String()+"&projectId="+project.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{permissions.EditProject, permissions.ViewProject}, body["permissions"])
}
