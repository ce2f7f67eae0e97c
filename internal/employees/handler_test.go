package employees

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekeeper/coursekeeper/internal/authn"
)

func newTestRouter(svc *Service) chi.Router {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router chi.Router, p authn.Principal, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(authn.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndGet(t *testing.T) {
	svc, _ := setup()
	router := newTestRouter(svc)

	rec := doRequest(t, router, admin(), http.MethodPost, "/employees",
		`{"first_name":"Ada","last_name":"Lovelace","department":"CS"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first_name":"Ada"`)

	rec = doRequest(t, router, headman(5), http.MethodGet, "/employees/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerStatusMapping(t *testing.T) {
	svc, repo := setup()
	repo.employees[1] = &Employee{ID: 1, FirstName: "Ada", LastName: "Lovelace", Department: "CS"}
	repo.ownedCourses[1] = 1
	router := newTestRouter(svc)
	teacher := authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: 1}

	rec := doRequest(t, router, authn.Anonymous(), http.MethodGet, "/employees/1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = doRequest(t, router, teacher, http.MethodDelete, "/employees/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, admin(), http.MethodGet, "/employees/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, admin(), http.MethodDelete, "/employees/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, admin(), http.MethodPost, "/employees", `{"first_name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, admin(), http.MethodGet, "/employees/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, admin(), http.MethodPost, "/employees",
		`{"first_name":"Ada","last_name":"Lovelace","department":"CS"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
