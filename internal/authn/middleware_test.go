package authn_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekeeper/coursekeeper/internal/authn"
)

func newMiddlewareHandler(t *testing.T) (http.Handler, *authn.Principal) {
	t.Helper()
	store := &stubStore{
		accounts: map[string]*authn.Account{
			"root": {ID: 1, Username: "root", PasswordHash: hash(t, "rootpass"), Role: authn.RoleAdmin},
		},
		tokens: map[string]*authn.CourseToken{
			"opaque-token": {ID: 1, CourseID: 42, Token: "opaque-token"},
		},
	}
	service := authn.NewService(store, nil)

	var captured authn.Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = authn.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return authn.Middleware(service, nil)(inner), &captured
}

func TestMiddlewareBasicCredentials(t *testing.T) {
	handler, captured := newMiddlewareHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	req.SetBasicAuth("root", "rootpass")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, captured.IsUser())
	assert.Equal(t, authn.RoleAdmin, captured.Role)
}

func TestMiddlewareBearerToken(t *testing.T) {
	handler, captured := newMiddlewareHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/42", nil)
	req.Header.Set("Authorization", "Bearer opaque-token")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, captured.IsToken())
	assert.Equal(t, int64(42), captured.BoundCourseID)
}

func TestMiddlewareNoCredentialsIsAnonymous(t *testing.T) {
	handler, captured := newMiddlewareHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, captured.IsAnonymous())
}

func TestMiddlewareRejectsBadCredentials(t *testing.T) {
	handler, _ := newMiddlewareHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	req.SetBasicAuth("root", "wrong")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	req.Header.Set("Authorization", "Bearer stale")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// Unknown credential forms are rejected, not treated as anonymous.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	req.Header.Set("Authorization", "Digest nope")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
