package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/opsboard/opsboard/testing"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		h.MountPublic(r)
		r.Group(func(r chi.Router) {
			r.Use(Middleware(svc, nil))
			h.MountProtected(r)
		})
	})
	r.With(Middleware(svc, nil), RequireAdmin).Get("/admin", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func login(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerLoginMeLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	router := newTestRouter(svc)

	rr := login(t, router, `{"email":"admin@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, me)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "admin@example.com")

	admin := httptest.NewRequest(http.MethodGet, "/admin", nil)
	admin.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, admin)
	assert.Equal(t, http.StatusOK, rr.Code)

	out := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	out.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, out)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, me)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerLoginValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	router := newTestRouter(svc)

	rr := login(t, router, `{"email":"not-an-email","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Email":"email"`)

	rr = login(t, router, `{"email":"admin@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareRequiresBearer(t *testing.T) {
	svc, _, _ := newTestService(t)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req.Header.Set("Authorization", "Basic abc")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAdminForbidsUsers(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.users[2].IsActive = true
	router := newTestRouter(svc)

	rr := login(t, router, `{"email":"idle@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
