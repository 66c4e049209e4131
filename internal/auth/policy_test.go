package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/northwind-service/internal/domain"
	apperrors "github.com/spec-kit/northwind-service/pkg/util/errorutil"
)

func identityWith(roles ...string) *domain.Identity {
	return &domain.Identity{Subject: "tester", Roles: roles}
}

func TestPolicy_DecideDefaultRules(t *testing.T) {
	policy := NewPolicy(DefaultRules(), nil)

	tests := []struct {
		name     string
		method   string
		path     string
		identity *domain.Identity
		want     error
	}{
		{"login is public", http.MethodPost, "/api/auth/login", nil, nil},
		{"refresh route is public", http.MethodPost, "/api/auth/refresh", nil, nil},
		{"GET on auth is not public", http.MethodGet, "/api/auth/login", nil, ErrUnauthenticated},
		{"product listing is public", http.MethodGet, "/api/products", nil, nil},
		{"product detail is public", http.MethodGet, "/api/products/7", nil, nil},
		{"category listing is public", http.MethodGet, "/api/categories", nil, nil},
		{"supplier listing is public", http.MethodGet, "/api/suppliers/3", nil, nil},
		{"product write needs identity", http.MethodPost, "/api/products", nil, ErrUnauthenticated},
		{"product write with any identity", http.MethodPost, "/api/products", identityWith("GUEST"), nil},
		{"customers anonymous", http.MethodGet, "/api/customers", nil, ErrUnauthenticated},
		{"customers guest", http.MethodGet, "/api/customers", identityWith("GUEST"), ErrForbidden},
		{"customers staff", http.MethodGet, "/api/customers", identityWith(domain.RoleStaff), nil},
		{"orders admin", http.MethodGet, "/api/orders/10248", identityWith(domain.RoleAdmin), nil},
		{"employees mixed roles", http.MethodGet, "/api/employees", identityWith("GUEST", domain.RoleStaff), nil},
		{"health is public", http.MethodGet, "/health/live", nil, nil},
		{"actuator anonymous", http.MethodGet, "/actuator/metrics", nil, ErrUnauthenticated},
		{"actuator staff", http.MethodGet, "/actuator/metrics", identityWith(domain.RoleStaff), ErrForbidden},
		{"actuator admin", http.MethodDelete, "/actuator/ratelimit", identityWith(domain.RoleAdmin), nil},
		{"unknown anonymous", http.MethodGet, "/api/cart", nil, ErrUnauthenticated},
		{"unknown authenticated", http.MethodPut, "/api/cart/1", identityWith("GUEST"), nil},
		{"case-insensitive path", http.MethodGet, "/API/Customers", identityWith("GUEST"), ErrForbidden},
		{"trailing slash", http.MethodGet, "/api/customers/", nil, ErrUnauthenticated},
		{"lookalike prefix not matched", http.MethodGet, "/api/productsecret", nil, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Decide(tt.method, tt.path, tt.identity)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	policy := NewPolicy([]Rule{
		{Patterns: []string{"/admin/public"}, Requirement: Public()},
		{Patterns: []string{"/admin/**"}, Requirement: AnyRole(domain.RoleAdmin)},
		{Patterns: []string{"/admin/public"}, Requirement: AnyRole("NOBODY")},
	}, nil)

	assert.NoError(t, policy.Decide(http.MethodGet, "/admin/public", nil))
	assert.ErrorIs(t, policy.Decide(http.MethodGet, "/admin/other", nil), ErrUnauthenticated)
	assert.Equal(t, RequireAuthenticated, policy.Match(http.MethodGet, "/elsewhere").Kind)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("/api/products/**", "/api/products"))
	assert.True(t, matchPattern("/api/products/**", "/api/products/1/reviews"))
	assert.False(t, matchPattern("/api/products/**", "/api/product"))
	assert.True(t, matchPattern("/**", "/anything"))
	assert.True(t, matchPattern("/health/live", "/health/live"))
	assert.False(t, matchPattern("/health/live", "/health/live/x"))
}

// gatedApp wires gate and policy in front of a trivial handler.
func gatedApp(t *testing.T, tokens *TokenService) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return c.Status(domainErr.HTTPStatus).SendString(domainErr.Message)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Use(NewGate(tokens, nil).Handle)
	app.Use(NewPolicy(DefaultRules(), nil).Handle)

	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/api/products", ok)
	app.Get("/api/customers", ok)
	return app
}

func doGet(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestPolicyHandle_StaffOrAdminRoute(t *testing.T) {
	tokens := newTestTokenService(t, &fakeClock{now: time.Now()})
	app := gatedApp(t, tokens)

	resp := doGet(t, app, "/api/customers", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	guest, err := tokens.Issue("guest", []string{"GUEST"}, time.Hour)
	require.NoError(t, err)
	resp = doGet(t, app, "/api/customers", guest)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, role := range []string{domain.RoleStaff, domain.RoleAdmin} {
		token, err := tokens.Issue("worker", []string{role}, time.Hour)
		require.NoError(t, err)
		resp = doGet(t, app, "/api/customers", token)
		assert.Equal(t, http.StatusOK, resp.StatusCode, role)
	}
}

func TestPolicyHandle_PublicRouteWithoutHeader(t *testing.T) {
	tokens := newTestTokenService(t, &fakeClock{now: time.Now()})
	app := gatedApp(t, tokens)

	resp := doGet(t, app, "/api/products", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPolicyHandle_ObservesOutcomes(t *testing.T) {
	observer := &recordingObserver{}
	app := fiber.New()
	app.Use(NewPolicy(nil, observer).Handle)
	app.Get("/api/products", func(c *fiber.Ctx) error { return c.SendString("ok") })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/customers", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"allowed", "unauthenticated"}, observer.outcomes)
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveAuthDecision(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}
