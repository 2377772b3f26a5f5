package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/api/http/handlers"
	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/observability"
	"github.com/deskline/helpdesk/internal/service"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type countingEvaluator struct{ calls int }

func (e *countingEvaluator) Evaluate(context.Context) service.EvaluationReport {
	e.calls++
	return service.EvaluationReport{}
}

func newTestApp(t *testing.T) (*fiber.App, *countingEvaluator) {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	eval := &countingEvaluator{}

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", nil),
		Auth:           handlers.NewAuthHandler(nil),
		Tickets:        handlers.NewTicketsHandler(nil, nil),
		SLA:            handlers.NewSLAHandler(nil, eval),
		Notifications:  handlers.NewNotificationsHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager("test-secret", 5), nil),
		Metrics:        metrics,
		OnRequest:      EvaluateOnRequest(eval),
	})
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })
	app.Get("/validation", func(*fiber.Ctx) error {
		return apperrors.NewValidationError("bad input", map[string]any{"field": "subject"})
	})
	return app, eval
}

func decodeError(t *testing.T, app *fiber.App, method, path string, header map[string]string) (int, errorBody) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, body
}

func TestErrorRendering(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	tests := []struct {
		name       string
		method     string
		path       string
		header     map[string]string
		wantStatus int
		wantCode   string
	}{
		{"validation", "GET", "/validation", nil, 400, apperrors.CodeValidation},
		{"panic", "GET", "/boom", nil, 500, apperrors.CodeInternal},
		{"unknown route", "GET", "/nope", nil, 404, apperrors.CodeNotFound},
		{"missing token", "GET", "/api/tickets", nil, 401, apperrors.CodeUnauth},
		{"garbage token", "GET", "/api/notifications", map[string]string{"Authorization": "Bearer nope"}, 401, apperrors.CodeUnauth},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			status, body := decodeError(t, app, tt.method, tt.path, tt.header)
			if status != tt.wantStatus || body.Error.Code != tt.wantCode {
				t.Errorf("got %d/%s, want %d/%s", status, body.Error.Code, tt.wantStatus, tt.wantCode)
			}
		})
	}

	_, body := decodeError(t, app, "GET", "/validation", nil)
	if body.Error.Details["field"] != "subject" {
		t.Errorf("details: got %v, want field=subject", body.Error.Details)
	}
}

func TestRequestModeRunsBeforeAuthentication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		wantCalls int
	}{
		{"unauthenticated api call", "/api/tickets", 1},
		{"unknown api route", "/api/nope", 1},
		{"liveness", "/health/live", 0},
		{"metrics", "/metrics", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app, eval := newTestApp(t)
			if _, err := app.Test(httptest.NewRequest("GET", tt.path, nil)); err != nil {
				t.Fatalf("request: %v", err)
			}
			if eval.calls != tt.wantCalls {
				t.Errorf("evaluations: got %d, want %d", eval.calls, tt.wantCalls)
			}
		})
	}
}

func TestRoleGuards(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	setPrincipal := func(role domain.Role) fiber.Handler {
		return func(c *fiber.Ctx) error {
			auth.WithPrincipal(c, &auth.Principal{UserID: "u-1", Role: role})
			return c.Next()
		}
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Put("/agent/sla", setPrincipal(domain.RoleAgent), auth.RequireAdmin(), ok)
	app.Put("/admin/sla", setPrincipal(domain.RoleAdmin), auth.RequireAdmin(), ok)
	app.Post("/manager/evaluate", setPrincipal(domain.RoleManager), auth.RequireManagement(), ok)
	app.Patch("/customer/ticket", setPrincipal(domain.RoleCustomer), auth.RequireStaff(), ok)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"PUT", "/agent/sla", fiber.StatusForbidden},
		{"PUT", "/admin/sla", fiber.StatusNoContent},
		{"POST", "/manager/evaluate", fiber.StatusNoContent},
		{"PATCH", "/customer/ticket", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}
