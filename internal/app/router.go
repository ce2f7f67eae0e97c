package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekeeper/coursekeeper/internal/accounts"
	"github.com/coursekeeper/coursekeeper/internal/attendance"
	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/courses"
	"github.com/coursekeeper/coursekeeper/internal/employees"
	"github.com/coursekeeper/coursekeeper/internal/groups"
	"github.com/coursekeeper/coursekeeper/internal/observability"
	"github.com/coursekeeper/coursekeeper/internal/students"
	"github.com/coursekeeper/coursekeeper/internal/submissions"
	"github.com/coursekeeper/coursekeeper/internal/tasks"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Authn   *authn.Service
	Metrics *observability.Metrics

	EmployeesHandler   *employees.Handler
	GroupsHandler      *groups.Handler
	StudentsHandler    *students.Handler
	CoursesHandler     *courses.Handler
	TasksHandler       *tasks.Handler
	SubmissionsHandler *submissions.Handler
	AttendanceHandler  *attendance.Handler
	AccountsHandler    *accounts.Handler

	Pool *pgxpool.Pool
}

// NewRouter constructs the chi.Router with coursekeeper defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Authn:   params.Authn,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		params.EmployeesHandler.MountRoutes(r)
		params.GroupsHandler.MountRoutes(r)
		params.StudentsHandler.MountRoutes(r)
		params.CoursesHandler.MountRoutes(r)
		params.TasksHandler.MountRoutes(r)
		params.SubmissionsHandler.MountRoutes(r)
		params.AttendanceHandler.MountRoutes(r)
		params.AccountsHandler.MountRoutes(r)
	})

	return r
}
