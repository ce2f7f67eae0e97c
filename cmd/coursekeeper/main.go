package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/coursekeeper/coursekeeper/internal/accounts"
	"github.com/coursekeeper/coursekeeper/internal/app"
	"github.com/coursekeeper/coursekeeper/internal/attendance"
	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/courses"
	"github.com/coursekeeper/coursekeeper/internal/employees"
	"github.com/coursekeeper/coursekeeper/internal/groups"
	"github.com/coursekeeper/coursekeeper/internal/observability"
	"github.com/coursekeeper/coursekeeper/internal/platform/db"
	"github.com/coursekeeper/coursekeeper/internal/students"
	"github.com/coursekeeper/coursekeeper/internal/submissions"
	"github.com/coursekeeper/coursekeeper/internal/tasks"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		MaxConnLifetime: cfg.PGConnLifetime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authnStore := authn.NewPGStore(pool)
	lastSeen := authn.NewRedisLastSeen(redisClient, 30*24*time.Hour)
	authnService := authn.NewService(authnStore, lastSeen)

	resolver := authz.NewResolver(authz.NewPGStore(pool))

	employeesService := employees.NewService(employees.NewRepository(pool), resolver)
	employeesHandler := employees.NewHandler(logger, employeesService)

	groupsService := groups.NewService(groups.NewRepository(pool))
	groupsHandler := groups.NewHandler(logger, groupsService)

	studentsService := students.NewService(students.NewRepository(pool), resolver)
	studentsHandler := students.NewHandler(logger, studentsService)

	coursesService := courses.NewService(courses.NewRepository(pool), resolver)
	coursesHandler := courses.NewHandler(logger, coursesService)

	tasksService := tasks.NewService(tasks.NewRepository(pool), resolver)
	tasksHandler := tasks.NewHandler(logger, tasksService)

	submissionsService := submissions.NewService(submissions.NewRepository(pool), resolver)
	submissionsHandler := submissions.NewHandler(logger, submissionsService)

	attendanceService := attendance.NewService(attendance.NewRepository(pool), resolver)
	attendanceHandler := attendance.NewHandler(logger, attendanceService)

	accountsService := accounts.NewService(accounts.NewRepository(pool), resolver)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Authn:              authnService,
		Metrics:            metrics,
		EmployeesHandler:   employeesHandler,
		GroupsHandler:      groupsHandler,
		StudentsHandler:    studentsHandler,
		CoursesHandler:     coursesHandler,
		TasksHandler:       tasksHandler,
		SubmissionsHandler: submissionsHandler,
		AttendanceHandler:  attendanceHandler,
		AccountsHandler:    accountsHandler,
		Pool:               pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
