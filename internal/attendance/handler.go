package attendance

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/platform/httpx"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Handler wires attendance HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/attendance", h.list)
	r.Post("/attendance", h.create)
	r.Get("/attendance/{id}", h.get)
	r.Put("/attendance/{id}", h.update)
	r.Delete("/attendance/{id}", h.delete)
}

type createAttendanceRequest struct {
	CourseID  int64     `json:"course_id" validate:"required,gt=0"`
	StudentID int64     `json:"student_id" validate:"required,gt=0"`
	Date      time.Time `json:"date" validate:"required"`
	Class     int       `json:"class" validate:"required,gt=0"`
	Present   bool      `json:"present"`
}

type updateAttendanceRequest struct {
	CourseID  int64      `json:"course_id" validate:"omitempty,gt=0"`
	StudentID int64      `json:"student_id" validate:"omitempty,gt=0"`
	Date      *time.Time `json:"date"`
	Class     int        `json:"class" validate:"omitempty,gt=0"`
	Present   bool       `json:"present"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.URL.Query().Get("course_id"), 10, 64)
	if err != nil || courseID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "course_id query parameter is required")
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	result, err := h.service.ListByCourse(r.Context(), principal, courseID, shared.PageFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	record, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAttendanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	record, err := h.service.Create(r.Context(), principal, Record{
		CourseID:  req.CourseID,
		StudentID: req.StudentID,
		Date:      req.Date,
		Class:     req.Class,
		Present:   req.Present,
	})
	if err != nil {
		h.logger.Info("create attendance failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateAttendanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec := Record{
		ID:        id,
		CourseID:  req.CourseID,
		StudentID: req.StudentID,
		Class:     req.Class,
		Present:   req.Present,
	}
	if req.Date != nil {
		rec.Date = *req.Date
	}
	principal := authn.PrincipalFromContext(r.Context())
	record, err := h.service.Update(r.Context(), principal, rec)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrBadRequest
	}
	return id, nil
}
