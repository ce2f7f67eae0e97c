package submissions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/platform/httpx"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Handler wires submission HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers submission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/submissions", h.list)
	r.Post("/submissions", h.create)
	r.Get("/submissions/{id}", h.get)
	r.Put("/submissions/{id}", h.update)
	r.Delete("/submissions/{id}", h.delete)
}

type createSubmissionRequest struct {
	TaskID    int64  `json:"task_id" validate:"required,gt=0"`
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Text      string `json:"text" validate:"max=10000"`
	Grade     *int   `json:"grade" validate:"omitempty,gte=0,lte=100"`
}

type updateSubmissionRequest struct {
	TaskID    int64  `json:"task_id" validate:"omitempty,gt=0"`
	StudentID int64  `json:"student_id" validate:"omitempty,gt=0"`
	Text      string `json:"text" validate:"max=10000"`
	Grade     *int   `json:"grade" validate:"omitempty,gte=0,lte=100"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(r.URL.Query().Get("task_id"), 10, 64)
	if err != nil || taskID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "task_id query parameter is required")
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	result, err := h.service.ListByTask(r.Context(), principal, taskID)
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
	submission, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submission)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	submission, err := h.service.Create(r.Context(), principal, Submission{
		TaskID:    req.TaskID,
		StudentID: req.StudentID,
		Text:      req.Text,
		Grade:     req.Grade,
	})
	if err != nil {
		h.logger.Info("create submission failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, submission)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateSubmissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	submission, err := h.service.Update(r.Context(), principal, Submission{
		ID:        id,
		TaskID:    req.TaskID,
		StudentID: req.StudentID,
		Text:      req.Text,
		Grade:     req.Grade,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submission)
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
