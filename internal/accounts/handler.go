package accounts

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

// Handler wires account HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.list)
	r.Post("/accounts", h.create)
	r.Get("/accounts/{id}", h.get)
	r.Put("/accounts/{id}", h.update)
	r.Delete("/accounts/{id}", h.delete)
}

type createAccountRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=100"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
	Role       string `json:"role" validate:"required,oneof=ADMIN TEACHER HEADMAN"`
	EmployeeID *int64 `json:"employee_id" validate:"omitempty,gt=0"`
	StudentID  *int64 `json:"student_id" validate:"omitempty,gt=0"`
}

type updateAccountRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=100"`
	Password   *string `json:"password" validate:"omitempty,min=8,max=128"`
	Role       string  `json:"role" validate:"omitempty,oneof=ADMIN TEACHER HEADMAN"`
	EmployeeID *int64  `json:"employee_id" validate:"omitempty,gt=0"`
	StudentID  *int64  `json:"student_id" validate:"omitempty,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := authn.PrincipalFromContext(r.Context())
	result, err := h.service.List(r.Context(), principal, shared.PageFromRequest(r))
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
	account, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	account, err := h.service.Create(r.Context(), principal, Account{
		Username:   req.Username,
		Role:       authn.Role(req.Role),
		EmployeeID: req.EmployeeID,
		StudentID:  req.StudentID,
	}, req.Password)
	if err != nil {
		h.logger.Info("create account failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authn.PrincipalFromContext(r.Context())
	account, err := h.service.Update(r.Context(), principal, Account{
		ID:         id,
		Username:   req.Username,
		Role:       authn.Role(req.Role),
		EmployeeID: req.EmployeeID,
		StudentID:  req.StudentID,
	}, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
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
