package students

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/beacon-sis/beacon/internal/platform/httpx"
	"github.com/beacon-sis/beacon/internal/shared"
)

type guard interface {
	RequireAny(perms ...string) func(http.Handler) http.Handler
}

type Handler struct {
	service  *Service
	guard    guard
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, guard guard, logger *slog.Logger) *Handler {
	return &Handler{service: service, guard: guard, validate: validator.New(), logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermStudentsView, shared.PermStudentsEdit))
		r.Get("/students", h.search)
		r.Get("/students/{id}", h.get)
		r.Get("/classes", h.listClasses)
		r.Get("/classes/{id}/students", h.listByClass)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermStudentsEdit))
		r.Post("/students", h.enroll)
		r.Put("/students/{id}", h.update)
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.NewPagination(page, perPage, 0)

	found, err := h.service.Search(r.Context(), query, p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"students": found, "page": p.Page, "per_page": p.PerPage})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (h *Handler) listByClass(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	roster, err := h.service.ListByClass(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"students": roster})
}

type enrollRequest struct {
	AdmissionNo    string `json:"admission_no" validate:"required,max=32"`
	FullName       string `json:"full_name" validate:"required,max=120"`
	ClassID        int64  `json:"class_id" validate:"required,gt=0"`
	GuardianName   string `json:"guardian_name" validate:"max=120"`
	GuardianPhone  string `json:"guardian_phone" validate:"max=20"`
	GuardianEmail  string `json:"guardian_email" validate:"omitempty,email"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var enrolled time.Time
	if req.EnrollmentDate != "" {
		enrolled, _ = time.Parse("2006-01-02", req.EnrollmentDate)
	}
	st, err := h.service.Enroll(r.Context(), Student{
		AdmissionNo:    req.AdmissionNo,
		FullName:       req.FullName,
		ClassID:        req.ClassID,
		GuardianName:   req.GuardianName,
		GuardianPhone:  req.GuardianPhone,
		GuardianEmail:  req.GuardianEmail,
		EnrollmentDate: enrolled,
	})
	if err != nil {
		h.logger.Warn("enroll student failed", "admission_no", req.AdmissionNo, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, st)
}

type updateRequest struct {
	FullName      string `json:"full_name" validate:"required,max=120"`
	ClassID       int64  `json:"class_id" validate:"required,gt=0"`
	GuardianName  string `json:"guardian_name" validate:"max=120"`
	GuardianPhone string `json:"guardian_phone" validate:"max=20"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	st, err := h.service.Update(r.Context(), Student{
		ID:            id,
		FullName:      req.FullName,
		ClassID:       req.ClassID,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		GuardianEmail: req.GuardianEmail,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
