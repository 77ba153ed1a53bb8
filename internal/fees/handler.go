package fees

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
		r.Use(h.guard.RequireAny(shared.PermFeesView, shared.PermFeesCollect))
		r.Get("/fees/structures/{classID}/{year}", h.listForClass)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermFeesCollect))
		r.Put("/fees/structures", h.setStructure)
		r.Delete("/fees/structures/{id}", h.deleteStructure)
		r.Put("/fees/due-date", h.setDueDate)
	})
}

func (h *Handler) listForClass(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseInt(chi.URLParam(r, "classID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "class id must be numeric")
		return
	}
	structures, err := h.service.ListForClass(r.Context(), classID, chi.URLParam(r, "year"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"structures": structures})
}

type setStructureRequest struct {
	ClassID      int64   `json:"class_id" validate:"required,gt=0"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	Name         string  `json:"name" validate:"required,max=80"`
	Amount       float64 `json:"amount" validate:"gte=0"`
}

func (h *Handler) setStructure(w http.ResponseWriter, r *http.Request) {
	var req setStructureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fs, err := h.service.SetStructure(r.Context(), FeeStructure{
		ClassID:      req.ClassID,
		AcademicYear: req.AcademicYear,
		Name:         req.Name,
		Amount:       req.Amount,
	})
	if err != nil {
		h.logger.Warn("set fee structure failed", "class_id", req.ClassID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fs)
}

func (h *Handler) deleteStructure(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be numeric")
		return
	}
	if err := h.service.DeleteStructure(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type setDueDateRequest struct {
	AcademicYear string `json:"academic_year" validate:"required"`
	DueDate      string `json:"due_date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) setDueDate(w http.ResponseWriter, r *http.Request) {
	var req setDueDateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
		return
	}
	if err := h.service.SetDueDate(r.Context(), req.AcademicYear, due); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
