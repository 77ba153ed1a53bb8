package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beacon-sis/beacon/internal/platform/httpx"
	"github.com/beacon-sis/beacon/internal/shared"
)

type guard interface {
	RequireAny(perms ...string) func(http.Handler) http.Handler
}

type Handler struct {
	service *Service
	guard   guard
}

func NewHandler(service *Service, guard guard) *Handler {
	return &Handler{service: service, guard: guard}
}

func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermReportsView))
		r.Get("/reports/collections", h.collections)
		r.Get("/reports/outstanding/{year}", h.outstanding)
	})
}

func (h *Handler) collections(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
		return
	}
	// The range is inclusive of the end day.
	collections, err := h.service.DailyCollections(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"collections": collections})
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	outstanding, err := h.service.OutstandingByClass(r.Context(), chi.URLParam(r, "year"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"outstanding": outstanding})
}
