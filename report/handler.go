package report

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/beacon-sis/beacon/internal/platform/httpx"
	"github.com/beacon-sis/beacon/internal/shared"
)

type guard interface {
	RequireAny(perms ...string) func(http.Handler) http.Handler
}

// Handler serves receipt PDFs.
type Handler struct {
	client    *Client
	assembler *Assembler
	guard     guard
	logger    *slog.Logger
}

func NewHandler(client *Client, assembler *Assembler, guard guard, logger *slog.Logger) *Handler {
	return &Handler{client: client, assembler: assembler, guard: guard, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermFeesView, shared.PermFeesCollect))
		r.Get("/fees/payments/{id}/receipt.pdf", h.receiptPDF)
	})
}

func (h *Handler) receiptPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transaction id must be numeric")
		return
	}
	data, err := h.assembler.ReceiptData(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := RenderReceiptHTML(*data)
	if err != nil {
		h.logger.Error("render receipt html", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render receipt pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Renderer Unavailable", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename=receipt-`+data.ReceiptNumber+`.pdf`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
