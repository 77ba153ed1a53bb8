package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/beacon-sis/beacon/internal/observability"
	"github.com/beacon-sis/beacon/internal/platform/httpx"
	"github.com/beacon-sis/beacon/internal/shared"
)

// ReceiptNotifier enqueues the post-payment receipt email. Nil disables it.
type ReceiptNotifier interface {
	EnqueueReceiptEmail(ctx context.Context, transactionID int64) error
}

type guard interface {
	RequireAny(perms ...string) func(http.Handler) http.Handler
}

type Handler struct {
	service  *Service
	guard    guard
	metrics  *observability.Metrics
	notifier ReceiptNotifier
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, guard guard, metrics *observability.Metrics, notifier ReceiptNotifier, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		guard:    guard,
		metrics:  metrics,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermFeesView, shared.PermFeesCollect))
		r.Get("/fees/accounts/{studentID}/{year}", h.getAccount)
		r.Get("/fees/accounts/{studentID}/{year}/transactions", h.listTransactions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermFeesCollect))
		r.Post("/fees/payments", h.recordPayment)
		r.Post("/fees/accounts/sync", h.syncAccounts)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermFeesReverse))
		r.Delete("/fees/payments/{id}", h.deletePayment)
	})
}

type recordPaymentRequest struct {
	StudentID    int64    `json:"student_id" validate:"required,gt=0"`
	AcademicYear string   `json:"academic_year" validate:"required"`
	Amount       float64  `json:"amount" validate:"required,gt=0"`
	PaymentMode  string   `json:"payment_mode" validate:"required,oneof=cash upi bank_transfer cheque online"`
	PaymentFor   string   `json:"payment_for" validate:"max=120"`
	PaidMonths   []string `json:"paid_months" validate:"max=12,dive,max=20"`
	Remarks      string   `json:"remarks" validate:"max=500"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	receipt, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		StudentID:    req.StudentID,
		AcademicYear: req.AcademicYear,
		Amount:       req.Amount,
		Mode:         PaymentMode(req.PaymentMode),
		PaymentFor:   req.PaymentFor,
		PaidMonths:   req.PaidMonths,
		Remarks:      req.Remarks,
		RecordedBy:   actorID(r),
	})
	if err != nil {
		h.logger.Warn("record payment failed", "student_id", req.StudentID, "error", err)
		httpx.RespondError(w, err)
		return
	}

	h.metrics.PaymentRecorded(req.PaymentMode, req.Amount)
	if h.notifier != nil {
		if err := h.notifier.EnqueueReceiptEmail(r.Context(), receipt.TransactionID); err != nil {
			h.logger.Warn("enqueue receipt email failed", "transaction_id", receipt.TransactionID, "error", err)
		}
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"transaction_id": receipt.TransactionID,
		"receipt_number": receipt.ReceiptNumber,
		"new_balance":    receipt.NewBalance,
		"new_status":     receipt.NewStatus,
	})
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transaction id must be numeric")
		return
	}
	acct, err := h.service.DeletePayment(r.Context(), id, actorID(r))
	if err != nil {
		h.logger.Warn("delete payment failed", "transaction_id", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PaymentReversed()
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "account": acct})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	studentID, year, ok := accountParams(w, r)
	if !ok {
		return
	}
	acct, err := h.service.GetAccount(r.Context(), studentID, year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	studentID, year, ok := accountParams(w, r)
	if !ok {
		return
	}
	txns, err := h.service.ListTransactions(r.Context(), studentID, year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

type syncAccountsRequest struct {
	ClassID      int64  `json:"class_id" validate:"required,gt=0"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

func (h *Handler) syncAccounts(w http.ResponseWriter, r *http.Request) {
	var req syncAccountsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.SyncClassAccounts(r.Context(), req.ClassID, req.AcademicYear, actorID(r))
	if err != nil {
		h.logger.Warn("sync class accounts failed", "class_id", req.ClassID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "created": created})
}

func accountParams(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "student id must be numeric")
		return 0, "", false
	}
	return studentID, chi.URLParam(r, "year"), true
}

func actorID(r *http.Request) int64 {
	return shared.CurrentUserID(r.Context())
}
