package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/lifecycle"
	"github.com/safar/order-engine/internal/models"
	"github.com/safar/order-engine/internal/observability"
	"github.com/safar/order-engine/internal/store"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// OrderAdmin is the staff side of the order lifecycle.
type OrderAdmin interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter store.OrderFilter, cursor string, limit int) (*store.CursorPage, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	VerifyPayment(ctx context.Context, id int64) (*models.Order, error)
	RejectPayment(ctx context.Context, id int64, reason string) (*models.Order, error)
	Delete(ctx context.Context, id int64) error
}

type adminOrderHandlers struct {
	admin OrderAdmin
	token string
}

func (h *adminOrderHandlers) Routes(r chi.Router) {
	r.Use(h.requireToken)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.updateStatus)
	r.Post("/{id}/payment/verify", h.verifyPayment)
	r.Post("/{id}/payment/reject", h.rejectPayment)
	r.Delete("/{id}", h.delete)
}

func (h *adminOrderHandlers) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
				respondError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *adminOrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := defaultListLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	filter := store.OrderFilter{
		IPAddress: strings.TrimSpace(query.Get("ip")),
		Status:    strings.ToLower(strings.TrimSpace(query.Get("status"))),
	}
	if raw := query.Get("user_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "user_id must be a positive integer")
			return
		}
		filter.UserID = &id
	}

	page, err := h.admin.ListOrders(r.Context(), filter, query.Get("cursor"), limit)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

func (h *adminOrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.admin.GetOrder(r.Context(), id)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func (h *adminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.admin.UpdateStatus(r.Context(), id, strings.ToLower(strings.TrimSpace(body.Status)))
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func (h *adminOrderHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.admin.VerifyPayment(r.Context(), id)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func (h *adminOrderHandlers) rejectPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	// The reason is optional, so an empty body is accepted.
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	order, err := h.admin.RejectPayment(r.Context(), id, body.Reason)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func (h *adminOrderHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.admin.Delete(r.Context(), id); err != nil {
		writeAdminError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrOrderNotFound):
		respondError(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, lifecycle.ErrInvalidStatus), errors.Is(err, store.ErrInvalidCursor):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrPaymentNotVerifiable):
		respondError(w, r, http.StatusConflict, err.Error())
	case database.IsRetryable(err), errors.Is(err, database.ErrRetriesExhausted):
		respondError(w, r, http.StatusServiceUnavailable, "the store is temporarily unavailable, please try again")
	default:
		observability.FromContext(r.Context()).Error("admin order operation failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}
