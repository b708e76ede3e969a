package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/order-engine/internal/checkout"
	"github.com/safar/order-engine/internal/models"
	"github.com/safar/order-engine/internal/observability"
	"go.uber.org/zap"
)

// OrderPlacer is the storefront side of the checkout service.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*checkout.PlaceOrderResult, error)
	CheckEligibility(ctx context.Context, ip string) error
}

type orderHandlers struct {
	placer   OrderPlacer
	throttle *placementThrottle
}

func (h *orderHandlers) Routes(r chi.Router) {
	r.Post("/", h.placeOrder)
	r.Get("/eligibility", h.eligibility)
}

type placeOrderRequest struct {
	CustomerName    string              `json:"customerName"`
	CustomerPhone   string              `json:"customerPhone"`
	CustomerEmail   *string             `json:"customerEmail"`
	ShippingAddress string              `json:"shippingAddress"`
	ShippingZone    string              `json:"shippingZone"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentSender   *string             `json:"paymentSender"`
	PaymentTrxID    *string             `json:"paymentTrxId"`
	CouponCode      string              `json:"couponCode"`
	Items           []checkout.CartLine `json:"items"`
}

type placeOrderResponse struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Subtotal    string `json:"subtotal"`
	Discount    string `json:"discount"`
	Shipping    string `json:"shipping"`
	Total       string `json:"total"`
}

type placementError struct {
	Error                    string `json:"error"`
	Code                     string `json:"code,omitempty"`
	CooldownRemainingSeconds int    `json:"cooldownRemainingSeconds,omitempty"`
	CooldownMinutes          int    `json:"cooldownMinutes,omitempty"`
}

type eligibilityResponse struct {
	Allowed                  bool   `json:"allowed"`
	Code                     string `json:"code,omitempty"`
	Error                    string `json:"error,omitempty"`
	CooldownRemainingSeconds int    `json:"cooldownRemainingSeconds,omitempty"`
	CooldownMinutes          int    `json:"cooldownMinutes,omitempty"`
}

func (h *orderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ip := originIP(r)
	if ok, wait := h.throttle.Admit(ip); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		respondJSON(w, r, http.StatusTooManyRequests, placementError{Error: "too many order attempts, slow down"})
		return
	}

	userID, err := userIDFromHeader(r)
	if err != nil {
		respondJSON(w, r, http.StatusBadRequest, placementError{Error: err.Error()})
		return
	}

	var body placeOrderRequest
	if err := decodeJSON(r, &body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondJSON(w, r, status, placementError{Error: err.Error()})
		return
	}

	result, err := h.placer.PlaceOrder(r.Context(), checkout.PlaceOrderRequest{
		UserID:          userID,
		CustomerName:    body.CustomerName,
		CustomerPhone:   body.CustomerPhone,
		CustomerEmail:   body.CustomerEmail,
		ShippingAddress: body.ShippingAddress,
		ShippingZone:    models.ShippingZone(body.ShippingZone),
		PaymentMethod:   body.PaymentMethod,
		PaymentSender:   body.PaymentSender,
		PaymentTrxID:    body.PaymentTrxID,
		CouponCode:      body.CouponCode,
		Items:           body.Items,
		IPAddress:       ip,
	})
	if err != nil {
		h.writePlacementError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, placeOrderResponse{
		OrderID:     result.OrderID,
		OrderNumber: result.OrderNumber,
		Subtotal:    result.Totals.Subtotal.StringFixed(2),
		Discount:    result.Totals.Discount.StringFixed(2),
		Shipping:    result.Totals.Shipping.StringFixed(2),
		Total:       result.Totals.Total.StringFixed(2),
	})
}

func (h *orderHandlers) eligibility(w http.ResponseWriter, r *http.Request) {
	err := h.placer.CheckEligibility(r.Context(), originIP(r))
	if err == nil {
		respondJSON(w, r, http.StatusOK, eligibilityResponse{Allowed: true})
		return
	}

	var cerr *checkout.Error
	if !errors.As(err, &cerr) || cerr.Code == checkout.CodeStoreUnavailable {
		h.writePlacementError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, eligibilityResponse{
		Allowed:                  false,
		Code:                     string(cerr.Code),
		Error:                    cerr.Message,
		CooldownRemainingSeconds: cerr.CooldownRemainingSeconds,
		CooldownMinutes:          cerr.CooldownMinutes,
	})
}

func (h *orderHandlers) writePlacementError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *checkout.Error
	if !errors.As(err, &cerr) {
		observability.FromContext(r.Context()).Error("unexpected placement error", zap.Error(err))
		respondJSON(w, r, http.StatusInternalServerError, placementError{Error: "internal error"})
		return
	}

	resp := placementError{Error: cerr.Message}
	switch cerr.Code {
	case checkout.CodeCooldown:
		resp.Code = string(cerr.Code)
		resp.CooldownRemainingSeconds = cerr.CooldownRemainingSeconds
		resp.CooldownMinutes = cerr.CooldownMinutes
		w.Header().Set("Retry-After", strconv.Itoa(cerr.CooldownRemainingSeconds))
	case checkout.CodeIPBanned:
		resp.Code = string(cerr.Code)
	}

	respondJSON(w, r, placementStatus(cerr.Code), resp)
}

func placementStatus(code checkout.Code) int {
	switch code {
	case checkout.CodeValidation:
		return http.StatusBadRequest
	case checkout.CodeNotFound:
		return http.StatusNotFound
	case checkout.CodeInactive, checkout.CodeVariantNotFound, checkout.CodeInsufficientStock:
		return http.StatusConflict
	case checkout.CodeIPBanned:
		return http.StatusForbidden
	case checkout.CodeCooldown:
		return http.StatusTooManyRequests
	case checkout.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
