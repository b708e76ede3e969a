package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/metrics"
	"github.com/safar/order-engine/internal/models"
	"github.com/safar/order-engine/internal/settings"
	"github.com/safar/order-engine/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultOrderNumberBase  = 2000
	defaultMaxAttempts      = 5
	defaultPlacementTimeout = 30 * time.Second
)

// Notifier receives committed orders. Implementations must not block.
type Notifier interface {
	NotifyPurchase(order *models.Order, currency string)
}

type Deps struct {
	DB              *sql.DB
	Settings        settings.Source
	Notifier        Notifier
	Logger          *zap.Logger
	Clock           func() time.Time
	OrderNumberBase int64
	MaxAttempts     int
	Timeout         time.Duration
}

type Service struct {
	db          *sql.DB
	settings    settings.Source
	notifier    Notifier
	logger      *zap.Logger
	clock       func() time.Time
	base        int64
	maxAttempts int
	timeout     time.Duration
}

func NewService(deps Deps) (*Service, error) {
	if deps.DB == nil {
		return nil, errors.New("checkout: database is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("checkout: settings source is required")
	}

	s := &Service{
		db:          deps.DB,
		settings:    deps.Settings,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		clock:       deps.Clock,
		base:        deps.OrderNumberBase,
		maxAttempts: deps.MaxAttempts,
		timeout:     deps.Timeout,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.base <= 0 {
		s.base = defaultOrderNumberBase
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.timeout <= 0 {
		s.timeout = defaultPlacementTimeout
	}
	return s, nil
}

type PlaceOrderRequest struct {
	UserID          *int64
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	ShippingAddress string
	ShippingZone    models.ShippingZone
	PaymentMethod   string
	PaymentSender   *string
	PaymentTrxID    *string
	CouponCode      string
	Items           []CartLine
	IPAddress       string
}

type PlaceOrderResult struct {
	OrderID     int64
	OrderNumber string
	Totals      Totals
}

// PlaceOrder turns a cart into a committed order. Everything the order
// touches (the order row, its items, stock, coupon usage and the order
// number) commits together or not at all.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, req)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			metrics.PlacementFailures.WithLabelValues(string(cerr.Code)).Inc()
			if cerr.Code == CodeStoreUnavailable {
				s.logger.Error("order placement failed", zap.String("ip", req.IPAddress), zap.Error(err))
			}
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	req = normalize(req)
	if err := validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if req.UserID != nil {
		user, err := store.GetUser(ctx, s.db, *req.UserID)
		switch {
		case errors.Is(err, database.ErrUserNotFound):
			return nil, validationError("user %d does not exist", *req.UserID)
		case err != nil:
			return nil, unavailable(err)
		}
		if req.CustomerEmail == nil {
			email := user.Email
			req.CustomerEmail = &email
		}
	}

	// Cheap rejection before any lock is taken; repeated inside the
	// transaction because stock can move in between.
	if _, err := ResolveCart(ctx, store.NewCatalogReader(s.db), req.Items); err != nil {
		return nil, asCheckoutError(err)
	}

	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	var order *models.Order
	var totals Totals

	err = database.WithRetry(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     s.maxAttempts - 1,
		OnRetry: func(attempt int, err error) {
			metrics.PlacementRetries.Inc()
			s.logger.Info("replaying order placement",
				zap.Int("attempt", attempt+1),
				zap.String("ip", req.IPAddress),
				zap.Error(err))
		},
	}, func(tx *sql.Tx) error {
		var err error
		order, totals, err = s.placeInTx(ctx, tx, req, snapshot)
		return err
	})
	if err != nil {
		return nil, asCheckoutError(err)
	}

	metrics.OrdersPlaced.WithLabelValues(order.PaymentMethod).Inc()
	metrics.OrderValue.Observe(order.TotalAmount.InexactFloat64())
	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
		zap.String("payment_method", order.PaymentMethod),
		zap.String("ip", order.IPAddress))

	if s.notifier != nil {
		s.notifier.NotifyPurchase(order, snapshot.Currency)
	}

	return &PlaceOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Totals:      totals,
	}, nil
}

// placeInTx is one attempt. It must leave nothing behind on failure, which the
// surrounding transaction guarantees.
func (s *Service) placeInTx(ctx context.Context, tx *sql.Tx, req PlaceOrderRequest, snapshot settings.Snapshot) (*models.Order, Totals, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.IPAddress); err != nil {
		return nil, Totals{}, fmt.Errorf("lock origin: %w", err)
	}

	now := s.clock().UTC()

	rule := CooldownRule{Enabled: snapshot.CooldownEnabled, Minutes: snapshot.CooldownMinutes}
	if err := CheckOrigin(ctx, store.NewGuardReader(tx), req.IPAddress, rule, now); err != nil {
		return nil, Totals{}, err
	}

	lines, err := ResolveCart(ctx, store.NewCatalogReader(tx), req.Items)
	if err != nil {
		return nil, Totals{}, err
	}

	subtotal := Subtotal(lines)

	discount := Discount{Amount: decimal.Zero}
	if req.CouponCode != "" {
		coupon, err := store.GetCouponByCode(ctx, tx, req.CouponCode)
		switch {
		case err == nil:
			discount = EvaluateCoupon(coupon, subtotal, now)
		case errors.Is(err, database.ErrCouponNotFound):
		default:
			return nil, Totals{}, err
		}
	}

	rates := ShippingRates{
		InsideHub:       snapshot.ShippingInsideHub,
		OutsideHub:      snapshot.ShippingOutsideHub,
		FreeShippingMin: snapshot.FreeShippingMin,
	}
	shipping, err := rates.Quote(req.ShippingZone, subtotal)
	if err != nil {
		return nil, Totals{}, err
	}

	totals := ComputeTotals(subtotal, discount.Amount, shipping)

	number, err := NextOrderNumber(ctx, tx, s.base)
	if err != nil {
		return nil, Totals{}, err
	}

	order := &models.Order{
		OrderNumber:     number,
		UserID:          req.UserID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
		ShippingZone:    req.ShippingZone,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.Discount,
		ShippingCost:    totals.Shipping,
		TotalAmount:     totals.Total,
		Status:          models.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentSender:   req.PaymentSender,
		PaymentTrxID:    req.PaymentTrxID,
		CouponID:        discount.CouponID,
		IPAddress:       req.IPAddress,
		CreatedAt:       now,
	}
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Title:     l.Title,
			ImageURL:  l.ImageURL,
			Color:     l.Color,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}

	if err := store.InsertOrder(ctx, tx, order); err != nil {
		return nil, Totals{}, err
	}

	if discount.CouponID != nil {
		if err := store.IncrementCouponUsage(ctx, tx, *discount.CouponID); err != nil {
			return nil, Totals{}, err
		}
	}

	for _, l := range lines {
		err := store.ReserveStock(ctx, tx, store.StockLine{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
		})
		if err != nil {
			if errors.Is(err, database.ErrInsufficientStock) {
				return nil, Totals{}, productError(CodeInsufficientStock, l.ProductID,
					fmt.Sprintf("%s sold out while the order was being placed", l.Title))
			}
			return nil, Totals{}, err
		}
	}

	return order, totals, nil
}

// CheckEligibility runs the abuse guard for ip without placing anything.
func (s *Service) CheckEligibility(ctx context.Context, ip string) error {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return validationError("origin address is required")
	}

	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return unavailable(err)
	}

	rule := CooldownRule{Enabled: snapshot.CooldownEnabled, Minutes: snapshot.CooldownMinutes}
	if err := CheckOrigin(ctx, store.NewGuardReader(s.db), ip, rule, s.clock().UTC()); err != nil {
		return asCheckoutError(err)
	}
	return nil
}

func asCheckoutError(err error) error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return unavailable(err)
}

func normalize(req PlaceOrderRequest) PlaceOrderRequest {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	req.CouponCode = strings.TrimSpace(req.CouponCode)
	req.IPAddress = strings.TrimSpace(req.IPAddress)
	req.CustomerEmail = trimmedOrNil(req.CustomerEmail)
	req.PaymentSender = trimmedOrNil(req.PaymentSender)
	req.PaymentTrxID = trimmedOrNil(req.PaymentTrxID)
	return req
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validate(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return validationError("cart is empty")
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return validationError("item %d has an invalid product id", i+1)
		}
		if item.Quantity < 1 {
			return validationError("item %d must have a quantity of at least 1", i+1)
		}
	}
	if !req.ShippingZone.Valid() {
		return validationError("unknown shipping zone %q", req.ShippingZone)
	}
	if req.CustomerName == "" {
		return validationError("customer name is required")
	}
	if req.CustomerPhone == "" {
		return validationError("customer phone is required")
	}
	if req.ShippingAddress == "" {
		return validationError("shipping address is required")
	}
	if req.PaymentMethod == "" {
		return validationError("payment method is required")
	}
	if req.PaymentMethod != models.PaymentMethodCOD && (req.PaymentSender == nil || req.PaymentTrxID == nil) {
		return validationError("payment sender and transaction id are required for %s", req.PaymentMethod)
	}
	if req.IPAddress == "" {
		return validationError("origin address is required")
	}
	return nil
}
