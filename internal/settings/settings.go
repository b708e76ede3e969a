// Package settings reads the runtime key/value settings that staff can change
// without a redeploy: shipping rates, the cooldown rule and the currency.
package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/safar/order-engine/internal/config"
	"github.com/safar/order-engine/internal/store"
	"github.com/shopspring/decimal"
)

const (
	KeyShippingInsideHub    = "shipping_inside_hub"
	KeyShippingOutsideHub   = "shipping_outside_hub"
	KeyFreeShippingMin      = "free_shipping_min"
	KeyOrderCooldownEnabled = "order_cooldown_enabled"
	KeyOrderCooldownMinutes = "order_cooldown_minutes"
	KeyCurrency             = "currency"
)

type Snapshot struct {
	ShippingInsideHub  decimal.Decimal `json:"shipping_inside_hub"`
	ShippingOutsideHub decimal.Decimal `json:"shipping_outside_hub"`
	FreeShippingMin    decimal.Decimal `json:"free_shipping_min"`
	CooldownEnabled    bool            `json:"order_cooldown_enabled"`
	CooldownMinutes    int             `json:"order_cooldown_minutes"`
	Currency           string          `json:"currency"`
}

type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

func Defaults(cfg *config.Config) Snapshot {
	return Snapshot{
		ShippingInsideHub:  cfg.Shipping.InsideHubRate,
		ShippingOutsideHub: cfg.Shipping.OutsideHubRate,
		FreeShippingMin:    cfg.Shipping.FreeShippingMin,
		CooldownEnabled:    cfg.Guard.CooldownEnabled,
		CooldownMinutes:    cfg.Guard.CooldownMinutes,
		Currency:           cfg.Notify.Currency,
	}
}

// Parse overlays stored values on defaults. Missing or malformed values keep
// the default.
func Parse(values map[string]string, defaults Snapshot) Snapshot {
	s := defaults

	s.ShippingInsideHub = parseAmount(values[KeyShippingInsideHub], s.ShippingInsideHub)
	s.ShippingOutsideHub = parseAmount(values[KeyShippingOutsideHub], s.ShippingOutsideHub)
	s.FreeShippingMin = parseAmount(values[KeyFreeShippingMin], s.FreeShippingMin)

	if v, err := strconv.ParseBool(strings.TrimSpace(values[KeyOrderCooldownEnabled])); err == nil {
		s.CooldownEnabled = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(values[KeyOrderCooldownMinutes])); err == nil && v >= 0 {
		s.CooldownMinutes = v
	}
	if v := strings.TrimSpace(values[KeyCurrency]); v != "" {
		s.Currency = v
	}

	return s
}

func parseAmount(raw string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}

// DBSource reads the settings table on every call.
type DBSource struct {
	db       store.DBTX
	defaults Snapshot
}

func NewDBSource(db store.DBTX, defaults Snapshot) *DBSource {
	return &DBSource{db: db, defaults: defaults}
}

func (s *DBSource) Snapshot(ctx context.Context) (Snapshot, error) {
	values, err := store.LoadSettings(ctx, s.db)
	if err != nil {
		return Snapshot{}, err
	}
	return Parse(values, s.defaults), nil
}

// Static always returns the same snapshot.
type Static Snapshot

func (s Static) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot(s), nil
}
