package checkout

import (
	"context"
	"fmt"
	"math"
	"time"
)

// GuardReader is implemented by store.GuardReader.
type GuardReader interface {
	IsOriginBanned(ctx context.Context, ip string) (bool, error)
	LatestOrderAt(ctx context.Context, ip string) (*time.Time, error)
}

type CooldownRule struct {
	Enabled bool
	Minutes int
}

func (r CooldownRule) window() time.Duration {
	if !r.Enabled || r.Minutes <= 0 {
		return 0
	}
	return time.Duration(r.Minutes) * time.Minute
}

// CheckOrigin decides whether ip may place an order at now. It reads only,
// so calling it twice with the same state gives the same answer.
func CheckOrigin(ctx context.Context, reader GuardReader, ip string, rule CooldownRule, now time.Time) error {
	banned, err := reader.IsOriginBanned(ctx, ip)
	if err != nil {
		return fmt.Errorf("check ban list: %w", err)
	}
	if banned {
		return &Error{Code: CodeIPBanned, Message: "orders from this network are blocked"}
	}

	window := rule.window()
	if window == 0 {
		return nil
	}

	latest, err := reader.LatestOrderAt(ctx, ip)
	if err != nil {
		return fmt.Errorf("check cooldown: %w", err)
	}
	if latest == nil {
		return nil
	}

	elapsed := now.Sub(*latest)
	if elapsed >= window {
		return nil
	}
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := int(math.Ceil((window - elapsed).Seconds()))
	return &Error{
		Code:                     CodeCooldown,
		Message:                  fmt.Sprintf("please wait %d minutes between orders", rule.Minutes),
		CooldownRemainingSeconds: remaining,
		CooldownMinutes:          rule.Minutes,
	}
}
