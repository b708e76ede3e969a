package store

import (
	"context"
	"fmt"
	"time"
)

// GuardReader answers the two questions the abuse guard asks about an origin.
type GuardReader struct {
	q DBTX
}

func NewGuardReader(q DBTX) *GuardReader {
	return &GuardReader{q: q}
}

func (r *GuardReader) IsOriginBanned(ctx context.Context, ip string) (bool, error) {
	return IsOriginBanned(ctx, r.q, ip)
}

func (r *GuardReader) LatestOrderAt(ctx context.Context, ip string) (*time.Time, error) {
	return LatestOrderAtByOrigin(ctx, r.q, ip)
}

func IsOriginBanned(ctx context.Context, q DBTX, ip string) (bool, error) {
	var banned bool
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM banned_ips WHERE ip_address = $1)",
		ip).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("check banned origin: %w", err)
	}
	return banned, nil
}

func BanOrigin(ctx context.Context, q DBTX, ip, reason string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO banned_ips (ip_address, reason, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (ip_address) DO UPDATE SET reason = EXCLUDED.reason`,
		ip, reason)
	if err != nil {
		return fmt.Errorf("ban origin: %w", err)
	}
	return nil
}

func UnbanOrigin(ctx context.Context, q DBTX, ip string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM banned_ips WHERE ip_address = $1`, ip); err != nil {
		return fmt.Errorf("unban origin: %w", err)
	}
	return nil
}
