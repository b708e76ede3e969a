package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGuardReader struct {
	banned bool
	latest *time.Time
	err    error
}

func (s stubGuardReader) IsOriginBanned(context.Context, string) (bool, error) {
	return s.banned, s.err
}

func (s stubGuardReader) LatestOrderAt(context.Context, string) (*time.Time, error) {
	return s.latest, s.err
}

func TestCheckOrigin(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	threeMinutesAgo := now.Add(-3 * time.Minute)
	longAgo := now.Add(-11 * time.Minute)
	almost := now.Add(-10*time.Minute + 500*time.Millisecond)
	ahead := now.Add(time.Minute)
	rule := CooldownRule{Enabled: true, Minutes: 10}

	tests := []struct {
		name          string
		reader        stubGuardReader
		rule          CooldownRule
		want          error
		wantRemaining int
	}{
		{"clean origin", stubGuardReader{}, rule, nil, 0},
		{"banned wins over cooldown", stubGuardReader{banned: true, latest: &threeMinutesAgo}, rule, ErrOriginBanned, 0},
		{"within cooldown", stubGuardReader{latest: &threeMinutesAgo}, rule, ErrCooldownActive, 420},
		{"partial second rounds up", stubGuardReader{latest: &almost}, rule, ErrCooldownActive, 1},
		{"clock skew caps at window", stubGuardReader{latest: &ahead}, rule, ErrCooldownActive, 600},
		{"cooldown elapsed", stubGuardReader{latest: &longAgo}, rule, nil, 0},
		{"cooldown disabled", stubGuardReader{latest: &threeMinutesAgo}, CooldownRule{Minutes: 10}, nil, 0},
		{"zero minutes", stubGuardReader{latest: &threeMinutesAgo}, CooldownRule{Enabled: true}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOrigin(context.Background(), tt.reader, "10.0.0.1", tt.rule, now)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantRemaining, cerr.CooldownRemainingSeconds)
			if tt.want == ErrCooldownActive {
				assert.Equal(t, 10, cerr.CooldownMinutes)
			}
		})
	}
}

func TestCheckOriginIsRepeatable(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	latest := now.Add(-time.Minute)
	reader := stubGuardReader{latest: &latest}
	rule := CooldownRule{Enabled: true, Minutes: 5}

	first := CheckOrigin(context.Background(), reader, "10.0.0.1", rule, now)
	second := CheckOrigin(context.Background(), reader, "10.0.0.1", rule, now)
	assert.Equal(t, first, second)
}

func TestCheckOriginStoreError(t *testing.T) {
	boom := errors.New("timeout")
	err := CheckOrigin(context.Background(), stubGuardReader{err: boom}, "10.0.0.1", CooldownRule{}, time.Now())
	assert.ErrorIs(t, err, boom)
}
