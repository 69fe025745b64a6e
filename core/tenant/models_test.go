package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScreening_Set(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		checks map[string]string
		want   string
	}{
		{name: "nothing started", want: ScreeningPending},
		{name: "one started", checks: map[string]string{CheckCredit: ScreeningInProgress}, want: ScreeningInProgress},
		{name: "some passed", checks: map[string]string{CheckCredit: ScreeningPassed, CheckIncome: ScreeningPassed}, want: ScreeningInProgress},
		{
			name: "all passed",
			checks: map[string]string{
				CheckBackground: ScreeningPassed, CheckCredit: ScreeningPassed, CheckIncome: ScreeningPassed,
				CheckEviction: ScreeningPassed, CheckReferences: ScreeningPassed,
			},
			want: ScreeningPassed,
		},
		{
			name: "one failed",
			checks: map[string]string{
				CheckBackground: ScreeningPassed, CheckCredit: ScreeningFailed, CheckIncome: ScreeningPassed,
			},
			want: ScreeningFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Screening // zero value works too
			s.Set(CheckReferences, ScreeningPending, now)
			for check, status := range tt.checks {
				s.Set(check, status, now)
			}
			assert.Equal(t, tt.want, s.Status)
			assert.Len(t, s.Checks, len(ScreeningChecks))
			assert.Equal(t, now, s.UpdatedAt)
		})
	}
}

func TestLease_StatusAt(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }
	lease := Lease{StartDate: day(2, 1), EndDate: day(4, 30)}

	tests := []struct {
		name  string
		lease Lease
		now   time.Time
		want  string
	}{
		{name: "before start", lease: lease, now: day(1, 31), want: LeaseUpcoming},
		{name: "first day", lease: lease, now: day(2, 1), want: LeaseActive},
		{name: "last day", lease: lease, now: day(4, 30).Add(23 * time.Hour), want: LeaseActive},
		{name: "after end", lease: lease, now: day(5, 1), want: LeaseExpired},
		{name: "terminated", lease: Lease{StartDate: day(2, 1), EndDate: day(4, 30), TerminatedAt: day(3, 1)}, now: day(3, 2), want: LeaseTerminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lease.StatusAt(tt.now))
		})
	}

	assert.True(t, lease.ExpiresWithin(day(4, 1), 60))
	assert.False(t, lease.ExpiresWithin(day(2, 1), 60))
	assert.False(t, lease.ExpiresWithin(day(5, 2), 60)) // expired
}
