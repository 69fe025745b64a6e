package core

import (
	"time"

	"github.com/pkg/errors"
)

const PeriodLayout = "2006-01"

var ErrInvalidPeriod = errors.New("invalid period, expected YYYY-MM")

// Period is a half-open time range [From, To). Zero bounds are open ended.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// MonthPeriod returns the calendar month (UTC) holding t.
func MonthPeriod(t time.Time) Period {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(0, 1, 0)}
}

// ParseMonth parses a YYYY-MM string; an empty string means the current month.
func ParseMonth(s string, now time.Time) (Period, error) {
	s = CleanString(s)
	if s == "" {
		return MonthPeriod(now), nil
	}
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return MonthPeriod(t), nil
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

// Label returns the YYYY-MM of the period start.
func (p Period) Label() string {
	return p.From.Format(PeriodLayout)
}
