package tenant

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

// Tenant statuses
const (
	StatusApplicant = "applicant"
	StatusActive    = "active"
	StatusNotice    = "notice"
	StatusPast      = "past"
)

// Screening checks
const (
	CheckBackground = "background"
	CheckCredit     = "credit"
	CheckIncome     = "income"
	CheckEviction   = "eviction"
	CheckReferences = "references"
)

// Screening statuses
const (
	ScreeningPending    = "pending"
	ScreeningInProgress = "in_progress"
	ScreeningPassed     = "passed"
	ScreeningFailed     = "failed"
)

// Lease statuses
const (
	LeaseUpcoming   = "upcoming"
	LeaseActive     = "active"
	LeaseExpired    = "expired"
	LeaseTerminated = "terminated"
)

var (
	Statuses          = []string{StatusApplicant, StatusActive, StatusNotice, StatusPast}
	ScreeningChecks   = []string{CheckBackground, CheckCredit, CheckIncome, CheckEviction, CheckReferences}
	ScreeningStatuses = []string{ScreeningPending, ScreeningInProgress, ScreeningPassed, ScreeningFailed}
	LeaseStatuses     = []string{LeaseUpcoming, LeaseActive, LeaseExpired, LeaseTerminated}
)

type Tenant struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PropertyID   string     `json:"property_id"`
	PropertyName string     `json:"property_name"` // joined on read
	UnitID       string     `json:"unit_id"`
	UnitNumber   string     `json:"unit_number"` // joined on read
	Status       string     `json:"status"`
	MonthlyRent  core.Money `json:"monthly_rent"`
	Deposit      core.Money `json:"deposit"`
	Balance      core.Money `json:"balance"` // owed by the tenant
	Screening    Screening  `json:"screening"`
	MoveInDate   time.Time  `json:"move_in_date"`
	MoveOutDate  time.Time  `json:"move_out_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsCurrent reports whether the tenant currently lives in their unit.
func (t Tenant) IsCurrent() bool {
	return t.Status == StatusActive || t.Status == StatusNotice
}

// Screening tracks the status of every background check of an applicant.
type Screening struct {
	Checks    map[string]string `json:"checks"`
	Status    string            `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewScreening() Screening {
	checks := make(map[string]string, len(ScreeningChecks))
	for _, c := range ScreeningChecks {
		checks[c] = ScreeningPending
	}
	return Screening{Checks: checks, Status: ScreeningPending}
}

// Set updates a check and derives the overall status: any failed check fails the screening,
// all passed checks pass it, any started check puts it in progress.
func (s *Screening) Set(check, status string, now time.Time) {
	if s.Checks == nil {
		*s = NewScreening()
	}
	s.Checks[check] = status
	s.Status = deriveScreeningStatus(s.Checks)
	s.UpdatedAt = now
}

func deriveScreeningStatus(checks map[string]string) string {
	passed, started := 0, false
	for _, c := range ScreeningChecks {
		switch checks[c] {
		case ScreeningFailed:
			return ScreeningFailed
		case ScreeningPassed:
			passed++
			started = true
		case ScreeningInProgress:
			started = true
		}
	}
	if passed == len(ScreeningChecks) {
		return ScreeningPassed
	}
	if started {
		return ScreeningInProgress
	}
	return ScreeningPending
}

type Lease struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	PropertyID   string     `json:"property_id"`
	UnitID       string     `json:"unit_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	MonthlyRent  core.Money `json:"monthly_rent"`
	Deposit      core.Money `json:"deposit"`
	Status       string     `json:"status"` // derived on read, unless terminated
	TerminatedAt time.Time  `json:"terminated_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StatusAt derives the lease status at `now`. The end date is inclusive.
func (l Lease) StatusAt(now time.Time) string {
	switch {
	case !l.TerminatedAt.IsZero():
		return LeaseTerminated
	case now.Before(l.StartDate):
		return LeaseUpcoming
	case !now.Before(l.EndDate.AddDate(0, 0, 1)):
		return LeaseExpired
	default:
		return LeaseActive
	}
}

// ExpiresWithin reports whether an active lease ends in the next `days` days.
func (l Lease) ExpiresWithin(now time.Time, days int) bool {
	if l.StatusAt(now) != LeaseActive {
		return false
	}
	return l.EndDate.Before(now.AddDate(0, 0, days))
}

// NewTenant contains information needed to register an applicant.
type NewTenant struct {
	Name        string     `json:"name" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone"`
	PropertyID  string     `json:"property_id" validate:"required"`
	UnitID      string     `json:"unit_id" validate:"required"`
	MonthlyRent core.Money `json:"monthly_rent" validate:"gt=0"`
	Deposit     core.Money `json:"deposit" validate:"min=0"`
	Balance     core.Money `json:"balance"` // opening balance
}

func (nt *NewTenant) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	nt.PropertyID = core.CleanString(nt.PropertyID)
	nt.UnitID = core.CleanString(nt.UnitID)
	return validate.Struct(nt)
}

// UpdateTenant replaces the contact & rent details of a Tenant.
type UpdateTenant struct {
	Name        string     `json:"name" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone"`
	MonthlyRent core.Money `json:"monthly_rent" validate:"gt=0"`
	Deposit     core.Money `json:"deposit" validate:"min=0"`
}

func (ut *UpdateTenant) Validate(validate *validator.Validate) error {
	ut.Name = core.CleanString(ut.Name)
	ut.Email = core.CleanString(ut.Email, true /* lower */)
	ut.Phone = core.CleanString(ut.Phone)
	return validate.Struct(ut)
}

type UpdateScreeningCheck struct {
	Check  string `json:"check" validate:"required,screeningcheck"`
	Status string `json:"status" validate:"required,screeningstatus"`
}

func (uc *UpdateScreeningCheck) Validate(validate *validator.Validate) error {
	uc.Check = core.CleanString(uc.Check, true /* lower */)
	uc.Status = core.CleanString(uc.Status, true /* lower */)
	return validate.Struct(uc)
}

// Approval turns a screened applicant into an active tenant under a new lease.
type Approval struct {
	LeaseStart  time.Time  `json:"lease_start" validate:"required"`
	LeaseEnd    time.Time  `json:"lease_end" validate:"required,gtfield=LeaseStart"`
	MonthlyRent core.Money `json:"monthly_rent" validate:"min=0"` // defaults to the tenant's rent
}

func (a *Approval) Validate(validate *validator.Validate) error { return validate.Struct(a) }

type Notice struct {
	MoveOutDate time.Time `json:"move_out_date" validate:"required"`
}

func (n *Notice) Validate(validate *validator.Validate) error { return validate.Struct(n) }

type Renewal struct {
	EndDate     time.Time  `json:"end_date" validate:"required"`
	MonthlyRent core.Money `json:"monthly_rent" validate:"min=0"` // 0 keeps the current rent
}

func (r *Renewal) Validate(validate *validator.Validate) error { return validate.Struct(r) }

type QueryFilter struct {
	Search          string   `query:"search"` // name, email or unit number
	Statuses        []string `query:"status"`
	PropertyID      string   `query:"property_id"`
	UnitID          string   `query:"unit_id"`
	ScreeningStatus string   `query:"screening_status"`
	IDs             []string `query:"id"`
	PropertyIDs     []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.PropertyID = core.CleanString(qf.PropertyID)
	qf.UnitID = core.CleanString(qf.UnitID)
	qf.ScreeningStatus = core.CleanString(qf.ScreeningStatus, true /* lower */)
}

type LeaseFilter struct {
	TenantID       string   `query:"tenant_id"`
	PropertyID     string   `query:"property_id"`
	Statuses       []string `query:"status"`
	ExpiringWithin int      `query:"expiring_within"` // days
	PropertyIDs    []string `query:"-"`
}
