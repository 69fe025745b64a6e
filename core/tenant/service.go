package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("tenant")
	ErrLeaseNotFound = core.NewNotFoundError("lease")

	errUnitMismatch       = "unit does not belong to this property"
	ErrNotApplicant       = errors.New("only applicants can be screened or approved")
	errScreeningNotPassed = errors.New("screening must pass before approval")
	ErrUnitNotVacant      = errors.New("the unit is not vacant")
	errNotActive          = errors.New("only active tenants can give notice")
	errNotCurrent         = errors.New("only current tenants can move out")
	errCurrentTenant      = errors.New("current tenants must move out before being deleted")
	errLeaseTerminated    = errors.New("terminated leases cannot be renewed")
	errRenewalEnd         = "end date must be after the current end date"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTenant(ctx context.Context, t Tenant) (Tenant, error)
		// QueryTenants applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Tenant.Name, Tenant.Email or Tenant.UnitNumber.
		QueryTenants(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Tenant, error)
		GetTenant(ctx context.Context, id string) (Tenant, error)
		UpdateTenant(ctx context.Context, t Tenant) (Tenant, error)
		// AdjustTenantBalance adds delta to the stored balance in a single write.
		AdjustTenantBalance(ctx context.Context, id string, delta core.Money, at time.Time) (Tenant, error)
		// MoveIn stores the lease, activates the applicant and occupies their unit in a single write.
		// It fails with ErrNotApplicant or ErrUnitNotVacant when another write got there first.
		MoveIn(ctx context.Context, t Tenant, l Lease) (Tenant, Lease, error)
		// DeleteTenant deletes the tenant along with their leases.
		DeleteTenant(ctx context.Context, id string) error

		CreateLease(ctx context.Context, l Lease) (Lease, error)
		QueryLeases(ctx context.Context, filter *LeaseFilter, orderings []core.DBOrdering) ([]Lease, error)
		GetLease(ctx context.Context, id string) (Lease, error)
		UpdateLease(ctx context.Context, l Lease) (Lease, error)
	}

	Service interface {
		Create(ctx context.Context, nt NewTenant) (Tenant, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Tenant, error)
		GetByID(ctx context.Context, id string) (Tenant, error)
		Update(ctx context.Context, t Tenant, ut UpdateTenant) (Tenant, error)
		Delete(ctx context.Context, id string) error
		UpdateScreeningCheck(ctx context.Context, id string, uc UpdateScreeningCheck) (Tenant, error)
		Approve(ctx context.Context, id string, a Approval) (Tenant, Lease, error)
		GiveNotice(ctx context.Context, id string, n Notice) (Tenant, error)
		MoveOut(ctx context.Context, id string) (Tenant, error)
		AdjustBalance(ctx context.Context, id string, delta core.Money) (Tenant, error)

		QueryLeases(ctx context.Context, filter *LeaseFilter, orderings []core.DBOrdering) ([]Lease, error)
		GetLease(ctx context.Context, id string) (Lease, error)
		CurrentLease(ctx context.Context, tenantID string) (Lease, error)
		RenewLease(ctx context.Context, id string, r Renewal) (Lease, error)
		TerminateLease(ctx context.Context, id string) (Lease, error)
	}

	service struct {
		repo      Repository
		propSvc   property.Service
		publisher core.EventPublisher
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, propSvc property.Service, publisher core.EventPublisher, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(propSvc, "propSvc"),
		vala.IsNotNil(publisher, "publisher"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &service{repo: repo, propSvc: propSvc, publisher: publisher, logger: logger}
}

func (svc *service) publish(ctx context.Context, evt core.Event) {
	if err := svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing %s: %v", evt.Name, err), err)
	}
}

func (svc *service) Create(ctx context.Context, nt NewTenant) (Tenant, error) {
	if _, err := svc.propSvc.GetByID(ctx, nt.PropertyID); err != nil {
		if core.IsNotFound(err) {
			return Tenant{}, core.NewFieldError("property_id", err.Error())
		}
		return Tenant{}, errors.Wrap(err, "finding property")
	}
	unit, err := svc.propSvc.GetUnit(ctx, nt.UnitID)
	if err != nil {
		if core.IsNotFound(err) {
			return Tenant{}, core.NewFieldError("unit_id", err.Error())
		}
		return Tenant{}, errors.Wrap(err, "finding unit")
	}
	if unit.PropertyID != nt.PropertyID {
		return Tenant{}, core.NewFieldError("unit_id", errUnitMismatch)
	}

	now := nowFunc().UTC()
	return svc.repo.CreateTenant(ctx, Tenant{
		Name:        nt.Name,
		Email:       nt.Email,
		Phone:       nt.Phone,
		PropertyID:  nt.PropertyID,
		UnitID:      nt.UnitID,
		Status:      StatusApplicant,
		MonthlyRent: nt.MonthlyRent,
		Deposit:     nt.Deposit,
		Balance:     nt.Balance,
		Screening:   NewScreening(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Tenant, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryTenants(ctx, filter, orderings)
}

func (svc *service) GetByID(ctx context.Context, id string) (Tenant, error) {
	return svc.repo.GetTenant(ctx, id)
}

func (svc *service) Update(ctx context.Context, t Tenant, ut UpdateTenant) (Tenant, error) {
	t.Name = ut.Name
	t.Email = ut.Email
	t.Phone = ut.Phone
	t.MonthlyRent = ut.MonthlyRent
	t.Deposit = ut.Deposit
	t.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateTenant(ctx, t)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	t, err := svc.repo.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	if t.IsCurrent() {
		return core.NewValidationError(errCurrentTenant)
	}
	return svc.repo.DeleteTenant(ctx, id)
}

func (svc *service) UpdateScreeningCheck(ctx context.Context, id string, uc UpdateScreeningCheck) (Tenant, error) {
	t, err := svc.repo.GetTenant(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if t.Status != StatusApplicant {
		return Tenant{}, core.NewValidationError(ErrNotApplicant)
	}
	now := nowFunc().UTC()
	t.Screening.Set(uc.Check, uc.Status, now)
	t.UpdatedAt = now
	return svc.repo.UpdateTenant(ctx, t)
}

// Approve moves a screened applicant into their vacant unit under a new lease.
func (svc *service) Approve(ctx context.Context, id string, a Approval) (Tenant, Lease, error) {
	t, err := svc.repo.GetTenant(ctx, id)
	if err != nil {
		return Tenant{}, Lease{}, err
	}
	if t.Status != StatusApplicant {
		return Tenant{}, Lease{}, core.NewValidationError(ErrNotApplicant)
	}
	if t.Screening.Status != ScreeningPassed {
		return Tenant{}, Lease{}, core.NewValidationError(errScreeningNotPassed)
	}
	unit, err := svc.propSvc.GetUnit(ctx, t.UnitID)
	if err != nil {
		return Tenant{}, Lease{}, errors.Wrap(err, "finding unit")
	}
	if unit.Status != property.UnitVacant {
		return Tenant{}, Lease{}, core.NewValidationError(ErrUnitNotVacant)
	}

	now := nowFunc().UTC()
	if a.MonthlyRent > 0 {
		t.MonthlyRent = a.MonthlyRent
	}
	t.Status = StatusActive
	t.MoveInDate = a.LeaseStart.UTC()
	t.MoveOutDate = time.Time{}
	t.UpdatedAt = now
	lease := Lease{
		TenantID:    t.ID,
		PropertyID:  t.PropertyID,
		UnitID:      t.UnitID,
		StartDate:   a.LeaseStart.UTC(),
		EndDate:     a.LeaseEnd.UTC(),
		MonthlyRent: t.MonthlyRent,
		Deposit:     t.Deposit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t, lease, err = svc.repo.MoveIn(ctx, t, lease); err != nil {
		if errors.Is(err, ErrNotApplicant) || errors.Is(err, ErrUnitNotVacant) {
			return Tenant{}, Lease{}, core.NewValidationError(err)
		}
		return Tenant{}, Lease{}, errors.Wrap(err, "moving in")
	}

	svc.publish(ctx, core.NewEvent(core.EventTenantApproved, t.ID, map[string]interface{}{
		"unit_id":  t.UnitID,
		"lease_id": lease.ID,
	}))
	lease.Status = lease.StatusAt(now)
	return t, lease, nil
}

func (svc *service) GiveNotice(ctx context.Context, id string, n Notice) (Tenant, error) {
	t, err := svc.repo.GetTenant(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if t.Status != StatusActive {
		return Tenant{}, core.NewValidationError(errNotActive)
	}
	if _, err = svc.propSvc.SetUnitStatus(ctx, t.UnitID, property.UnitNotice); err != nil {
		return Tenant{}, errors.Wrap(err, "updating unit status")
	}
	t.Status = StatusNotice
	t.MoveOutDate = n.MoveOutDate.UTC()
	t.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateTenant(ctx, t)
}

// MoveOut ends the tenancy: the current lease is terminated and the unit freed.
func (svc *service) MoveOut(ctx context.Context, id string) (Tenant, error) {
	t, err := svc.repo.GetTenant(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if !t.IsCurrent() {
		return Tenant{}, core.NewValidationError(errNotCurrent)
	}
	now := nowFunc().UTC()

	leases, err := svc.repo.QueryLeases(ctx, &LeaseFilter{TenantID: t.ID}, nil)
	if err != nil {
		return Tenant{}, errors.Wrap(err, "querying leases")
	}
	for _, l := range leases {
		if l.TerminatedAt.IsZero() && l.StatusAt(now) != LeaseExpired {
			l.TerminatedAt = now
			l.UpdatedAt = now
			if _, err = svc.repo.UpdateLease(ctx, l); err != nil {
				return Tenant{}, errors.Wrap(err, "terminating lease")
			}
		}
	}

	if _, err = svc.propSvc.SetUnitStatus(ctx, t.UnitID, property.UnitVacant); err != nil {
		return Tenant{}, errors.Wrap(err, "freeing unit")
	}

	t.Status = StatusPast
	if t.MoveOutDate.IsZero() || t.MoveOutDate.After(now) {
		t.MoveOutDate = now
	}
	t.UpdatedAt = now
	if t, err = svc.repo.UpdateTenant(ctx, t); err != nil {
		return Tenant{}, err
	}
	svc.publish(ctx, core.NewEvent(core.EventTenantMovedOut, t.ID, map[string]interface{}{"unit_id": t.UnitID}))
	return t, nil
}

func (svc *service) AdjustBalance(ctx context.Context, id string, delta core.Money) (Tenant, error) {
	return svc.repo.AdjustTenantBalance(ctx, id, delta, nowFunc().UTC())
}

// Leases

func (svc *service) QueryLeases(ctx context.Context, filter *LeaseFilter, orderings []core.DBOrdering) ([]Lease, error) {
	if filter == nil {
		filter = new(LeaseFilter)
	}
	leases, err := svc.repo.QueryLeases(ctx, filter, orderings)
	if err != nil {
		return nil, err
	}
	now := nowFunc().UTC()
	res := make([]Lease, 0, len(leases))
	for _, l := range leases {
		l.Status = l.StatusAt(now)
		if !core.StringIn(l.Status, filter.Statuses) {
			continue
		}
		if filter.ExpiringWithin > 0 && !l.ExpiresWithin(now, filter.ExpiringWithin) {
			continue
		}
		res = append(res, l)
	}
	return res, nil
}

func (svc *service) GetLease(ctx context.Context, id string) (Lease, error) {
	l, err := svc.repo.GetLease(ctx, id)
	if err != nil {
		return Lease{}, err
	}
	l.Status = l.StatusAt(nowFunc().UTC())
	return l, nil
}

// CurrentLease returns the active lease of a tenant, or their most recent one.
func (svc *service) CurrentLease(ctx context.Context, tenantID string) (Lease, error) {
	leases, err := svc.QueryLeases(ctx, &LeaseFilter{TenantID: tenantID}, []core.DBOrdering{{Field: "start_date"}})
	if err != nil {
		return Lease{}, err
	}
	if len(leases) == 0 {
		return Lease{}, ErrLeaseNotFound
	}
	for _, l := range leases {
		if l.Status == LeaseActive {
			return l, nil
		}
	}
	return leases[0], nil
}

func (svc *service) RenewLease(ctx context.Context, id string, r Renewal) (Lease, error) {
	l, err := svc.repo.GetLease(ctx, id)
	if err != nil {
		return Lease{}, err
	}
	if !l.TerminatedAt.IsZero() {
		return Lease{}, core.NewValidationError(errLeaseTerminated)
	}
	if !r.EndDate.After(l.EndDate) {
		return Lease{}, core.NewFieldError("end_date", errRenewalEnd)
	}

	now := nowFunc().UTC()
	l.EndDate = r.EndDate.UTC()
	if r.MonthlyRent > 0 {
		l.MonthlyRent = r.MonthlyRent
	}
	l.UpdatedAt = now
	if l, err = svc.repo.UpdateLease(ctx, l); err != nil {
		return Lease{}, err
	}

	t, err := svc.repo.GetTenant(ctx, l.TenantID)
	if err != nil {
		return Lease{}, errors.Wrap(err, "finding tenant")
	}
	t.MonthlyRent = l.MonthlyRent
	if t.Status == StatusNotice { // renewing cancels the notice
		t.Status = StatusActive
		t.MoveOutDate = time.Time{}
		if _, err = svc.propSvc.SetUnitStatus(ctx, t.UnitID, property.UnitOccupied); err != nil {
			return Lease{}, errors.Wrap(err, "updating unit status")
		}
	}
	t.UpdatedAt = now
	if _, err = svc.repo.UpdateTenant(ctx, t); err != nil {
		return Lease{}, errors.Wrap(err, "updating tenant")
	}

	l.Status = l.StatusAt(now)
	return l, nil
}

// TerminateLease ends a lease early, which moves its tenant out.
func (svc *service) TerminateLease(ctx context.Context, id string) (Lease, error) {
	l, err := svc.repo.GetLease(ctx, id)
	if err != nil {
		return Lease{}, err
	}
	if !l.TerminatedAt.IsZero() {
		l.Status = LeaseTerminated
		return l, nil
	}

	t, err := svc.repo.GetTenant(ctx, l.TenantID)
	if err != nil {
		return Lease{}, errors.Wrap(err, "finding tenant")
	}
	if t.IsCurrent() && t.UnitID == l.UnitID {
		if _, err = svc.MoveOut(ctx, t.ID); err != nil {
			return Lease{}, err
		}
		return svc.GetLease(ctx, id)
	}

	now := nowFunc().UTC()
	l.TerminatedAt = now
	l.UpdatedAt = now
	if l, err = svc.repo.UpdateLease(ctx, l); err != nil {
		return Lease{}, err
	}
	l.Status = LeaseTerminated
	return l, nil
}
