package maintenance

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("maintenance request")
	ErrVendorNotFound = core.NewNotFoundError("vendor")

	errUnitMismatch   = "unit does not belong to this property"
	errTenantMismatch = "tenant does not belong to this property"
	errVendorBusy     = errors.New("the vendor still has open requests")
	errClosed         = errors.New("completed or cancelled requests cannot be changed")
	errAssignVendor   = "assign a vendor to move a new request forward"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateVendor(ctx context.Context, v Vendor) (Vendor, error)
		// QueryVendors applies AND operation on available VendorFilter fields.
		// VendorFilter.Search does a case-insensitive match on one of Vendor.Name, Vendor.Company or Vendor.Email.
		QueryVendors(ctx context.Context, filter *VendorFilter, orderings []core.DBOrdering) ([]Vendor, error)
		GetVendor(ctx context.Context, id string) (Vendor, error)
		UpdateVendor(ctx context.Context, v Vendor) (Vendor, error)
		DeleteVendor(ctx context.Context, id string) error

		CreateRequest(ctx context.Context, r Request) (Request, error)
		// QueryRequests applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Request.Title or Request.Description.
		QueryRequests(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		UpdateRequest(ctx context.Context, r Request) (Request, error)
		DeleteRequest(ctx context.Context, id string) error
	}

	Service interface {
		CreateVendor(ctx context.Context, nv NewVendor) (Vendor, error)
		QueryVendors(ctx context.Context, filter *VendorFilter, orderings []core.DBOrdering) ([]Vendor, error)
		GetVendor(ctx context.Context, id string) (Vendor, error)
		UpdateVendor(ctx context.Context, v Vendor, nv NewVendor) (Vendor, error)
		DeleteVendor(ctx context.Context, id string) error

		Create(ctx context.Context, nr NewRequest) (Request, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Request, error)
		GetByID(ctx context.Context, id string) (Request, error)
		Update(ctx context.Context, r Request, ur UpdateRequest) (Request, error)
		Delete(ctx context.Context, id string) error
		AssignVendor(ctx context.Context, id string, av AssignVendor) (Request, error)
		ChangeStatus(ctx context.Context, id string, cs ChangeStatus) (Request, error)
		Board(ctx context.Context, filter *QueryFilter) ([]BoardColumn, error)
	}

	service struct {
		repo       Repository
		propSvc    property.Service
		tenantSvc  tenant.Service
		financeSvc finance.Service
		mailSvc    core.EmailService
		publisher  core.EventPublisher
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	propSvc property.Service,
	tenantSvc tenant.Service,
	financeSvc finance.Service,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
	logger core.Logger,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(propSvc, "propSvc"),
		vala.IsNotNil(tenantSvc, "tenantSvc"),
		vala.IsNotNil(financeSvc, "financeSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(publisher, "publisher"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &service{
		repo:       repo,
		propSvc:    propSvc,
		tenantSvc:  tenantSvc,
		financeSvc: financeSvc,
		mailSvc:    mailSvc,
		publisher:  publisher,
		logger:     logger,
	}
}

func (svc *service) publish(ctx context.Context, evt core.Event) {
	if err := svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing %s: %v", evt.Name, err), err)
	}
}

// Vendors

func (svc *service) CreateVendor(ctx context.Context, nv NewVendor) (Vendor, error) {
	now := nowFunc().UTC()
	return svc.repo.CreateVendor(ctx, Vendor{
		Name:      nv.Name,
		Company:   nv.Company,
		Trade:     nv.Trade,
		Email:     nv.Email,
		Phone:     nv.Phone,
		Rating:    nv.Rating,
		Preferred: nv.Preferred,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QueryVendors(ctx context.Context, filter *VendorFilter, orderings []core.DBOrdering) ([]Vendor, error) {
	if filter == nil {
		filter = new(VendorFilter)
	}
	return svc.repo.QueryVendors(ctx, filter, orderings)
}

func (svc *service) GetVendor(ctx context.Context, id string) (Vendor, error) {
	return svc.repo.GetVendor(ctx, id)
}

func (svc *service) UpdateVendor(ctx context.Context, v Vendor, nv NewVendor) (Vendor, error) {
	v.Name = nv.Name
	v.Company = nv.Company
	v.Trade = nv.Trade
	v.Email = nv.Email
	v.Phone = nv.Phone
	v.Rating = nv.Rating
	v.Preferred = nv.Preferred
	v.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateVendor(ctx, v)
}

func (svc *service) DeleteVendor(ctx context.Context, id string) error {
	if _, err := svc.repo.GetVendor(ctx, id); err != nil {
		return err
	}
	open, err := svc.repo.QueryRequests(ctx, &QueryFilter{VendorID: id, Statuses: OpenStatuses}, nil)
	if err != nil {
		return errors.Wrap(err, "querying open requests")
	}
	if len(open) > 0 {
		return core.NewValidationError(errVendorBusy)
	}
	return svc.repo.DeleteVendor(ctx, id)
}

// Requests

func (svc *service) Create(ctx context.Context, nr NewRequest) (Request, error) {
	if _, err := svc.propSvc.GetByID(ctx, nr.PropertyID); err != nil {
		if core.IsNotFound(err) {
			return Request{}, core.NewFieldError("property_id", err.Error())
		}
		return Request{}, errors.Wrap(err, "finding property")
	}
	if nr.TenantID != "" {
		t, err := svc.tenantSvc.GetByID(ctx, nr.TenantID)
		if err != nil {
			if core.IsNotFound(err) {
				return Request{}, core.NewFieldError("tenant_id", err.Error())
			}
			return Request{}, errors.Wrap(err, "finding tenant")
		}
		if t.PropertyID != nr.PropertyID {
			return Request{}, core.NewFieldError("tenant_id", errTenantMismatch)
		}
		if nr.UnitID == "" {
			nr.UnitID = t.UnitID
		}
	}
	if nr.UnitID != "" {
		unit, err := svc.propSvc.GetUnit(ctx, nr.UnitID)
		if err != nil {
			if core.IsNotFound(err) {
				return Request{}, core.NewFieldError("unit_id", err.Error())
			}
			return Request{}, errors.Wrap(err, "finding unit")
		}
		if unit.PropertyID != nr.PropertyID {
			return Request{}, core.NewFieldError("unit_id", errUnitMismatch)
		}
	}

	now := nowFunc().UTC()
	return svc.repo.CreateRequest(ctx, Request{
		PropertyID:    nr.PropertyID,
		UnitID:        nr.UnitID,
		TenantID:      nr.TenantID,
		Title:         nr.Title,
		Description:   nr.Description,
		Category:      nr.Category,
		Priority:      nr.Priority,
		Status:        StatusNew,
		EstimatedCost: nr.EstimatedCost,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Request, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryRequests(ctx, filter, orderings)
}

func (svc *service) GetByID(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequest(ctx, id)
}

func (svc *service) Update(ctx context.Context, r Request, ur UpdateRequest) (Request, error) {
	if !r.IsOpen() {
		return Request{}, core.NewValidationError(errClosed)
	}
	r.Title = ur.Title
	r.Description = ur.Description
	r.Category = ur.Category
	r.Priority = ur.Priority
	r.EstimatedCost = ur.EstimatedCost
	r.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateRequest(ctx, r)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRequest(ctx, id)
}

// AssignVendor (re)assigns an open request to a vendor, who is notified by e-mail.
func (svc *service) AssignVendor(ctx context.Context, id string, av AssignVendor) (Request, error) {
	r, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !r.IsOpen() {
		return Request{}, core.NewValidationError(errClosed)
	}
	vendor, err := svc.repo.GetVendor(ctx, av.VendorID)
	if err != nil {
		if core.IsNotFound(err) {
			return Request{}, core.NewFieldError("vendor_id", err.Error())
		}
		return Request{}, errors.Wrap(err, "finding vendor")
	}

	r.VendorID = vendor.ID
	if r.Status == StatusNew {
		r.Status = StatusAssigned
	}
	r.UpdatedAt = nowFunc().UTC()
	if r, err = svc.repo.UpdateRequest(ctx, r); err != nil {
		return Request{}, err
	}

	svc.notifyVendor(ctx, r, vendor)
	svc.publish(ctx, core.NewEvent(core.EventMaintenanceAssigned, r.ID, map[string]interface{}{
		"vendor_id":   vendor.ID,
		"property_id": r.PropertyID,
		"priority":    r.Priority,
	}))
	return r, nil
}

func (svc *service) notifyVendor(ctx context.Context, r Request, vendor Vendor) {
	data := map[string]interface{}{
		"VendorName":  vendor.Name,
		"Priority":    r.Priority,
		"Title":       r.Title,
		"Description": r.Description,
	}
	if prop, err := svc.propSvc.GetByID(ctx, r.PropertyID); err == nil {
		data["PropertyName"] = prop.Name
	}
	if r.UnitID != "" {
		if unit, err := svc.propSvc.GetUnit(ctx, r.UnitID); err == nil {
			data["UnitNumber"] = unit.Number
		}
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: vendor.Name, Address: vendor.Email}},
		Subject:      "New work order: " + r.Title,
		TemplateName: "vendor_assignment",
		TemplateData: data,
	})
}

// ChangeStatus moves a request along its workflow. Completing a request books its actual cost as a repair expense.
func (svc *service) ChangeStatus(ctx context.Context, id string, cs ChangeStatus) (Request, error) {
	r, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !r.IsOpen() {
		return Request{}, core.NewValidationError(errClosed)
	}
	if r.Status == cs.Status {
		return r, nil
	}
	if !canTransition(r.Status, cs.Status) {
		msg := fmt.Sprintf("cannot go from %s to %s", r.Status, cs.Status)
		if r.Status == StatusNew && cs.Status != StatusCancelled {
			msg = errAssignVendor
		}
		return Request{}, core.NewFieldError("status", msg)
	}

	now := nowFunc().UTC()
	from := r.Status
	r.Status = cs.Status
	r.UpdatedAt = now
	if cs.Status == StatusCompleted {
		r.CompletedAt = now
		r.ActualCost = cs.ActualCost
		if r.ActualCost == 0 {
			r.ActualCost = r.EstimatedCost
		}
	}
	var expense finance.Transaction
	if r.Status == StatusCompleted && r.ActualCost > 0 {
		if expense, err = svc.financeSvc.Create(ctx, finance.NewTransaction{
			PropertyID:  r.PropertyID,
			UnitID:      r.UnitID,
			Type:        finance.TypeExpense,
			Category:    finance.CategoryRepairs,
			Amount:      r.ActualCost,
			Date:        now,
			Description: "Maintenance: " + r.Title,
			Reference:   r.ID,
		}); err != nil {
			return Request{}, errors.Wrap(err, "booking maintenance expense")
		}
	}
	if r, err = svc.repo.UpdateRequest(ctx, r); err != nil {
		if expense.ID != "" {
			if derr := svc.financeSvc.Delete(ctx, expense.ID); derr != nil {
				svc.logger.Error(fmt.Sprintf("reverting expense %s: %v", expense.ID, derr), derr)
			}
		}
		return Request{}, err
	}

	svc.publish(ctx, core.NewEvent(core.EventMaintenanceStatusChanged, r.ID, map[string]interface{}{
		"from": from,
		"to":   r.Status,
	}))
	return r, nil
}

// Board groups requests into one column per status, most urgent then oldest first.
func (svc *service) Board(ctx context.Context, filter *QueryFilter) ([]BoardColumn, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	requests, err := svc.repo.QueryRequests(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if ra, rb := priorityRanks[a.Priority], priorityRanks[b.Priority]; ra != rb {
			return ra < rb
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	columns := make([]BoardColumn, 0, len(Statuses))
	byStatus := make(map[string]int, len(Statuses))
	for _, s := range Statuses {
		if !core.StringIn(s, filter.Statuses) {
			continue
		}
		byStatus[s] = len(columns)
		columns = append(columns, BoardColumn{Status: s, Requests: make([]Request, 0)})
	}
	for _, r := range requests {
		if i, ok := byStatus[r.Status]; ok {
			columns[i].Requests = append(columns[i].Requests, r)
			columns[i].Count++
		}
	}
	return columns, nil
}
