package owner

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/property"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("owner")

	errHasProperties = errors.New("cannot delete an owner who still owns properties")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateOwner(ctx context.Context, o Owner) (Owner, error)
		// QueryOwners applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Owner.Name, Owner.Email or Owner.Company.
		QueryOwners(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Owner, error)
		GetOwner(ctx context.Context, id string) (Owner, error)
		UpdateOwner(ctx context.Context, o Owner) (Owner, error)
		DeleteOwner(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, no NewOwner) (Owner, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Owner, error)
		GetByID(ctx context.Context, id string) (Owner, error)
		Update(ctx context.Context, o Owner, no NewOwner) (Owner, error)
		Delete(ctx context.Context, id string) error
		PropertyIDs(ctx context.Context, id string) ([]string, error)
		Portfolio(ctx context.Context, id, period string) (Portfolio, error)
	}

	service struct {
		repo       Repository
		propSvc    property.Service
		financeSvc finance.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, propSvc property.Service, financeSvc finance.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(propSvc, "propSvc"),
		vala.IsNotNil(financeSvc, "financeSvc"),
	).CheckAndPanic()
	return &service{repo: repo, propSvc: propSvc, financeSvc: financeSvc}
}

func (svc *service) Create(ctx context.Context, no NewOwner) (Owner, error) {
	now := nowFunc().UTC()
	return svc.repo.CreateOwner(ctx, Owner{
		Name:      no.Name,
		Email:     no.Email,
		Phone:     no.Phone,
		Company:   no.Company,
		Address:   no.Address,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Owner, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryOwners(ctx, filter, orderings)
}

func (svc *service) GetByID(ctx context.Context, id string) (Owner, error) {
	return svc.repo.GetOwner(ctx, id)
}

func (svc *service) Update(ctx context.Context, o Owner, no NewOwner) (Owner, error) {
	o.Name = no.Name
	o.Email = no.Email
	o.Phone = no.Phone
	o.Company = no.Company
	o.Address = no.Address
	o.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateOwner(ctx, o)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	ids, err := svc.PropertyIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return core.NewValidationError(errHasProperties)
	}
	return svc.repo.DeleteOwner(ctx, id)
}

// PropertyIDs returns the ids of the properties of an owner. The result is never nil.
func (svc *service) PropertyIDs(ctx context.Context, id string) ([]string, error) {
	if _, err := svc.repo.GetOwner(ctx, id); err != nil {
		return nil, err
	}
	props, err := svc.propSvc.Query(ctx, &property.QueryFilter{OwnerID: id}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying properties")
	}
	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (svc *service) Portfolio(ctx context.Context, id, period string) (Portfolio, error) {
	o, err := svc.repo.GetOwner(ctx, id)
	if err != nil {
		return Portfolio{}, err
	}
	pf := Portfolio{Owner: o, Properties: make([]PortfolioProperty, 0)}

	summaries, err := svc.propSvc.QuerySummaries(ctx, &property.QueryFilter{OwnerID: id}, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return Portfolio{}, errors.Wrap(err, "querying properties")
	}
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}

	fs, err := svc.financeSvc.Summary(ctx, finance.SummaryFilter{From: period, PropertyIDs: ids})
	if err != nil {
		return Portfolio{}, err
	}
	pf.Period = fs.From
	nois := make(map[string]finance.PropertyNOI, len(fs.Properties))
	for _, pn := range fs.Properties {
		nois[pn.PropertyID] = pn
	}

	var occs []property.Occupancy
	for _, s := range summaries {
		pn := nois[s.ID]
		pf.Properties = append(pf.Properties, PortfolioProperty{
			Summary:  s,
			Income:   pn.Income,
			Expenses: pn.Expenses,
			NOI:      pn.NOI,
		})
		occs = append(occs, s.Occupancy)
	}

	pf.Totals = PortfolioTotals{
		Properties: len(summaries),
		Occupancy:  property.SumOccupancy(occs...),
		Income:     fs.Income,
		Expenses:   fs.Expenses,
		NOI:        fs.NOI,
	}
	if pf.Totals.CollectionRate, err = svc.financeSvc.CollectionRate(ctx, pf.Period, ids); err != nil {
		return Portfolio{}, err
	}
	return pf, nil
}
