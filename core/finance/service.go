package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("transaction")

	errCategoryMismatch = "category does not match the transaction type"
	errTenantMismatch   = "tenant does not belong to this property"
	errApplicant        = "applicants cannot be charged rent"
	errPeriodRange      = "must not be before from"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
		// QueryTransactions applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Transaction.Description or Transaction.Reference.
		QueryTransactions(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Transaction, error)
		GetTransaction(ctx context.Context, id string) (Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, nt NewTransaction) (Transaction, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Transaction, error)
		GetByID(ctx context.Context, id string) (Transaction, error)
		Delete(ctx context.Context, id string) error
		LogPayment(ctx context.Context, p Payment) (Transaction, error)
		RentRoll(ctx context.Context, filter RentRollFilter) (RentRoll, error)
		Summary(ctx context.Context, filter SummaryFilter) (Summary, error)
		CollectionRate(ctx context.Context, period string, propertyIDs []string) (float64, error)
	}

	service struct {
		repo      Repository
		propSvc   property.Service
		tenantSvc tenant.Service
		publisher core.EventPublisher
		logger    core.Logger
		graceDays int
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	propSvc property.Service,
	tenantSvc tenant.Service,
	publisher core.EventPublisher,
	logger core.Logger,
	conf *core.Config,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(propSvc, "propSvc"),
		vala.IsNotNil(tenantSvc, "tenantSvc"),
		vala.IsNotNil(publisher, "publisher"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()
	return &service{
		repo:      repo,
		propSvc:   propSvc,
		tenantSvc: tenantSvc,
		publisher: publisher,
		logger:    logger,
		graceDays: conf.Finance.RentGraceDays,
	}
}

func (svc *service) Create(ctx context.Context, nt NewTransaction) (Transaction, error) {
	allowed := IncomeCategories
	if nt.Type == TypeExpense {
		allowed = ExpenseCategories
	}
	if !core.StringIn(nt.Category, allowed) {
		return Transaction{}, core.NewFieldError("category", errCategoryMismatch)
	}

	if _, err := svc.propSvc.GetByID(ctx, nt.PropertyID); err != nil {
		if core.IsNotFound(err) {
			return Transaction{}, core.NewFieldError("property_id", err.Error())
		}
		return Transaction{}, errors.Wrap(err, "finding property")
	}
	if nt.TenantID != "" {
		t, err := svc.tenantSvc.GetByID(ctx, nt.TenantID)
		if err != nil {
			if core.IsNotFound(err) {
				return Transaction{}, core.NewFieldError("tenant_id", err.Error())
			}
			return Transaction{}, errors.Wrap(err, "finding tenant")
		}
		if t.PropertyID != nt.PropertyID {
			return Transaction{}, core.NewFieldError("tenant_id", errTenantMismatch)
		}
		if nt.UnitID == "" {
			nt.UnitID = t.UnitID
		}
	}

	now := nowFunc().UTC()
	date := nt.Date.UTC()
	if nt.Date.IsZero() {
		date = now
	}
	return svc.repo.CreateTransaction(ctx, Transaction{
		PropertyID:  nt.PropertyID,
		UnitID:      nt.UnitID,
		TenantID:    nt.TenantID,
		Type:        nt.Type,
		Category:    nt.Category,
		Amount:      nt.Amount,
		Date:        date,
		Description: nt.Description,
		Reference:   nt.Reference,
		CreatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Transaction, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "date"}}
	}
	return svc.repo.QueryTransactions(ctx, filter, orderings)
}

func (svc *service) GetByID(ctx context.Context, id string) (Transaction, error) {
	return svc.repo.GetTransaction(ctx, id)
}

// Delete removes a transaction. Deleting a rent payment puts the amount back on the tenant's balance.
func (svc *service) Delete(ctx context.Context, id string) error {
	tx, err := svc.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	restored := false
	if tx.Type == TypeIncome && tx.Category == CategoryRent && tx.TenantID != "" {
		if _, err = svc.tenantSvc.AdjustBalance(ctx, tx.TenantID, tx.Amount); err != nil {
			if !core.IsNotFound(err) {
				return errors.Wrap(err, "restoring tenant balance")
			}
		} else {
			restored = true
		}
	}
	if err = svc.repo.DeleteTransaction(ctx, id); err != nil {
		if restored {
			svc.undoBalance(ctx, tx.TenantID, -tx.Amount)
		}
		return err
	}
	return nil
}

// undoBalance reverts a balance adjustment whose companion write failed.
func (svc *service) undoBalance(ctx context.Context, tenantID string, delta core.Money) {
	if _, err := svc.tenantSvc.AdjustBalance(ctx, tenantID, delta); err != nil {
		svc.logger.Error(fmt.Sprintf("reverting balance of tenant %s by %s: %v", tenantID, delta, err), err)
	}
}

// LogPayment books a rent payment and lowers the tenant's balance accordingly.
func (svc *service) LogPayment(ctx context.Context, p Payment) (Transaction, error) {
	t, err := svc.tenantSvc.GetByID(ctx, p.TenantID)
	if err != nil {
		if core.IsNotFound(err) {
			return Transaction{}, core.NewFieldError("tenant_id", err.Error())
		}
		return Transaction{}, errors.Wrap(err, "finding tenant")
	}
	if t.Status == tenant.StatusApplicant {
		return Transaction{}, core.NewFieldError("tenant_id", errApplicant)
	}

	now := nowFunc().UTC()
	date := p.Date.UTC()
	if p.Date.IsZero() {
		date = now
	}
	tx, err := svc.repo.CreateTransaction(ctx, Transaction{
		PropertyID:  t.PropertyID,
		UnitID:      t.UnitID,
		TenantID:    t.ID,
		Type:        TypeIncome,
		Category:    CategoryRent,
		Amount:      p.Amount,
		Date:        date,
		Description: fmt.Sprintf("Rent payment from %s (%s)", t.Name, p.Method),
		Reference:   p.Reference,
		CreatedAt:   now,
	})
	if err != nil {
		return Transaction{}, err
	}
	if _, err = svc.tenantSvc.AdjustBalance(ctx, t.ID, -p.Amount); err != nil {
		if derr := svc.repo.DeleteTransaction(ctx, tx.ID); derr != nil {
			svc.logger.Error(fmt.Sprintf("reverting payment %s: %v", tx.ID, derr), derr)
		}
		return Transaction{}, errors.Wrap(err, "updating tenant balance")
	}

	evt := core.NewEvent(core.EventPaymentLogged, tx.ID, map[string]interface{}{
		"tenant_id": t.ID,
		"amount":    tx.Amount.String(),
		"method":    p.Method,
	})
	if err = svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing %s: %v", evt.Name, err), err)
	}
	return tx, nil
}

// RentRoll lists the rent due & collected of every current tenant for a month.
// Totals cover every item, the status filter only narrows the listed items.
func (svc *service) RentRoll(ctx context.Context, filter RentRollFilter) (RentRoll, error) {
	now := nowFunc().UTC()
	period, err := core.ParseMonth(filter.Period, now)
	if err != nil {
		return RentRoll{}, core.NewFieldError("period", err.Error())
	}

	tf := &tenant.QueryFilter{
		Statuses:    []string{tenant.StatusActive, tenant.StatusNotice},
		PropertyID:  filter.PropertyID,
		PropertyIDs: filter.PropertyIDs,
	}
	if filter.TenantID != "" {
		tf.IDs = []string{filter.TenantID}
	}
	tenants, err := svc.tenantSvc.Query(ctx, tf, nil)
	if err != nil {
		return RentRoll{}, errors.Wrap(err, "querying tenants")
	}

	collected, err := svc.collectedRent(ctx, period, filter.PropertyIDs)
	if err != nil {
		return RentRoll{}, err
	}

	dueDate := period.From.AddDate(0, 0, svc.graceDays)
	roll := RentRoll{
		Period: period.Label(),
		Items:  make([]RentRollItem, 0, len(tenants)),
		Totals: RentRollTotals{Counts: make(map[string]int, len(RentStatuses))},
	}
	for _, t := range tenants {
		if !t.MoveInDate.IsZero() && !t.MoveInDate.Before(period.To) {
			continue // not moved in yet
		}
		if !core.ContainsFold(filter.Search, t.Name, t.PropertyName, t.UnitNumber) {
			continue
		}

		item := RentRollItem{
			TenantID:     t.ID,
			TenantName:   t.Name,
			PropertyID:   t.PropertyID,
			PropertyName: t.PropertyName,
			UnitID:       t.UnitID,
			UnitNumber:   t.UnitNumber,
			RentDue:      t.MonthlyRent,
			Collected:    collected[t.ID],
			Balance:      t.Balance,
			DueDate:      dueDate,
		}
		item.Status = rentStatus(item.RentDue, item.Collected, dueDate, now)

		roll.Totals.Due += item.RentDue
		roll.Totals.Collected += item.Collected
		roll.Totals.Counts[item.Status]++
		if core.StringIn(item.Status, filter.Statuses) {
			roll.Items = append(roll.Items, item)
		}
	}
	if roll.Totals.Due > roll.Totals.Collected {
		roll.Totals.Outstanding = roll.Totals.Due - roll.Totals.Collected
	}
	roll.Totals.CollectionRate = core.Percent(roll.Totals.Collected.Float(), roll.Totals.Due.Float())

	sort.SliceStable(roll.Items, func(i, j int) bool {
		a, b := roll.Items[i], roll.Items[j]
		if a.PropertyName != b.PropertyName {
			return a.PropertyName < b.PropertyName
		}
		return a.UnitNumber < b.UnitNumber
	})
	return roll, nil
}

// collectedRent sums the rent collected per tenant during the period.
func (svc *service) collectedRent(ctx context.Context, period core.Period, propertyIDs []string) (map[string]core.Money, error) {
	txs, err := svc.repo.QueryTransactions(ctx, &QueryFilter{
		Types:       []string{TypeIncome},
		Categories:  []string{CategoryRent},
		From:        period.From,
		To:          period.To,
		PropertyIDs: propertyIDs,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying rent payments")
	}
	collected := make(map[string]core.Money)
	for _, tx := range txs {
		if tx.TenantID != "" {
			collected[tx.TenantID] += tx.Amount
		}
	}
	return collected, nil
}

func (svc *service) CollectionRate(ctx context.Context, period string, propertyIDs []string) (float64, error) {
	roll, err := svc.RentRoll(ctx, RentRollFilter{Period: period, PropertyIDs: propertyIDs})
	if err != nil {
		return 0, err
	}
	return roll.Totals.CollectionRate, nil
}

// Summary computes income, expenses and NOI (income - expenses) over a range of months.
func (svc *service) Summary(ctx context.Context, filter SummaryFilter) (Summary, error) {
	now := nowFunc().UTC()
	from, err := core.ParseMonth(filter.From, now)
	if err != nil {
		return Summary{}, core.NewFieldError("from", err.Error())
	}
	to := from
	if filter.To != "" {
		if to, err = core.ParseMonth(filter.To, now); err != nil {
			return Summary{}, core.NewFieldError("to", err.Error())
		}
		if to.From.Before(from.From) {
			return Summary{}, core.NewFieldError("to", errPeriodRange)
		}
	}

	txs, err := svc.repo.QueryTransactions(ctx, &QueryFilter{
		PropertyID:  filter.PropertyID,
		PropertyIDs: filter.PropertyIDs,
		From:        from.From,
		To:          to.To,
	}, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying transactions")
	}

	summary := Summary{From: from.Label(), To: to.Label()}
	categories := make(map[string]*CategoryTotal)
	properties := make(map[string]*PropertyNOI)
	for _, tx := range txs {
		ct, ok := categories[tx.Category]
		if !ok {
			ct = &CategoryTotal{Type: tx.Type, Category: tx.Category}
			categories[tx.Category] = ct
		}
		ct.Total += tx.Amount

		pn, ok := properties[tx.PropertyID]
		if !ok {
			pn = &PropertyNOI{PropertyID: tx.PropertyID}
			properties[tx.PropertyID] = pn
		}
		if tx.Type == TypeExpense {
			summary.Expenses += tx.Amount
			pn.Expenses += tx.Amount
		} else {
			summary.Income += tx.Amount
			pn.Income += tx.Amount
		}
		pn.NOI += tx.Signed()
	}
	summary.NOI = summary.Income - summary.Expenses

	summary.Categories = make([]CategoryTotal, 0, len(categories))
	for _, c := range Categories { // keep the chart of accounts order
		if ct, ok := categories[c]; ok {
			summary.Categories = append(summary.Categories, *ct)
		}
	}

	summary.Properties = make([]PropertyNOI, 0, len(properties))
	for id, pn := range properties {
		if prop, err := svc.propSvc.GetByID(ctx, id); err == nil {
			pn.PropertyName = prop.Name
		} else if !core.IsNotFound(err) {
			return Summary{}, errors.Wrap(err, "finding property")
		}
		summary.Properties = append(summary.Properties, *pn)
	}
	sort.Slice(summary.Properties, func(i, j int) bool {
		a, b := summary.Properties[i], summary.Properties[j]
		if a.NOI != b.NOI {
			return a.NOI > b.NOI
		}
		return a.PropertyID < b.PropertyID
	})
	return summary, nil
}
