package finance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

// Transaction types
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction categories
const (
	CategoryRent         = "rent"
	CategoryLateFee      = "late_fee"
	CategoryDeposit      = "deposit"
	CategoryOtherIncome  = "other_income"
	CategoryRepairs      = "repairs"
	CategoryUtilities    = "utilities"
	CategoryInsurance    = "insurance"
	CategoryTaxes        = "taxes"
	CategoryManagement   = "management"
	CategoryMortgage     = "mortgage"
	CategoryOtherExpense = "other_expense"
)

// Rent roll statuses
const (
	RentPaid     = "paid"
	RentPartial  = "partial"
	RentOverdue  = "overdue"
	RentUpcoming = "upcoming"
)

var (
	Types             = []string{TypeIncome, TypeExpense}
	IncomeCategories  = []string{CategoryRent, CategoryLateFee, CategoryDeposit, CategoryOtherIncome}
	ExpenseCategories = []string{
		CategoryRepairs, CategoryUtilities, CategoryInsurance, CategoryTaxes,
		CategoryManagement, CategoryMortgage, CategoryOtherExpense,
	}
	Categories     = append(append([]string{}, IncomeCategories...), ExpenseCategories...)
	RentStatuses   = []string{RentPaid, RentPartial, RentOverdue, RentUpcoming}
	PaymentMethods = []string{"cash", "check", "ach", "card", "online"}
)

type Transaction struct {
	ID          string     `json:"id"`
	PropertyID  string     `json:"property_id"`
	UnitID      string     `json:"unit_id,omitempty"`
	TenantID    string     `json:"tenant_id,omitempty"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description"`
	Reference   string     `json:"reference,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Signed returns the amount as seen by the books: positive for income, negative for expenses.
func (t Transaction) Signed() core.Money {
	if t.Type == TypeExpense {
		return -t.Amount
	}
	return t.Amount
}

// NewTransaction contains information needed to book a Transaction.
type NewTransaction struct {
	PropertyID  string     `json:"property_id" validate:"required"`
	UnitID      string     `json:"unit_id"`
	TenantID    string     `json:"tenant_id"`
	Type        string     `json:"type" validate:"required,txtype"`
	Category    string     `json:"category" validate:"required,txcategory"`
	Amount      core.Money `json:"amount" validate:"gt=0"`
	Date        time.Time  `json:"date"` // defaults to now
	Description string     `json:"description" validate:"max=500"`
	Reference   string     `json:"reference" validate:"max=100"`
}

func (nt *NewTransaction) Validate(validate *validator.Validate) error {
	nt.PropertyID = core.CleanString(nt.PropertyID)
	nt.UnitID = core.CleanString(nt.UnitID)
	nt.TenantID = core.CleanString(nt.TenantID)
	nt.Type = core.CleanString(nt.Type, true /* lower */)
	nt.Category = core.CleanString(nt.Category, true /* lower */)
	nt.Description = core.CleanString(nt.Description)
	nt.Reference = core.CleanString(nt.Reference)
	return validate.Struct(nt)
}

// Payment is a rent payment received from a tenant.
type Payment struct {
	TenantID  string     `json:"tenant_id" validate:"required"`
	Amount    core.Money `json:"amount" validate:"gt=0"`
	Date      time.Time  `json:"date"` // defaults to now
	Method    string     `json:"method" validate:"required,paymentmethod"`
	Reference string     `json:"reference" validate:"max=100"`
}

func (p *Payment) Validate(validate *validator.Validate) error {
	p.TenantID = core.CleanString(p.TenantID)
	p.Method = core.CleanString(p.Method, true /* lower */)
	p.Reference = core.CleanString(p.Reference)
	return validate.Struct(p)
}

type QueryFilter struct {
	Search      string    `query:"search"` // description or reference
	Types       []string  `query:"type"`
	Categories  []string  `query:"category"`
	PropertyID  string    `query:"property_id"`
	TenantID    string    `query:"tenant_id"`
	From        time.Time `query:"-"`
	To          time.Time `query:"-"`
	PropertyIDs []string  `query:"-"`
	Limit       int       `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.PropertyID = core.CleanString(qf.PropertyID)
	qf.TenantID = core.CleanString(qf.TenantID)
}

// RentRollItem is the rent situation of one current tenant for a month.
type RentRollItem struct {
	TenantID     string     `json:"tenant_id"`
	TenantName   string     `json:"tenant_name"`
	PropertyID   string     `json:"property_id"`
	PropertyName string     `json:"property_name"`
	UnitID       string     `json:"unit_id"`
	UnitNumber   string     `json:"unit_number"`
	RentDue      core.Money `json:"rent_due"`
	Collected    core.Money `json:"collected"`
	Balance      core.Money `json:"balance"`
	DueDate      time.Time  `json:"due_date"`
	Status       string     `json:"status"`
}

// rentStatus derives the status of a rent roll item at `now`.
func rentStatus(due, collected core.Money, dueDate, now time.Time) string {
	switch {
	case collected >= due:
		return RentPaid
	case now.Before(dueDate):
		return RentUpcoming
	case collected > 0:
		return RentPartial
	default:
		return RentOverdue
	}
}

type RentRollTotals struct {
	Due            core.Money     `json:"due"`
	Collected      core.Money     `json:"collected"`
	Outstanding    core.Money     `json:"outstanding"`
	CollectionRate float64        `json:"collection_rate"`
	Counts         map[string]int `json:"counts"` // per status, before filtering by status
}

type RentRoll struct {
	Period string         `json:"period"`
	Items  []RentRollItem `json:"items"`
	Totals RentRollTotals `json:"totals"`
}

type RentRollFilter struct {
	Period      string   `query:"period" validate:"omitempty,period"`
	Statuses    []string `query:"status" validate:"omitempty,dive,rentstatus"`
	PropertyID  string   `query:"property_id"`
	Search      string   `query:"search"` // tenant name, property name or unit number
	PropertyIDs []string `query:"-"`
	TenantID    string   `query:"-"`
}

func (rf *RentRollFilter) Validate(validate *validator.Validate) error {
	rf.Period = core.CleanString(rf.Period)
	rf.PropertyID = core.CleanString(rf.PropertyID)
	rf.Search = core.CleanString(rf.Search)
	for i, s := range rf.Statuses {
		rf.Statuses[i] = core.CleanString(s, true /* lower */)
	}
	return validate.Struct(rf)
}

type CategoryTotal struct {
	Type     string     `json:"type"`
	Category string     `json:"category"`
	Total    core.Money `json:"total"`
}

type PropertyNOI struct {
	PropertyID   string     `json:"property_id"`
	PropertyName string     `json:"property_name"`
	Income       core.Money `json:"income"`
	Expenses     core.Money `json:"expenses"`
	NOI          core.Money `json:"noi"`
}

// Summary is the profit & loss statement of a period.
type Summary struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Income     core.Money      `json:"income"`
	Expenses   core.Money      `json:"expenses"`
	NOI        core.Money      `json:"noi"`
	Categories []CategoryTotal `json:"categories"`
	Properties []PropertyNOI   `json:"properties"`
}

type SummaryFilter struct {
	From        string   `query:"from" validate:"omitempty,period"` // first month, defaults to the current one
	To          string   `query:"to" validate:"omitempty,period"`   // last month (inclusive), defaults to From
	PropertyID  string   `query:"property_id"`
	PropertyIDs []string `query:"-"`
}

func (sf *SummaryFilter) Validate(validate *validator.Validate) error {
	sf.From = core.CleanString(sf.From)
	sf.To = core.CleanString(sf.To)
	sf.PropertyID = core.CleanString(sf.PropertyID)
	return validate.Struct(sf)
}
