package maintenance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

// Request priorities
const (
	PriorityLow       = "low"
	PriorityMedium    = "medium"
	PriorityHigh      = "high"
	PriorityEmergency = "emergency"
)

// Request statuses
const (
	StatusNew        = "new"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var (
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}
	Statuses   = []string{StatusNew, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled}
	Categories = []string{"plumbing", "electrical", "hvac", "appliance", "structural", "pest", "landscaping", "general"}
	Trades     = []string{"plumbing", "electrical", "hvac", "carpentry", "painting", "roofing", "pest", "landscaping", "cleaning", "general"}

	// OpenStatuses are the statuses of requests still needing work.
	OpenStatuses = []string{StatusNew, StatusAssigned, StatusInProgress}

	priorityRanks = map[string]int{PriorityEmergency: 0, PriorityHigh: 1, PriorityMedium: 2, PriorityLow: 3}

	// transitions lists the statuses reachable from each status through ChangeStatus.
	// new -> assigned only happens through AssignVendor.
	transitions = map[string][]string{
		StatusNew:        {StatusCancelled},
		StatusAssigned:   {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
	}
)

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Trade     string    `json:"trade"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Rating    float64   `json:"rating"`
	Preferred bool      `json:"preferred"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Request struct {
	ID            string     `json:"id"`
	PropertyID    string     `json:"property_id"`
	UnitID        string     `json:"unit_id,omitempty"`
	TenantID      string     `json:"tenant_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	VendorID      string     `json:"vendor_id,omitempty"`
	EstimatedCost core.Money `json:"estimated_cost"`
	ActualCost    core.Money `json:"actual_cost"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   time.Time  `json:"completed_at"`
}

func (r Request) IsOpen() bool {
	return core.StringIn(r.Status, OpenStatuses)
}

// NewVendor contains information needed to create or replace a Vendor.
type NewVendor struct {
	Name      string  `json:"name" validate:"required"`
	Company   string  `json:"company"`
	Trade     string  `json:"trade" validate:"required,trade"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     string  `json:"phone"`
	Rating    float64 `json:"rating" validate:"min=0,max=5"`
	Preferred bool    `json:"preferred"`
}

func (nv *NewVendor) Validate(validate *validator.Validate) error {
	nv.Name = core.CleanString(nv.Name)
	nv.Company = core.CleanString(nv.Company)
	nv.Trade = core.CleanString(nv.Trade, true /* lower */)
	nv.Email = core.CleanString(nv.Email, true /* lower */)
	nv.Phone = core.CleanString(nv.Phone)
	return validate.Struct(nv)
}

type VendorFilter struct {
	Search    string   `query:"search"` // name, company or email
	Trades    []string `query:"trade"`
	Preferred *bool    `query:"preferred"`
	IDs       []string `query:"id"`
}

func (vf *VendorFilter) Clean() {
	vf.Search = core.CleanString(vf.Search)
}

// NewRequest contains information needed to open a Request.
type NewRequest struct {
	PropertyID    string     `json:"property_id" validate:"required"`
	UnitID        string     `json:"unit_id"`
	TenantID      string     `json:"tenant_id"`
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description"`
	Category      string     `json:"category" validate:"required,requestcategory"`
	Priority      string     `json:"priority" validate:"required,priority"`
	EstimatedCost core.Money `json:"estimated_cost" validate:"min=0"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.PropertyID = core.CleanString(nr.PropertyID)
	nr.UnitID = core.CleanString(nr.UnitID)
	nr.TenantID = core.CleanString(nr.TenantID)
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Category = core.CleanString(nr.Category, true /* lower */)
	nr.Priority = core.CleanString(nr.Priority, true /* lower */)
	return validate.Struct(nr)
}

// UpdateRequest replaces the details of a Request. Its status changes through dedicated operations.
type UpdateRequest struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description"`
	Category      string     `json:"category" validate:"required,requestcategory"`
	Priority      string     `json:"priority" validate:"required,priority"`
	EstimatedCost core.Money `json:"estimated_cost" validate:"min=0"`
}

func (ur *UpdateRequest) Validate(validate *validator.Validate) error {
	ur.Title = core.CleanString(ur.Title)
	ur.Description = core.CleanString(ur.Description)
	ur.Category = core.CleanString(ur.Category, true /* lower */)
	ur.Priority = core.CleanString(ur.Priority, true /* lower */)
	return validate.Struct(ur)
}

type AssignVendor struct {
	VendorID string `json:"vendor_id" validate:"required"`
}

func (av *AssignVendor) Validate(validate *validator.Validate) error {
	av.VendorID = core.CleanString(av.VendorID)
	return validate.Struct(av)
}

type ChangeStatus struct {
	Status     string     `json:"status" validate:"required,requeststatus"`
	ActualCost core.Money `json:"actual_cost" validate:"min=0"` // booked as an expense on completion
}

func (cs *ChangeStatus) Validate(validate *validator.Validate) error {
	cs.Status = core.CleanString(cs.Status, true /* lower */)
	return validate.Struct(cs)
}

type QueryFilter struct {
	Search      string   `query:"search"` // title or description
	Statuses    []string `query:"status"`
	Priorities  []string `query:"priority"`
	PropertyID  string   `query:"property_id"`
	VendorID    string   `query:"vendor_id"`
	TenantID    string   `query:"tenant_id"`
	PropertyIDs []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.PropertyID = core.CleanString(qf.PropertyID)
	qf.VendorID = core.CleanString(qf.VendorID)
	qf.TenantID = core.CleanString(qf.TenantID)
}

// BoardColumn holds the requests of one status on the maintenance board.
type BoardColumn struct {
	Status   string    `json:"status"`
	Count    int       `json:"count"`
	Requests []Request `json:"requests"`
}
