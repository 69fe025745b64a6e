package dashboard

import (
	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

type Maintenance struct {
	Open       int            `json:"open"`
	ByPriority map[string]int `json:"by_priority"`
}

type Finance struct {
	RentRoll finance.RentRollTotals `json:"rent_roll"`
	Income   core.Money             `json:"income"`
	Expenses core.Money             `json:"expenses"`
	NOI      core.Money             `json:"noi"` // month to date
}

// Manager is the overview of the whole portfolio for the current month.
type Manager struct {
	Period             string                `json:"period"`
	Properties         int                   `json:"properties"`
	Occupancy          property.Occupancy    `json:"occupancy"`
	Tenants            int                   `json:"tenants"`
	Maintenance        Maintenance           `json:"maintenance"`
	Finance            Finance               `json:"finance"`
	ExpiringLeases     []tenant.Lease        `json:"expiring_leases"`
	RecentTransactions []finance.Transaction `json:"recent_transactions"`
}

type Owner struct {
	owner.Portfolio
	OpenMaintenance int `json:"open_maintenance"`
}

// Tenant is what a tenant sees of their own tenancy.
type Tenant struct {
	Tenant          tenant.Tenant         `json:"tenant"`
	Lease           *tenant.Lease         `json:"lease"`
	Rent            *finance.RentRollItem `json:"rent"`
	OpenRequests    []maintenance.Request `json:"open_requests"`
	UnreadMessages  int                   `json:"unread_messages"`
	SharedDocuments int                   `json:"shared_documents"`
}
