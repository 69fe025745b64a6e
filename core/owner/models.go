package owner

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
)

type Owner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOwner contains information needed to create or replace an Owner.
type NewOwner struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
}

func (no *NewOwner) Validate(validate *validator.Validate) error {
	no.Name = core.CleanString(no.Name)
	no.Email = core.CleanString(no.Email, true /* lower */)
	no.Phone = core.CleanString(no.Phone)
	no.Company = core.CleanString(no.Company)
	no.Address = core.CleanString(no.Address)
	return validate.Struct(no)
}

type QueryFilter struct {
	Search string   `query:"search"` // name, email or company
	IDs    []string `query:"id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type PortfolioProperty struct {
	property.Summary
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	NOI      core.Money `json:"noi"`
}

type PortfolioTotals struct {
	Properties     int                `json:"properties"`
	Occupancy      property.Occupancy `json:"occupancy"`
	Income         core.Money         `json:"income"`
	Expenses       core.Money         `json:"expenses"`
	NOI            core.Money         `json:"noi"`
	CollectionRate float64            `json:"collection_rate"`
}

// Portfolio is the performance of an owner's properties over a month.
type Portfolio struct {
	Owner      Owner               `json:"owner"`
	Period     string              `json:"period"`
	Properties []PortfolioProperty `json:"properties"`
	Totals     PortfolioTotals     `json:"totals"`
}
