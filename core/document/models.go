package document

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

var Categories = []string{"lease", "inspection", "insurance", "invoice", "notice", "tax", "other"}

type Document struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	PropertyID       string    `json:"property_id,omitempty"`
	TenantID         string    `json:"tenant_id,omitempty"`
	OwnerID          string    `json:"owner_id,omitempty"`
	URL              string    `json:"url"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	SharedWithTenant bool      `json:"shared_with_tenant"`
	UploadedBy       string    `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewDocument contains the metadata of a stored file. Files live outside of Kodi, at URL.
type NewDocument struct {
	Name             string `json:"name" validate:"required,max=200"`
	Category         string `json:"category" validate:"required,doccategory"`
	PropertyID       string `json:"property_id"`
	TenantID         string `json:"tenant_id"`
	OwnerID          string `json:"owner_id"`
	URL              string `json:"url" validate:"required,url"`
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size" validate:"min=0"`
	SharedWithTenant bool   `json:"shared_with_tenant"`
}

func (nd *NewDocument) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.Category = core.CleanString(nd.Category, true /* lower */)
	nd.PropertyID = core.CleanString(nd.PropertyID)
	nd.TenantID = core.CleanString(nd.TenantID)
	nd.OwnerID = core.CleanString(nd.OwnerID)
	nd.URL = core.CleanString(nd.URL)
	nd.ContentType = core.CleanString(nd.ContentType, true /* lower */)
	return validate.Struct(nd)
}

type QueryFilter struct {
	Search      string   `query:"search"` // name
	Categories  []string `query:"category"`
	PropertyID  string   `query:"property_id"`
	TenantID    string   `query:"tenant_id"`
	OwnerID     string   `query:"owner_id"`
	Shared      *bool    `query:"shared"`
	PropertyIDs []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.PropertyID = core.CleanString(qf.PropertyID)
	qf.TenantID = core.CleanString(qf.TenantID)
	qf.OwnerID = core.CleanString(qf.OwnerID)
}
