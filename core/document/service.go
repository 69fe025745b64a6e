package document

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("document")

	errNotFound = "not found"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateDocument(ctx context.Context, doc Document) (Document, error)
		// QueryDocuments applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Document.Name.
		QueryDocuments(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Document, error)
		GetDocument(ctx context.Context, id string) (Document, error)
		UpdateDocument(ctx context.Context, doc Document) (Document, error)
		DeleteDocument(ctx context.Context, id string) error

		// Exists reports whether an entity of `kind` (property, tenant or owner) exists.
		Exists(ctx context.Context, kind, id string) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, nd NewDocument, uploadedBy string) (Document, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Document, error)
		GetByID(ctx context.Context, id string) (Document, error)
		Update(ctx context.Context, doc Document, nd NewDocument) (Document, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &service{repo: repo}
}

// checkRefs makes sure the entities a document is attached to exist.
func (svc *service) checkRefs(ctx context.Context, nd NewDocument) error {
	refs := []struct{ field, kind, id string }{
		{"property_id", "property", nd.PropertyID},
		{"tenant_id", "tenant", nd.TenantID},
		{"owner_id", "owner", nd.OwnerID},
	}
	for _, ref := range refs {
		if ref.id == "" {
			continue
		}
		exists, err := svc.repo.Exists(ctx, ref.kind, ref.id)
		if err != nil {
			return errors.Wrapf(err, "checking %s", ref.kind)
		}
		if !exists {
			return core.NewFieldError(ref.field, ref.kind+" "+errNotFound)
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nd NewDocument, uploadedBy string) (Document, error) {
	if err := svc.checkRefs(ctx, nd); err != nil {
		return Document{}, err
	}
	now := nowFunc().UTC()
	doc := Document{UploadedBy: uploadedBy, CreatedAt: now}
	apply(&doc, nd, now)
	return svc.repo.CreateDocument(ctx, doc)
}

func apply(doc *Document, nd NewDocument, now time.Time) {
	doc.Name = nd.Name
	doc.Category = nd.Category
	doc.PropertyID = nd.PropertyID
	doc.TenantID = nd.TenantID
	doc.OwnerID = nd.OwnerID
	doc.URL = nd.URL
	doc.ContentType = nd.ContentType
	doc.Size = nd.Size
	doc.SharedWithTenant = nd.SharedWithTenant
	doc.UpdatedAt = now
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Document, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryDocuments(ctx, filter, orderings)
}

func (svc *service) GetByID(ctx context.Context, id string) (Document, error) {
	return svc.repo.GetDocument(ctx, id)
}

func (svc *service) Update(ctx context.Context, doc Document, nd NewDocument) (Document, error) {
	if err := svc.checkRefs(ctx, nd); err != nil {
		return Document{}, err
	}
	apply(&doc, nd, nowFunc().UTC())
	return svc.repo.UpdateDocument(ctx, doc)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteDocument(ctx, id)
}
