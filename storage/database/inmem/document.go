package inmemdb

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/document"
)

var documentOrderings = comparators[document.Document]{
	"id":         byString(func(d document.Document) string { return d.ID }),
	"name":       byString(func(d document.Document) string { return d.Name }),
	"category":   byString(func(d document.Document) string { return d.Category }),
	"size":       byNumber(func(d document.Document) int64 { return d.Size }),
	"created_at": byTime(func(d document.Document) time.Time { return d.CreatedAt }),
}

type documentRepository struct {
	db *DB
}

var _ document.Repository = (*documentRepository)(nil)

func NewDocumentRepository(db *DB) document.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	doc.ID = newID(doc.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.documents, doc.ID, doc) }); err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

func (repo *documentRepository) QueryDocuments(ctx context.Context, filter *document.QueryFilter, orderings []core.DBOrdering) ([]document.Document, error) {
	var docs []document.Document
	repo.db.read(func() {
		docs = repo.db.documents.filter(func(d document.Document) bool {
			switch {
			case !core.ContainsFold(filter.Search, d.Name):
				return false
			case !core.StringIn(d.Category, filter.Categories):
				return false
			case filter.PropertyID != "" && d.PropertyID != filter.PropertyID:
				return false
			case filter.TenantID != "" && d.TenantID != filter.TenantID:
				return false
			case filter.OwnerID != "" && d.OwnerID != filter.OwnerID:
				return false
			case filter.Shared != nil && d.SharedWithTenant != *filter.Shared:
				return false
			}
			return core.InScope(d.PropertyID, filter.PropertyIDs)
		})
	})
	sortRows(docs, documentOrderings, orderings, core.DBOrdering{Field: "created_at"}, core.DBOrdering{Field: "id", Ascending: true})
	return docs, nil
}

func (repo *documentRepository) GetDocument(ctx context.Context, id string) (document.Document, error) {
	var (
		doc document.Document
		ok  bool
	)
	repo.db.read(func() { doc, ok = repo.db.documents.get(id) })
	if !ok {
		return document.Document{}, document.ErrNotFound
	}
	return doc, nil
}

func (repo *documentRepository) UpdateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.documents.has(doc.ID) {
			return document.ErrNotFound
		}
		return put(tx, repo.db.documents, doc.ID, doc)
	})
	if err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

func (repo *documentRepository) DeleteDocument(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.documents.has(id) {
			return document.ErrNotFound
		}
		remove(tx, repo.db.documents, id)
		return nil
	})
}

func (repo *documentRepository) Exists(ctx context.Context, kind, id string) (bool, error) {
	var tbl interface{ has(string) bool }
	switch kind {
	case KindProperty:
		tbl = repo.db.properties
	case KindTenant:
		tbl = repo.db.tenants
	case KindOwner:
		tbl = repo.db.owners
	default:
		return false, errors.Errorf("unknown kind %q", kind)
	}
	var ok bool
	repo.db.read(func() { ok = tbl.has(id) })
	return ok, nil
}
