package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/owner"
)

var ownerOrderings = comparators[owner.Owner]{
	"id":         byString(func(o owner.Owner) string { return o.ID }),
	"name":       byString(func(o owner.Owner) string { return o.Name }),
	"email":      byString(func(o owner.Owner) string { return o.Email }),
	"company":    byString(func(o owner.Owner) string { return o.Company }),
	"created_at": byTime(func(o owner.Owner) time.Time { return o.CreatedAt }),
}

type ownerRepository struct {
	db *DB
}

var _ owner.Repository = (*ownerRepository)(nil)

func NewOwnerRepository(db *DB) owner.Repository {
	return &ownerRepository{db: db}
}

func (repo *ownerRepository) CreateOwner(ctx context.Context, o owner.Owner) (owner.Owner, error) {
	o.ID = newID(o.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.owners, o.ID, o) }); err != nil {
		return owner.Owner{}, err
	}
	return o, nil
}

func (repo *ownerRepository) QueryOwners(ctx context.Context, filter *owner.QueryFilter, orderings []core.DBOrdering) ([]owner.Owner, error) {
	var owners []owner.Owner
	repo.db.read(func() {
		owners = repo.db.owners.filter(func(o owner.Owner) bool {
			return core.ContainsFold(filter.Search, o.Name, o.Email, o.Company) &&
				(len(filter.IDs) == 0 || core.StringIn(o.ID, filter.IDs))
		})
	})
	sortRows(owners, ownerOrderings, orderings, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return owners, nil
}

func (repo *ownerRepository) GetOwner(ctx context.Context, id string) (owner.Owner, error) {
	var (
		o  owner.Owner
		ok bool
	)
	repo.db.read(func() { o, ok = repo.db.owners.get(id) })
	if !ok {
		return owner.Owner{}, owner.ErrNotFound
	}
	return o, nil
}

func (repo *ownerRepository) UpdateOwner(ctx context.Context, o owner.Owner) (owner.Owner, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.owners.has(o.ID) {
			return owner.ErrNotFound
		}
		return put(tx, repo.db.owners, o.ID, o)
	})
	if err != nil {
		return owner.Owner{}, err
	}
	return o, nil
}

func (repo *ownerRepository) DeleteOwner(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.owners.has(id) {
			return owner.ErrNotFound
		}
		remove(tx, repo.db.owners, id)
		return nil
	})
}
