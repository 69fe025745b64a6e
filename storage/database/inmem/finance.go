package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
)

var transactionOrderings = comparators[finance.Transaction]{
	"id":         byString(func(t finance.Transaction) string { return t.ID }),
	"type":       byString(func(t finance.Transaction) string { return t.Type }),
	"category":   byString(func(t finance.Transaction) string { return t.Category }),
	"amount":     byNumber(func(t finance.Transaction) core.Money { return t.Amount }),
	"date":       byTime(func(t finance.Transaction) time.Time { return t.Date }),
	"created_at": byTime(func(t finance.Transaction) time.Time { return t.CreatedAt }),
}

type financeRepository struct {
	db *DB
}

var _ finance.Repository = (*financeRepository)(nil)

func NewFinanceRepository(db *DB) finance.Repository {
	return &financeRepository{db: db}
}

func (repo *financeRepository) CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, error) {
	tx.ID = newID(tx.ID)
	if err := repo.db.write(ctx, func(t *txn) error { return put(t, repo.db.transactions, tx.ID, tx) }); err != nil {
		return finance.Transaction{}, err
	}
	return tx, nil
}

// QueryTransactions also honours QueryFilter.Limit, applied after ordering.
func (repo *financeRepository) QueryTransactions(ctx context.Context, filter *finance.QueryFilter, orderings []core.DBOrdering) ([]finance.Transaction, error) {
	var txs []finance.Transaction
	repo.db.read(func() {
		txs = repo.db.transactions.filter(func(t finance.Transaction) bool {
			switch {
			case !core.ContainsFold(filter.Search, t.Description, t.Reference):
				return false
			case !core.StringIn(t.Type, filter.Types):
				return false
			case !core.StringIn(t.Category, filter.Categories):
				return false
			case filter.PropertyID != "" && t.PropertyID != filter.PropertyID:
				return false
			case filter.TenantID != "" && t.TenantID != filter.TenantID:
				return false
			case !inRange(t.Date, filter.From, filter.To):
				return false
			}
			return core.InScope(t.PropertyID, filter.PropertyIDs)
		})
	})
	sortRows(txs, transactionOrderings, orderings, core.DBOrdering{Field: "date"}, core.DBOrdering{Field: "id", Ascending: true})
	if filter.Limit > 0 && len(txs) > filter.Limit {
		txs = txs[:filter.Limit]
	}
	return txs, nil
}

func (repo *financeRepository) GetTransaction(ctx context.Context, id string) (finance.Transaction, error) {
	var (
		tx finance.Transaction
		ok bool
	)
	repo.db.read(func() { tx, ok = repo.db.transactions.get(id) })
	if !ok {
		return finance.Transaction{}, finance.ErrNotFound
	}
	return tx, nil
}

func (repo *financeRepository) DeleteTransaction(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(t *txn) error {
		if !repo.db.transactions.has(id) {
			return finance.ErrNotFound
		}
		remove(t, repo.db.transactions, id)
		return nil
	})
}
