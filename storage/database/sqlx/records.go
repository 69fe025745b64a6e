package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
)

const (
	upsertRecord = `
INSERT INTO records (kind, id, data, created_at, updated_at, deleted_at)
VALUES ($1, $2, $3, $4, $4, NULL)
ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at, deleted_at = NULL`

	deleteRecord = `UPDATE records SET deleted_at = $3, updated_at = $3 WHERE kind = $1 AND id = $2`

	selectRecords = `SELECT kind, id, data, created_at, updated_at, deleted_at FROM records WHERE deleted_at IS NULL ORDER BY kind, created_at, id`
)

var nowFunc = time.Now // mockable

type record struct {
	Kind      string    `db:"kind"`
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	DeletedAt null.Time `db:"deleted_at"`
}

// RecordStore persists the in-memory store as JSON documents of the `records` table.
// Deleted records are kept, with their deleted_at set.
type RecordStore struct {
	db *sqlx.DB
}

var _ inmemdb.Persister = (*RecordStore)(nil)

func NewRecordStore(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (store *RecordStore) Apply(ctx context.Context, ops ...inmemdb.Op) (err error) {
	if len(ops) == 0 {
		return nil
	}
	tx, err := store.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := nowFunc().UTC()
	for _, op := range ops {
		if op.Data == nil {
			_, err = tx.ExecContext(ctx, deleteRecord, op.Kind, op.ID, now)
		} else {
			_, err = tx.ExecContext(ctx, upsertRecord, op.Kind, op.ID, op.Data, now)
		}
		if err != nil {
			return errors.Wrapf(err, "writing %s %s", op.Kind, op.ID)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (store *RecordStore) Load(ctx context.Context) ([]inmemdb.Op, error) {
	var records []record
	if err := store.db.SelectContext(ctx, &records, selectRecords); err != nil {
		return nil, errors.Wrap(err, "selecting records")
	}
	ops := make([]inmemdb.Op, 0, len(records))
	for _, rec := range records {
		if rec.DeletedAt.Valid {
			continue
		}
		ops = append(ops, inmemdb.Op{Kind: rec.Kind, ID: rec.ID, Data: rec.Data})
	}
	return ops, nil
}
