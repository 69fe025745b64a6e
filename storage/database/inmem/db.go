package inmemdb

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/document"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/messaging"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
	"github.com/trezcool/kodi/core/user"
)

// Record kinds, as stored by a Persister.
const (
	KindUser         = "user"
	KindOwner        = "owner"
	KindProperty     = "property"
	KindBuilding     = "building"
	KindUnit         = "unit"
	KindTenant       = "tenant"
	KindLease        = "lease"
	KindVendor       = "vendor"
	KindRequest      = "maintenance_request"
	KindTransaction  = "transaction"
	KindDocument     = "document"
	KindConversation = "conversation"
	KindMessage      = "message"
)

type (
	// Op is one record write. A nil Data deletes the record.
	Op struct {
		Kind string
		ID   string
		Data []byte
	}

	// Persister mirrors the store into durable storage.
	// Apply must persist all ops atomically, Load returns every stored record.
	Persister interface {
		Apply(ctx context.Context, ops ...Op) error
		Load(ctx context.Context) ([]Op, error)
	}

	// DB is the single data store shared by every repository.
	// Reads share the lock, writes are exclusive and bump Version.
	DB struct {
		mu        sync.RWMutex
		version   atomic.Uint64
		persister Persister

		users         *table[user.User]
		owners        *table[owner.Owner]
		properties    *table[property.Property]
		buildings     *table[property.Building]
		units         *table[property.Unit]
		tenants       *table[tenant.Tenant]
		leases        *table[tenant.Lease]
		vendors       *table[maintenance.Vendor]
		requests      *table[maintenance.Request]
		transactions  *table[finance.Transaction]
		documents     *table[document.Document]
		conversations *table[messaging.Conversation]
		messages      *table[messaging.Message]

		tables map[string]loader
	}
)

// Open creates an empty store. When a persister is given, the store is hydrated from it
// and every subsequent write goes through it.
func Open(ctx context.Context, persister Persister) (*DB, error) {
	db := &DB{
		persister:     persister,
		users:         newTable(KindUser, cloneUser).withCodec(marshalUser, unmarshalUser),
		owners:        newTable[owner.Owner](KindOwner, nil),
		properties:    newTable[property.Property](KindProperty, nil),
		buildings:     newTable[property.Building](KindBuilding, nil),
		units:         newTable(KindUnit, cloneUnit),
		tenants:       newTable(KindTenant, cloneTenant),
		leases:        newTable[tenant.Lease](KindLease, nil),
		vendors:       newTable[maintenance.Vendor](KindVendor, nil),
		requests:      newTable[maintenance.Request](KindRequest, nil),
		transactions:  newTable[finance.Transaction](KindTransaction, nil),
		documents:     newTable[document.Document](KindDocument, nil),
		conversations: newTable(KindConversation, cloneConversation),
		messages:      newTable(KindMessage, cloneMessage),
	}
	db.tables = map[string]loader{
		KindUser:         db.users,
		KindOwner:        db.owners,
		KindProperty:     db.properties,
		KindBuilding:     db.buildings,
		KindUnit:         db.units,
		KindTenant:       db.tenants,
		KindLease:        db.leases,
		KindVendor:       db.vendors,
		KindRequest:      db.requests,
		KindTransaction:  db.transactions,
		KindDocument:     db.documents,
		KindConversation: db.conversations,
		KindMessage:      db.messages,
	}

	if persister != nil {
		records, err := persister.Load(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "loading records")
		}
		for _, rec := range records {
			tbl, ok := db.tables[rec.Kind]
			if !ok {
				return nil, errors.Errorf("unknown record kind %q", rec.Kind)
			}
			if err = tbl.load(rec.ID, rec.Data); err != nil {
				return nil, errors.Wrapf(err, "loading %s %s", rec.Kind, rec.ID)
			}
		}
	}
	return db, nil
}

// Version changes on every write.
func (db *DB) Version() uint64 {
	return db.version.Load()
}

// Counts returns the number of records per kind.
func (db *DB) Counts() map[string]int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	counts := make(map[string]int, len(db.tables))
	for kind, tbl := range db.tables {
		counts[kind] = tbl.len()
	}
	return counts
}

func (db *DB) read(fn func()) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn()
}

// write runs fn under the write lock. The changes fn stages on the txn are persisted first,
// then applied to memory; nothing is applied when fn or the persister fails.
func (db *DB) write(ctx context.Context, fn func(tx *txn) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx := &txn{persist: db.persister != nil}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.apply) == 0 {
		return nil
	}
	if tx.persist {
		if err := db.persister.Apply(ctx, tx.ops...); err != nil {
			return errors.Wrap(err, "persisting changes")
		}
	}
	for _, apply := range tx.apply {
		apply()
	}
	db.version.Add(1)
	return nil
}

type txn struct {
	persist bool
	ops     []Op
	apply   []func()
}

func put[T any](tx *txn, tbl *table[T], id string, row T) error {
	if tx.persist {
		data, err := tbl.marshal(row)
		if err != nil {
			return errors.Wrapf(err, "encoding %s", tbl.kind)
		}
		tx.ops = append(tx.ops, Op{Kind: tbl.kind, ID: id, Data: data})
	}
	row = tbl.clone(row)
	tx.apply = append(tx.apply, func() { tbl.rows[id] = row })
	return nil
}

func remove[T any](tx *txn, tbl *table[T], ids ...string) {
	for _, id := range ids {
		if tx.persist {
			tx.ops = append(tx.ops, Op{Kind: tbl.kind, ID: id})
		}
		tx.apply = append(tx.apply, func() { delete(tbl.rows, id) })
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func jsonMarshal[T any](row T) ([]byte, error) { return json.Marshal(row) }

func jsonUnmarshal[T any](data []byte) (T, error) {
	var row T
	err := json.Unmarshal(data, &row)
	return row, err
}
