package inmemdb

import (
	"context"

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

// SnapshotUser is a User along with its credentials. Password (plain text) is only read on Import,
// where it takes precedence over PasswordHash.
type SnapshotUser struct {
	user.User
	Password     string `json:"password,omitempty"`
	PasswordHash []byte `json:"password_hash,omitempty"`
}

// Snapshot holds every record of the store.
type Snapshot struct {
	Users         []SnapshotUser           `json:"users"`
	Owners        []owner.Owner            `json:"owners"`
	Properties    []property.Property      `json:"properties"`
	Buildings     []property.Building      `json:"buildings"`
	Units         []property.Unit          `json:"units"`
	Tenants       []tenant.Tenant          `json:"tenants"`
	Leases        []tenant.Lease           `json:"leases"`
	Vendors       []maintenance.Vendor     `json:"vendors"`
	Requests      []maintenance.Request    `json:"maintenance_requests"`
	Transactions  []finance.Transaction    `json:"transactions"`
	Documents     []document.Document      `json:"documents"`
	Conversations []messaging.Conversation `json:"conversations"`
	Messages      []messaging.Message      `json:"messages"`
}

// Export copies every record of the store.
func (db *DB) Export() Snapshot {
	var snap Snapshot
	db.read(func() {
		for _, usr := range db.users.filter(nil) {
			snap.Users = append(snap.Users, SnapshotUser{User: usr, PasswordHash: usr.PasswordHash})
		}
		snap.Owners = db.owners.filter(nil)
		snap.Properties = db.properties.filter(nil)
		snap.Buildings = db.buildings.filter(nil)
		snap.Units = db.units.filter(nil)
		snap.Tenants = db.tenants.filter(nil)
		snap.Leases = db.leases.filter(nil)
		snap.Vendors = db.vendors.filter(nil)
		snap.Requests = db.requests.filter(nil)
		snap.Transactions = db.transactions.filter(nil)
		snap.Documents = db.documents.filter(nil)
		snap.Conversations = db.conversations.filter(nil)
		snap.Messages = db.messages.filter(nil)
	})
	return snap
}

// Import upserts every record of a snapshot in a single write. Every record needs an ID.
func (db *DB) Import(ctx context.Context, snap Snapshot) error {
	users := make([]user.User, 0, len(snap.Users))
	for _, su := range snap.Users {
		usr := su.User
		usr.PasswordHash = su.PasswordHash
		if su.Password != "" {
			if err := usr.SetPassword(su.Password); err != nil {
				return errors.Wrapf(err, "hashing password of %s", usr.Username)
			}
		}
		users = append(users, usr)
	}
	tenants := make([]tenant.Tenant, 0, len(snap.Tenants))
	for _, t := range snap.Tenants {
		t.PropertyName, t.UnitNumber = "", ""
		tenants = append(tenants, t)
	}

	return db.write(ctx, func(tx *txn) error {
		for _, err := range []error{
			putAll(tx, db.users, users, func(u user.User) string { return u.ID }),
			putAll(tx, db.owners, snap.Owners, func(o owner.Owner) string { return o.ID }),
			putAll(tx, db.properties, snap.Properties, func(p property.Property) string { return p.ID }),
			putAll(tx, db.buildings, snap.Buildings, func(b property.Building) string { return b.ID }),
			putAll(tx, db.units, snap.Units, func(u property.Unit) string { return u.ID }),
			putAll(tx, db.tenants, tenants, func(t tenant.Tenant) string { return t.ID }),
			putAll(tx, db.leases, snap.Leases, func(l tenant.Lease) string { return l.ID }),
			putAll(tx, db.vendors, snap.Vendors, func(v maintenance.Vendor) string { return v.ID }),
			putAll(tx, db.requests, snap.Requests, func(r maintenance.Request) string { return r.ID }),
			putAll(tx, db.transactions, snap.Transactions, func(t finance.Transaction) string { return t.ID }),
			putAll(tx, db.documents, snap.Documents, func(d document.Document) string { return d.ID }),
			putAll(tx, db.conversations, snap.Conversations, func(c messaging.Conversation) string { return c.ID }),
			putAll(tx, db.messages, snap.Messages, func(m messaging.Message) string { return m.ID }),
		} {
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func putAll[T any](tx *txn, tbl *table[T], rows []T, id func(T) string) error {
	for _, row := range rows {
		rid := id(row)
		if rid == "" {
			return errors.Errorf("%s without id", tbl.kind)
		}
		if err := put(tx, tbl, rid, row); err != nil {
			return err
		}
	}
	return nil
}
