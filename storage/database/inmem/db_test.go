package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/user"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memPersister keeps persisted records in a map, and fails every Apply when failing is set.
type memPersister struct {
	records map[string]Op
	applied int
	failing bool
}

func newMemPersister() *memPersister {
	return &memPersister{records: make(map[string]Op)}
}

func (p *memPersister) Apply(_ context.Context, ops ...Op) error {
	if p.failing {
		return errors.New("disk full")
	}
	p.applied++
	for _, op := range ops {
		key := op.Kind + "/" + op.ID
		if op.Data == nil {
			delete(p.records, key)
			continue
		}
		p.records[key] = op
	}
	return nil
}

func (p *memPersister) Load(context.Context) ([]Op, error) {
	ops := make([]Op, 0, len(p.records))
	for _, op := range p.records {
		ops = append(ops, op)
	}
	return ops, nil
}

func TestDB_write(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	db, err := Open(ctx, p)
	require.NoError(t, err)
	repo := NewOwnerRepository(db)

	o, err := repo.CreateOwner(ctx, owner.Owner{Name: "Grace Hartwell", Email: "grace@test.cd"})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, uint64(1), db.Version())
	assert.Contains(t, p.records, KindOwner+"/"+o.ID)

	// failed writes leave memory and version untouched
	p.failing = true
	o.Name = "Grace H."
	_, err = repo.UpdateOwner(ctx, o)
	assert.Error(t, err)
	assert.Equal(t, uint64(1), db.Version())
	got, err := repo.GetOwner(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hartwell", got.Name)

	// errors raised before persisting are returned as is
	p.failing = false
	err = repo.DeleteOwner(ctx, "own-nope")
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, 1, p.applied)

	require.NoError(t, repo.DeleteOwner(ctx, o.ID))
	assert.Equal(t, uint64(2), db.Version())
	assert.Empty(t, p.records)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	db, err := Open(ctx, p)
	require.NoError(t, err)

	usr := user.User{Username: "jamie", Email: "jamie@test.cd", Roles: []string{user.RoleManager}, IsActive: true}
	require.NoError(t, usr.SetPassword("Secret-2026"))
	usr, err = NewUserRepository(db).CreateUser(ctx, usr)
	require.NoError(t, err)
	_, err = NewOwnerRepository(db).CreateOwner(ctx, owner.Owner{ID: "own-1", Name: "Ann", Email: "ann@test.cd"})
	require.NoError(t, err)

	reopened, err := Open(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Counts()[KindUser])
	assert.Equal(t, 1, reopened.Counts()[KindOwner])
	assert.Zero(t, reopened.Version())

	got, err := NewUserRepository(reopened).GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("Secret-2026"))

	p.records["school/1"] = Op{Kind: "school", ID: "1", Data: []byte(`{}`)}
	_, err = Open(ctx, p)
	assert.Error(t, err)
}

func TestTable_clone(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, nil)
	require.NoError(t, err)
	repo := NewUserRepository(db)

	usr, err := repo.CreateUser(ctx, user.User{Username: "jamie", Email: "jamie@test.cd", Roles: []string{user.RoleManager}})
	require.NoError(t, err)

	got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	got.Roles[0] = user.RoleManagerAdmin

	got, err = repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleManager}, got.Roles)
}

func TestDB_ExportImport(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, nil)
	require.NoError(t, err)

	snap := Snapshot{
		Users:  []SnapshotUser{{User: user.User{ID: "usr-1", Username: "ann", Email: "ann@test.cd"}, Password: "Secret-2026"}},
		Owners: []owner.Owner{{ID: "own-1", Name: "Ann", Email: "ann@test.cd"}},
	}
	require.NoError(t, db.Import(ctx, snap))
	assert.Equal(t, uint64(1), db.Version())

	exported := db.Export()
	require.Len(t, exported.Users, 1)
	assert.Empty(t, exported.Users[0].Password)
	assert.NotEmpty(t, exported.Users[0].PasswordHash)
	assert.Equal(t, snap.Owners, exported.Owners)

	other, err := Open(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, other.Import(ctx, exported))
	usr, err := NewUserRepository(other).GetUser(ctx, user.GetFilter{ID: "usr-1"})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("Secret-2026"))

	err = other.Import(ctx, Snapshot{Owners: []owner.Owner{{Name: "No ID"}}})
	assert.Error(t, err)
	assert.Equal(t, 1, other.Counts()[KindOwner])
}
