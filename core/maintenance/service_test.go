package maintenance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/maintenance"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
	"github.com/trezcool/kodi/tests"
)

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want a validation error, got %v", err)
	if len(vErr.Fields) == 0 {
		return ""
	}
	return vErr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()

	tests := []struct {
		name      string
		nr        maintenance.NewRequest
		wantField string
		wantUnit  string
	}{
		{name: "unknown property", nr: maintenance.NewRequest{PropertyID: "nope"}, wantField: "property_id"},
		{name: "tenant elsewhere", nr: maintenance.NewRequest{PropertyID: "prop-maple", TenantID: "ten-patel"}, wantField: "tenant_id"},
		{name: "unit elsewhere", nr: maintenance.NewRequest{PropertyID: "prop-maple", UnitID: "unit-r-1"}, wantField: "unit_id"},
		{name: "common area", nr: maintenance.NewRequest{PropertyID: "prop-maple"}},
		{name: "unit from tenant", nr: maintenance.NewRequest{PropertyID: "prop-maple", TenantID: "ten-chen"}, wantUnit: "unit-m-102"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.nr.Title, tt.nr.Category, tt.nr.Priority = "Broken", "general", maintenance.PriorityLow
			r, err := env.Maintenance.Create(ctx, tt.nr)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, fieldOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, maintenance.StatusNew, r.Status)
			assert.Equal(t, tt.wantUnit, r.UnitID)
		})
	}
}

func TestService_Workflow(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()

	// new -> in progress needs a vendor
	_, err := env.Maintenance.ChangeStatus(ctx, "req-ac", maintenance.ChangeStatus{Status: maintenance.StatusInProgress})
	assert.Equal(t, "status", fieldOf(t, err))

	_, err = env.Maintenance.AssignVendor(ctx, "req-ac", maintenance.AssignVendor{VendorID: "nope"})
	assert.Equal(t, "vendor_id", fieldOf(t, err))

	r, err := env.Maintenance.AssignVendor(ctx, "req-ac", maintenance.AssignVendor{VendorID: "ven-coolair"})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusAssigned, r.Status)
	assert.Equal(t, "ven-coolair", r.VendorID)

	sent := env.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "service@coolair.example.com", sent[0].To[0].Address)
	assert.Equal(t, "New work order: AC not cooling", sent[0].Subject)
	data, ok := sent[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Riverside Lofts", data["PropertyName"])
	assert.Equal(t, "L1", data["UnitNumber"])

	// the vendor is busy now
	assert.IsType(t, &core.ValidationError{}, env.Maintenance.DeleteVendor(ctx, "ven-coolair"))

	_, err = env.Maintenance.ChangeStatus(ctx, "req-ac", maintenance.ChangeStatus{Status: maintenance.StatusCompleted})
	assert.Equal(t, "status", fieldOf(t, err))

	r, err = env.Maintenance.ChangeStatus(ctx, "req-ac", maintenance.ChangeStatus{Status: maintenance.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusInProgress, r.Status)

	r, err = env.Maintenance.ChangeStatus(ctx, "req-ac", maintenance.ChangeStatus{Status: maintenance.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusCompleted, r.Status)
	assert.Equal(t, core.Money(40000), r.ActualCost) // estimated cost by default
	assert.False(t, r.CompletedAt.IsZero())

	txs, err := env.Finance.Query(ctx, &finance.QueryFilter{Search: "req-ac"}, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, finance.TypeExpense, txs[0].Type)
	assert.Equal(t, finance.CategoryRepairs, txs[0].Category)
	assert.Equal(t, core.Money(40000), txs[0].Amount)
	assert.Equal(t, "prop-riverside", txs[0].PropertyID)

	assert.Equal(t, []string{
		core.EventMaintenanceAssigned,
		core.EventMaintenanceStatusChanged,
		core.EventMaintenanceStatusChanged,
	}, env.Events.Names())

	// closed requests are frozen
	_, err = env.Maintenance.ChangeStatus(ctx, "req-ac", maintenance.ChangeStatus{Status: maintenance.StatusCancelled})
	assert.IsType(t, &core.ValidationError{}, err)
	_, err = env.Maintenance.AssignVendor(ctx, "req-ac", maintenance.AssignVendor{VendorID: "ven-sparks"})
	assert.IsType(t, &core.ValidationError{}, err)

	assert.NoError(t, env.Maintenance.DeleteVendor(ctx, "ven-coolair"))
}

func TestService_ChangeStatus_cancel(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()

	r, err := env.Maintenance.ChangeStatus(ctx, "req-leak", maintenance.ChangeStatus{Status: maintenance.StatusCancelled, ActualCost: 1000})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusCancelled, r.Status)
	assert.Zero(t, r.ActualCost)

	// no expense booked
	txs, err := env.Finance.Query(ctx, &finance.QueryFilter{Search: "req-leak"}, nil)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// closingFails refuses to store completed requests.
type closingFails struct {
	maintenance.Repository
}

func (repo closingFails) UpdateRequest(ctx context.Context, r maintenance.Request) (maintenance.Request, error) {
	if r.Status == maintenance.StatusCompleted {
		return maintenance.Request{}, errors.New("requests are read-only")
	}
	return repo.Repository.UpdateRequest(ctx, r)
}

func TestService_ChangeStatus_failedCompletion(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()
	svc := maintenance.NewService(
		closingFails{inmemdb.NewMaintenanceRepository(env.DB)}, env.Properties, env.Tenants, env.Finance, env.Mail, env.Events, env.Logger,
	)

	_, err := svc.ChangeStatus(ctx, "req-leak", maintenance.ChangeStatus{Status: maintenance.StatusInProgress})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, "req-leak", maintenance.ChangeStatus{Status: maintenance.StatusCompleted})
	assert.Error(t, err)

	r, err := svc.GetByID(ctx, "req-leak")
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusInProgress, r.Status)
	txs, err := env.Finance.Query(ctx, &finance.QueryFilter{Search: "req-leak"}, nil)
	require.NoError(t, err)
	assert.Empty(t, txs, "no expense without a completed request")
}

func TestService_Board(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()

	_, err := env.Maintenance.Create(ctx, maintenance.NewRequest{
		PropertyID: "prop-oakplaza", Title: "Gas smell", Category: "general", Priority: maintenance.PriorityEmergency,
	})
	require.NoError(t, err)

	cols, err := env.Maintenance.Board(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cols, len(maintenance.Statuses))

	got := make(map[string][]string)
	for _, c := range cols {
		assert.Equal(t, c.Count, len(c.Requests))
		for _, r := range c.Requests {
			got[c.Status] = append(got[c.Status], r.Title)
		}
	}
	assert.Equal(t, []string{"Gas smell", "AC not cooling"}, got[maintenance.StatusNew])
	assert.Equal(t, []string{"Kitchen sink leaking"}, got[maintenance.StatusAssigned])
	assert.Equal(t, []string{"Parking lot lights out"}, got[maintenance.StatusCompleted])
	assert.Empty(t, got[maintenance.StatusCancelled])

	cols, err = env.Maintenance.Board(ctx, &maintenance.QueryFilter{Statuses: maintenance.OpenStatuses, PropertyIDs: []string{"prop-maple"}})
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, 0, cols[0].Count)
	assert.Equal(t, 1, cols[1].Count)
}
