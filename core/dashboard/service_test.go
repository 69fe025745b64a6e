package dashboard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/tests"
)

func TestService_Manager(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()
	period := core.MonthPeriod(time.Now()).Label()

	dash, err := env.Dashboard.Manager(ctx)
	require.NoError(t, err)
	assert.Equal(t, period, dash.Period)
	assert.Equal(t, 3, dash.Properties)
	assert.Equal(t, property.Occupancy{Units: 6, Occupied: 4, Vacant: 2, Rate: 66.7}, dash.Occupancy)
	assert.Equal(t, 4, dash.Tenants)
	assert.Equal(t, 2, dash.Maintenance.Open)
	assert.Equal(t, map[string]int{maintenance.PriorityHigh: 1, maintenance.PriorityMedium: 1}, dash.Maintenance.ByPriority)
	assert.LessOrEqual(t, len(dash.RecentTransactions), 5)
	for i := 1; i < len(dash.RecentTransactions); i++ {
		assert.False(t, dash.RecentTransactions[i].Date.After(dash.RecentTransactions[i-1].Date))
	}

	key := fmt.Sprintf("dashboard:manager:%s:v%d", period, env.DB.Version())
	_, ok := env.Cache.Get(key)
	assert.True(t, ok, "manager dashboard is cached")

	again, err := env.Dashboard.Manager(ctx)
	require.NoError(t, err)
	assert.Equal(t, dash.Maintenance, again.Maintenance)
	assert.Equal(t, dash.Occupancy, again.Occupancy)

	// writes invalidate
	_, err = env.Maintenance.Create(ctx, maintenance.NewRequest{
		PropertyID: "prop-oakplaza", Title: "Door jammed", Category: "general", Priority: maintenance.PriorityHigh,
	})
	require.NoError(t, err)
	dash, err = env.Dashboard.Manager(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dash.Maintenance.Open)
	assert.Equal(t, 2, dash.Maintenance.ByPriority[maintenance.PriorityHigh])
}

func TestService_Owner(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()

	dash, err := env.Dashboard.Owner(ctx, "own-hartwell")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hartwell", dash.Owner.Name)
	assert.Equal(t, 2, dash.Totals.Properties)
	assert.Equal(t, 2, dash.OpenMaintenance)

	dash, err = env.Dashboard.Owner(ctx, "own-okafor")
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Totals.Properties)
	assert.Zero(t, dash.OpenMaintenance)

	_, err = env.Dashboard.Owner(ctx, "own-nope")
	assert.True(t, core.IsNotFound(err))
}

func TestService_Tenant(t *testing.T) {
	env := testutil.NewEnv(t, true)
	ctx := context.Background()

	dash, err := env.Dashboard.Tenant(ctx, "ten-ramirez", "usr-ramirez")
	require.NoError(t, err)
	assert.Equal(t, "Sofia Ramirez", dash.Tenant.Name)
	require.NotNil(t, dash.Lease)
	assert.Equal(t, "lease-ramirez", dash.Lease.ID)
	require.Len(t, dash.OpenRequests, 1)
	assert.Equal(t, "req-leak", dash.OpenRequests[0].ID)
	assert.Equal(t, 1, dash.UnreadMessages)
	assert.Equal(t, 1, dash.SharedDocuments)

	_, err = env.Messaging.MarkRead(ctx, "conv-leak", "usr-ramirez")
	require.NoError(t, err)
	dash, err = env.Dashboard.Tenant(ctx, "ten-ramirez", "usr-ramirez")
	require.NoError(t, err)
	assert.Zero(t, dash.UnreadMessages)

	_, err = env.Dashboard.Tenant(ctx, "ten-nope", "usr-ramirez")
	assert.True(t, core.IsNotFound(err))
}
