package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
)

func Test_financeApi_transactions(t *testing.T) {
	srv, env := setup(t, true)
	ctx := context.Background()

	get := func(id string) finance.Transaction {
		tx, err := env.Finance.GetByID(ctx, id)
		require.NoError(t, err)
		return tx
	}

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")
	tenantToken := getUserToken(t, env, "sramirez")

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "Auth required", path: "/api/transactions", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "tenants have no books", path: "/api/transactions", token: tenantToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name:     "owner income of a month",
			path:     "/api/transactions?period=2026-01&type=income",
			token:    ownerToken,
			wantData: marchallList(t, get("tx-008"), get("tx-009")),
		},
		{
			name:     "manager expenses",
			path:     "/api/transactions?type=expense",
			token:    managerToken,
			wantData: marchallList(t, get("tx-005"), get("tx-006"), get("tx-007")),
		},
		{
			name:     "search by reference",
			path:     "/api/transactions?search=req-lights",
			token:    managerToken,
			wantData: marchallList(t, get("tx-005")),
		},
		{
			name:     "owner filtering out of scope",
			path:     "/api/transactions?property_id=prop-oakplaza",
			token:    ownerToken,
			wantData: marchallList(t),
		},
		{
			name:     "invalid period",
			path:     "/api/transactions?period=2026/01",
			token:    managerToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"period": "invalid period, expected YYYY-MM"}`),
		},
	})

	t.Run("create", func(t *testing.T) {
		body := finance.NewTransaction{
			PropertyID: "prop-maple",
			Type:       "Income",
			Category:   "repairs",
			Amount:     core.NewMoney(80),
		}

		req, rec := newAuthRequest(http.MethodPost, "/api/transactions", ownerToken, marchallObj(t, body))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodPost, "/api/transactions", managerToken, marchallObj(t, body))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var errs map[string]string
		unmarchall(t, rec, &errs)
		assert.Contains(t, errs, "category")

		body.Category = finance.CategoryLateFee
		body.TenantID = "ten-chen"
		body.Date = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
		req, rec = newAuthRequest(http.MethodPost, "/api/transactions", managerToken, marchallObj(t, body))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var tx finance.Transaction
		unmarchall(t, rec, &tx)
		assert.Equal(t, finance.TypeIncome, tx.Type)
		assert.Equal(t, "unit-m-102", tx.UnitID)
		assert.True(t, tx.Date.Equal(body.Date))
	})
}

func Test_financeApi_payments(t *testing.T) {
	srv, env := setup(t, true)
	ctx := context.Background()

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")

	runTests(t, srv, http.MethodPost, []httpTest{
		{
			name:     "owners cannot log payments",
			path:     "/api/payments",
			token:    ownerToken,
			body:     marchallObj(t, finance.Payment{TenantID: "ten-chen", Amount: core.NewMoney(1150), Method: "ach"}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown method",
			path:     "/api/payments",
			token:    managerToken,
			body:     marchallObj(t, finance.Payment{TenantID: "ten-chen", Amount: core.NewMoney(1150), Method: "barter"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "applicants do not pay rent",
			path:     "/api/payments",
			token:    managerToken,
			body:     marchallObj(t, finance.Payment{TenantID: "ten-nguyen", Amount: core.NewMoney(1650), Method: "ach"}),
			wantCode: http.StatusBadRequest,
		},
	})

	var tx finance.Transaction
	t.Run("log payment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/payments", managerToken, marchallObj(t, finance.Payment{
			TenantID: "ten-chen", Amount: core.NewMoney(1150), Method: "Check", Reference: "chk-2231",
		}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarchall(t, rec, &tx)
		assert.Equal(t, finance.CategoryRent, tx.Category)
		assert.Equal(t, "prop-maple", tx.PropertyID)
		assert.Equal(t, "Rent payment from Marcus Chen (check)", tx.Description)

		chen, err := env.Tenants.GetByID(ctx, "ten-chen")
		require.NoError(t, err)
		assert.Equal(t, core.Money(0), chen.Balance)
	})

	t.Run("deleting a payment restores the balance", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/transactions/"+tx.ID, managerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		chen, err := env.Tenants.GetByID(ctx, "ten-chen")
		require.NoError(t, err)
		assert.Equal(t, core.Money(115000), chen.Balance)
	})
}

func Test_financeApi_reports(t *testing.T) {
	srv, env := setup(t, true)

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")

	rentRoll := func(t *testing.T, token, query string) finance.RentRoll {
		req, rec := newAuthRequest(http.MethodGet, "/api/finance/rent-roll"+query, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var roll finance.RentRoll
		unmarchall(t, rec, &roll)
		return roll
	}
	tenantIDs := func(roll finance.RentRoll) []string {
		ids := make([]string, 0, len(roll.Items))
		for _, it := range roll.Items {
			ids = append(ids, it.TenantID)
		}
		return ids
	}

	t.Run("manager rent roll", func(t *testing.T) {
		roll := rentRoll(t, managerToken, "?period=2026-01")
		assert.Equal(t, "2026-01", roll.Period)
		assert.Equal(t, []string{"ten-ramirez", "ten-chen", "ten-brightway", "ten-patel"}, tenantIDs(roll))
		assert.Equal(t, core.Money(920000), roll.Totals.Due)
		assert.Equal(t, core.Money(580000), roll.Totals.Collected)
		assert.Equal(t, core.Money(340000), roll.Totals.Outstanding)
		assert.Equal(t, 63.0, roll.Totals.CollectionRate)
		assert.Equal(t, map[string]int{finance.RentPaid: 2, finance.RentOverdue: 1, finance.RentPartial: 1}, roll.Totals.Counts)
	})

	t.Run("status filter keeps the totals", func(t *testing.T) {
		roll := rentRoll(t, managerToken, "?period=2026-01&status=overdue&status=partial")
		assert.Equal(t, []string{"ten-chen", "ten-brightway"}, tenantIDs(roll))
		assert.Equal(t, core.Money(920000), roll.Totals.Due)
	})

	t.Run("owner rent roll", func(t *testing.T) {
		roll := rentRoll(t, ownerToken, "?period=2026-01")
		assert.Equal(t, []string{"ten-ramirez", "ten-chen", "ten-patel"}, tenantIDs(roll))
		assert.Equal(t, core.Money(470000), roll.Totals.Due)
		assert.Equal(t, core.Money(355000), roll.Totals.Collected)
		assert.Equal(t, 75.5, roll.Totals.CollectionRate)
	})

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "invalid rent roll status", path: "/api/finance/rent-roll?status=late", token: managerToken, wantCode: http.StatusBadRequest},
		{name: "invalid summary range", path: "/api/finance/summary?from=2026-01&to=2025-12", token: managerToken, wantCode: http.StatusBadRequest},
	})

	t.Run("owner summary", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/finance/summary?from=2025-12", ownerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sum finance.Summary
		unmarchall(t, rec, &sum)
		assert.Equal(t, "2025-12", sum.From)
		assert.Equal(t, "2025-12", sum.To)
		assert.Equal(t, core.Money(470000), sum.Income)
		assert.Equal(t, core.Money(129250), sum.Expenses)
		assert.Equal(t, core.Money(340750), sum.NOI)
		assert.Len(t, sum.Properties, 2)
	})

	t.Run("manager summary over two months", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/finance/summary?from=2025-12&to=2026-01", managerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sum finance.Summary
		unmarchall(t, rec, &sum)
		// 4 december rents + 3 january rents, minus repairs, insurance & utilities
		assert.Equal(t, core.Money(1275000), sum.Income)
		assert.Equal(t, core.Money(183250), sum.Expenses)
		assert.Equal(t, core.Money(1091750), sum.NOI)
	})
}
