package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/owner"
)

func Test_ownerApi_crud(t *testing.T) {
	srv, env := setup(t, true)
	ctx := context.Background()

	hartwell, err := env.Owners.GetByID(ctx, "own-hartwell")
	require.NoError(t, err)
	okafor, err := env.Owners.GetByID(ctx, "own-okafor")
	require.NoError(t, err)

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")
	tenantToken := getUserToken(t, env, "sramirez")

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "Auth required", path: "/api/owners", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "owners cannot list owners", path: "/api/owners", token: ownerToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "list", path: "/api/owners", token: managerToken, wantData: marchallList(t, hartwell, okafor)},
		{name: "search", path: "/api/owners?search=hartwell-holdings", token: managerToken, wantData: marchallList(t, hartwell)},
		{name: "owner sees themselves", path: "/api/owners/own-hartwell", token: ownerToken, wantData: marchallObj(t, hartwell)},
		{name: "owner cannot see other owners", path: "/api/owners/own-okafor", token: ownerToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "tenant cannot see owners", path: "/api/owners/own-hartwell", token: tenantToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{
			name:     "owners cannot update themselves",
			method:   http.MethodPut,
			path:     "/api/owners/own-hartwell",
			token:    ownerToken,
			body:     marchallObj(t, owner.NewOwner{Name: "Grace", Email: "grace@test.cd"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "owners with properties cannot be deleted",
			method:   http.MethodDelete,
			path:     "/api/owners/own-okafor",
			token:    managerToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "cannot delete an owner who still owns properties"}`),
		},
		{
			name:     "invalid owner",
			method:   http.MethodPost,
			path:     "/api/owners",
			token:    managerToken,
			body:     marchallObj(t, owner.NewOwner{Email: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field is required", "email": "email must be a valid email address"}`),
		},
	})

	var created owner.Owner
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/owners", managerToken, marchallObj(t, owner.NewOwner{
			Name: "  Mei Lin ", Email: "Mei@Lin.test", Company: "Lin Family Trust",
		}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarchall(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Mei Lin", created.Name)
		assert.Equal(t, "mei@lin.test", created.Email)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/owners/"+created.ID, managerToken, marchallObj(t, owner.NewOwner{
			Name: "Mei Lin", Email: "mei@lin.test", Phone: "+1 512 555 0101",
		}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got owner.Owner
		unmarchall(t, rec, &got)
		assert.Equal(t, "+1 512 555 0101", got.Phone)
		assert.Empty(t, got.Company)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/owners/"+created.ID, managerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		_, err := env.Owners.GetByID(ctx, created.ID)
		assert.True(t, core.IsNotFound(err))
	})
}

func Test_ownerApi_portfolio(t *testing.T) {
	srv, env := setup(t, true)

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "other owners' portfolios are hidden", path: "/api/owners/own-okafor/portfolio", token: ownerToken, wantCode: http.StatusNotFound},
		{
			name:     "invalid period",
			path:     "/api/owners/own-hartwell/portfolio?period=december",
			token:    ownerToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"from": "invalid period, expected YYYY-MM"}`),
		},
	})

	for _, token := range []string{ownerToken, managerToken} {
		req, rec := newAuthRequest(http.MethodGet, "/api/owners/own-hartwell/portfolio?period=2025-12", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var pf owner.Portfolio
		unmarchall(t, rec, &pf)
		assert.Equal(t, "own-hartwell", pf.Owner.ID)
		assert.Equal(t, "2025-12", pf.Period)
		require.Len(t, pf.Properties, 2)

		// sorted by name
		maple, riverside := pf.Properties[0], pf.Properties[1]
		assert.Equal(t, "prop-maple", maple.ID)
		assert.Equal(t, core.Money(260000), maple.Income)
		assert.Equal(t, core.Money(98000), maple.Expenses)
		assert.Equal(t, core.Money(162000), maple.NOI)
		assert.Equal(t, "prop-riverside", riverside.ID)
		assert.Equal(t, core.Money(178750), riverside.NOI)

		assert.Equal(t, 2, pf.Totals.Properties)
		assert.Equal(t, core.Money(470000), pf.Totals.Income)
		assert.Equal(t, core.Money(129250), pf.Totals.Expenses)
		assert.Equal(t, core.Money(340750), pf.Totals.NOI)
	}
}
