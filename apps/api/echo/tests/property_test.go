package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
)

func Test_propertyApi_query(t *testing.T) {
	srv, env := setup(t, true)
	ctx := context.Background()

	summary := func(id string) property.Summary {
		s, err := env.Properties.GetSummary(ctx, id)
		require.NoError(t, err)
		return s
	}
	maple, riverside, oak := summary("prop-maple"), summary("prop-riverside"), summary("prop-oakplaza")

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")
	tenantToken := getUserToken(t, env, "sramirez")

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "Auth required", path: "/api/properties", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "tenants not allowed", path: "/api/properties", token: tenantToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "manager sees all", path: "/api/properties", token: managerToken, wantData: marchallList(t, maple, riverside, oak)},
		{name: "owner sees theirs", path: "/api/properties", token: ownerToken, wantData: marchallList(t, maple, riverside)},
		{name: "owner narrows by id", path: "/api/properties?id=prop-riverside&id=prop-oakplaza", token: ownerToken, wantData: marchallList(t, riverside)},
		{name: "search", path: "/api/properties?search=lofts", token: managerToken, wantData: marchallList(t, riverside)},
		{name: "type", path: "/api/properties?type=commercial", token: managerToken, wantData: marchallList(t, oak)},
		{name: "retrieve", path: "/api/properties/prop-maple", token: ownerToken, wantData: marchallObj(t, maple)},
		{name: "retrieve out of scope", path: "/api/properties/prop-oakplaza", token: ownerToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "retrieve unknown", path: "/api/properties/lol", token: managerToken, wantCode: http.StatusNotFound},
	})

	assert.Equal(t, 3, maple.Units)
	assert.Equal(t, 2, maple.Occupied)
}

func Test_propertyApi_nearby(t *testing.T) {
	srv, env := setup(t, true)
	ctx := context.Background()

	get := func(id string) property.Property {
		p, err := env.Properties.GetByID(ctx, id)
		require.NoError(t, err)
		return p
	}
	maple, riverside := get("prop-maple"), get("prop-riverside")

	runTests(t, srv, http.MethodGet, []httpTest{
		{
			name: "invalid coordinates", path: "/api/properties/nearby?lat=lol&lng=200&precision=-1", token: getUserToken(t, env, "jamie"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"lat":       "lat must be a valid latitude",
				"lng":       "lng must be a valid longitude",
				"precision": "precision must be a positive integer",
			}),
		},
		{
			name: "downtown Austin", path: "/api/properties/nearby?lat=30.2672&lng=-97.7431", token: getUserToken(t, env, "jamie"),
			wantData: marchallList(t, maple, riverside),
		},
		{
			name: "out of the owner's scope", path: "/api/properties/nearby?lat=30.5083&lng=-97.6789", token: getUserToken(t, env, "ghartwell"),
			wantData: marchallList(t),
		},
	})
}

func Test_propertyApi_manage(t *testing.T) {
	srv, env := setup(t, true)

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")
	reqMsg := "this field is required"

	runTests(t, srv, http.MethodPost, []httpTest{
		{name: "manager required", path: "/api/properties", token: ownerToken, body: []byte(`{}`), wantCode: http.StatusForbidden},
		{
			name: "required fields", path: "/api/properties", token: managerToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": reqMsg, "type": reqMsg, "address": reqMsg, "city": reqMsg}),
		},
		{
			name: "unknown type", path: "/api/properties", token: managerToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, property.NewProperty{Name: "Castle", Type: "castle", Address: "1 Hill Rd", City: "Austin"}),
			wantData: marchallObj(t, map[string]string{"type": "must be one of: residential, commercial, mixed"}),
		},
	})

	var prop property.Property
	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, property.NewProperty{
			Name: "  Cedar Row ", Type: "Residential", Address: "12 Cedar St", City: "Austin", State: "TX",
			OwnerID: "own-okafor", Latitude: 30.2849, Longitude: -97.7341,
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/properties", managerToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarchall(t, rec, &prop)
		assert.NotEmpty(t, prop.ID)
		assert.Equal(t, "Cedar Row", prop.Name)
		assert.Equal(t, property.TypeResidential, prop.Type)
		assert.NotEmpty(t, prop.Geohash)
	})

	var unit property.Unit
	t.Run("add unit", func(t *testing.T) {
		body := marchallObj(t, property.NewUnit{Number: "1A", Bedrooms: 2, Bathrooms: 1, SquareFeet: 850, MarketRent: core.NewMoney(1300)})
		req, rec := newAuthRequest(http.MethodPost, "/api/properties/"+prop.ID+"/units", managerToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarchall(t, rec, &unit)
		assert.Equal(t, prop.ID, unit.PropertyID)
		assert.Equal(t, property.UnitVacant, unit.Status)
	})

	t.Run("owner cannot see another owner's unit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/units/"+unit.ID, ownerToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list the vacant unit", func(t *testing.T) {
		body := marchallObj(t, property.PublishListing{Marketplaces: []string{"Zillow", "craigslist", "zillow"}})
		req, rec := newAuthRequest(http.MethodPut, "/api/units/"+unit.ID+"/listing", managerToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got property.Unit
		unmarchall(t, rec, &got)
		assert.True(t, got.Listing.Published)
		assert.Equal(t, []string{"craigslist", "zillow"}, got.Listing.Marketplaces)
	})

	t.Run("occupied units cannot be listed", func(t *testing.T) {
		body := marchallObj(t, property.PublishListing{Marketplaces: []string{"zillow"}})
		req, rec := newAuthRequest(http.MethodPut, "/api/units/unit-m-101/listing", managerToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "only vacant units or units on notice can be listed"}`, rec.Body.String())
	})

	t.Run("listed units filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/units?listed=true", managerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var units []property.Unit
		unmarchall(t, rec, &units)
		ids := make([]string, 0, len(units))
		for _, u := range units {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{"unit-m-201", unit.ID}, ids)
	})

	t.Run("occupied properties cannot be deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/properties/prop-maple", managerToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "cannot delete while tenants occupy it"}`, rec.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/properties/"+prop.ID, managerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		_, err := env.Properties.GetByID(context.Background(), prop.ID)
		assert.True(t, core.IsNotFound(err))
	})
}

func Test_propertyApi_buildingsAndUnits(t *testing.T) {
	srv, env := setup(t, true)

	managerToken := getUserToken(t, env, "jamie")
	ownerToken := getUserToken(t, env, "ghartwell")

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "buildings of an out of scope property", path: "/api/properties/prop-oakplaza/buildings", token: ownerToken, wantCode: http.StatusNotFound},
		{name: "units of an out of scope property", path: "/api/properties/prop-oakplaza/units", token: ownerToken, wantCode: http.StatusNotFound},
		{name: "tenants see no units", path: "/api/units", token: getUserToken(t, env, "sramirez"), wantCode: http.StatusForbidden},
	})

	t.Run("owner vacant units", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/units?status=vacant", ownerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var units []property.Unit
		unmarchall(t, rec, &units)
		ids := make([]string, 0, len(units))
		for _, u := range units {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{"unit-m-201", "unit-r-2"}, ids)
	})

	t.Run("property units", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/properties/prop-maple/units", ownerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var units []property.Unit
		unmarchall(t, rec, &units)
		assert.Len(t, units, 3)
	})

	var building property.Building
	t.Run("create building", func(t *testing.T) {
		body := marchallObj(t, property.NewBuilding{Name: "Building C", Floors: 3})
		req, rec := newAuthRequest(http.MethodPost, "/api/properties/prop-maple/buildings", managerToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarchall(t, rec, &building)
		assert.Equal(t, "prop-maple", building.PropertyID)
	})

	t.Run("list buildings", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/properties/prop-maple/buildings", ownerToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var buildings []property.Building
		unmarchall(t, rec, &buildings)
		assert.Len(t, buildings, 3)
	})

	t.Run("rename building", func(t *testing.T) {
		body := marchallObj(t, property.NewBuilding{Name: "Building C (annex)", Floors: 3})
		req, rec := newAuthRequest(http.MethodPut, "/api/buildings/"+building.ID, managerToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got property.Building
		unmarchall(t, rec, &got)
		assert.Equal(t, "Building C (annex)", got.Name)
	})

	t.Run("owners cannot delete buildings", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/buildings/"+building.ID, ownerToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete building", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/buildings/"+building.ID, managerToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})
}
