package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/apps/api/echo"
	"github.com/trezcool/kodi/core/user"
	"github.com/trezcool/kodi/tests"
)

func Test_userApi_userLogin(t *testing.T) {
	srv, env := setup(t, true)

	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@test.cd", "Kodi-Naughty-2026", []string{user.RoleTenant}, false)

	tests := []struct {
		name     string
		body     echoapi.LoginRequest
		wantCode int
		wantErr  interface{}
	}{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantErr: echoapi.LoginRequest{Username: "this field is required", Password: "this field is required"},
		},
		{
			name: "unknown user", body: echoapi.LoginRequest{Username: "lol", Password: "Kodi-Admin-2026"},
			wantCode: http.StatusBadRequest, wantErr: httpErr{Error: "authentication failed"},
		},
		{
			name: "wrong password", body: echoapi.LoginRequest{Username: "admin", Password: "lol"},
			wantCode: http.StatusBadRequest, wantErr: httpErr{Error: "authentication failed"},
		},
		{
			name: "inactive user", body: echoapi.LoginRequest{Username: naughty.Username, Password: "Kodi-Naughty-2026"},
			wantCode: http.StatusForbidden, wantErr: httpErr{Error: "account deactivated"},
		},
		{name: "by username", body: echoapi.LoginRequest{Username: "admin", Password: "Kodi-Admin-2026"}, wantCode: http.StatusOK},
		{name: "by email", body: echoapi.LoginRequest{Username: "JAMIE@kodi.local", Password: "Kodi-Manager-2026"}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if tt.body != (echoapi.LoginRequest{}) {
				body = marchallObj(t, tt.body)
			}
			req, rec := newRequest(http.MethodPost, "/api/users/login", body)
			srv.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != nil {
				assert.JSONEq(t, string(marchallObj(t, tt.wantErr)), rec.Body.String())
				return
			}

			var resp echoapi.LoginResponse
			unmarchall(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)

			usr := env.GetUser(t, tt.body.Username)
			assert.False(t, usr.LastLogin.IsZero(), "last login not set")
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	srv, env := setup(t, false)

	path := func(search, ordering string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	usr1 := testutil.CreateUser(t, env.UserRepo, "User", "awe", "awe@test.cd", "", nil, true, now.Add(1*time.Hour))
	usr2 := testutil.CreateUser(t, env.UserRepo, "King", "user02", "king@test.cd", "", nil, true, now.Add(2*time.Hour))
	tnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleTenant}, true, now.Add(3*time.Hour))
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleManagerAdmin}, true, now.Add(4*time.Hour))
	manager := testutil.CreateUser(t, env.UserRepo, "Manager", "manager", "manager@test.cd", "", []string{user.RoleManager}, true, now.Add(5*time.Hour))
	own := testutil.CreateUser(t, env.UserRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleOwner}, true, now.Add(6*time.Hour))
	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleTenant}, false, now.Add(7*time.Hour))

	adminToken := getToken(t, env, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Manager required", path: "/api/users", token: getToken(t, env, tnt), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Owners are not managers", path: "/api/users", token: getToken(t, env, own), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "Get all", path: "/api/users", token: getToken(t, env, manager),
			wantData: marchallList(t, usr1, usr2, tnt, admin, manager, own, naughty),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", nil), token: adminToken, wantData: empty},
		{name: "search=USE", path: path("USE", "", nil), token: adminToken, wantData: marchallList(t, usr1, usr2, tnt)},
		{name: "role (unknown)", path: path("", "", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=manager:admin", path: path("", "", nil, user.RoleManagerAdmin), token: adminToken, wantData: marchallList(t, admin)},
		{
			name: "role=manager:,owner:", path: path("", "", nil, user.RoleManager, user.RoleOwner),
			token: adminToken, wantData: marchallList(t, manager, own),
		},
		{name: "role=tenant:", path: path("", "", nil, user.RoleTenant), token: adminToken, wantData: marchallList(t, tnt, naughty)},
		{
			name: "is_active=true", path: path("", "", bPtr(true)),
			token: adminToken, wantData: marchallList(t, usr1, usr2, tnt, admin, manager, own),
		},
		{name: "is_active=false", path: path("", "", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "all combo (empty)", path: path("USE", "", bPtr(false), user.RoleManager), token: adminToken, wantData: empty},
		{name: "all combo (found)", path: path("her", "", bPtr(true), user.RoleTenant), token: adminToken, wantData: marchallList(t, tnt)},
	}
	runTests(t, srv, http.MethodGet, tests)

	orderingTests := []struct {
		name     string
		ordering string
		want     []user.User
	}{
		{name: "default", want: []user.User{usr1, usr2, tnt, admin, manager, own, naughty}},
		{name: "-created_at", ordering: "-created_at", want: []user.User{naughty, own, manager, admin, tnt, usr2, usr1}},
		{name: "name", ordering: "name", want: []user.User{admin, tnt, usr2, manager, naughty, own, usr1}},
		{name: "-username", ordering: "-username", want: []user.User{usr2, own, naughty, manager, tnt, usr1, admin}},
	}
	for _, tt := range orderingTests {
		t.Run("order by "+tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path("", tt.ordering, nil), adminToken)
			srv.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, string(marchallObj(t, tt.want)), rec.Body.String())
		})
	}
}

func Test_userApi_userRetrieveUpdate(t *testing.T) {
	srv, env := setup(t, true)

	manager := env.GetUser(t, "jamie")
	tnt := env.GetUser(t, "sramirez")
	own := env.GetUser(t, "ghartwell")
	tntToken := getToken(t, env, tnt)

	runTests(t, srv, http.MethodGet, []httpTest{
		{name: "Auth required", path: "/api/users/" + tnt.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "self", path: "/api/users/" + tnt.ID, token: tntToken, wantData: marchallObj(t, tnt)},
		{name: "someone else", path: "/api/users/" + own.ID, token: tntToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "manager sees all", path: "/api/users/" + own.ID, token: getToken(t, env, manager), wantData: marchallObj(t, own)},
		{name: "unknown", path: "/api/users/lol", token: getToken(t, env, manager), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	})

	t.Run("tenant cannot change their roles", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"roles": []string{user.RoleManager}})
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+tnt.ID, tntToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, string(marchallObj(t, errForbidden)), rec.Body.String())
	})

	t.Run("tenant renames themselves", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"name": "Sofia R. Ramirez"})
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+tnt.ID, tntToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got user.User
		unmarchall(t, rec, &got)
		assert.Equal(t, "Sofia R. Ramirez", got.Name)
		assert.Equal(t, tnt.Username, got.Username)
		assert.Equal(t, tnt.Roles, got.Roles)
	})

	t.Run("manager cannot grant manager:admin", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"roles": []string{user.RoleManagerAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+own.ID, getToken(t, env, manager), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"roles": "not enough rights to set these roles"}`, rec.Body.String())
	})

	t.Run("manager deactivates a user", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"is_active": false})
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+own.ID, getToken(t, env, manager), body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.False(t, env.GetUser(t, own.Username).IsActive)
	})
}

func Test_userApi_userCreate(t *testing.T) {
	srv, env := setup(t, true)

	adminToken := getUserToken(t, env, "admin")
	managerToken := getUserToken(t, env, "jamie")

	t.Run("manager required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/users/register", getUserToken(t, env, "sramirez"), []byte(`{}`))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name: "Jamie Two", Username: "jamie", Password: "Sup3r-Secret!", PasswordConfirm: "Sup3r-Secret!",
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/users/register", adminToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"username": "a user with this username already exists"}`, rec.Body.String())
	})

	t.Run("manager cannot create admins", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name: "Boss", Username: "boss", Password: "Sup3r-Secret!", PasswordConfirm: "Sup3r-Secret!",
			Roles: []string{user.RoleManagerAdmin},
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/users/register", managerToken, body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("owner portal user", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name: "Daniel Okafor", Email: "daniel.okafor@example.com", Password: "Sup3r-Secret!", PasswordConfirm: "Sup3r-Secret!",
			Roles: []string{user.RoleOwner}, OwnerID: "own-okafor",
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/users/register", managerToken, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got user.User
		unmarchall(t, rec, &got)
		assert.NotEmpty(t, got.ID)
		assert.True(t, got.IsActive)
		assert.Equal(t, "own-okafor", got.OwnerID)

		// and can log in right away
		req, rec = newRequest(http.MethodPost, "/api/users/login", marchallObj(t, echoapi.LoginRequest{
			Username: "daniel.okafor@example.com", Password: "Sup3r-Secret!",
		}))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_userDestroy(t *testing.T) {
	srv, env := setup(t, true)

	admin := env.GetUser(t, "admin")
	adminToken := getToken(t, env, admin)
	extra1 := testutil.CreateUser(t, env.UserRepo, "Extra One", "extra1", "extra1@test.cd", "", nil, true)
	extra2 := testutil.CreateUser(t, env.UserRepo, "Extra Two", "extra2", "extra2@test.cd", "", nil, true)
	extra3 := testutil.CreateUser(t, env.UserRepo, "Extra Three", "extra3", "extra3@test.cd", "", nil, true)

	runTests(t, srv, http.MethodDelete, []httpTest{
		{name: "admin required", path: "/api/users/" + extra1.ID, token: getUserToken(t, env, "jamie"), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "cannot delete self", path: "/api/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "delete one", path: "/api/users/" + extra1.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "cannot delete self (multiple)", path: "/api/users?id=" + extra2.ID + "&id=" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete multiple", path: "/api/users?id=" + extra2.ID + "&id=" + extra3.ID, token: adminToken, wantCode: http.StatusNoContent},
	})

	for _, id := range []string{extra1.ID, extra2.ID, extra3.ID} {
		_, err := env.Users.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, user.ErrNotFound, id)
	}
}

func Test_userApi_userRefreshToken(t *testing.T) {
	srv, env := setup(t, false)

	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleTenant}, false)
	tnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleTenant}, true)

	// older than the refresh threshold
	origIat := time.Now().Add(-2 * env.Conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := echoapi.GenerateToken(env.Conf, echoapi.NewClaims(env.Conf, tnt, origIat))
	require.NoError(t, err)

	forgedClaims := echoapi.NewClaims(env.Conf, tnt)
	forgedClaims.StandardClaims = jwt.StandardClaims{Subject: tnt.ID, ExpiresAt: time.Now().Add(-time.Minute).Unix()}
	expiredToken, err := echoapi.GenerateToken(env.Conf, forgedClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Expired token", token: expiredToken, wantCode: http.StatusUnauthorized},
		{name: "Inactive user not allowed", token: getToken(t, env, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, env, tnt), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var respData echoapi.LoginResponse
				unmarchall(t, rec, &respData)
				assert.NotEmpty(t, respData.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	srv, env := setup(t, false)

	tnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleTenant}, true)
	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleTenant}, false)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex := regexp.MustCompile("/password-reset/.+/.+")

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "inactive user", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: naughty.Email}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: tnt.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: tnt.Name, Address: tnt.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			env.Mail.Reset()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			extra, ok := tt.extra.(extraTest)
			if !ok {
				return
			}
			sent := env.Mail.Sent()
			if !extra.emailSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			msg := sent[0]
			assert.Equal(t, extra.to, msg.To[0])
			assert.Contains(t, msg.TextContent, extra.to.Name)
			assert.Contains(t, msg.HTMLContent, extra.to.Name)
			assert.Regexp(t, pathRegex, msg.TextContent)
			assert.Regexp(t, pathRegex, msg.HTMLContent)
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	srv, env := setup(t, false)

	tnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "user3@test.cd", "lol", []string{user.RoleTenant}, true)
	validUID := user.EncodeUID(tnt)
	validToken, err := user.MakeToken(tnt)
	require.NoError(t, err)

	reqMsg := "this field is required"
	invalidToken := user.ResetUserPassword{Token: "invalid token"}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: reqMsg, PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol12345", PasswordConfirm: "lol12345"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "!!", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, invalidToken),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, invalidToken),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, invalidToken),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token is single use", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t456", PasswordConfirm: "LolC@t456"}),
			wantData: marchallObj(t, invalidToken),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := env.Users.GetByID(context.Background(), tnt.ID)
				require.NoError(t, err)
				if bytes.Equal(refreshed.PasswordHash, tnt.PasswordHash) {
					t.Fatalf("failed to update new password")
				}
				assert.NoError(t, refreshed.CheckPassword("LolC@t123"))
			}
		})
	}
}
