package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/user"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
)

const goodPassword = "Sup3r-Secret!"

func setup(t *testing.T, seeded bool) (*commandLine, *bytes.Buffer) {
	t.Helper()
	out := new(bytes.Buffer)
	cli := newCommandLine(func() *core.Config {
		conf := core.NewTestConfig()
		conf.SeedMockData = seeded
		return conf
	}, out)
	t.Cleanup(cli.close)
	return cli, out
}

// mockPasswords makes the password prompt answer `pwds` in turn, then an empty password.
func mockPasswords(t *testing.T, pwds ...string) {
	t.Helper()
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	readPasswordFunc = func(int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		pwd := pwds[0]
		pwds = pwds[1:]
		return []byte(pwd), nil
	}
}

func getUser(t *testing.T, cli *commandLine, uname string) user.User {
	t.Helper()
	var usr user.User
	err := cli.invoke(func(svc user.Service) (err error) {
		usr, err = svc.GetByUsernameOrEmail(context.Background(), uname)
		return err
	})
	require.NoError(t, err)
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, out := setup(t, false)

	require.NoError(t, cli.run(nil))
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "resetpassword")

	cliTest{wantErrStr: `unknown command "lol"`}.check(t, cli.run([]string{"lol"}))
	assert.False(t, cli.used)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t, false)

	type call struct {
		command string
		args    []string
	}
	var calls []call

	origRun, origOpen := gooseRunFunc, openDBFunc
	t.Cleanup(func() { gooseRunFunc, openDBFunc = origRun, origOpen })

	openDBFunc = func(context.Context, *core.Config) (*sql.DB, func(), error) {
		return nil, func() {}, nil
	}
	gooseRunFunc = func(_ *sql.DB, command string, args ...string) error {
		if command == "lol" {
			return errors.Errorf("%q: no such command", command)
		}
		calls = append(calls, call{command: command, args: args})
		return nil
	}

	tests := []cliTest{
		{name: "no command", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s)"},
		{name: "unknown command", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up", args: []string{"migrate", "up"}, extra: call{command: "up", args: []string{}}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}, extra: call{command: "up-to", args: []string{"2"}}},
		{name: "status", args: []string{"migrate", "status"}, extra: call{command: "status", args: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = nil
			tt.check(t, cli.run(tt.args))
			if want, ok := tt.extra.(call); ok {
				require.Len(t, calls, 1)
				assert.Equal(t, want.command, calls[0].command)
				assert.ElementsMatch(t, want.args, calls[0].args)
			}
		})
	}

	t.Run("database errors", func(t *testing.T) {
		openDBFunc = func(context.Context, *core.Config) (*sql.DB, func(), error) {
			return nil, nil, errors.New("connection refused")
		}
		cliTest{wantErrStr: "connection refused"}.check(t, cli.run([]string{"migrate", "up"}))
	})
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t, false)

	t.Run("invalid snapshot", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "snap.json")
		require.NoError(t, os.WriteFile(file, []byte(`{"tenants": "nope"}`), 0o600))
		assert.Error(t, cli.run([]string{"seed", "--file", file}))
	})

	t.Run("missing snapshot", func(t *testing.T) {
		cliTest{wantErrStr: "reading snapshot"}.check(t, cli.run([]string{"seed", "-f", filepath.Join(t.TempDir(), "nope.json")}))
	})

	t.Run("demo data", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"seed"}))
		assert.Contains(t, out.String(), "tenant: 5\n")
		assert.Contains(t, out.String(), "user: 4\n")

		var counts map[string]int
		require.NoError(t, cli.invoke(func(store *inmemdb.DB) { counts = store.Counts() }))
		assert.Equal(t, 3, counts[inmemdb.KindProperty])
	})

	t.Run("seeding twice is harmless", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"seed"}))
		assert.Contains(t, out.String(), "tenant: 5\n")
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t, true)

	tests := []cliTest{
		{name: "no username nor email", args: []string{"adduser", "--name", "Awe"}, wantErrStr: "one of --username or --email is required"},
		{name: "no password", args: []string{"adduser", "-u", "awe"}, wantErr: errEmptyPassword},
		{name: "passwords mismatch", args: []string{"adduser", "-u", "awe"}, wantErr: errPasswordMismatch, extra: []string{goodPassword, "lol"}},
		{name: "weak password", args: []string{"adduser", "-u", "awe"}, wantErrStr: "password: ", extra: []string{"lol", "lol"}},
		{name: "unknown role", args: []string{"adduser", "-u", "awe", "--role", "boss"}, wantErrStr: "roles: ", extra: []string{goodPassword, goodPassword}},
		{name: "email taken", args: []string{"adduser", "-u", "awe", "-e", "jamie@kodi.local"}, wantErrStr: "email: a user with this email already exists", extra: []string{goodPassword, goodPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwds, _ := tt.extra.([]string)
			mockPasswords(t, pwds...)
			tt.check(t, cli.run(tt.args))
		})
	}

	t.Run("create", func(t *testing.T) {
		mockPasswords(t, goodPassword, goodPassword)
		out.Reset()
		require.NoError(t, cli.run([]string{
			"adduser", "-u", "DOkafor", "-e", "daniel@okafor.example.com", "-n", "Daniel Okafor",
			"--role", user.RoleOwner, "--owner-id", "own-okafor",
		}))
		assert.Contains(t, out.String(), "user DOkafor created")

		usr := getUser(t, cli, "dokafor")
		assert.Equal(t, "Daniel Okafor", usr.Name)
		assert.Equal(t, "daniel@okafor.example.com", usr.Email)
		assert.Equal(t, []string{user.RoleOwner}, usr.Roles)
		assert.Equal(t, "own-okafor", usr.OwnerID)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(goodPassword))
	})

	t.Run("defaults", func(t *testing.T) {
		mockPasswords(t, goodPassword, goodPassword)
		require.NoError(t, cli.run([]string{"adduser", "-e", "ops@kodi.local"}))

		usr := getUser(t, cli, "ops@kodi.local")
		assert.Equal(t, "ops@kodi.local", usr.Name)
		assert.Equal(t, []string{user.RoleManager}, usr.Roles)
	})

	t.Run("promote an existing user", func(t *testing.T) {
		mockPasswords(t, goodPassword, goodPassword)
		out.Reset()
		require.NoError(t, cli.run([]string{"adduser", "-u", "jamie", "--admin"}))
		assert.Contains(t, out.String(), "user jamie updated")

		usr := getUser(t, cli, "jamie")
		assert.Equal(t, "Jamie Lee", usr.Name)
		assert.Equal(t, "jamie@kodi.local", usr.Email)
		assert.Equal(t, []string{user.RoleManagerAdmin}, usr.Roles)
		assert.NoError(t, usr.CheckPassword(goodPassword))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, out := setup(t, true)

	tests := []cliTest{
		{name: "no username", args: []string{"resetpassword"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "no password", args: []string{"resetpassword", "-u", "jamie"}, wantErr: errEmptyPassword},
		{name: "user not found", args: []string{"resetpassword", "-u", "lol"}, wantErr: user.ErrNotFound, extra: goodPassword},
		{name: "weak password", args: []string{"resetpassword", "-u", "jamie"}, wantErrStr: "password: ", extra: "12345678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if pwd, ok := tt.extra.(string); ok {
				mockPasswords(t, pwd)
			} else {
				mockPasswords(t)
			}
			tt.check(t, cli.run(tt.args))
		})
	}

	for _, uname := range []string{"sramirez", "JAMIE@kodi.local"} {
		t.Run("reset "+uname, func(t *testing.T) {
			before := getUser(t, cli, uname)
			mockPasswords(t, goodPassword)
			out.Reset()
			require.NoError(t, cli.run([]string{"resetpassword", "--username", uname}))
			assert.Contains(t, out.String(), "password of "+before.Username+" updated")

			after := getUser(t, cli, uname)
			assert.False(t, bytes.Equal(before.PasswordHash, after.PasswordHash))
			assert.NoError(t, after.CheckPassword(goodPassword))
			assert.Equal(t, before.Roles, after.Roles)
		})
	}
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t, true)

	tests := []cliTest{
		{name: "no name", args: []string{"export"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "unknown export", args: []string{"export", "vendors"}, wantErrStr: `unknown export "vendors", expected one of: owners, properties, rent-roll, transactions`},
		{name: "invalid period", args: []string{"export", "rent-roll", "-p", "jan"}, wantErrStr: "invalid period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(tt.args))
		})
	}

	t.Run("to stdout", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"export", "owners.csv"}))
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Name,Email,Phone,Company,Address,Properties", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "Daniel Okafor,"))
	})

	t.Run("to a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "rent-roll.csv")
		require.NoError(t, cli.run([]string{"export", "rent-roll", "--period", "2026-01", "-o", file}))

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Len(t, lines, 6)
		assert.True(t, strings.HasPrefix(lines[5], "2026-01,Total,"))
	})
}
