package main

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var (
		nu      user.NewUser
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reactivate an existing one with new roles and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if nu.Username == "" && nu.Email == "" {
				return errors.New("one of --username or --email is required")
			}
			if isAdmin {
				nu.Roles = []string{user.RoleManagerAdmin}
			}
			pwd, err := cli.promptPassword(true)
			if err != nil {
				return err
			}
			nu.Password, nu.PasswordConfirm = pwd, pwd

			return cli.invoke(func(
				logger core.Logger,
				usrSvc user.Service,
				validate *validator.Validate,
				translator ut.Translator,
			) error {
				user.LoadCommonPasswords(logger)
				return cli.addUser(cmd.Context(), usrSvc, validate, translator, nu)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&nu.Username, "username", "u", "", "username")
	f.StringVarP(&nu.Email, "email", "e", "", "email address")
	f.StringVarP(&nu.Name, "name", "n", "", "full name (defaults to the username or email)")
	f.StringSliceVar(&nu.Roles, "role", nil, "role to grant, may be repeated: manager:, manager:admin, owner:, tenant:")
	f.BoolVar(&isAdmin, "admin", false, "grant the manager:admin role")
	f.StringVar(&nu.OwnerID, "owner-id", "", "owner the user signs in for")
	f.StringVar(&nu.TenantID, "tenant-id", "", "tenant the user signs in for")
	return cmd
}

func (cli *commandLine) addUser(
	ctx context.Context,
	usrSvc user.Service,
	validate *validator.Validate,
	translator ut.Translator,
	nu user.NewUser,
) error {
	lookup := nu.Username
	if lookup == "" {
		lookup = nu.Email
	}

	usr, err := usrSvc.GetByUsernameOrEmail(ctx, lookup)
	switch {
	case err == nil:
		isActive := true
		uu := user.UpdateUser{
			Name:            nu.Name,
			Username:        nu.Username,
			Email:           nu.Email,
			IsActive:        &isActive,
			Roles:           nu.Roles,
			Password:        nu.Password,
			PasswordConfirm: nu.PasswordConfirm,
		}
		if nu.OwnerID != "" {
			uu.OwnerID = &nu.OwnerID
		}
		if nu.TenantID != "" {
			uu.TenantID = &nu.TenantID
		}
		if err = uu.Validate(ctx, usr, validate, usrSvc); err != nil {
			return describe(err, translator)
		}
		if _, err = usrSvc.Update(ctx, usr, uu); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "user %s updated\n", lookup)

	case core.IsNotFound(err):
		if nu.Name == "" {
			nu.Name = lookup
		}
		if len(nu.Roles) == 0 {
			nu.Roles = []string{user.RoleManager}
		}
		if err = nu.Validate(ctx, validate, usrSvc); err != nil {
			return describe(err, translator)
		}
		if _, err = usrSvc.Create(ctx, nu); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "user %s created\n", lookup)

	default:
		return err
	}
	return nil
}
