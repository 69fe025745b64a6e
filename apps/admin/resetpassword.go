package main

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/user"
)

func (cli *commandLine) resetPasswordCommand() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.promptPassword(false)
			if err != nil {
				return err
			}

			return cli.invoke(func(
				logger core.Logger,
				usrSvc user.Service,
				validate *validator.Validate,
				translator ut.Translator,
			) error {
				user.LoadCommonPasswords(logger)
				ctx := cmd.Context()

				usr, err := usrSvc.GetByUsernameOrEmail(ctx, uname)
				if err != nil {
					return err
				}
				uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
				if err = uu.Validate(ctx, usr, validate, usrSvc); err != nil {
					return describe(err, translator)
				}
				if _, err = usrSvc.Update(ctx, usr, uu); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cli.out, "password of %s updated\n", usr.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the user's username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
