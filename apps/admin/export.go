package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	exportsvc "github.com/trezcool/kodi/services/export"
)

func (cli *commandLine) exportCommand() *cobra.Command {
	var opts struct {
		period string
		output string
	}
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a CSV export (owners, properties, rent-roll, transactions)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.invoke(func(svc exportsvc.Service) (err error) {
				var w io.Writer = cli.out
				if opts.output != "" {
					f, ferr := os.Create(opts.output)
					if ferr != nil {
						return errors.Wrap(ferr, "creating output file")
					}
					defer func() {
						if cerr := f.Close(); err == nil {
							err = cerr
						}
					}()
					w = f
				}

				err = svc.Export(cmd.Context(), args[0], exportsvc.Options{Period: opts.period}, w)
				if errors.Is(err, exportsvc.ErrUnknownExport) {
					return errors.Errorf("unknown export %q, expected one of: %s", args[0], strings.Join(svc.Names(), ", "))
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&opts.period, "period", "p", "", "month to export, as YYYY-MM")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file to write to (defaults to stdout)")
	return cmd
}
