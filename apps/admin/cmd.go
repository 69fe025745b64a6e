package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"golang.org/x/term"

	"github.com/trezcool/kodi/apps/api/di"
	"github.com/trezcool/kodi/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword    = errors.New("password cannot be empty")
	errPasswordMismatch = errors.New("passwords do not match")
)

// commandLine resolves its dependencies from the API container, so that admin commands
// act on the same store as the API.
type commandLine struct {
	container *dig.Container
	conf      *core.Config
	out       io.Writer
	used      bool
}

func newCommandLine(newConfig func() *core.Config, out io.Writer) *commandLine {
	cli := &commandLine{
		container: di.New(newConfig),
		out:       out,
	}
	if err := cli.container.Invoke(func(conf *core.Config) { cli.conf = conf }); err != nil {
		panic(err)
	}
	return cli
}

func (cli *commandLine) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Kodi administration commands",
		SilenceUsage: true,
	}
	root.SetOut(cli.out)
	root.AddCommand(
		cli.migrateCommand(),
		cli.seedCommand(),
		cli.addUserCommand(),
		cli.resetPasswordCommand(),
		cli.exportCommand(),
	)
	return root
}

// run parses args (without the program name) and runs the matching command.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCommand()
	root.SetArgs(append([]string{}, args...))
	return root.ExecuteContext(context.Background())
}

// invoke calls fn with its arguments resolved from the container.
func (cli *commandLine) invoke(fn interface{}) error {
	cli.used = true
	return cli.container.Invoke(fn)
}

// close releases what the commands opened.
func (cli *commandLine) close() {
	if !cli.used {
		return
	}
	_ = cli.container.Invoke(func(closers di.Closers) { closers.Close() })
}

func (cli *commandLine) promptPassword(confirm bool) (string, error) {
	read := func(prompt string) ([]byte, error) {
		_, _ = fmt.Fprint(cli.out, prompt)
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(cli.out)
		return pwd, err
	}

	pwd, err := read("Password: ")
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	if confirm {
		again, err := read("Password (again): ")
		if err != nil {
			return "", err
		}
		if !bytes.Equal(pwd, again) {
			return "", errPasswordMismatch
		}
	}
	return string(pwd), nil
}

// describe flattens validation errors into one line of `field: message` pairs.
func describe(err error, translator ut.Translator) error {
	var msgs []string
	switch verr := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range verr {
			msgs = append(msgs, fe.Field()+": "+fe.Translate(translator))
		}
	case *core.ValidationError:
		for _, fe := range verr.Fields {
			msgs = append(msgs, fe.Field+": "+fe.Error)
		}
	}
	if len(msgs) == 0 {
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
