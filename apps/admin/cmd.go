package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/sample"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB // postgres engine only
	usrSvc   *user.Service
	studSvc  *student.Service
	dir      *directory.Directory
	fallback *sample.Dataset
	out      io.Writer
}

// caller is the identity the CLI acts on behalf of.
func (cli *commandLine) caller() user.Caller {
	return user.Caller{ID: "admin-cli", Name: "Admin CLI", Email: cli.conf.AdminEmail, Role: user.RoleAdmin}
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Student directory administration",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cli.usage,
	}
	root.SetOut(cli.out)
	root.AddCommand(
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.migrateCmd(),
		cli.seedCmd(),
		cli.importCmd(),
		cli.exportCmd(),
	)
	return root
}

// usage prints the help of cmd; it is run when a command is missing its arguments.
func (cli *commandLine) usage(cmd *cobra.Command, _ []string) error {
	_ = cmd.Usage()
	return errHelp
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.Execute()
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(cmd *cobra.Command) (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", cli.usage(cmd, nil)
	}
	return string(pwd), nil
}
