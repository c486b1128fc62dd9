package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/studentdir/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reactivate it with a new name and password. The password is prompted next.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || name == "" {
				return cli.usage(cmd, args)
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.addUser(cmd, name, email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&name, "name", "", "the user's name")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(cmd *cobra.Command, name, email, pwd string) error {
	usr, err := cli.usrSvc.AddOrUpdate(cmd.Context(), user.NewUser{Name: name, Email: email, Password: pwd})
	if err != nil {
		return err
	}
	cli.printf("user %s saved with role %s\n", usr.Email, cli.usrSvc.Caller(usr).Role)
	return nil
}
