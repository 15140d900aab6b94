package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ploxora/internal/auth"
	"ploxora/internal/users"
)

var newUser users.CreateRequest

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a panel account",
	Long:  "Create a panel account. Accounts whose email is listed in ADMIN_USERS are administrators.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Users.Create(context.Background(), auth.Principal{Username: "ploxoractl", Admin: true}, newUser)
		if err != nil {
			return err
		}
		role := auth.RoleUser
		if user.Admin {
			role = auth.RoleAdmin
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s <%s> (%s) as %s\n", user.Username, user.Email, user.ID, role)
		return nil
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List panel accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Users.List(context.Background())
		if err != nil {
			return err
		}
		for _, u := range list {
			flags := ""
			if u.Banned {
				flags = " [banned]"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s%s\n", u.ID, u.Username, u.Email, flags)
		}
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&newUser.Username, "username", "", "Display name")
	createUserCmd.Flags().StringVar(&newUser.Email, "email", "", "Login email")
	createUserCmd.Flags().StringVar(&newUser.Password, "password", "", "Login password")
	createUserCmd.MarkFlagRequired("username")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")

	RootCmd.AddCommand(createUserCmd, listUsersCmd)
}
